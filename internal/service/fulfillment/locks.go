package fulfillment

import (
	"sync"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

// serialLocks держит мьютексы по серийному номеру с подсчётом ссылок.
// Запись удаляется, когда её больше никто не держит и не ждёт.
type serialLocks struct {
	mu      sync.Mutex
	entries map[string]*serialLock
}

type serialLock struct {
	mu   sync.Mutex
	refs int
}

func newSerialLocks() *serialLocks {
	return &serialLocks{entries: make(map[string]*serialLock)}
}

// lock блокирует serial и возвращает функцию освобождения.
func (l *serialLocks) lock(serial string) func() {
	l.mu.Lock()
	entry, ok := l.entries[serial]
	if !ok {
		entry = &serialLock{}
		l.entries[serial] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, serial)
		}
		l.mu.Unlock()
	}
}

func (l *serialLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// orderClaims отмечает заказы, которые сейчас обрабатывает какой-либо проход.
// Захват и освобождение выполняются под блокировкой serial.
type orderClaims struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newOrderClaims() *orderClaims {
	return &orderClaims{inFlight: make(map[string]struct{})}
}

// claim делит заказы на захваченные этим проходом и уже занятые другим.
func (c *orderClaims) claim(orders []domain.Order) (claimed, busy []domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, order := range orders {
		if _, ok := c.inFlight[order.ID]; ok {
			busy = append(busy, order)
			continue
		}
		c.inFlight[order.ID] = struct{}{}
		claimed = append(claimed, order)
	}
	return claimed, busy
}

func (c *orderClaims) release(orderID string) {
	c.mu.Lock()
	delete(c.inFlight, orderID)
	c.mu.Unlock()
}

func (c *orderClaims) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight)
}
