package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

type customerRepositoryInMemory struct {
	mu      sync.RWMutex
	byID    map[string]domain.Customer
	byEmail map[string]string
}

// NewCustomerRepository создаёт in-memory реализацию CustomerRepository.
func NewCustomerRepository() *customerRepositoryInMemory {
	return &customerRepositoryInMemory{
		byID:    make(map[string]domain.Customer),
		byEmail: make(map[string]string),
	}
}

// Add регистрирует клиента с заданным ID (используется в тестах и сидировании).
func (r *customerRepositoryInMemory) Add(customer domain.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[customer.ID] = customer
	r.byEmail[customer.Email] = customer.ID
}

func (r *customerRepositoryInMemory) Get(_ context.Context, id string) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.byID[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

func (r *customerRepositoryInMemory) GetOrCreateByEmail(_ context.Context, email string) (domain.Customer, error) {
	if email == "" {
		return domain.Customer{}, domain.ErrEmailRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byEmail[email]; ok {
		return r.byID[id], nil
	}
	customer := domain.Customer{ID: uuid.NewString(), Email: email}
	r.byID[customer.ID] = customer
	r.byEmail[email] = customer.ID
	return customer, nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
