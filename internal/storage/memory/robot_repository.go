package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

// robotRepositoryInMemory хранит роботов в порядке вставки.
type robotRepositoryInMemory struct {
	mu     sync.RWMutex
	ids    map[string]struct{}
	robots []domain.Robot
}

// NewRobotRepository создаёт in-memory реализацию RobotRepository.
func NewRobotRepository() domain.RobotRepository {
	return &robotRepositoryInMemory{ids: make(map[string]struct{})}
}

func (r *robotRepositoryInMemory) Create(_ context.Context, robot domain.Robot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ids[robot.ID]; exists {
		return domain.ErrRobotAlreadyExists
	}
	r.ids[robot.ID] = struct{}{}
	r.robots = append(r.robots, robot)
	return nil
}

func (r *robotRepositoryInMemory) ListCreatedSince(_ context.Context, since time.Time) ([]domain.Robot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Robot, 0, len(r.robots))
	for _, robot := range r.robots {
		if robot.Created.Before(since) {
			continue
		}
		result = append(result, robot)
	}
	return result, nil
}

var _ domain.RobotRepository = (*robotRepositoryInMemory)(nil)
