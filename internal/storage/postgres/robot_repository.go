package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

type robotRepository struct {
	pool *pgxpool.Pool
}

// NewRobotRepository создаёт PostgreSQL-реализацию RobotRepository.
func NewRobotRepository(store *Store) domain.RobotRepository {
	return &robotRepository{pool: store.Pool()}
}

func (r *robotRepository) Create(ctx context.Context, robot domain.Robot) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO robots (id, serial, model, version, created)
		VALUES ($1, $2, $3, $4, $5)
	`, robot.ID, robot.Serial, robot.Model, robot.Version, robot.Created)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRobotAlreadyExists
		}
		return fmt.Errorf("insert robot: %w", err)
	}
	return nil
}

func (r *robotRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]domain.Robot, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, serial, model, version, created
		FROM robots
		WHERE created >= $1
		ORDER BY created ASC, id ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list robots: %w", err)
	}
	defer rows.Close()

	robots := make([]domain.Robot, 0)
	for rows.Next() {
		var robot domain.Robot
		if err := rows.Scan(&robot.ID, &robot.Serial, &robot.Model, &robot.Version, &robot.Created); err != nil {
			return nil, fmt.Errorf("scan robot row: %w", err)
		}
		robot.Created = robot.Created.UTC()
		robots = append(robots, robot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate robot rows: %w", err)
	}

	return robots, nil
}

var _ domain.RobotRepository = (*robotRepository)(nil)
