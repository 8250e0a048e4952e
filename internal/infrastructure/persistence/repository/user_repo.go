package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/kaiwen/taskline/internal/application/port"
	"github.com/kaiwen/taskline/internal/domain/entity"
	"github.com/kaiwen/taskline/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	var user entity.User
	var supervisorOf string
	err := exec.QueryRowContext(ctx,
		`SELECT id, display_name, supervisor_of, created_at FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.DisplayName, &supervisorOf, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Error(err), zap.String("user_id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	unmarshalJSON(supervisorOf, &user.SupervisorOf)
	return &user, nil
}

// ListSupervisors returns users overseeing at least one group
func (r *UserRepository) ListSupervisors(ctx context.Context) ([]*entity.User, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	rows, err := exec.QueryContext(ctx,
		`SELECT id, display_name, supervisor_of, created_at
		 FROM users WHERE supervisor_of != '[]' ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list supervisors", zap.Error(err))
		return nil, fmt.Errorf("failed to list supervisors: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var user entity.User
		var supervisorOf string
		if err := rows.Scan(&user.ID, &user.DisplayName, &supervisorOf, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		unmarshalJSON(supervisorOf, &user.SupervisorOf)
		users = append(users, &user)
	}
	return users, rows.Err()
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
