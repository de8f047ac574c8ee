package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/pkg/logger"
)

const usersTable = "users"

var userColumns = []string{"id", "username", "password_hash", "roles", "created_at"}

// UserRepository implements ports.UserRepository on top of database/sql.
type UserRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	now     func() time.Time
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{
		db:      db.DB,
		builder: sq.StatementBuilder.PlaceholderFormat(db.Dialect.placeholder()),
		now:     time.Now,
	}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, sq.Eq{"username": username})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

func (r *UserRepository) findOne(ctx context.Context, where sq.Eq) (*domain.User, error) {
	query, args, err := r.builder.
		Select(userColumns...).
		From(usersTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var u domain.User
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Roles, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("func", "UserRepository.findOne").Msg("select user failed")
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (r *UserRepository) Insert(ctx context.Context, username, passwordHash string, roles domain.Roles) (*domain.User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	if roles == nil {
		roles = domain.Roles{}
	}
	u := &domain.User{
		ID:           id.String(),
		Username:     username,
		PasswordHash: passwordHash,
		Roles:        roles,
		CreatedAt:    r.now().UTC().Truncate(time.Microsecond),
	}

	query, args, err := r.builder.
		Insert(usersTable).
		Columns(userColumns...).
		Values(u.ID, u.Username, u.PasswordHash, u.Roles, u.CreatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateUser
		}
		logger.FromContext(ctx).Error().Err(err).Str("func", "UserRepository.Insert").Msg("insert user failed")
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}
