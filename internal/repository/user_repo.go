package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"userapi/internal/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrConstraintViolation = errors.New("constraint violation")
)

// DefaultQueryTimeout bounds each statement when no timeout is configured.
const DefaultQueryTimeout = 5 * time.Second

// DBTX is the subset of *pgxpool.Pool used by repositories
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository defines operations for user data
type UserRepository interface {
	FindAll(ctx context.Context) ([]model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
}

type userRepository struct {
	db      DBTX
	timeout time.Duration
}

// NewUserRepository creates a new UserRepository. Every statement runs under timeout.
func NewUserRepository(db DBTX, timeout time.Duration) UserRepository {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &userRepository{db: db, timeout: timeout}
}

const userColumns = `id, username, first_name, last_name, password_hash, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindAll retrieves every user ordered by ID
func (r *userRepository) FindAll(ctx context.Context) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sql := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		if dErr := deadline(ctx, "failed to query users"); dErr != nil {
			return nil, dErr
		}
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		if dErr := deadline(ctx, "failed to read users"); dErr != nil {
			return nil, dErr
		}
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// FindByID retrieves a user by their ID
func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sql := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if dErr := deadline(ctx, "failed to find user by ID"); dErr != nil {
			return nil, dErr
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByUsername retrieves a user by their username
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sql := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.db.QueryRow(ctx, sql, username))
	if err != nil {
		if dErr := deadline(ctx, "failed to find user by username"); dErr != nil {
			return nil, dErr
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// Create inserts a new user and fills in its ID and creation time
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sql := `INSERT INTO users (username, first_name, last_name, password_hash)
            VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, sql, user.Username, user.FirstName, user.LastName, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if dErr := deadline(ctx, "failed to create user"); dErr != nil {
			return dErr
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username %q already exists", ErrConstraintViolation, user.Username)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of the user identified by user.ID
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sql := `UPDATE users SET username = $1, first_name = $2, last_name = $3, password_hash = $4
            WHERE id = $5 RETURNING created_at`
	err := r.db.QueryRow(ctx, sql, user.Username, user.FirstName, user.LastName, user.PasswordHash, user.ID).
		Scan(&user.CreatedAt)
	if err != nil {
		if dErr := deadline(ctx, "failed to update user"); dErr != nil {
			return dErr
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username %q already exists", ErrConstraintViolation, user.Username)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// deadline reports the context error when the statement's deadline has passed
func deadline(ctx context.Context, op string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
