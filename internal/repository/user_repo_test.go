package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userapi/internal/model"
)

var columns = []string{"id", "username", "first_name", "last_name", "password_hash", "created_at"}

func strPtr(s string) *string { return &s }

func newMock(t *testing.T) (pgxmock.PgxPoolIface, UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock, NewUserRepository(mock, time.Second)
}

func TestUserRepository_FindAll(t *testing.T) {
	mock, repo := newMock(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := pgxmock.NewRows(columns).
		AddRow(int64(1), "alice", strPtr("Alice"), nil, "hash-a", created).
		AddRow(int64(2), "bob", nil, strPtr("Builder"), "hash-b", created)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users ORDER BY id`)).WillReturnRows(rows)

	users, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(1), users[0].ID)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "Alice", *users[0].FirstName)
	assert.Nil(t, users[0].LastName)
	assert.Equal(t, "Builder", *users[1].LastName)
	assert.Equal(t, created, users[1].CreatedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindAll_Empty(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users ORDER BY id`)).WillReturnRows(pgxmock.NewRows(columns))

	users, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindAll_Error(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).WillReturnError(errors.New("connection refused"))

	_, err := repo.FindAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByID(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(columns).AddRow(int64(3), "carol", nil, nil, "hash", time.Now())
				mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
					WithArgs(int64(3)).
					WillReturnRows(rows)
			},
		},
		{
			name: "not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
					WithArgs(int64(3)).
					WillReturnRows(pgxmock.NewRows(columns))
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMock(t)
			tt.setupMock(mock)

			user, err := repo.FindByID(context.Background(), 3)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "carol", user.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_FindByUsername(t *testing.T) {
	mock, repo := newMock(t)
	rows := pgxmock.NewRows(columns).AddRow(int64(1), "alice", nil, nil, "hash-a", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE username = $1`)).
		WithArgs("alice").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE username = $1`)).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(columns))

	user, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash-a", user.PasswordHash)

	_, err = repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	mock, repo := newMock(t)
	created := time.Now().UTC()
	user := &model.User{Username: "alice", FirstName: strPtr("Alice"), PasswordHash: "hash"}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (username, first_name, last_name, password_hash)`)).
		WithArgs("alice", user.FirstName, user.LastName, "hash").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, created, user.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	mock, repo := newMock(t)
	user := &model.User{Username: "alice", PasswordHash: "hash"}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("alice", user.FirstName, user.LastName, "hash").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "duplicate key"})

	err := repo.Create(context.Background(), user)
	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update(t *testing.T) {
	tests := []struct {
		name      string
		user      *model.User
		setupMock func(mock pgxmock.PgxPoolIface, u *model.User)
		wantErr   error
	}{
		{
			name: "updated",
			user: &model.User{ID: 1, Username: "bob", PasswordHash: "hash"},
			setupMock: func(mock pgxmock.PgxPoolIface, u *model.User) {
				mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET username = $1, first_name = $2, last_name = $3, password_hash = $4`)).
					WithArgs("bob", u.FirstName, u.LastName, "hash", int64(1)).
					WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
			},
		},
		{
			name: "quote in username is bound, not interpolated",
			user: &model.User{ID: 1, Username: "o'brien', password_hash='x", PasswordHash: "hash"},
			setupMock: func(mock pgxmock.PgxPoolIface, u *model.User) {
				mock.ExpectQuery(`UPDATE users SET username = \$1, first_name = \$2, last_name = \$3, password_hash = \$4\s+WHERE id = \$5`).
					WithArgs("o'brien', password_hash='x", u.FirstName, u.LastName, "hash", int64(1)).
					WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
			},
		},
		{
			name: "zero rows",
			user: &model.User{ID: 99, Username: "bob", PasswordHash: "hash"},
			setupMock: func(mock pgxmock.PgxPoolIface, u *model.User) {
				mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users`)).
					WithArgs("bob", u.FirstName, u.LastName, "hash", int64(99)).
					WillReturnRows(pgxmock.NewRows([]string{"created_at"}))
			},
			wantErr: ErrNotFound,
		},
		{
			name: "duplicate username",
			user: &model.User{ID: 1, Username: "alice", PasswordHash: "hash"},
			setupMock: func(mock pgxmock.PgxPoolIface, u *model.User) {
				mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users`)).
					WithArgs("alice", u.FirstName, u.LastName, "hash", int64(1)).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: ErrConstraintViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMock(t)
			tt.setupMock(mock, tt.user)

			err := repo.Update(context.Background(), tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Timeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewUserRepository(mock, 10*time.Millisecond)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(columns)).
		WillDelayFor(time.Second)

	_, err = repo.FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// stallingDB hands out rows that block until the statement deadline passes.
type stallingDB struct{}

func (stallingDB) Query(ctx context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return &stalledRows{ctx: ctx}, nil
}

func (stallingDB) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

type stalledRows struct {
	pgx.Rows
	ctx context.Context
}

func (r *stalledRows) Next() bool {
	<-r.ctx.Done()
	return false
}

func (r *stalledRows) Err() error { return errors.New("conn closed") }

func (r *stalledRows) Close() {}

func TestUserRepository_FindAll_TimeoutWhileReading(t *testing.T) {
	repo := NewUserRepository(stallingDB{}, 10*time.Millisecond)

	_, err := repo.FindAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, err.Error(), "conn closed")
}
