package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tendant/farmgate/pkg/domain"
)

// UsersRepository handles portal profile persistence.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// Create inserts a profile row. A duplicate email or UID returns
// domain.ErrUserAlreadyExists.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	return r.CreateTx(ctx, r.db, user)
}

// CreateTx inserts a profile row using q.
func (r *UsersRepository) CreateTx(ctx context.Context, q Querier, user *domain.User) error {
	query := `
		INSERT INTO users (uid, full_name, email, contact, role, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := q.QueryRowContext(ctx, query,
		user.UID, user.FullName, user.Email, user.Contact, string(user.Role), string(user.Status),
	).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrUserAlreadyExists
	}
	return err
}

// GetByEmail retrieves a profile by email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, uid, full_name, email, contact, role, status, created_at
		FROM users
		WHERE email = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// GetByUID retrieves a profile by auth service account ID.
func (r *UsersRepository) GetByUID(ctx context.Context, uid uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, uid, full_name, email, contact, role, status, created_at
		FROM users
		WHERE uid = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, uid))
}

func (r *UsersRepository) scanOne(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var role, status string
	err := row.Scan(
		&user.ID, &user.UID, &user.FullName, &user.Email, &user.Contact,
		&role, &status, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	user.Status = domain.AccountStatus(status)
	return user, nil
}

// UpdateRole sets the role of the profile with the given email.
func (r *UsersRepository) UpdateRole(ctx context.Context, email string, role domain.Role) error {
	query := `UPDATE users SET role = $2 WHERE email = $1`
	return r.execOne(ctx, query, email, string(role))
}

// MarkVerified sets the profile status to verified and links the auth account ID.
func (r *UsersRepository) MarkVerified(ctx context.Context, email string, uid uuid.UUID) error {
	query := `
		UPDATE users
		SET status = 'verified', uid = COALESCE(uid, $2)
		WHERE email = $1
	`
	return r.execOne(ctx, query, email, uid)
}

func (r *UsersRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
