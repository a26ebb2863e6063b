package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/volunteerconnect/event-registration/internal/database"
	"github.com/volunteerconnect/event-registration/internal/model"
	"github.com/volunteerconnect/event-registration/internal/utils"
)

const userColumns = "id, email, password_hash, name, role, created_at"

type UserRepo struct{ db *database.DB }

func NewUserRepo(db *database.DB) *UserRepo { return &UserRepo{db: db} }

var ErrEmailExists = errors.New("email already exists")

func scanUser(row rowScanner) (model.User, error) {
	var (
		u         model.User
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &createdAt); err != nil {
		return model.User{}, err
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

// Create hashes password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, name string, role model.Role, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	id, err := r.db.InsertID(ctx, r.db,
		"INSERT INTO users (email, password_hash, name, role, created_at) VALUES (?, ?, ?, ?, ?)",
		email, hash, strings.TrimSpace(name), role, toMillis(time.Now()))
	if err != nil {
		if r.db.IsUniqueViolation(err) {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.db.QueryRowContext(ctx, r.db.Rebind("SELECT "+userColumns+" FROM users WHERE email = ?"), email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, r.db.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// CountByRole counts users holding role.
func (r *UserRepo) CountByRole(ctx context.Context, role model.Role) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT COUNT(*) FROM users WHERE role = ?"), role).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
