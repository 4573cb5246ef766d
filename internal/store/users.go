package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("store: not found")
	ErrInvalidCredentials = errors.New("store: invalid credentials")
	ErrUsernameTaken      = errors.New("store: username taken")
)

// normUsername trims surrounding whitespace
func normUsername(s string) string { return strings.TrimSpace(s) }

// CreateUser inserts a new user with a hashed password
func (p *Postgres) CreateUser(ctx context.Context, username, password string) (User, error) {
	username = normUsername(username)
	if username == "" || password == "" {
		return User{}, errors.New("missing username or password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, status, created_at
	`, username, string(hash))

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Status, &u.CreatedAt); err != nil {
		return User{}, ErrUsernameTaken
	}
	return u, nil
}

// GetUser fetches a user by username
func (p *Postgres) GetUser(ctx context.Context, username string) (User, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, username, status, created_at
		FROM users
		WHERE username = $1
	`, normUsername(username))

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Status, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// ListUsers returns all users with their last mirrored status
func (p *Postgres) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, username, status, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// VerifyUser checks username + password match
func (p *Postgres) VerifyUser(ctx context.Context, username, password string) (User, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, status, created_at
		FROM users
		WHERE username = $1
	`, normUsername(username))

	var u User
	var hash string
	if err := row.Scan(&u.ID, &u.Username, &hash, &u.Status, &u.CreatedAt); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// UpdateUserStatus records a presence transition on the user row
func (p *Postgres) UpdateUserStatus(ctx context.Context, username, status string) error {
	ct, err := p.pool.Exec(ctx, `
		UPDATE users
		SET status = $2
		WHERE username = $1
	`, normUsername(username), status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
