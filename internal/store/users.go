package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthResult is the outcome of an authenticate-or-register attempt.
type AuthResult int

const (
	AuthOK AuthResult = iota // existing user, password matched
	AuthCreated              // first login registered the user
	AuthWrongPassword        // existing user, password mismatch
)

func normUsername(s string) string { return strings.TrimSpace(s) }

// Authenticate verifies a username/password pair, registering the user on
// first sight. An insert race with a concurrent first login resolves by
// re-verifying against the row that won.
func (p *Postgres) Authenticate(ctx context.Context, username, password string) (AuthResult, error) {
	username = normUsername(username)
	if username == "" || password == "" {
		return AuthWrongPassword, errors.New("missing username or password")
	}

	var hash string
	err := p.pool.QueryRow(ctx, `
		SELECT password_hash FROM users WHERE username = $1
	`, username).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return p.register(ctx, username, password)
	}
	if err != nil {
		return AuthWrongPassword, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return AuthWrongPassword, nil
	}
	return AuthOK, nil
}

func (p *Postgres) register(ctx context.Context, username, password string) (AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthWrongPassword, err
	}

	ct, err := p.pool.Exec(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`, username, string(hash))
	if err != nil {
		return AuthWrongPassword, err
	}
	if ct.RowsAffected() == 0 {
		// lost the race; check against the winner's password
		return p.Authenticate(ctx, username, password)
	}

	p.log.Info("user.registered", "username", username)
	return AuthCreated, nil
}

// Exists reports whether a username is registered.
func (p *Postgres) Exists(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)
	`, normUsername(username)).Scan(&ok)
	return ok, err
}

// Count returns the number of registered users (health endpoint).
func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
