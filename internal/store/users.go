package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/drewdunne/voiceops/internal/domain"
)

// SeedUser inserts u unless a user with the same name exists. It reports
// whether a row was added.
func (s *Store) SeedUser(ctx context.Context, u domain.User) (bool, error) {
	created := u.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (username, email, full_name, role, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.FullName, u.Role, boolInt(u.Active), toMillis(created),
	)
	if err != nil {
		return false, fmt.Errorf("seeding user %s: %w", u.Username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seeding user %s: %w", u.Username, err)
	}
	return n > 0, nil
}

// GetUser returns the active user with the given name.
func (s *Store) GetUser(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT username, email, full_name, role, active, created_at
		FROM users WHERE username = ? AND active = 1`, username)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", username, err)
	}
	return u, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, email, full_name, role, active, created_at
		FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u       domain.User
		active  int
		created int64
	)
	if err := row.Scan(&u.Username, &u.Email, &u.FullName, &u.Role, &active, &created); err != nil {
		return nil, err
	}
	u.Active = active != 0
	u.CreatedAt = fromMillis(created)
	return &u, nil
}
