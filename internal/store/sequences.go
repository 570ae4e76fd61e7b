package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/drewdunne/voiceops/internal/domain"
)

// NextSequence increments and returns the named sequence.
func (s *Store) NextSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE sequences SET value = value + 1 WHERE name = ? RETURNING value`, name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sequence %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("advancing sequence %q: %w", name, err)
	}
	return value, nil
}

// NextBuildNumber returns the next build number. Numbers start at 1001.
func (s *Store) NextBuildNumber(ctx context.Context) (int64, error) {
	return s.NextSequence(ctx, "build")
}

// AdvanceSequence raises the named sequence to at least floor. Sequences
// never move backwards.
func (s *Store) AdvanceSequence(ctx context.Context, name string, floor int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sequences SET value = MAX(value, ?) WHERE name = ?`, floor, name,
	)
	if err != nil {
		return fmt.Errorf("advancing sequence %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advancing sequence %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("sequence %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

// AdvanceBuildNumber keeps the next build number above floor.
func (s *Store) AdvanceBuildNumber(ctx context.Context, floor int64) error {
	return s.AdvanceSequence(ctx, "build", floor)
}
