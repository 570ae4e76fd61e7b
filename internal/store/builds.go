package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
)

const buildColumns = `id, build_id, job_name, branch, number, status, environment,
	requires_approval, triggered_by, approved_by, approved_at, api_name, progress,
	url, started_at, completed_at, duration_seconds`

// BuildFilter narrows ListBuilds. Zero fields match everything.
type BuildFilter struct {
	TriggeredBy string
	Status      domain.BuildStatus
	APIOnly     bool
	Since       time.Time
	Limit       int
}

// CreateBuild inserts b and sets its row id.
func (s *Store) CreateBuild(ctx context.Context, b *domain.Build) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (build_id, job_name, branch, number, status, environment,
			requires_approval, triggered_by, approved_by, approved_at, api_name, progress,
			url, started_at, completed_at, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BuildID, b.JobName, b.Branch, b.Number, string(b.Status), b.Environment,
		boolInt(b.RequiresApproval), b.TriggeredBy, nullString(b.ApprovedBy), nullMillis(b.ApprovedAt),
		nullString(b.APIName), b.Progress, b.URL, toMillis(b.StartedAt), nullMillis(b.CompletedAt),
		b.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("inserting build %s: %w", b.BuildID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading build row id: %w", err)
	}
	b.ID = id
	return nil
}

// GetBuild looks a build up by external id, ignoring case. An all-digit id
// that is not itself a build id matches the build number, so "1002" finds
// PROD-1002. A number shared by several builds yields ErrAmbiguous.
func (s *Store) GetBuild(ctx context.Context, buildID string) (*domain.Build, error) {
	buildID = strings.TrimSpace(buildID)

	b, err := scanBuild(s.db.QueryRowContext(ctx,
		`SELECT `+buildColumns+` FROM builds WHERE build_id = ?`, buildID))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fetching build %s: %w", buildID, err)
	}

	n, perr := strconv.ParseInt(buildID, 10, 64)
	if perr != nil {
		return nil, fmt.Errorf("build %s: %w", buildID, domain.ErrNotFound)
	}
	return s.buildByNumber(ctx, n)
}

func (s *Store) buildByNumber(ctx context.Context, number int64) (*domain.Build, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+buildColumns+` FROM builds WHERE number = ? ORDER BY id`, number)
	if err != nil {
		return nil, fmt.Errorf("fetching build number %d: %w", number, err)
	}
	defer rows.Close()

	var matches []*domain.Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning build: %w", err)
		}
		matches = append(matches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetching build number %d: %w", number, err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("build %d: %w", number, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	}

	ids := make([]string, len(matches))
	for i, b := range matches {
		ids[i] = b.BuildID
	}
	return nil, fmt.Errorf("build number %d matches %s: %w", number, strings.Join(ids, ", "), domain.ErrAmbiguous)
}

// UpdateBuild writes every mutable field of b, but only while the stored row
// still has status expected. A concurrent transition yields ErrInvalidState.
func (s *Store) UpdateBuild(ctx context.Context, b *domain.Build, expected domain.BuildStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE builds SET status = ?, approved_by = ?, approved_at = ?, progress = ?,
			completed_at = ?, duration_seconds = ?
		WHERE id = ? AND status = ?`,
		string(b.Status), nullString(b.ApprovedBy), nullMillis(b.ApprovedAt), b.Progress,
		nullMillis(b.CompletedAt), b.DurationSeconds, b.ID, string(expected),
	)
	if err != nil {
		return fmt.Errorf("updating build %s: %w", b.BuildID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating build %s: %w", b.BuildID, err)
	}
	if n == 0 {
		return fmt.Errorf("build %s is no longer %s: %w", b.BuildID, expected, domain.ErrInvalidState)
	}
	return nil
}

// SetProgress records deployment progress for a running build. It reports
// false when the build has left RUNNING.
func (s *Store) SetProgress(ctx context.Context, id int64, progress int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE builds SET progress = ? WHERE id = ? AND status = ?`,
		progress, id, string(domain.BuildRunning),
	)
	if err != nil {
		return false, fmt.Errorf("setting progress on build %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting progress on build %d: %w", id, err)
	}
	return n > 0, nil
}

// ListBuilds returns builds matching f, newest first.
func (s *Store) ListBuilds(ctx context.Context, f BuildFilter) ([]domain.Build, error) {
	var (
		where []string
		args  []any
	)
	if f.TriggeredBy != "" {
		where = append(where, "triggered_by = ?")
		args = append(args, f.TriggeredBy)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.APIOnly {
		where = append(where, "api_name IS NOT NULL")
	}
	if !f.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, toMillis(f.Since))
	}

	query := `SELECT ` + buildColumns + ` FROM builds`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	defer rows.Close()

	var builds []domain.Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning build: %w", err)
		}
		builds = append(builds, *b)
	}
	return builds, rows.Err()
}

// CountBuildsByStatus counts builds started since the given time.
func (s *Store) CountBuildsByStatus(ctx context.Context, since time.Time) (map[domain.BuildStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM builds WHERE started_at >= ? GROUP BY status`,
		toMillis(since),
	)
	if err != nil {
		return nil, fmt.Errorf("counting builds: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.BuildStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning build count: %w", err)
		}
		counts[domain.BuildStatus(status)] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (*domain.Build, error) {
	var (
		b           domain.Build
		status      string
		requires    int
		approvedBy  sql.NullString
		approvedAt  sql.NullInt64
		apiName     sql.NullString
		startedAt   int64
		completedAt sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.BuildID, &b.JobName, &b.Branch, &b.Number, &status, &b.Environment,
		&requires, &b.TriggeredBy, &approvedBy, &approvedAt, &apiName, &b.Progress,
		&b.URL, &startedAt, &completedAt, &b.DurationSeconds)
	if err != nil {
		return nil, err
	}
	b.Status = domain.BuildStatus(status)
	b.RequiresApproval = requires != 0
	b.ApprovedBy = approvedBy.String
	b.ApprovedAt = timePtr(approvedAt)
	b.APIName = apiName.String
	b.StartedAt = fromMillis(startedAt)
	b.CompletedAt = timePtr(completedAt)
	return &b, nil
}
