package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
)

// CommandFilter narrows ListCommands. Zero fields match everything.
type CommandFilter struct {
	Username string
	Since    time.Time
	Limit    int
}

// CommandStats summarizes audited commands over a window.
type CommandStats struct {
	Total     int
	Completed int
	Failed    int
	Invalid   int
}

// InsertCommand stores a new audit record.
func (s *Store) InsertCommand(ctx context.Context, r *domain.CommandRecord) error {
	params, err := marshalParams(r.Parameters)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO commands (id, username, text, action, parameters, response, success,
			confidence, status, latency_ms, created_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Username, r.Text, r.Action, params, r.Response, boolInt(r.Success),
		r.Confidence, string(r.Status), r.Latency.Milliseconds(), toMillis(r.CreatedAt),
		nullMillis(r.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting command %s: %w", r.ID, err)
	}
	return nil
}

// UpdateCommand overwrites an audit record that has not yet reached a
// terminal status. Terminal records are immutable and yield ErrInvalidState.
func (s *Store) UpdateCommand(ctx context.Context, r *domain.CommandRecord) error {
	params, err := marshalParams(r.Parameters)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE commands SET action = ?, parameters = ?, response = ?, success = ?,
			confidence = ?, status = ?, latency_ms = ?, processed_at = ?
		WHERE id = ? AND status NOT IN ('COMPLETED', 'FAILED', 'INVALID')`,
		r.Action, params, r.Response, boolInt(r.Success), r.Confidence, string(r.Status),
		r.Latency.Milliseconds(), nullMillis(r.ProcessedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating command %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating command %s: %w", r.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("command %s missing or finalized: %w", r.ID, domain.ErrInvalidState)
	}
	return nil
}

// ListCommands returns audit records matching f, newest first.
func (s *Store) ListCommands(ctx context.Context, f CommandFilter) ([]domain.CommandRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Username != "" {
		where = append(where, "username = ?")
		args = append(args, f.Username)
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, toMillis(f.Since))
	}

	query := `SELECT id, username, text, action, parameters, response, success, confidence,
		status, latency_ms, created_at, processed_at FROM commands`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing commands: %w", err)
	}
	defer rows.Close()

	var records []domain.CommandRecord
	for rows.Next() {
		var (
			r         domain.CommandRecord
			params    sql.NullString
			success   int
			status    string
			latencyMS int64
			created   int64
			processed sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Username, &r.Text, &r.Action, &params, &r.Response,
			&success, &r.Confidence, &status, &latencyMS, &created, &processed); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		if params.Valid {
			if err := json.Unmarshal([]byte(params.String), &r.Parameters); err != nil {
				return nil, fmt.Errorf("decoding parameters of command %s: %w", r.ID, err)
			}
		}
		r.Success = success != 0
		r.Status = domain.CommandStatus(status)
		r.Latency = time.Duration(latencyMS) * time.Millisecond
		r.CreatedAt = fromMillis(created)
		r.ProcessedAt = timePtr(processed)
		records = append(records, r)
	}
	return records, rows.Err()
}

// CommandStats counts audit records created since the given time.
func (s *Store) CommandStats(ctx context.Context, since time.Time) (CommandStats, error) {
	var st CommandStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(status = 'COMPLETED'), 0),
			COALESCE(SUM(status = 'FAILED'), 0),
			COALESCE(SUM(status = 'INVALID'), 0)
		FROM commands WHERE created_at >= ?`, toMillis(since),
	).Scan(&st.Total, &st.Completed, &st.Failed, &st.Invalid)
	if err != nil {
		return CommandStats{}, fmt.Errorf("counting commands: %w", err)
	}
	return st, nil
}

// DeleteCommandsBefore removes audit records created before cutoff and
// returns how many were deleted.
func (s *Store) DeleteCommandsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM commands WHERE created_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("deleting commands: %w", err)
	}
	return res.RowsAffected()
}

func marshalParams(params map[string]string) (sql.NullString, error) {
	if len(params) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding parameters: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
