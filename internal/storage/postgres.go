// internal/storage/postgres.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS readings (
	id      TEXT PRIMARY KEY,
	cow_id  TEXT NOT NULL,
	ts      TIMESTAMPTZ NOT NULL,
	doc     JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS readings_cow_ts_idx ON readings (cow_id, ts DESC);

CREATE TABLE IF NOT EXISTS alerts (
	id          TEXT PRIMARY KEY,
	alert_id    TEXT UNIQUE NOT NULL,
	cow_id      TEXT NOT NULL DEFAULT '',
	disease     TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL,
	severity    TEXT NOT NULL,
	status      TEXT NOT NULL,
	priority    INT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ,
	doc         JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS alerts_cow_disease_idx ON alerts (cow_id, disease, created_at DESC);
CREATE INDEX IF NOT EXISTS alerts_status_idx ON alerts (status, severity);
`

// PostgresStore keeps each reading and alert as a JSONB document next to the columns it is queried by.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and creates the schema if missing.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("configure postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) InsertReading(ctx context.Context, r *data.Reading) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO readings (id, cow_id, ts, doc) VALUES ($1, $2, $3, $4)`,
		r.ID, r.CowID, r.Timestamp, doc)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReadings(ctx context.Context, f ReadingFilter) ([]data.Reading, int64, error) {
	var where whereClause
	if f.CowID != "" {
		where.add("cow_id = %s", f.CowID)
	}
	if !f.From.IsZero() {
		where.add("ts >= %s", f.From)
	}
	if !f.To.IsZero() {
		where.add("ts <= %s", f.To)
	}

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM readings"+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count readings: %w", err)
	}

	query := "SELECT doc FROM readings" + where.String() + " ORDER BY ts DESC" + where.paginate(f.Limit, f.Offset)
	readings, err := queryDocs[data.Reading](ctx, s.pool, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list readings: %w", err)
	}
	return readings, total, nil
}

func (s *PostgresStore) LatestReading(ctx context.Context, cowID string) (*data.Reading, error) {
	var r data.Reading
	err := queryDoc(ctx, s.pool, &r, `SELECT doc FROM readings WHERE cow_id = $1 ORDER BY ts DESC LIMIT 1`, cowID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM readings WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete readings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) FindLatestAlertForSubjectAndDisease(ctx context.Context, cowID string, disease data.Disease) (*data.Alert, error) {
	var a data.Alert
	err := queryDoc(ctx, s.pool, &a,
		`SELECT doc FROM alerts WHERE cow_id = $1 AND disease = $2 ORDER BY created_at DESC LIMIT 1`,
		cowID, string(disease))
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) InsertAlert(ctx context.Context, a *data.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO alerts (id, alert_id, cow_id, disease, type, severity, status, priority, created_at, expires_at, doc)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.AlertID, a.Source.CowID, string(a.Disease()), string(a.Type), string(a.Severity),
		string(a.Status), a.Priority, a.CreatedAt, a.ExpiresAt, doc)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAlert(ctx context.Context, id string) (*data.Alert, error) {
	var a data.Alert
	if err := queryDoc(ctx, s.pool, &a, `SELECT doc FROM alerts WHERE id = $1 OR alert_id = $1`, id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) UpdateAlert(ctx context.Context, a *data.Alert) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET status = $2, severity = $3, priority = $4, expires_at = $5, doc = $6 WHERE id = $1`,
		a.ID, string(a.Status), string(a.Severity), a.Priority, a.ExpiresAt, doc)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, f AlertFilter) ([]data.Alert, int64, error) {
	var where whereClause
	if f.Status != "" {
		where.add("status = %s", string(f.Status))
	}
	if f.ExcludeStatus != "" {
		where.add("status <> %s", string(f.ExcludeStatus))
	}
	if f.Severity != "" {
		where.add("severity = %s", string(f.Severity))
	}
	if f.Type != "" {
		where.add("type = %s", string(f.Type))
	}
	if f.CowID != "" {
		where.add("cow_id = %s", f.CowID)
	}
	if !f.CreatedAfter.IsZero() {
		where.add("created_at >= %s", f.CreatedAfter)
	}

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM alerts"+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	order := " ORDER BY created_at DESC"
	if f.Sort == SortPriority {
		order = " ORDER BY priority DESC, created_at DESC"
	}
	query := "SELECT doc FROM alerts" + where.String() + order + where.paginate(f.Limit, f.Offset)
	alerts, err := queryDocs[data.Alert](ctx, s.pool, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, total, nil
}

func (s *PostgresStore) DeleteResolvedAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alerts WHERE status = $1 AND created_at < $2`,
		string(data.StatusResolved), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete resolved alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteExpiredAlerts(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alerts WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}

// whereClause accumulates numbered placeholders.
type whereClause struct {
	parts []string
	args  []any
}

func (w *whereClause) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.parts = append(w.parts, fmt.Sprintf(cond, fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereClause) String() string {
	if len(w.parts) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.parts, " AND ")
}

func (w *whereClause) paginate(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

func queryDoc(ctx context.Context, pool *pgxpool.Pool, dst any, query string, args ...any) error {
	var doc []byte
	if err := pool.QueryRow(ctx, query, args...).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("query document: %w", err)
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func queryDocs[T any](ctx context.Context, pool *pgxpool.Pool, query string, args ...any) ([]T, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
