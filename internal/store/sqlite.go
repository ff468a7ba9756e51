package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/model"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

const schema = `
CREATE TABLE IF NOT EXISTS resources (
    id              TEXT PRIMARY KEY,
    kind            TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT '',
    tracking_number TEXT,
    payload         TEXT NOT NULL DEFAULT '{}',
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resources_kind ON resources (kind, created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_resources_tracking
    ON resources (tracking_number) WHERE tracking_number IS NOT NULL;
`

// SQLiteStore is the sqlite-backed store implementation.
type SQLiteStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewSQLiteStore wraps an opened sqlite database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Init creates the schema if it does not exist.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating resources schema: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// List returns paginated records of one kind ordered by newest first.
func (s *SQLiteStore) List(ctx context.Context, kind types.Kind, opts ListOptions) ([]model.Record, int, error) {
	limit := normalizePageLimit(opts.Limit)
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	countQuery := s.sb.Select("COUNT(*)").From("resources").Where(sq.Eq{"kind": string(kind)})
	countSQL, countArgs, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building resource count query: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting %s resources: %w", kind, err)
	}

	query := s.sb.
		Select("id", "kind", "status", "tracking_number", "payload", "created_at", "updated_at").
		From("resources").
		Where(sq.Eq{"kind": string(kind)}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building resource list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing %s resources: %w", kind, err)
	}
	defer rows.Close()

	records := make([]model.Record, 0, limit)
	for rows.Next() {
		record, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		records = append(records, record)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, fmt.Errorf("iterating resource rows: %w", rowsErr)
	}

	return records, total, nil
}

// Get returns a single record by kind and ID.
func (s *SQLiteStore) Get(ctx context.Context, kind types.Kind, id string) (model.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Record{}, ErrNotFound
	}

	query := s.sb.
		Select("id", "kind", "status", "tracking_number", "payload", "created_at", "updated_at").
		From("resources").
		Where(sq.Eq{"kind": string(kind), "id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return model.Record{}, fmt.Errorf("building resource get query: %w", err)
	}

	record, err := scanRecord(s.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Record{}, ErrNotFound
		}
		return model.Record{}, err
	}
	return record, nil
}

// Create inserts a new record, assigning ID and audit timestamps.
func (s *SQLiteStore) Create(ctx context.Context, record model.Record) (model.Record, error) {
	now := time.Now().UTC()
	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = now
	record.UpdatedAt = now

	payload, err := encodePayload(record.Payload)
	if err != nil {
		return model.Record{}, err
	}

	query := s.sb.
		Insert("resources").
		Columns("id", "kind", "status", "tracking_number", "payload", "created_at", "updated_at").
		Values(
			record.ID,
			string(record.Kind),
			string(record.Status),
			trackingValue(record.TrackingNumber),
			payload,
			record.CreatedAt.Format(time.RFC3339Nano),
			record.UpdatedAt.Format(time.RFC3339Nano),
		)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return model.Record{}, fmt.Errorf("building resource insert query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Record{}, ErrConflict
		}
		return model.Record{}, fmt.Errorf("inserting %s resource: %w", record.Kind, err)
	}
	return record, nil
}

// Update replaces the mutable fields of an existing record.
func (s *SQLiteStore) Update(ctx context.Context, record model.Record) (model.Record, error) {
	id := strings.TrimSpace(record.ID)
	if id == "" {
		return model.Record{}, fmt.Errorf("resource id is required")
	}
	record.ID = id
	record.UpdatedAt = time.Now().UTC()

	payload, err := encodePayload(record.Payload)
	if err != nil {
		return model.Record{}, err
	}

	query := s.sb.
		Update("resources").
		Set("status", string(record.Status)).
		Set("tracking_number", trackingValue(record.TrackingNumber)).
		Set("payload", payload).
		Set("updated_at", record.UpdatedAt.Format(time.RFC3339Nano)).
		Where(sq.Eq{"kind": string(record.Kind), "id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return model.Record{}, fmt.Errorf("building resource update query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Record{}, ErrConflict
		}
		return model.Record{}, fmt.Errorf("updating %s %q: %w", record.Kind, id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return model.Record{}, fmt.Errorf("reading affected rows for resource update: %w", err)
	}
	if affected == 0 {
		return model.Record{}, ErrNotFound
	}

	return s.Get(ctx, record.Kind, id)
}

// Delete removes a record by kind and ID.
func (s *SQLiteStore) Delete(ctx context.Context, kind types.Kind, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}

	query := s.sb.Delete("resources").Where(sq.Eq{"kind": string(kind), "id": id})
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("building resource delete query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("deleting %s %q: %w", kind, id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows for resource delete: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(scanner interface {
	Scan(dest ...any) error
}) (model.Record, error) {
	var out model.Record
	var kind string
	var resourceStatus string
	var tracking sql.NullString
	var payload string
	var createdAt string
	var updatedAt string

	if err := scanner.Scan(&out.ID, &kind, &resourceStatus, &tracking, &payload, &createdAt, &updatedAt); err != nil {
		return model.Record{}, err
	}

	out.Kind = types.Kind(kind)
	out.Status = types.Status(resourceStatus)
	if tracking.Valid {
		out.TrackingNumber = tracking.String
	}

	if err := json.Unmarshal([]byte(payload), &out.Payload); err != nil {
		return model.Record{}, fmt.Errorf("decoding payload for resource %q: %w", out.ID, err)
	}

	var err error
	if out.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return model.Record{}, fmt.Errorf("parsing created_at for resource %q: %w", out.ID, err)
	}
	if out.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return model.Record{}, fmt.Errorf("parsing updated_at for resource %q: %w", out.ID, err)
	}
	return out, nil
}

func encodePayload(payload types.Payload) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}
	return string(data), nil
}

func trackingValue(trackingNumber string) any {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil
	}
	return trackingNumber
}

// isUniqueViolation detects the sqlite duplicate-key failure mode.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func normalizePageLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageLimit
	case limit > maxPageLimit:
		return maxPageLimit
	default:
		return limit
	}
}
