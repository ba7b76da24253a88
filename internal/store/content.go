package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"folio/api/internal/content"
)

var ErrNotFound = errors.New("record not found")

// SQLStore keeps portfolio content and refresh sessions in PostgreSQL or
// SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	newID   func() string
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) q(query string) string {
	return Rebind(s.dialect, query)
}

func (s *SQLStore) List(ctx context.Context, kind content.Kind) ([]content.Record, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, t.selectColumns(), t.name, t.orderBy))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	records := []content.Record{}
	for rows.Next() {
		record, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return records, nil
}

// Insert stores a new record under a freshly assigned id and returns the row
// as written.
func (s *SQLStore) Insert(ctx context.Context, record content.Record) (content.Record, error) {
	kind := record.RecordKind()
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	values, err := t.values(record)
	if err != nil {
		return nil, err
	}

	now := toMillis(s.now())
	args := append([]any{s.newID()}, values...)
	args = append(args, now, now)
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, %s, created_at, updated_at) VALUES (%s) RETURNING %s`,
		t.name, strings.Join(t.columns, ", "), strings.Join(placeholders, ", "), t.selectColumns())
	stored, err := t.scan(s.db.QueryRowContext(ctx, s.q(query), args...))
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", kind, err)
	}
	return stored, nil
}

// Update rewrites every editable column of the row with the record's id.
func (s *SQLStore) Update(ctx context.Context, record content.Record) (content.Record, error) {
	kind := record.RecordKind()
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	id := record.RecordID()
	if id == "" {
		return nil, fmt.Errorf("update %s: id is required", kind)
	}
	values, err := t.values(record)
	if err != nil {
		return nil, err
	}

	args := append([]any{id}, values...)
	assignments := make([]string, 0, len(t.columns)+1)
	for i, column := range t.columns {
		assignments = append(assignments, fmt.Sprintf("%s=$%d", column, i+2))
	}
	args = append(args, toMillis(s.now()))
	assignments = append(assignments, fmt.Sprintf("updated_at=$%d", len(args)))

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id=$1 RETURNING %s`, t.name, strings.Join(assignments, ", "), t.selectColumns())
	stored, err := t.scan(s.db.QueryRowContext(ctx, s.q(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update %s %s: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", kind, err)
	}
	return stored, nil
}

// Delete removes the row with id. Deleting a missing row is not an error.
func (s *SQLStore) Delete(ctx context.Context, kind content.Kind, id string) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.q(fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, t.name)), id); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *SQLStore) DeleteSkillsByCategory(ctx context.Context, categoryID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM skills WHERE category_id=$1`), categoryID)
	if err != nil {
		return 0, fmt.Errorf("delete skills of category %s: %w", categoryID, err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete skills of category %s: %w", categoryID, err)
	}
	return removed, nil
}

func (s *SQLStore) ListSettings(ctx context.Context) ([]content.Setting, error) {
	records, err := s.List(ctx, content.KindSettings)
	if err != nil {
		return nil, err
	}
	settings := make([]content.Setting, 0, len(records))
	for _, record := range records {
		settings = append(settings, record.(content.Setting))
	}
	return settings, nil
}

// UpsertSetting writes value under key, creating the row on first use.
func (s *SQLStore) UpsertSetting(ctx context.Context, key string, value json.RawMessage) (content.Setting, error) {
	t := tables[content.KindSettings]
	now := toMillis(s.now())
	query := fmt.Sprintf(`
		INSERT INTO settings (id, key, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
		RETURNING %s`, t.selectColumns())
	record, err := t.scan(s.db.QueryRowContext(ctx, s.q(query), s.newID(), key, string(value), now))
	if err != nil {
		return content.Setting{}, fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return record.(content.Setting), nil
}

// CountRows reports how many rows a content table holds.
func (s *SQLStore) CountRows(ctx context.Context, kind content.Kind) (int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.name)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return count, nil
}
