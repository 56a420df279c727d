// Package store persists prompt records in a single local SQLite file.
// Name uniqueness is enforced case-insensitively by the schema; callers
// never assume uniqueness client-side.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/promptlab/promptlab/internal/fault"
	"github.com/promptlab/promptlab/internal/prompt"
)

// Store provides database operations for prompt records.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath and initializes the schema.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	// WAL mode allows readers alongside the single writer.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writes itself; a single connection avoids lock churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS prompts (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL UNIQUE COLLATE NOCASE,
		description   TEXT NOT NULL DEFAULT '',
		system_prompt TEXT NOT NULL,
		model         TEXT NOT NULL,
		temperature   REAL NOT NULL,
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_prompts_name ON prompts(name);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}

// Create inserts a new record, assigning its id and timestamps.
func (s *Store) Create(ctx context.Context, f prompt.Fields) (*prompt.Record, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	rec := &prompt.Record{
		ID:           uuid.NewString(),
		Name:         f.Name,
		Description:  f.Description,
		SystemPrompt: f.SystemPrompt,
		Model:        f.Model,
		Temperature:  f.Temperature,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prompts (id, name, description, system_prompt, model, temperature, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Description, rec.SystemPrompt, rec.Model, rec.Temperature,
		rec.CreatedAt.Unix(), rec.UpdatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fault.New(fault.DuplicateName, "a prompt named %q already exists", rec.Name)
		}
		return nil, fmt.Errorf("failed to insert prompt: %w", err)
	}

	return rec, nil
}

// Update replaces the mutable fields of an existing record.
func (s *Store) Update(ctx context.Context, id string, f prompt.Fields) (*prompt.Record, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx, `
		UPDATE prompts
		SET name = ?, description = ?, system_prompt = ?, model = ?, temperature = ?, updated_at = ?
		WHERE id = ?`,
		f.Name, f.Description, f.SystemPrompt, f.Model, f.Temperature, now.Unix(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fault.New(fault.DuplicateName, "a prompt named %q already exists", f.Name)
		}
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return nil, fault.New(fault.NotFound, "prompt %s not found", id)
	}

	return s.Get(ctx, id)
}

// Delete removes a record by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fault.New(fault.NotFound, "prompt %s not found", id)
	}
	return nil
}

// Get returns a record by id.
func (s *Store) Get(ctx context.Context, id string) (*prompt.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.New(fault.NotFound, "prompt %s not found", id)
	}
	return rec, err
}

// GetByName returns a record by name, matched case-insensitively.
func (s *Store) GetByName(ctx context.Context, name string) (*prompt.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE name = ? COLLATE NOCASE`, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.New(fault.NotFound, "prompt named %q not found", name)
	}
	return rec, err
}

// List returns all records ordered by name. A non-empty search term filters
// case-insensitively on name and description substrings.
func (s *Store) List(ctx context.Context, search string) ([]*prompt.Record, error) {
	query := selectColumns
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		// SQLite LIKE is already case-insensitive for ASCII.
		query += ` WHERE name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'`
		like := "%" + escapeLike(search) + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY name COLLATE NOCASE`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	var records []*prompt.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Names returns a map of lowercased prompt name to record id, used for
// conflict detection during library reconciliation.
func (s *Store) Names(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, id FROM prompts`)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var name, id string
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("failed to scan prompt name: %w", err)
		}
		names[strings.ToLower(name)] = id
	}
	return names, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count prompts: %w", err)
	}
	return n, nil
}

const selectColumns = `SELECT id, name, description, system_prompt, model, temperature, created_at, updated_at FROM prompts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*prompt.Record, error) {
	var rec prompt.Record
	var created, updated int64
	err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.SystemPrompt,
		&rec.Model, &rec.Temperature, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan prompt: %w", err)
	}
	rec.CreatedAt = time.Unix(created, 0).UTC()
	rec.UpdatedAt = time.Unix(updated, 0).UTC()
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func escapeLike(s string) string {
	// LIKE treats % and _ as wildcards; the search term is a literal.
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
