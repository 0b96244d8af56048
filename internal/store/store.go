package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sipc/internal/config"
)

// Status represents the lifecycle of a pack's compression job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var statusSet = map[Status]struct{}{
	StatusPending:    {},
	StatusProcessing: {},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// Pack is a registered upload.
type Pack struct {
	Hash         string
	Name         string
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store manages pack persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the registry database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add registers a pack under its content hash. Re-uploading a known pack
// keeps the original name and resets its status to pending.
func (s *Store) Add(ctx context.Context, hash, name string) (*Pack, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, errors.New("pack hash is required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO packs (hash, name, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(hash) DO UPDATE SET
            status = excluded.status,
            error_message = NULL,
            updated_at = excluded.updated_at`,
		hash,
		name,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pack: %w", err)
	}
	return s.Get(ctx, hash)
}

// Get returns the pack registered under hash, or nil when it is unknown.
func (s *Store) Get(ctx context.Context, hash string) (*Pack, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+packColumns+` FROM packs WHERE hash = ?`, hash)
	pack, err := scanPack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pack: %w", err)
	}
	return pack, nil
}

// SetStatus records a job transition. The message is kept only for failures.
func (s *Store) SetStatus(ctx context.Context, hash string, status Status, message string) error {
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("unknown status %q", status)
	}
	if status != StatusFailed {
		message = ""
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE packs SET status = ?, error_message = ?, updated_at = ? WHERE hash = ?`,
		status,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		hash,
	)
	if err != nil {
		return fmt.Errorf("update pack status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("pack %s not registered", hash)
	}
	return nil
}

// List returns packs ordered by creation time, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Pack, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + packColumns + ` FROM packs`
	orderClause := ` ORDER BY created_at, hash`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}
	defer rows.Close()

	var packs []*Pack
	for rows.Next() {
		pack, err := scanPack(rows)
		if err != nil {
			return nil, err
		}
		packs = append(packs, pack)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packs: %w", err)
	}
	return packs, nil
}

// FailProcessing marks packs left in processing by a previous run as failed.
func (s *Store) FailProcessing(ctx context.Context, reason string) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE packs SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		StatusFailed,
		nullableString(reason),
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail processing packs: %w", err)
	}
	return res.RowsAffected()
}

const packColumns = `hash, name, status, error_message, created_at, updated_at`

func scanPack(scanner interface{ Scan(dest ...any) error }) (*Pack, error) {
	var (
		pack       Pack
		status     string
		errMessage sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&pack.Hash, &pack.Name, &status, &errMessage, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	pack.Status = Status(status)
	if errMessage.Valid {
		pack.ErrorMessage = errMessage.String
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		pack.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		pack.UpdatedAt = updated
	}
	return &pack, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
