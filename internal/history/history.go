// Package history records identifier searches and print jobs in SQLite.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

//go:embed schema.sql
var schema string

// SearchEntry is one logged identifier search.
type SearchEntry struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	Identifier   string     `json:"identifier"`
	Folder       string     `json:"folder"`
	Found        bool       `json:"found"`
	UsedFile     string     `json:"used_file,omitempty"`
	DocDate      *time.Time `json:"doc_date,omitempty"`
	FilenameDate *time.Time `json:"filename_date,omitempty"`
	ModTime      *time.Time `json:"modified_time,omitempty"`
	PageRanges   string     `json:"page_ranges,omitempty"`
	DecidedBy    string     `json:"decided_by,omitempty"`
	TotalMatches int        `json:"total_matches"`
	DurationMs   int64      `json:"duration_ms"`
}

// PrintEntry is one logged print job.
type PrintEntry struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Identifier string    `json:"identifier"`
	FilePath   string    `json:"file_path"`
	PageRanges string    `json:"page_ranges"`
	Printer    string    `json:"printer,omitempty"`
	Copies     int       `json:"copies"`
	Duplex     bool      `json:"duplex"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// SearchStats summarizes searches since a point in time.
type SearchStats struct {
	Total         int     `json:"total"`
	Found         int     `json:"found"`
	SuccessRate   float64 `json:"success_rate"`
	Unique        int     `json:"unique_identifiers"`
	AvgDurationMs int64   `json:"avg_duration_ms"`
}

// Store handles history persistence.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	// Queries are traced when a tracer provider is installed.
	db, err := otelsql.Open("sqlite3", path, otelsql.WithAttributes(semconv.DBSystemSqlite))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases whole and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LogSearch stores e, assigning its ID and timestamp when unset.
func (s *Store) LogSearch(ctx context.Context, e SearchEntry) (*SearchEntry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, created_at, identifier, folder, found, used_file, doc_date, filename_date,
			modified_time, page_ranges, decided_by, total_matches, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt, e.Identifier, e.Folder, e.Found, e.UsedFile, nullTime(e.DocDate), nullTime(e.FilenameDate),
		nullTime(e.ModTime), e.PageRanges, e.DecidedBy, e.TotalMatches, e.DurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("insert search: %w", err)
	}
	return &e, nil
}

// LogPrint stores e, assigning its ID and timestamp when unset.
func (s *Store) LogPrint(ctx context.Context, e PrintEntry) (*PrintEntry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prints (id, created_at, identifier, file_path, page_ranges, printer, copies, duplex,
			success, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt, e.Identifier, e.FilePath, e.PageRanges, e.Printer, e.Copies, e.Duplex,
		e.Success, e.Error, e.DurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("insert print: %w", err)
	}
	return &e, nil
}

// RecentSearches returns the latest searches, newest first.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]SearchEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, identifier, folder, found, used_file, doc_date, filename_date, modified_time,
			page_ranges, decided_by, total_matches, duration_ms
		FROM searches ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list searches: %w", err)
	}
	defer rows.Close()

	var entries []SearchEntry
	for rows.Next() {
		var (
			e                        SearchEntry
			docDate, fileDate, mtime sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Identifier, &e.Folder, &e.Found, &e.UsedFile, &docDate, &fileDate,
			&mtime, &e.PageRanges, &e.DecidedBy, &e.TotalMatches, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		e.DocDate, e.FilenameDate, e.ModTime = timePtr(docDate), timePtr(fileDate), timePtr(mtime)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecentPrints returns the latest print jobs, newest first.
func (s *Store) RecentPrints(ctx context.Context, limit int) ([]PrintEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, identifier, file_path, page_ranges, printer, copies, duplex, success,
			error_message, duration_ms
		FROM prints ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list prints: %w", err)
	}
	defer rows.Close()

	var entries []PrintEntry
	for rows.Next() {
		var e PrintEntry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Identifier, &e.FilePath, &e.PageRanges, &e.Printer, &e.Copies,
			&e.Duplex, &e.Success, &e.Error, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("scan print: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats summarizes the searches logged at or after since.
func (s *Store) Stats(ctx context.Context, since time.Time) (*SearchStats, error) {
	var (
		stats SearchStats
		found sql.NullInt64
		avg   sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(found), COUNT(DISTINCT identifier), AVG(duration_ms)
		FROM searches WHERE created_at >= ?`,
		since,
	).Scan(&stats.Total, &found, &stats.Unique, &avg)
	if err != nil {
		return nil, fmt.Errorf("search stats: %w", err)
	}
	stats.Found = int(found.Int64)
	stats.AvgDurationMs = int64(avg.Float64)
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Found) / float64(stats.Total) * 100
	}
	return &stats, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
