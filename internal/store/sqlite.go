package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/arkiven4/autowatch/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Failure records ---

func (s *SQLiteStore) CreateFailure(ctx context.Context, f *models.FailureRecord) error {
	if f.ID == "" {
		f.ID = newULID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO failures (id, project, title, log_file, stdout, stderr, issue_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Project, f.Title, f.LogFile, f.Stdout, f.Stderr, f.IssueURL, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create failure: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetFailure(ctx context.Context, id string) (*models.FailureRecord, error) {
	f := &models.FailureRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project, title, log_file, stdout, stderr, issue_url, created_at
		FROM failures WHERE id = ?`, id,
	).Scan(&f.ID, &f.Project, &f.Title, &f.LogFile, &f.Stdout, &f.Stderr, &f.IssueURL, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("failure not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get failure: %w", err)
	}
	return f, nil
}

func (s *SQLiteStore) ListFailures(ctx context.Context, project string, limit int) ([]*models.FailureRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows *sql.Rows
	var err error
	if project != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, project, title, log_file, stdout, stderr, issue_url, created_at
			FROM failures WHERE project = ? ORDER BY created_at DESC LIMIT ?`, project, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, project, title, log_file, stdout, stderr, issue_url, created_at
			FROM failures ORDER BY created_at DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var failures []*models.FailureRecord
	for rows.Next() {
		f := &models.FailureRecord{}
		if err := rows.Scan(&f.ID, &f.Project, &f.Title, &f.LogFile, &f.Stdout, &f.Stderr, &f.IssueURL, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// --- Status snapshots ---

func (s *SQLiteStore) UpsertStatus(ctx context.Context, snap *models.StatusSnapshot) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO statuses (project, phase, detail, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(project) DO UPDATE SET phase=excluded.phase, detail=excluded.detail, updated_at=excluded.updated_at`,
		snap.Project, string(snap.Phase), snap.Detail, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert status: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListStatuses(ctx context.Context) ([]*models.StatusSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project, phase, detail, updated_at FROM statuses ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var statuses []*models.StatusSnapshot
	for rows.Next() {
		snap := &models.StatusSnapshot{}
		var phase string
		if err := rows.Scan(&snap.Project, &phase, &snap.Detail, &snap.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		snap.Phase = models.Phase(phase)
		statuses = append(statuses, snap)
	}
	return statuses, rows.Err()
}
