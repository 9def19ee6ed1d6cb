// Package storage persists generated checklists, work-product contexts
// and evaluation scores in a local SQLite database.
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for checklists, contexts,
// evaluations and pipeline runs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "checkaud.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Checklists ---

// SaveChecklist stores the checklist payload for a work product, replacing
// any previously stored checklist for the same work product.
func (s *Store) SaveChecklist(workProduct, runID string, payload []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO checklists (work_product, run_id, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(work_product) DO UPDATE SET
			run_id = excluded.run_id,
			payload = excluded.payload,
			created_at = excluded.created_at`,
		workProduct, runID, payload, now,
	)
	return err
}

func (s *Store) GetChecklist(workProduct string) (Checklist, error) {
	var c Checklist
	var createdAt string
	err := s.db.QueryRow(`
		SELECT work_product, run_id, payload, created_at
		FROM checklists WHERE work_product = ?`, workProduct,
	).Scan(&c.WorkProduct, &c.RunID, &c.Payload, &createdAt)
	if err == sql.ErrNoRows {
		return Checklist{}, ErrNotFound
	}
	if err != nil {
		return Checklist{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Checklist{}, fmt.Errorf("parsing created_at: %w", err)
	}
	c.CreatedAt = t
	return c, nil
}

func (s *Store) ListChecklists() ([]Checklist, error) {
	rows, err := s.db.Query(`
		SELECT work_product, run_id, payload, created_at
		FROM checklists ORDER BY work_product ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Checklist
	for rows.Next() {
		var c Checklist
		var createdAt string
		if err := rows.Scan(&c.WorkProduct, &c.RunID, &c.Payload, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		c.CreatedAt = t
		results = append(results, c)
	}
	return results, rows.Err()
}

// --- Contexts ---

// SaveContext stores the context payload for a work product, replacing any
// previously stored context for the same work product.
func (s *Store) SaveContext(workProduct string, payload []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO contexts (work_product, payload, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(work_product) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at`,
		workProduct, payload, now,
	)
	return err
}

func (s *Store) GetContext(workProduct string) (Context, error) {
	var c Context
	var createdAt string
	err := s.db.QueryRow(`
		SELECT work_product, payload, created_at
		FROM contexts WHERE work_product = ?`, workProduct,
	).Scan(&c.WorkProduct, &c.Payload, &createdAt)
	if err == sql.ErrNoRows {
		return Context{}, ErrNotFound
	}
	if err != nil {
		return Context{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Context{}, fmt.Errorf("parsing created_at: %w", err)
	}
	c.CreatedAt = t
	return c, nil
}

func (s *Store) ListContexts() ([]Context, error) {
	rows, err := s.db.Query(`
		SELECT work_product, payload, created_at
		FROM contexts ORDER BY work_product ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Context
	for rows.Next() {
		var c Context
		var createdAt string
		if err := rows.Scan(&c.WorkProduct, &c.Payload, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		c.CreatedAt = t
		results = append(results, c)
	}
	return results, rows.Err()
}

// --- Evaluations ---

func (s *Store) SaveEvaluation(e Evaluation) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO evaluations (id, level, work_product, subject, rubric, score, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Level, e.WorkProduct, e.Subject, e.Rubric, e.Score, e.Notes,
		createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListEvaluations returns stored evaluations, optionally filtered by level.
// An empty level returns all of them.
func (s *Store) ListEvaluations(level string) ([]Evaluation, error) {
	query := `SELECT id, level, work_product, subject, rubric, score, notes, created_at
		FROM evaluations`
	var args []interface{}
	if level != "" {
		query += ` WHERE level = ?`
		args = append(args, level)
	}
	query += ` ORDER BY work_product ASC, subject ASC, rubric ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Evaluation
	for rows.Next() {
		var e Evaluation
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Level, &e.WorkProduct, &e.Subject, &e.Rubric, &e.Score, &e.Notes, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		e.CreatedAt = t
		results = append(results, e)
	}
	return results, rows.Err()
}

// --- Runs ---

func (s *Store) StartRun(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO runs (id, status, error, started_at, finished_at)
		VALUES (?, 'running', '', ?, '')`, id, now,
	)
	return err
}

func (s *Store) FinishRun(id, status, errMsg string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, errMsg, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetRun(id string) (Run, error) {
	var r Run
	var startedAt, finishedAt string
	err := s.db.QueryRow(`
		SELECT id, status, error, started_at, finished_at
		FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.Status, &r.Error, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	if r.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return Run{}, fmt.Errorf("parsing started_at: %w", err)
	}
	if finishedAt != "" {
		if r.FinishedAt, err = time.Parse(time.RFC3339, finishedAt); err != nil {
			return Run{}, fmt.Errorf("parsing finished_at: %w", err)
		}
	}
	return r, nil
}
