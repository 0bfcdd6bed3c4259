package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the schema version Migrate leaves the database at.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, stmts ...string) error {
	for i, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial audit schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS workflow_runs (
					id TEXT PRIMARY KEY,
					sender_account_id INTEGER NOT NULL,
					sender_account_number TEXT,
					receiver_account_number TEXT NOT NULL,
					receiver_bank TEXT NOT NULL,
					receiver_name TEXT NOT NULL,
					amount TEXT NOT NULL,
					sender_balance TEXT,
					description TEXT,
					final_status TEXT NOT NULL,
					exit_kind TEXT NOT NULL,
					exit_reason TEXT NOT NULL,
					ml_message TEXT,
					llm_verdict TEXT,
					started_at DATETIME NOT NULL,
					finished_at DATETIME NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS workflow_transitions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					seq INTEGER NOT NULL,
					from_status TEXT NOT NULL,
					to_status TEXT NOT NULL,
					at DATETIME NOT NULL,
					FOREIGN KEY (run_id) REFERENCES workflow_runs(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_workflow_transitions_run ON workflow_transitions(run_id, seq)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Track bypasses and balance snapshot time",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`ALTER TABLE workflow_runs ADD COLUMN bypassed BOOLEAN NOT NULL DEFAULT 0`,
				`ALTER TABLE workflow_runs ADD COLUMN balance_as_of DATETIME`,
				`UPDATE workflow_runs SET bypassed = 1
					WHERE exit_kind = 'confirmation' AND exit_reason IN ('skipped', 'continued_anyway')`,
			)
		},
	},
	{
		Version:     3,
		Description: "Index audit queries and fingerprint intents",
		Up: func(tx *sql.Tx) error {
			if err := execAll(tx,
				`ALTER TABLE workflow_runs ADD COLUMN fingerprint TEXT`,
				`CREATE INDEX idx_workflow_runs_started ON workflow_runs(started_at)`,
				`CREATE INDEX idx_workflow_runs_bypassed ON workflow_runs(bypassed)`,
				`CREATE INDEX idx_workflow_runs_fingerprint ON workflow_runs(fingerprint)`,
			); err != nil {
				return err
			}
			slog.Info("Added audit indexes")
			return nil
		},
	},
}

// SchemaVersion reports the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate brings the schema up to ExpectedSchemaVersion. Each migration runs
// in its own transaction together with the user_version bump.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version != ExpectedSchemaVersion {
		return fmt.Errorf("schema is at version %d, want %d", version, ExpectedSchemaVersion)
	}
	return nil
}

func (s *SQLiteStorage) apply(ctx context.Context, m Migration) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = m.Up(tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	// PRAGMA does not take bind parameters.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("record schema version %d: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}
