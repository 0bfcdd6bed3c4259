package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const runColumns = `id, sender_account_id, sender_account_number, receiver_account_number,
	receiver_bank, receiver_name, amount, sender_balance, balance_as_of, description,
	fingerprint, final_status, exit_kind, exit_reason, bypassed, ml_message, llm_verdict,
	started_at, finished_at`

// SaveRun stores a finished run and its transitions. Saving the same run
// twice fails with common.ErrDuplicateEntry.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var balance sql.NullString
		if run.Intent.HasBalance() {
			balance = sql.NullString{String: run.Intent.SenderBalance.String(), Valid: true}
		}
		var asOf sql.NullTime
		if !run.Intent.BalanceAsOf.IsZero() {
			asOf = sql.NullTime{Time: run.Intent.BalanceAsOf.UTC(), Valid: true}
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO workflow_runs (`+runColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID.String(),
			run.Intent.SenderAccountID,
			run.Intent.SenderAccountNumber,
			run.Intent.ReceiverAccountNumber,
			run.Intent.ReceiverBank,
			run.Intent.ReceiverName,
			run.Intent.Amount.String(),
			balance,
			asOf,
			run.Intent.Description,
			run.Intent.Fingerprint(),
			string(run.FinalStatus),
			string(run.Exit.Kind),
			string(run.Exit.Reason),
			run.Bypassed(),
			run.MLMessage,
			run.LLMVerdict,
			run.StartedAt.UTC(),
			run.FinishedAt.UTC(),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: run %s", common.ErrDuplicateEntry, run.ID)
			}
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO workflow_transitions
			(run_id, seq, from_status, to_status, at) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, tr := range run.Transitions {
			if _, err := stmt.ExecContext(ctx, run.ID.String(), i, string(tr.From), string(tr.To), tr.At.UTC()); err != nil {
				return fmt.Errorf("failed to insert transition %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetRun loads one run with its transitions.
func (s *SQLiteStorage) GetRun(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM workflow_runs WHERE id = ?`, id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	transitions, err := s.transitionsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Transitions = transitions
	return run, nil
}

// ListRuns returns runs newest first. Transitions are not loaded.
func (s *SQLiteStorage) ListRuns(ctx context.Context, filter service.RunFilter) ([]model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	var (
		clauses []string
		args    []any
	)
	if filter.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if filter.BypassedOnly {
		clauses = append(clauses, "bypassed = 1")
	}

	query := `SELECT ` + runColumns + ` FROM workflow_runs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// SummarizeRuns counts runs by exit.
func (s *SQLiteStorage) SummarizeRuns(ctx context.Context, since *time.Time) (*service.RunSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT exit_kind, exit_reason, bypassed, COUNT(*) FROM workflow_runs`
	var args []any
	if since != nil {
		query += " WHERE started_at >= ?"
		args = append(args, since.UTC())
	}
	query += " GROUP BY exit_kind, exit_reason, bypassed"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := &service.RunSummary{ByExit: make(map[model.Exit]int)}
	for rows.Next() {
		var (
			kind, reason string
			bypassed     bool
			count        int
		)
		if err := rows.Scan(&kind, &reason, &bypassed, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		exit := model.Exit{Kind: model.ExitKind(kind), Reason: model.ExitReason(reason)}
		summary.ByExit[exit] += count
		summary.Total += count
		if bypassed {
			summary.Bypassed += count
		}
	}
	return summary, rows.Err()
}

func (s *SQLiteStorage) transitionsFor(ctx context.Context, id uuid.UUID) ([]model.Transition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT from_status, to_status, at
		FROM workflow_transitions WHERE run_id = ? ORDER BY seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transitions []model.Transition
	for rows.Next() {
		var (
			tr       model.Transition
			from, to string
		)
		if err := rows.Scan(&from, &to, &tr.At); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		tr.From = model.CheckStatus(from)
		tr.To = model.CheckStatus(to)
		transitions = append(transitions, tr)
	}
	return transitions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var (
		run                      model.Run
		id, amount               string
		senderNumber, desc       sql.NullString
		balance, fingerprint     sql.NullString
		mlMessage, llmVerdict    sql.NullString
		status, exitKind, reason string
		bypassed                 bool
		asOf                     sql.NullTime
	)

	err := row.Scan(
		&id,
		&run.Intent.SenderAccountID,
		&senderNumber,
		&run.Intent.ReceiverAccountNumber,
		&run.Intent.ReceiverBank,
		&run.Intent.ReceiverName,
		&amount,
		&balance,
		&asOf,
		&desc,
		&fingerprint,
		&status,
		&exitKind,
		&reason,
		&bypassed,
		&mlMessage,
		&llmVerdict,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: run id %q: %v", common.ErrDatabaseCorrupted, id, err)
	}
	if run.Intent.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", common.ErrDatabaseCorrupted, amount, err)
	}
	if balance.Valid {
		if run.Intent.SenderBalance, err = decimal.NewFromString(balance.String); err != nil {
			return nil, fmt.Errorf("%w: balance %q: %v", common.ErrDatabaseCorrupted, balance.String, err)
		}
	}
	if asOf.Valid {
		run.Intent.BalanceAsOf = asOf.Time
	}

	run.Intent.SenderAccountNumber = senderNumber.String
	run.Intent.Description = desc.String
	run.FinalStatus = model.CheckStatus(status)
	run.Exit = model.Exit{Kind: model.ExitKind(exitKind), Reason: model.ExitReason(reason)}
	run.MLMessage = mlMessage.String
	run.LLMVerdict = llmVerdict.String
	return &run, nil
}
