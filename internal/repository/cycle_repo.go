package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wakala/status-reconciler/internal/domain"
)

const cycleColumns = `id, started_at, finished_at, status, report_entries, matched,
	updated, unchanged, unmatched_ids, transitions, error`

// CycleRepo keeps the history of reconciliation cycles for operators.
type CycleRepo struct {
	db *sql.DB
}

func NewCycleRepo(db *sql.DB) *CycleRepo {
	return &CycleRepo{db: db}
}

// RecordCycle stores a finished cycle.
func (r *CycleRepo) RecordCycle(ctx context.Context, c *domain.Cycle) error {
	unmatched := c.UnmatchedIDs
	if unmatched == nil {
		unmatched = []string{}
	}
	unmatchedJSON, err := json.Marshal(unmatched)
	if err != nil {
		return fmt.Errorf("marshal unmatched ids: %w", err)
	}
	transitions := c.Transitions
	if transitions == nil {
		transitions = map[domain.TransactionStatus]int{}
	}
	transitionsJSON, err := json.Marshal(transitions)
	if err != nil {
		return fmt.Errorf("marshal transitions: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reconciliation_cycles (`+cycleColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, formatTime(c.StartedAt), formatTime(c.FinishedAt), string(c.Status),
		c.ReportEntries, c.Matched, c.Updated, c.Unchanged,
		string(unmatchedJSON), string(transitionsJSON), c.Error,
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

// List returns the most recent cycles first.
func (r *CycleRepo) List(limit int) ([]domain.Cycle, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(
		"SELECT "+cycleColumns+" FROM reconciliation_cycles ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var cycles []domain.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		cycles = append(cycles, *c)
	}
	return cycles, rows.Err()
}

// Latest returns domain.ErrNotFound before the first cycle has been recorded.
func (r *CycleRepo) Latest() (*domain.Cycle, error) {
	row := r.db.QueryRow(
		"SELECT " + cycleColumns + " FROM reconciliation_cycles ORDER BY started_at DESC LIMIT 1",
	)
	c, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest cycle: %w", domain.ErrNotFound)
	}
	return c, err
}

func scanCycle(row scanner) (*domain.Cycle, error) {
	var c domain.Cycle
	var startedAt, finishedAt, status, unmatchedJSON, transitionsJSON string

	err := row.Scan(
		&c.ID, &startedAt, &finishedAt, &status, &c.ReportEntries, &c.Matched,
		&c.Updated, &c.Unchanged, &unmatchedJSON, &transitionsJSON, &c.Error,
	)
	if err != nil {
		return nil, err
	}

	c.Status = domain.CycleStatus(status)
	if c.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("cycle %s started_at: %w", c.ID, err)
	}
	if c.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("cycle %s finished_at: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(unmatchedJSON), &c.UnmatchedIDs); err != nil {
		return nil, fmt.Errorf("cycle %s unmatched ids: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(transitionsJSON), &c.Transitions); err != nil {
		return nil, fmt.Errorf("cycle %s transitions: %w", c.ID, err)
	}
	if len(c.UnmatchedIDs) == 0 {
		c.UnmatchedIDs = nil
	}
	if len(c.Transitions) == 0 {
		c.Transitions = nil
	}

	return &c, nil
}
