package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wakala/status-reconciler/internal/domain"
)

const transactionColumns = "id, direction, amount, currency, status, created_at, updated_at"

// maxIDsPerQuery keeps IN (...) lists well under SQLite's bound parameter limit.
const maxIDsPerQuery = 500

type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) Insert(tx *domain.Transaction) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
		VALUES (?,?,?,?,?,?,?)`,
		transactionArgs(tx)...,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) BulkInsert(txns []domain.Transaction) (int, error) {
	inserted := 0
	sqlTx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.Prepare(
		`INSERT OR IGNORE INTO transactions (` + transactionColumns + `)
		VALUES (?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range txns {
		res, err := stmt.Exec(transactionArgs(&txns[i])...)
		if err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (r *TransactionRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count)
	return count, err
}

// GetByID returns domain.ErrNotFound when no transaction has the given id.
func (r *TransactionRepo) GetByID(id string) (*domain.Transaction, error) {
	row := r.db.QueryRow("SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	return tx, err
}

type TransactionFilter struct {
	Status    string
	Direction string
	Page      int
	Limit     int
}

func (r *TransactionRepo) List(f TransactionFilter) ([]domain.Transaction, int, error) {
	where, args := buildTransactionWhere(f)

	var total int
	countSQL := "SELECT COUNT(*) FROM transactions" + where
	if err := r.db.QueryRow(countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	querySQL := "SELECT " + transactionColumns + " FROM transactions" + where +
		" ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// StatusTotal aggregates the transactions currently in one status. Amounts
// are kept per currency.
type StatusTotal struct {
	Status  domain.TransactionStatus   `json:"status"`
	Count   int                        `json:"count"`
	Amounts map[string]decimal.Decimal `json:"amounts"`
}

// StatusSummary sums amounts in Go rather than with SUM() so that decimal
// amounts stored as text never pass through floating point.
func (r *TransactionRepo) StatusSummary() ([]StatusTotal, error) {
	rows, err := r.db.Query("SELECT status, currency, amount FROM transactions")
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	byStatus := make(map[domain.TransactionStatus]*StatusTotal)
	for rows.Next() {
		var status, currency, amount string
		if err := rows.Scan(&status, &currency, &amount); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}

		st := domain.TransactionStatus(status)
		total, ok := byStatus[st]
		if !ok {
			total = &StatusTotal{Status: st, Amounts: map[string]decimal.Decimal{}}
			byStatus[st] = total
		}
		total.Count++
		total.Amounts[currency] = total.Amounts[currency].Add(amt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]StatusTotal, 0, len(byStatus))
	for _, t := range byStatus {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Status < result[j].Status })
	return result, nil
}

// WithinLock runs fn inside BEGIN IMMEDIATE on a dedicated connection.
// SQLite takes its write lock at BEGIN, before fn reads anything, so a
// second caller blocks (up to the busy timeout) until this one commits or
// rolls back and then sees the committed rows. Every exit path other than a
// successful commit rolls back, including a panic in fn and a cancelled ctx.
func (r *TransactionRepo) WithinLock(ctx context.Context, fn func(domain.LockedTransactions) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// ctx may already be cancelled; the rollback must still run.
		if _, err := conn.ExecContext(context.Background(), "ROLLBACK"); err != nil {
			log.Printf("[repository] WARNING: rollback failed: %v", err)
		}
	}()

	if err := fn(&lockedTransactions{conn: conn}); err != nil {
		return err
	}

	// The driver does not reliably refuse to run a statement on an already
	// cancelled context, so check before committing.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

type lockedTransactions struct {
	conn *sql.Conn
}

func (l *lockedTransactions) FindEligibleByIDs(ctx context.Context, ids []string) ([]domain.Transaction, error) {
	var txns []domain.Transaction

	for start := 0; start < len(ids); start += maxIDsPerQuery {
		chunk := ids[start:min(start+maxIDsPerQuery, len(ids))]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, string(domain.StatusEligible))
		for _, id := range chunk {
			args = append(args, id)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		rows, err := l.conn.QueryContext(ctx,
			"SELECT "+transactionColumns+" FROM transactions WHERE status = ? AND id IN ("+placeholders+")",
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("query eligible: %w", err)
		}
		found, err := collectTransactions(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		txns = append(txns, found...)
	}

	sort.Slice(txns, func(i, j int) bool { return txns[i].ID < txns[j].ID })
	return txns, nil
}

func (l *lockedTransactions) SaveAll(ctx context.Context, txns []domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	stmt, err := l.conn.PrepareContext(ctx,
		"UPDATE transactions SET status = ?, updated_at = ? WHERE id = ?",
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range txns {
		tx := &txns[i]
		updatedAt := tx.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		res, err := stmt.ExecContext(ctx, string(tx.Status), formatTime(updatedAt), tx.ID)
		if err != nil {
			return fmt.Errorf("update %s: %w", tx.ID, err)
		}
		if ra, _ := res.RowsAffected(); ra != 1 {
			return fmt.Errorf("update %s: %w", tx.ID, domain.ErrNotFound)
		}
	}
	return nil
}

// --- helpers ---

func buildTransactionWhere(f TransactionFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.Direction != "" {
		clauses = append(clauses, "direction = ?")
		args = append(args, f.Direction)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func transactionArgs(tx *domain.Transaction) []any {
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := tx.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return []any{
		tx.ID, string(tx.Direction), tx.Amount.String(), tx.Currency,
		string(tx.Status), formatTime(createdAt), formatTime(updatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var direction, amount, status, createdAt, updatedAt string

	err := row.Scan(&tx.ID, &direction, &amount, &tx.Currency, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	tx.Direction = domain.Direction(direction)
	tx.Status = domain.TransactionStatus(status)
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %s amount %q: %w", tx.ID, amount, err)
	}
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("transaction %s created_at: %w", tx.ID, err)
	}
	if tx.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("transaction %s updated_at: %w", tx.ID, err)
	}

	return &tx, nil
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		txns = append(txns, *tx)
	}
	return txns, rows.Err()
}
