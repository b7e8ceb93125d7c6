package repository_test

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wakala/status-reconciler/internal/domain"
	"github.com/wakala/status-reconciler/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := repository.InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func txn(id string, dir domain.Direction, status domain.TransactionStatus, amount string) domain.Transaction {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.Transaction{
		ID:        id,
		Direction: dir,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "USD",
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func seed(t *testing.T, repo *repository.TransactionRepo, txns ...domain.Transaction) {
	t.Helper()
	n, err := repo.BulkInsert(txns)
	require.NoError(t, err)
	require.Equal(t, len(txns), n)
}

func statusOf(t *testing.T, repo *repository.TransactionRepo, id string) domain.TransactionStatus {
	t.Helper()
	tx, err := repo.GetByID(id)
	require.NoError(t, err)
	return tx.Status
}
