package domain

import "context"

// ReportSource downloads the raw settlement report payload.
type ReportSource interface {
	FetchReport(ctx context.Context) ([]byte, error)
}

// LockedTransactions is the view of the transaction store available while
// the write lock is held.
type LockedTransactions interface {
	// FindEligibleByIDs returns the records in StatusEligible whose id is in ids.
	FindEligibleByIDs(ctx context.Context, ids []string) ([]Transaction, error)

	// SaveAll persists the given records; it is all-or-nothing together with
	// the enclosing lock scope.
	SaveAll(ctx context.Context, txns []Transaction) error
}

// TransactionStore runs fn inside one exclusive write transaction. fn's
// changes are committed only if it returns nil.
type TransactionStore interface {
	WithinLock(ctx context.Context, fn func(LockedTransactions) error) error
}
