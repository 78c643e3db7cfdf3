package shared

import "context"

// TxManager runs a function inside a single storage transaction.
//
// The infrastructure layer owns the concrete implementation; domain and
// application code only see this interface so the awarding flow stays
// storage-agnostic. The callback receives a derived context carrying the
// transaction; repositories participate in it transparently. The transaction
// commits when fn returns nil and rolls back otherwise.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTxManager is a TxManager that runs the callback without any transaction.
// Used by in-memory implementations in tests.
type NopTxManager struct{}

// RunInTx invokes fn directly.
func (NopTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
