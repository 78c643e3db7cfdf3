// Package postgres implements the PostgreSQL persistence layer of the
// gamification service.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTION MANAGER
// Bridges shared.TxManager to pgx transactions. The open transaction rides
// in the context; repositories pick it up transparently through querierFrom
// so the same repository code serves both transactional and plain calls.
// ══════════════════════════════════════════════════════════════════════════════

// txKey carries the open pgx.Tx inside a context.
type txKey struct{}

// TxManager implements shared.TxManager over the connection pool.
type TxManager struct {
	conn *Connection
}

// NewTxManager creates a TxManager.
func NewTxManager(conn *Connection) *TxManager {
	return &TxManager{conn: conn}
}

// RunInTx runs fn inside one read-write transaction. The derived context
// carries the transaction; fn returning nil commits, anything else rolls back.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// querierFrom resolves the Querier for a call: the context's transaction when
// one is open, the pool otherwise.
func querierFrom(ctx context.Context, conn *Connection) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return conn.Pool()
}
