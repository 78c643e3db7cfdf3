// Package postgres implements the PostgreSQL persistence layer of the
// gamification service.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/misis-lms/gamification-service/internal/domain/ledger"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/pkg/timeutil"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER REPOSITORY IMPLEMENTATION
// The UNIQUE constraint on transactions.event_id backs Append: a losing
// concurrent insert surfaces as a unique violation and is folded into
// shared.ErrDuplicateEvent.
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements ledger.Repository for PostgreSQL.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

// Exists reports whether a transaction with this event id was committed.
func (r *LedgerRepository) Exists(ctx context.Context, eventID ledger.EventID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE event_id = $1)`

	var exists bool
	err := querierFrom(ctx, r.conn).QueryRow(ctx, query, eventID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check event id: %w", err)
	}

	return exists, nil
}

// Append persists a new transaction.
func (r *LedgerRepository) Append(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_external_id, event_id, event_type_code, points_earned, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := querierFrom(ctx, r.conn).Exec(ctx, query,
		tx.ID,
		tx.UserID,
		tx.EventID.String(),
		tx.EventTypeCode,
		tx.PointsEarned,
		tx.Description,
		tx.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	return nil
}

// DailySum aggregates points for (user, type) over the UTC day containing
// the given instant. Always computed from the log, never cached.
func (r *LedgerRepository) DailySum(ctx context.Context, externalUserID, typeCode string, day time.Time) (int, error) {
	from, to := timeutil.DayWindow(day)

	query := `
		SELECT COALESCE(SUM(points_earned), 0)
		FROM transactions
		WHERE user_external_id = $1
		  AND event_type_code = $2
		  AND created_at >= $3
		  AND created_at < $4
	`

	var sum int
	err := querierFrom(ctx, r.conn).QueryRow(ctx, query, externalUserID, typeCode, from, to).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum daily points: %w", err)
	}

	return sum, nil
}

// SumByUser aggregates all-time points of one user.
func (r *LedgerRepository) SumByUser(ctx context.Context, externalUserID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(points_earned), 0)
		FROM transactions
		WHERE user_external_id = $1
	`

	var sum int
	err := querierFrom(ctx, r.conn).QueryRow(ctx, query, externalUserID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum user points: %w", err)
	}

	return sum, nil
}

// ListByUser returns the user's transactions, newest first.
func (r *LedgerRepository) ListByUser(ctx context.Context, externalUserID string, page ledger.Page) ([]*ledger.Transaction, int, error) {
	q := querierFrom(ctx, r.conn)

	var total int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE user_external_id = $1`, externalUserID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `
		SELECT id, user_external_id, event_id, event_type_code, points_earned, description, created_at
		FROM transactions
		WHERE user_external_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.Query(ctx, query, externalUserID, pageLimit(page), page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs, err := r.scanTransactions(rows)
	return txs, total, err
}

// List returns all transactions, newest first.
func (r *LedgerRepository) List(ctx context.Context, page ledger.Page) ([]*ledger.Transaction, int, error) {
	q := querierFrom(ctx, r.conn)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `
		SELECT id, user_external_id, event_id, event_type_code, points_earned, description, created_at
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := q.Query(ctx, query, pageLimit(page), page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs, err := r.scanTransactions(rows)
	return txs, total, err
}

// pageLimit applies the default page size.
func pageLimit(page ledger.Page) int {
	if page.Limit <= 0 {
		return 20
	}
	return page.Limit
}

// scanTransactions drains a transaction result set.
func (r *LedgerRepository) scanTransactions(rows pgx.Rows) ([]*ledger.Transaction, error) {
	var txs []*ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		var eventID string

		err := rows.Scan(&tx.ID, &tx.UserID, &eventID, &tx.EventTypeCode, &tx.PointsEarned, &tx.Description, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.EventID = ledger.EventID(eventID)
		txs = append(txs, &tx)
	}

	return txs, rows.Err()
}
