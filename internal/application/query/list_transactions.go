package query

import (
	"context"
	"time"

	"github.com/misis-lms/gamification-service/internal/domain/ledger"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST TRANSACTIONS QUERY
// Admin view over the append-only transaction log, newest first.
// ══════════════════════════════════════════════════════════════════════════════

// ListTransactionsQuery contains the listing parameters.
type ListTransactionsQuery struct {
	// UserID filters to one external user id. Empty lists everything.
	UserID string

	// Page is the 0-based page number.
	Page int

	// Size is the page size (default 20, max 100).
	Size int
}

// Validate checks and normalizes the query parameters.
func (q *ListTransactionsQuery) Validate() error {
	if q.Page < 0 {
		return shared.NewDomainError("query", "ListTransactions", shared.ErrValueOutOfRange, "page cannot be negative")
	}
	if q.Size < 0 {
		return shared.NewDomainError("query", "ListTransactions", shared.ErrValueOutOfRange, "size cannot be negative")
	}
	if q.Size == 0 {
		q.Size = defaultPageSize
	}
	if q.Size > maxPageSize {
		q.Size = maxPageSize
	}
	return nil
}

// TransactionDTO is one row of the transaction log.
type TransactionDTO struct {
	// TransactionID is the internal id of the ledger row.
	TransactionID string `json:"transactionId"`

	// UserID is the external user id the points went to.
	UserID string `json:"userId"`

	// EventID is the external event id that produced the row.
	EventID string `json:"eventId"`

	// EventType is the type code at award time.
	EventType string `json:"eventType"`

	// PointsEarned is the snapshotted point value.
	PointsEarned int `json:"pointsEarned"`

	// Description is the award note.
	Description string `json:"description"`

	// CreatedAt is when the row was appended.
	CreatedAt time.Time `json:"createdAt"`
}

// ListTransactionsResult contains one page of the log.
type ListTransactionsResult struct {
	Entries       []TransactionDTO `json:"entries"`
	PageNumber    int              `json:"pageNumber"`
	PageSize      int              `json:"pageSize"`
	TotalElements int              `json:"totalElements"`
	TotalPages    int              `json:"totalPages"`
	HasNext       bool             `json:"hasNext"`
	HasPrevious   bool             `json:"hasPrevious"`
}

// ListTransactionsHandler handles transaction listings.
type ListTransactionsHandler struct {
	ledger ledger.Repository
}

// NewListTransactionsHandler creates a new ListTransactionsHandler.
func NewListTransactionsHandler(ledgerRepo ledger.Repository) *ListTransactionsHandler {
	return &ListTransactionsHandler{ledger: ledgerRepo}
}

// Handle executes the listing.
func (h *ListTransactionsHandler) Handle(ctx context.Context, q ListTransactionsQuery) (*ListTransactionsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	page := ledger.Page{Limit: q.Size, Offset: q.Page * q.Size}

	var (
		rows  []*ledger.Transaction
		total int
		err   error
	)
	if q.UserID != "" {
		rows, total, err = h.ledger.ListByUser(ctx, q.UserID, page)
	} else {
		rows, total, err = h.ledger.List(ctx, page)
	}
	if err != nil {
		return nil, err
	}

	entries := make([]TransactionDTO, len(rows))
	for i, tx := range rows {
		entries[i] = TransactionDTO{
			TransactionID: tx.ID,
			UserID:        tx.UserID,
			EventID:       tx.EventID.String(),
			EventType:     tx.EventTypeCode,
			PointsEarned:  tx.PointsEarned,
			Description:   tx.Description,
			CreatedAt:     tx.CreatedAt,
		}
	}

	totalPages := (total + q.Size - 1) / q.Size

	return &ListTransactionsResult{
		Entries:       entries,
		PageNumber:    q.Page,
		PageSize:      q.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		HasNext:       page.Offset+len(entries) < total,
		HasPrevious:   q.Page > 0,
	}, nil
}
