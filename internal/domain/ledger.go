package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry is one immutable point_logs row. ID is kept opaque because the
// column type is owned by the remote schema.
type LedgerEntry struct {
	ID            string
	StudentID     uuid.UUID
	Amount        int
	Reason        string
	RelatedPostID *string
	CreatedAt     time.Time
}

// Code classifies the entry's free-text reason.
func (e LedgerEntry) Code() ReasonCode {
	return ParseReason(e.Amount, e.Reason)
}

// SpendResult is the authoritative answer of a spend RPC.
type SpendResult struct {
	NewPoints int
}
