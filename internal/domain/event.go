package domain

import "github.com/google/uuid"

// ChangeEvent is a realtime change pushed by the remote ledger. It is one of
// LedgerInsert or SubmissionUpdate.
type ChangeEvent interface {
	changeEvent()
}

// LedgerInsert reports a new point_logs row.
type LedgerInsert struct {
	Entry LedgerEntry
}

// SubmissionFlags are the review flags of a student_posts row.
type SubmissionFlags struct {
	IsReturned  bool
	IsConfirmed bool
}

// SubmissionUpdate reports an update of a student_posts row with the flags
// before and after the change. OldUnknown is set when the old row carried
// only the primary key (default REPLICA IDENTITY); Old is then meaningless
// and no transition is reported.
type SubmissionUpdate struct {
	PostID     string
	StudentID  uuid.UUID
	Old        SubmissionFlags
	New        SubmissionFlags
	OldUnknown bool
}

// StreamResumed is emitted when a subscription re-joins after a dropped
// connection. Changes made during the gap were not delivered.
type StreamResumed struct{}

func (LedgerInsert) changeEvent()     {}
func (SubmissionUpdate) changeEvent() {}
func (StreamResumed) changeEvent()    {}

// Returned reports an is_returned false->true transition.
func (u SubmissionUpdate) Returned() bool {
	return !u.OldUnknown && !u.Old.IsReturned && u.New.IsReturned
}

// Confirmed reports an is_confirmed false->true transition.
func (u SubmissionUpdate) Confirmed() bool {
	return !u.OldUnknown && !u.Old.IsConfirmed && u.New.IsConfirmed
}

// Unconfirmed reports an is_confirmed true->false transition.
func (u SubmissionUpdate) Unconfirmed() bool {
	return !u.OldUnknown && u.Old.IsConfirmed && !u.New.IsConfirmed
}

// ChangeStream is a live subscription to one student's change events.
// Events is closed after Unsubscribe or when the subscribing context ends.
type ChangeStream interface {
	Events() <-chan ChangeEvent
	// SetAccessToken replaces the token the subscription authenticates with.
	SetAccessToken(token string)
	Unsubscribe()
}
