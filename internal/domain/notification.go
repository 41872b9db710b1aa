package domain

import "time"

// NotificationType is the banner category shown to a student.
type NotificationType string

const (
	NotificationPoint    NotificationType = "point"
	NotificationRewrite  NotificationType = "rewrite"
	NotificationApprove  NotificationType = "approve"
	NotificationRecovery NotificationType = "recovery"
)

func (t NotificationType) String() string { return string(t) }

// Notification is an ephemeral, never persisted banner.
type Notification struct {
	Type      NotificationType
	Message   string
	Icon      string
	Timestamp time.Time
}

// RefreshKind is a bit set of dependent views to re-fetch after an event.
type RefreshKind uint8

const (
	RefreshActivity RefreshKind = 1 << iota
	RefreshPoints
	RefreshStats
	// RefreshResync asks for a points refetch that also forgets which of the
	// mirror's own spends still await their ledger push. Set after a stream gap.
	RefreshResync
)

// RefreshAfterGap is what a consumer refetches when pushed changes may have
// been missed.
const RefreshAfterGap = RefreshActivity | RefreshPoints | RefreshStats | RefreshResync

func (k RefreshKind) Has(flag RefreshKind) bool { return k&flag != 0 }
