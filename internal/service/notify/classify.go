package notify

import (
	"fmt"
	"time"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

const (
	iconWarning  = "⚠️"
	iconRecovery = "↩️"
	iconMarket   = "💡"
	iconApproved = "🎉"
	iconVocab    = "🏰"
	iconReward   = "✨"
	iconRewrite  = "✏️"
)

// ClassifyLedgerInsert turns a new ledger entry into a banner. Zero-amount
// entries are silent. Unknown reasons get the generic message.
func ClassifyLedgerInsert(entry domain.LedgerEntry, now time.Time) (domain.Notification, bool) {
	if entry.Amount == 0 {
		return domain.Notification{}, false
	}

	n := domain.Notification{Timestamp: now}
	reason := domain.CleanReason(entry.Reason)

	switch entry.Code() {
	case domain.ReasonApprovalCanceled:
		n.Type = domain.NotificationRecovery
		n.Icon = iconRecovery
		n.Message = fmt.Sprintf("글 승인이 취소되어 포인트가 회수되었어요 (%d)", entry.Amount)
	case domain.ReasonMarketDecided:
		n.Type = domain.NotificationPoint
		n.Icon = iconMarket
		n.Message = fmt.Sprintf("아이디어 마켓에서 내 의견이 결정되었어요! +%dP", entry.Amount)
	case domain.ReasonSubmissionApproved:
		n.Type = domain.NotificationApprove
		n.Icon = iconApproved
		n.Message = fmt.Sprintf("글이 승인되어 +%dP를 받았어요!", entry.Amount)
	case domain.ReasonVocabTower:
		n.Type = domain.NotificationPoint
		n.Icon = iconVocab
		n.Message = fmt.Sprintf("어휘의 탑 도전 보상 +%dP!", entry.Amount)
	default:
		n.Type = domain.NotificationPoint
		if entry.Amount < 0 {
			n.Icon = iconWarning
			n.Message = fmt.Sprintf("포인트 차감: %s (%d)", reason, entry.Amount)
		} else {
			n.Icon = iconReward
			n.Message = fmt.Sprintf("%s +%dP", reason, entry.Amount)
		}
	}
	return n, true
}

// ClassifySubmissionUpdate reports at most one banner for a submission
// update and the views to re-fetch. A return takes precedence over a
// confirmation change in the same update.
func ClassifySubmissionUpdate(u domain.SubmissionUpdate, now time.Time) (domain.Notification, domain.RefreshKind, bool) {
	// Without the old flags any update may have been a review; refetch
	// everything and stay silent.
	if u.OldUnknown {
		return domain.Notification{}, domain.RefreshActivity | domain.RefreshPoints | domain.RefreshStats, false
	}

	var refresh domain.RefreshKind
	if u.Returned() {
		refresh |= domain.RefreshActivity
	}
	if u.Confirmed() || u.Unconfirmed() {
		refresh |= domain.RefreshPoints | domain.RefreshStats
	}

	switch {
	case u.Returned():
		return domain.Notification{
			Type:      domain.NotificationRewrite,
			Icon:      iconRewrite,
			Message:   "선생님이 글을 돌려보냈어요. 다시 써 볼까요?",
			Timestamp: now,
		}, refresh, true
	case u.Confirmed():
		return domain.Notification{
			Type:      domain.NotificationApprove,
			Icon:      iconApproved,
			Message:   "글이 승인되었어요!",
			Timestamp: now,
		}, refresh, true
	case u.Unconfirmed():
		return domain.Notification{
			Type:      domain.NotificationRecovery,
			Icon:      iconRecovery,
			Message:   "글 승인이 취소되었어요.",
			Timestamp: now,
		}, refresh, true
	}
	return domain.Notification{}, refresh, false
}
