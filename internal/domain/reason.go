package domain

import (
	"regexp"
	"strings"
)

// ReasonCode is the structured classification of a ledger reason.
type ReasonCode string

const (
	ReasonMarketDecided      ReasonCode = "market_decided"
	ReasonSubmissionApproved ReasonCode = "submission_approved"
	ReasonVocabTower         ReasonCode = "vocab_tower"
	ReasonCommentReward      ReasonCode = "comment_reward"
	ReasonApprovalCanceled   ReasonCode = "approval_canceled"
	ReasonPetFeed            ReasonCode = "pet_feed"
	ReasonPetPurchase        ReasonCode = "pet_purchase"
	ReasonGeneric            ReasonCode = "generic"
)

func (c ReasonCode) String() string { return string(c) }

// Reason texts written by this service when it spends points.
const (
	FeedReason        = "드래곤 먹이주기"
	PurchaseReasonFmt = "아지트 아이템 구매: %s"
)

// Legacy free-text markers. Ledger rows carry no structured code, so
// ParseReason recovers one from these substrings.
const (
	markerApprovalCanceled = "승인 취소"
	markerIdeaMarket       = "아이디어 마켓"
	markerDecided          = "결정"
	markerApproved         = "승인"
	markerVocabTower       = "어휘의 탑"
	markerComment          = "댓글"
	markerFeed             = "먹이"
	markerPurchase         = "구매"
)

// ParseReason maps a free-text reason to a code. The sign of amount matters:
// "승인 취소" contains "승인", so cancellations are only recognised on
// deductions. Unknown reasons map to ReasonGeneric.
func ParseReason(amount int, reason string) ReasonCode {
	if amount < 0 {
		switch {
		case strings.Contains(reason, markerApprovalCanceled):
			return ReasonApprovalCanceled
		case strings.Contains(reason, markerFeed):
			return ReasonPetFeed
		case strings.Contains(reason, markerPurchase):
			return ReasonPetPurchase
		}
		return ReasonGeneric
	}

	switch {
	case strings.Contains(reason, markerIdeaMarket) && strings.Contains(reason, markerDecided):
		return ReasonMarketDecided
	case strings.Contains(reason, markerApproved):
		return ReasonSubmissionApproved
	case strings.Contains(reason, markerVocabTower):
		return ReasonVocabTower
	case strings.Contains(reason, markerComment):
		return ReasonCommentReward
	}
	return ReasonGeneric
}

var postIDSuffix = regexp.MustCompile(`\s*\(PostID:[^)]*\)\s*$`)

// CleanReason strips a trailing "(PostID:...)" annotation.
func CleanReason(reason string) string {
	return strings.TrimSpace(postIDSuffix.ReplaceAllString(reason, ""))
}
