package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// Phoenix channel events used by Supabase Realtime.
const (
	eventJoin        = "phx_join"
	eventLeave       = "phx_leave"
	eventReply       = "phx_reply"
	eventError       = "phx_error"
	eventClose       = "phx_close"
	eventHeartbeat   = "heartbeat"
	eventAccessToken = "access_token"
	eventSystem      = "system"
	eventChanges     = "postgres_changes"

	phoenixTopic = "phoenix"
)

// message is a Phoenix v1 JSON frame.
type message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

func (m message) ref() string {
	if m.Ref == nil {
		return ""
	}
	return *m.Ref
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type systemPayload struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Extension string `json:"extension"`
}

type changeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

type joinConfig struct {
	Broadcast       map[string]bool   `json:"broadcast"`
	Presence        map[string]string `json:"presence"`
	PostgresChanges []changeFilter    `json:"postgres_changes"`
}

type joinPayload struct {
	Config      joinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

func studentTopic(studentID uuid.UUID) string {
	return "realtime:student-" + studentID.String()
}

func newJoinPayload(studentID uuid.UUID, ledgerTable, submissionTable, token string) joinPayload {
	filter := "student_id=eq." + studentID.String()
	return joinPayload{
		Config: joinConfig{
			Broadcast: map[string]bool{"self": false},
			Presence:  map[string]string{"key": ""},
			PostgresChanges: []changeFilter{
				{Event: "INSERT", Schema: "public", Table: ledgerTable, Filter: filter},
				{Event: "UPDATE", Schema: "public", Table: submissionTable, Filter: filter},
			},
		},
		AccessToken: token,
	}
}

type changePayload struct {
	Data struct {
		Table     string          `json:"table"`
		EventType string          `json:"eventType"`
		Type      string          `json:"type"`
		New       json.RawMessage `json:"new"`
		Old       json.RawMessage `json:"old"`
		Record    json.RawMessage `json:"record"`
		OldRecord json.RawMessage `json:"old_record"`
	} `json:"data"`
}

type ledgerRow struct {
	ID            json.RawMessage `json:"id"`
	StudentID     uuid.UUID       `json:"student_id"`
	Amount        int             `json:"amount"`
	Reason        string          `json:"reason"`
	RelatedPostID *string         `json:"related_post_id"`
	PostID        *string         `json:"post_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

type submissionRow struct {
	ID          json.RawMessage `json:"id"`
	StudentID   uuid.UUID       `json:"student_id"`
	IsReturned  *bool           `json:"is_returned"`
	IsConfirmed *bool           `json:"is_confirmed"`
}

// flags reports false for known when either flag is absent from the row.
func (r submissionRow) flags() (f domain.SubmissionFlags, known bool) {
	if r.IsReturned == nil || r.IsConfirmed == nil {
		return domain.SubmissionFlags{
			IsReturned:  r.IsReturned != nil && *r.IsReturned,
			IsConfirmed: r.IsConfirmed != nil && *r.IsConfirmed,
		}, false
	}
	return domain.SubmissionFlags{IsReturned: *r.IsReturned, IsConfirmed: *r.IsConfirmed}, true
}

// opaqueID renders a JSON id (string or number) as text.
func opaqueID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// decodeChange converts a postgres_changes payload into a ChangeEvent. It
// returns nil for tables and event types nobody subscribed to.
func decodeChange(payload json.RawMessage, ledgerTable, submissionTable string) (domain.ChangeEvent, error) {
	var p changePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode change: %w", err)
	}

	eventType := p.Data.EventType
	if eventType == "" {
		eventType = p.Data.Type
	}
	newRow := firstNonEmpty(p.Data.New, p.Data.Record)
	oldRow := firstNonEmpty(p.Data.Old, p.Data.OldRecord)

	switch {
	case p.Data.Table == ledgerTable && eventType == "INSERT":
		var row ledgerRow
		if err := json.Unmarshal(newRow, &row); err != nil {
			return nil, fmt.Errorf("decode ledger row: %w", err)
		}
		related := row.RelatedPostID
		if related == nil {
			related = row.PostID
		}
		return domain.LedgerInsert{Entry: domain.LedgerEntry{
			ID:            opaqueID(row.ID),
			StudentID:     row.StudentID,
			Amount:        row.Amount,
			Reason:        row.Reason,
			RelatedPostID: related,
			CreatedAt:     row.CreatedAt,
		}}, nil

	case p.Data.Table == submissionTable && eventType == "UPDATE":
		var cur, prev submissionRow
		if err := json.Unmarshal(newRow, &cur); err != nil {
			return nil, fmt.Errorf("decode submission row: %w", err)
		}
		if len(oldRow) > 0 {
			if err := json.Unmarshal(oldRow, &prev); err != nil {
				return nil, fmt.Errorf("decode old submission row: %w", err)
			}
		}
		newFlags, _ := cur.flags()
		oldFlags, oldKnown := prev.flags()
		return domain.SubmissionUpdate{
			PostID:     opaqueID(cur.ID),
			StudentID:  cur.StudentID,
			Old:        oldFlags,
			New:        newFlags,
			OldUnknown: !oldKnown,
		}, nil
	}
	return nil, nil
}

func firstNonEmpty(a, b json.RawMessage) json.RawMessage {
	if len(a) > 0 && string(a) != "null" {
		return a
	}
	return b
}

func refString(n uint64) *string {
	s := strconv.FormatUint(n, 10)
	return &s
}
