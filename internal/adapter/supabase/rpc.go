package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/adapter/petdata"
	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// rpcResult is the {success, new_points, error} envelope the ledger
// functions return.
type rpcResult struct {
	Success   bool   `json:"success"`
	NewPoints *int   `json:"new_points"`
	Error     string `json:"error"`
}

func (r rpcResult) err() error {
	if r.Success {
		return nil
	}
	return &domain.UpstreamError{Kind: classifyRejection(r.Error), Message: r.Error}
}

func (c *Client) rpc(ctx context.Context, fn string, params any, out any) error {
	return c.call(ctx, "rpc "+fn, callOpts{}, func(x *exchange) error {
		pg, err := x.rest()
		if err != nil {
			return err
		}
		raw := pg.Rpc(fn, "", params)
		if pg.ClientError != nil {
			return pg.ClientError
		}
		if out == nil || strings.TrimSpace(raw) == "" {
			return nil
		}
		return json.Unmarshal([]byte(raw), out)
	})
}

// SpendPoints calls spend_student_points: one atomic balance check, deduction,
// ledger insert and pet_data write. The returned balance is authoritative.
func (c *Client) SpendPoints(ctx context.Context, amount int, reason string, pet domain.PetState) (domain.SpendResult, error) {
	doc, err := petdata.Encode(pet)
	if err != nil {
		return domain.SpendResult{}, err
	}

	var res rpcResult
	err = c.rpc(ctx, "spend_student_points", map[string]any{
		"p_amount":   amount,
		"p_reason":   reason,
		"p_pet_data": doc,
	}, &res)
	if err != nil {
		return domain.SpendResult{}, fmt.Errorf("spend points: %w", err)
	}
	if err := res.err(); err != nil {
		return domain.SpendResult{}, fmt.Errorf("spend points: %w", err)
	}
	if res.NewPoints == nil {
		return domain.SpendResult{}, fmt.Errorf("spend points: response without new_points: %w", domain.ErrUnavailable)
	}

	return domain.SpendResult{NewPoints: *res.NewPoints}, nil
}

// RewardComment calls reward_for_comment for a comment the caller left on
// postID. The new balance is returned when the function reports one.
func (c *Client) RewardComment(ctx context.Context, postID string) (*int, error) {
	var res rpcResult
	if err := c.rpc(ctx, "reward_for_comment", map[string]any{"p_post_id": postID}, &res); err != nil {
		return nil, fmt.Errorf("reward comment: %w", err)
	}
	if err := res.err(); err != nil {
		return nil, fmt.Errorf("reward comment: %w", err)
	}
	return res.NewPoints, nil
}

// IncrementPoints calls increment_student_points (teacher grant or deduction).
func (c *Client) IncrementPoints(ctx context.Context, studentID uuid.UUID, amount int, reason string) error {
	var raw json.RawMessage
	err := c.rpc(ctx, "increment_student_points", map[string]any{
		"p_student_id": studentID,
		"p_amount":     amount,
		"p_reason":     reason,
	}, &raw)
	if err != nil {
		return fmt.Errorf("increment points: %w", err)
	}

	// The function may return void or the usual envelope.
	var res rpcResult
	if len(raw) > 0 && json.Unmarshal(raw, &res) == nil && raw[0] == '{' {
		if err := res.err(); err != nil {
			return fmt.Errorf("increment points: %w", err)
		}
	}
	return nil
}

// SetupTeacherProfile calls setup_teacher_profile. The server assigns the role.
func (c *Client) SetupTeacherProfile(ctx context.Context, p domain.TeacherProfile) error {
	var res rpcResult
	err := c.rpc(ctx, "setup_teacher_profile", map[string]any{
		"p_full_name": p.FullName,
		"p_email":     p.Email,
		"p_api_mode":  string(p.APIMode),
	}, &res)
	if err != nil {
		return fmt.Errorf("setup teacher profile: %w", err)
	}
	if !res.Success {
		kind := domain.ErrConflict
		if classified := classifyRejection(res.Error); classified == domain.ErrForbidden {
			kind = classified
		}
		return fmt.Errorf("setup teacher profile: %w", &domain.UpstreamError{Kind: kind, Message: res.Error})
	}
	return nil
}
