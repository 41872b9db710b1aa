package supabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/supabase-community/gotrue-go/types"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

func toAuthSession(r *types.TokenResponse, now time.Time) domain.AuthSession {
	expires := now.Add(time.Duration(r.ExpiresIn) * time.Second)
	if r.ExpiresAt > 0 {
		expires = time.Unix(r.ExpiresAt, 0)
	}
	return domain.AuthSession{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expires,
		UserID:       r.User.ID,
		Email:        r.User.Email,
	}
}

// Ping checks that the auth service answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, "auth health", callOpts{public: true, idempotent: true}, func(x *exchange) error {
		_, err := x.auth().HealthCheck()
		return err
	})
}

// SignInWithPassword exchanges email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (domain.AuthSession, error) {
	return c.token(ctx, "password", func(gt gotrueTokens) (*types.TokenResponse, error) {
		return gt.SignInWithEmailPassword(email, password)
	})
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (domain.AuthSession, error) {
	return c.token(ctx, "refresh_token", func(gt gotrueTokens) (*types.TokenResponse, error) {
		return gt.RefreshToken(refreshToken)
	})
}

// gotrueTokens is the part of gotrue.Client the token grants use.
type gotrueTokens interface {
	SignInWithEmailPassword(email, password string) (*types.TokenResponse, error)
	RefreshToken(refreshToken string) (*types.TokenResponse, error)
}

func (c *Client) token(ctx context.Context, grant string, grantFn func(gotrueTokens) (*types.TokenResponse, error)) (domain.AuthSession, error) {
	var res *types.TokenResponse
	err := c.call(ctx, "auth "+grant, callOpts{public: true}, func(x *exchange) (err error) {
		res, err = grantFn(x.auth())
		return err
	})
	switch {
	case errors.Is(err, types.ErrInvalidTokenRequest):
		return domain.AuthSession{}, fmt.Errorf("auth %s: %w", grant, errors.Join(domain.ErrValidation, err))
	case err != nil:
		return domain.AuthSession{}, fmt.Errorf("auth %s: %w", grant, err)
	}
	if res == nil || res.AccessToken == "" {
		return domain.AuthSession{}, fmt.Errorf("auth %s: empty access token: %w", grant, domain.ErrUnauthorized)
	}
	return toAuthSession(res, time.Now()), nil
}
