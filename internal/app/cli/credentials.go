package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/storage"
	"github.com/heartmarshall/hideout-backend/pkg/ctxutil"
)

var sessionKey = storage.Key("cli", "session")

// authAPI signs in and renews sessions.
type authAPI interface {
	SignInWithPassword(ctx context.Context, email, password string) (domain.AuthSession, error)
	RefreshSession(ctx context.Context, refreshToken string) (domain.AuthSession, error)
}

// Credentials persists the signed-in session in a KV store and renews it
// when the access token is about to expire.
type Credentials struct {
	kv   storage.KV
	auth authAPI
	now  func() time.Time
}

// NewCredentials creates a Credentials store.
func NewCredentials(kv storage.KV, auth authAPI) *Credentials {
	return &Credentials{kv: kv, auth: auth, now: time.Now}
}

// Login signs in and saves the session.
func (c *Credentials) Login(ctx context.Context, email, password string) (domain.AuthSession, error) {
	s, err := c.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return domain.AuthSession{}, err
	}
	if err := c.save(ctx, s); err != nil {
		return domain.AuthSession{}, err
	}
	return s, nil
}

// Logout forgets the saved session.
func (c *Credentials) Logout(ctx context.Context) error {
	return c.kv.Remove(ctx, sessionKey)
}

// Session returns a valid session, refreshing and re-saving it if the access
// token expired.
func (c *Credentials) Session(ctx context.Context) (domain.AuthSession, error) {
	raw, err := c.kv.Get(ctx, sessionKey)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.AuthSession{}, fmt.Errorf("not logged in, run `hideoutctl login`: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("load session: %w", err)
	}

	var s domain.AuthSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.AuthSession{}, fmt.Errorf("decode session: %w", err)
	}
	if !s.Expired(c.now()) {
		return s, nil
	}

	renewed, err := c.auth.RefreshSession(ctx, s.RefreshToken)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("refresh session: %w", err)
	}
	if err := c.save(ctx, renewed); err != nil {
		return domain.AuthSession{}, err
	}
	return renewed, nil
}

// Context returns ctx carrying the caller's identity and access token.
func (c *Credentials) Context(ctx context.Context) (context.Context, domain.AuthSession, error) {
	s, err := c.Session(ctx)
	if err != nil {
		return ctx, domain.AuthSession{}, err
	}
	ctx = ctxutil.WithUserID(ctx, s.UserID)
	ctx = ctxutil.WithAccessToken(ctx, s.AccessToken)
	return ctx, s, nil
}

func (c *Credentials) save(ctx context.Context, s domain.AuthSession) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := c.kv.Set(ctx, sessionKey, raw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
