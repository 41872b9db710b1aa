package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// audience is the aud claim Supabase Auth puts on signed-in user tokens.
const audience = "authenticated"

// Identity is what a verified access token says about the caller.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   domain.Role
}

// JWTManager verifies Supabase Auth access tokens (HS256 with the project
// JWT secret) and can mint compatible tokens for tests and local tooling.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewJWTManager creates a new JWT manager. An empty issuer skips the iss check.
func NewJWTManager(secret string, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

type appMetadata struct {
	Role string `json:"role,omitempty"`
}

// supabaseClaims mirrors the GoTrue access token payload. The top-level role
// is the Postgres role ("authenticated"); the application role lives in
// app_metadata, which only the service role can write.
type supabaseClaims struct {
	jwt.RegisteredClaims
	Email       string      `json:"email,omitempty"`
	Role        string      `json:"role,omitempty"`
	AppMetadata appMetadata `json:"app_metadata"`
}

// GenerateAccessToken creates a signed HS256 token shaped like a Supabase one.
func (m *JWTManager) GenerateAccessToken(userID uuid.UUID, email string, role domain.Role) (string, error) {
	now := time.Now()
	claims := supabaseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email:       email,
		Role:        audience,
		AppMetadata: appMetadata{Role: string(role)},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and validates an access token.
// Tokens without an application role are treated as students.
func (m *JWTManager) ValidateAccessToken(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, fmt.Errorf("token is empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &supabaseClaims{}, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*supabaseClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid subject UUID: %w", err)
	}

	role := domain.Role(claims.AppMetadata.Role)
	if role == "" {
		role = domain.RoleStudent
	}
	if !role.IsValid() {
		return Identity{}, fmt.Errorf("unknown role %q", role)
	}

	return Identity{UserID: userID, Email: claims.Email, Role: role}, nil
}
