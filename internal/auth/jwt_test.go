package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

const (
	testSecret = "test-secret-at-least-32-chars-long-for-security"
	testIssuer = "https://abc.supabase.co/auth/v1"
)

func TestJWTManager_GenerateAndValidate_Success(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager(testSecret, testIssuer, 15*time.Minute)
	userID := uuid.New()

	token, err := manager.GenerateAccessToken(userID, "kim@school.kr", domain.RoleTeacher)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token is not a JWT: %q", token)
	}

	id, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if id.UserID != userID {
		t.Errorf("user id = %s, want %s", id.UserID, userID)
	}
	if id.Role != domain.RoleTeacher {
		t.Errorf("role = %q, want teacher", id.Role)
	}
	if id.Email != "kim@school.kr" {
		t.Errorf("email = %q", id.Email)
	}
}

func TestJWTManager_ValidateAccessToken_DefaultsToStudent(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager(testSecret, "", time.Minute)
	token, err := manager.GenerateAccessToken(uuid.New(), "", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	id, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if id.Role != domain.RoleStudent {
		t.Errorf("role = %q, want student", id.Role)
	}
}

func TestJWTManager_ValidateAccessToken_Expired(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager(testSecret, testIssuer, -time.Minute)
	token, err := manager.GenerateAccessToken(uuid.New(), "", domain.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTManager_ValidateAccessToken_InvalidSignature(t *testing.T) {
	t.Parallel()

	other := NewJWTManager("another-secret-that-is-also-32-chars-long!!", testIssuer, time.Minute)
	token, err := other.GenerateAccessToken(uuid.New(), "", domain.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	manager := NewJWTManager(testSecret, testIssuer, time.Minute)
	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for wrong signature")
	}
}

func TestJWTManager_ValidateAccessToken_WrongIssuer(t *testing.T) {
	t.Parallel()

	other := NewJWTManager(testSecret, "https://other.supabase.co/auth/v1", time.Minute)
	token, err := other.GenerateAccessToken(uuid.New(), "", domain.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	manager := NewJWTManager(testSecret, testIssuer, time.Minute)
	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for wrong issuer")
	}
}

func TestJWTManager_ValidateAccessToken_WrongAudience(t *testing.T) {
	t.Parallel()

	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Audience:  jwt.ClaimStrings{"anon"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	manager := NewJWTManager(testSecret, "", time.Minute)
	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for anon audience")
	}
}

func TestJWTManager_ValidateAccessToken_UnknownRole(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager(testSecret, "", time.Minute)
	token, err := manager.GenerateAccessToken(uuid.New(), "", domain.Role("admin"))
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestJWTManager_ValidateAccessToken_Malformed(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager(testSecret, testIssuer, time.Minute)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := manager.ValidateAccessToken(tok); err == nil {
			t.Errorf("expected error for %q", tok)
		}
	}
}
