package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-key-32bytes-long!!")

func newTestTokenService() *TokenService {
	return NewTokenService(testSecret, 15*time.Minute)
}

func newTestUser() *User {
	return &User{ID: "user-123", Username: "li.hua", Name: "李华", Role: RoleTeacher}
}

func TestIssueAndValidateAccessToken(t *testing.T) {
	ts := newTestTokenService()
	token, err := ts.IssueAccessToken(newTestUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	claims, err := ts.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != "user-123" || claims.Username != "li.hua" || claims.Name != "李华" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Role != string(RoleTeacher) {
		t.Errorf("Role = %q, want %q", claims.Role, RoleTeacher)
	}
	if claims.Issuer != Issuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, Issuer)
	}

	again, err := ts.IssueAccessToken(newTestUser())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	second, err := ts.ValidateAccessToken(again)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.ID == "" || claims.ID == second.ID {
		t.Errorf("token IDs %q and %q should be set and distinct", claims.ID, second.ID)
	}
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	ts := newTestTokenService()

	expired, err := NewTokenService(testSecret, -time.Minute).IssueAccessToken(newTestUser())
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	otherSecret, err := NewTokenService([]byte("another-secret-another-secret!!"), time.Minute).IssueAccessToken(newTestUser())
	if err != nil {
		t.Fatalf("issue other secret: %v", err)
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Role: string(RoleAdmin),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign foreign: %v", err)
	}
	otherAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{"another-service"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		UserID: "user-123",
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign other audience: %v", err)
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: string(RoleAdmin)}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	for name, token := range map[string]string{
		"expired":      expired,
		"other secret": otherSecret,
		"other issuer": foreign,
		"other aud":    otherAudience,
		"alg none":     unsigned,
		"garbage":      "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ts.ValidateAccessToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct-horse") {
		t.Error("CheckPassword should accept the original password")
	}
	if CheckPassword(hash, "wrong-horse") {
		t.Error("CheckPassword should reject a different password")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err != ErrWeakPassword {
		t.Errorf("ValidatePassword(short) = %v, want ErrWeakPassword", err)
	}
	if err := ValidatePassword("春眠不觉晓处处闻"); err != nil {
		t.Errorf("ValidatePassword(8 runes) = %v", err)
	}
}
