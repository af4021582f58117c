package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("admin", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	userID, err := ValidateToken(token, "secret")
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if userID != "admin" {
		t.Errorf("expected admin, got %q", userID)
	}

	if _, err := ValidateToken(token, "other-secret"); err == nil {
		t.Error("expected validation to fail with the wrong secret")
	}
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateToken("admin", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ValidateToken(token, "secret"); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestVerifyAdminPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	tests := []struct {
		name     string
		stored   string
		password string
		want     bool
	}{
		{"plain match", "s3cret", "s3cret", true},
		{"plain mismatch", "s3cret", "guess", false},
		{"hash match", hash, "s3cret", true},
		{"hash mismatch", hash, "guess", false},
		{"empty stored", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyAdminPassword(Config{AdminPassword: tt.stored}, tt.password); got != tt.want {
				t.Errorf("VerifyAdminPassword = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := Config{JWTSecret: "secret", TokenDuration: time.Hour}
	token, _ := GenerateToken("admin", cfg.JWTSecret, time.Hour)

	var seenUser string
	protected := AuthMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/automation/start", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}

	if seenUser != "admin" {
		t.Errorf("expected user id in context, got %q", seenUser)
	}
}
