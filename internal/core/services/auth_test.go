package services

import (
	"context"
	"testing"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven/mocks"
)

func newTestAdminAuthService(hash string) *adminAuthService {
	return NewAdminAuthService(mocks.NewMockAuthAdapter(), hash, time.Hour).(*adminAuthService)
}

func TestAdminAuthService_Authenticate(t *testing.T) {
	svc := newTestAdminAuthService("password123") // Mock hasher uses plain text comparison

	tests := []struct {
		name    string
		req     domain.LoginRequest
		wantErr error
	}{
		{
			name:    "valid password",
			req:     domain.LoginRequest{Password: "password123"},
			wantErr: nil,
		},
		{
			name:    "empty password",
			req:     domain.LoginRequest{Password: ""},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "wrong password",
			req:     domain.LoginRequest{Password: "wrongpassword"},
			wantErr: domain.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Authenticate(context.Background(), tt.req)
			if err != tt.wantErr {
				t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
				return
			}
			if tt.wantErr == nil {
				if session == nil || session.Token == "" {
					t.Error("expected session token")
				}
				if !session.ExpiresAt.After(time.Now()) {
					t.Error("expected expiry in the future")
				}
			}
		})
	}
}

func TestAdminAuthService_LoginDisabledWithoutHash(t *testing.T) {
	svc := newTestAdminAuthService("")

	_, err := svc.Authenticate(context.Background(), domain.LoginRequest{Password: "anything"})
	if err != domain.ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAdminAuthService_ValidateToken(t *testing.T) {
	svc := newTestAdminAuthService("password123")
	adapter := mocks.NewMockAuthAdapter()

	session, err := svc.Authenticate(context.Background(), domain.LoginRequest{Password: "password123"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	claims, err := svc.ValidateToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != AdminSubject {
		t.Errorf("expected subject %q, got %q", AdminSubject, claims.Subject)
	}

	expired, _ := adapter.GenerateToken(AdminSubject, -time.Minute)
	otherSubject, _ := adapter.GenerateToken("someone", time.Hour)

	for name, token := range map[string]string{
		"empty":         "",
		"garbage":       "not-a-token",
		"expired":       expired.Token,
		"wrong subject": otherSubject.Token,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ValidateToken(context.Background(), token); err != domain.ErrUnauthorized {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}
