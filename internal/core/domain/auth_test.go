package domain

import (
	"testing"
	"time"
)

func TestAdminClaimsIsExpired(t *testing.T) {
	past := &AdminClaims{ExpiresAt: time.Now().Add(-time.Minute)}
	if !past.IsExpired() {
		t.Error("expected expired")
	}
	future := &AdminClaims{ExpiresAt: time.Now().Add(time.Hour)}
	if future.IsExpired() {
		t.Error("expected not expired")
	}
}
