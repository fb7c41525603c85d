package auth

import (
	"testing"
	"time"

	"campattend/internal/model"
)

func TestIssueAndParse(t *testing.T) {
	expires := time.Now().Add(2 * time.Hour)
	token, err := Issue("sess-1", "ECCM001", model.RoleNurse, "camp-attendance", "test-key", expires)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := Parse(token, "test-key", "camp-attendance")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.SessionID != "sess-1" || claims.Role != model.RoleNurse || claims.Subject != "ECCM001" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	expires := time.Now().Add(2 * time.Hour)
	token, err := Issue("sess-1", "ECCM001", model.RoleNurse, "camp-attendance", "test-key", expires)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := Parse(token, "wrong-key", "camp-attendance"); err == nil {
		t.Error("Parse accepted a token signed with another key")
	}
	if _, err := Parse(token, "test-key", "other-issuer"); err == nil {
		t.Error("Parse accepted a token from another issuer")
	}

	expired, err := Issue("sess-2", "ECCM001", model.RoleNurse, "camp-attendance", "test-key", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(expired, "test-key", "camp-attendance"); err == nil {
		t.Error("Parse accepted an expired token")
	}
}
