package authn

import (
	"testing"
	"time"
)

func TestIssueAndVerifyTokenRoundTrip(t *testing.T) {
	tok, err := IssueToken("shared-secret", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if err := VerifyToken(tok, "shared-secret"); err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	tok, err := IssueToken("shared-secret", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if err := VerifyToken(tok, "other-secret"); err == nil {
		t.Fatal("expected VerifyToken to reject a token signed with a different secret")
	}
}

func TestVerifyTokenExpired(t *testing.T) {
	tok, err := IssueToken("shared-secret", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if err := VerifyToken(tok, "shared-secret"); err != ErrTokenExpired {
		t.Fatalf("VerifyToken = %v, want %v", err, ErrTokenExpired)
	}
}

func TestVerifyTokenGarbage(t *testing.T) {
	if err := VerifyToken("not-a-jwt", "shared-secret"); err == nil {
		t.Fatal("expected VerifyToken to reject a malformed token")
	}
}
