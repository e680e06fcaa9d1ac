package auth

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestIssuer(clock func() time.Time) *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "chalkline-auth",
		Audience:      "chalkline-api",
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
}

func TestIssueTokenRoundTripsIdentity(t *testing.T) {
	issuedAt := time.Unix(1700000000, 0).UTC()
	issuer := newTestIssuer(func() time.Time { return issuedAt })

	identity := TokenIdentity{
		ParticipantID: "participant-1",
		Role:          "instructor",
		DisplayName:   "Ms. Rivera",
	}
	token, expiresIn, err := issuer.IssueToken(context.Background(), identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expiresIn != int64(time.Hour.Seconds()) {
		t.Fatalf("expected one-hour expiry, got %d seconds", expiresIn)
	}

	validated, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if validated != identity {
		t.Fatalf("expected identity to round-trip, got %#v", validated)
	}
}

func TestIssueTokenRequiresSubjectAndRole(t *testing.T) {
	issuer := newTestIssuer(nil)

	if _, _, err := issuer.IssueToken(context.Background(), TokenIdentity{Role: "student"}); err == nil {
		t.Fatalf("expected missing subject to be rejected")
	}
	if _, _, err := issuer.IssueToken(context.Background(), TokenIdentity{ParticipantID: "p1"}); err == nil {
		t.Fatalf("expected missing role to be rejected")
	}
}

func TestValidateTokenRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Unix(1700000000, 0).UTC()
	issuer := newTestIssuer(func() time.Time { return issuedAt })

	token, _, err := issuer.IssueToken(context.Background(), TokenIdentity{
		ParticipantID: "participant-1",
		Role:          "student",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lateValidator := newTestIssuer(func() time.Time { return issuedAt.Add(2 * time.Hour) })
	if _, err := lateValidator.ValidateToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsTamperedToken(t *testing.T) {
	issuer := newTestIssuer(nil)
	token, _, err := issuer.IssueToken(context.Background(), TokenIdentity{
		ParticipantID: "participant-1",
		Role:          "student",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tampered := token[:strings.LastIndex(token, ".")] + ".invalidsignature"
	if _, err := issuer.ValidateToken(tampered); err == nil {
		t.Fatalf("expected tampered signature to be rejected")
	}
}
