package auth

import (
	"errors"
	"testing"
	"time"

	"monthlyaid/internal/core"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	in := Principal{Role: RoleVillageAdmin, SubjectID: "1", Name: "Village Admin 1", VillageID: 1}
	token, err := issuer.Issue(in)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	out, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out != in {
		t.Errorf("principal = %+v, want %+v", out, in)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).Issue(Principal{Role: RoleDonor, SubjectID: "555"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = NewTokenIssuer("secret-b", time.Hour).Verify(token)
	if !errors.Is(err, core.ErrAuthentication) {
		t.Fatalf("err = %v, want authentication error", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := issuer.Issue(Principal{Role: RoleDonor, SubjectID: "555"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	fresh := NewTokenIssuer("secret", time.Hour)
	if _, err := fresh.Verify(token); !errors.Is(err, core.ErrAuthentication) {
		t.Fatalf("err = %v, want authentication error for expired token", err)
	}
}

func TestFromAuthorizationHeader(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, _ := issuer.Issue(Principal{Role: RoleAdmin, SubjectID: "101"})

	if _, err := issuer.FromAuthorizationHeader("Bearer " + token); err != nil {
		t.Errorf("valid header rejected: %v", err)
	}
	for _, header := range []string{"", token, "Basic abc"} {
		if _, err := issuer.FromAuthorizationHeader(header); !errors.Is(err, core.ErrAuthentication) {
			t.Errorf("header %q err = %v, want authentication error", header, err)
		}
	}
}
