package security

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndValidate(t *testing.T) {
	p := NewTokenProvider([]byte("secret-a"), "safeday-auth", time.Hour)

	token, expiresAt, err := p.Issue(42, 2, "supervisor", 10, 20)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if until := time.Until(expiresAt); until < 59*time.Minute || until > time.Hour {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := p.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID() != 42 {
		t.Errorf("user id %d, want 42", claims.UserID())
	}
	if claims.RoleID != 2 || claims.RoleName != "supervisor" {
		t.Errorf("role snapshot %d/%q, want 2/supervisor", claims.RoleID, claims.RoleName)
	}
	if claims.SiteID != 10 || claims.DepartmentID != 20 {
		t.Errorf("site/department %d/%d, want 10/20", claims.SiteID, claims.DepartmentID)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenProvider([]byte("secret-a"), "safeday-auth", time.Hour)
	verifier := NewTokenProvider([]byte("secret-b"), "safeday-auth", time.Hour)

	token, _, err := issuer.Issue(1, 1, "admin", 1, 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	issuer := NewTokenProvider([]byte("secret-a"), "someone-else", time.Hour)
	verifier := NewTokenProvider([]byte("secret-a"), "safeday-auth", time.Hour)

	token, _, err := issuer.Issue(1, 1, "admin", 1, 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	p := NewTokenProvider([]byte("secret-a"), "safeday-auth", -time.Minute)

	token, _, err := p.Issue(1, 1, "admin", 1, 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := p.Validate(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("got %v, want ErrTokenExpired", err)
	}
}

func TestValidateGarbage(t *testing.T) {
	p := NewTokenProvider([]byte("secret-a"), "safeday-auth", time.Hour)
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := p.Validate(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: got %v, want ErrInvalidToken", tok, err)
		}
	}
}
