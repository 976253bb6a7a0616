package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/eventbem/chat-service/internal/domain"
)

func TestManager_IssueAndValidate(t *testing.T) {
	m := NewManager("test-secret", "eventbem", time.Hour)

	token, expiresAt, err := m.Issue(42, "alice", domain.RoleOrganizer)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("Issue() expiry %v is not in the future", expiresAt)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("claims.UserID = %d, want 42", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("claims.Username = %q, want %q", claims.Username, "alice")
	}
	if claims.Role != domain.RoleOrganizer {
		t.Errorf("claims.Role = %q, want %q", claims.Role, domain.RoleOrganizer)
	}
	if claims.Issuer != "eventbem" {
		t.Errorf("claims.Issuer = %q, want %q", claims.Issuer, "eventbem")
	}
}

func TestManager_ValidateExpired(t *testing.T) {
	m := NewManager("test-secret", "eventbem", -time.Minute)

	token, _, err := m.Issue(1, "bob", domain.RoleAttendee)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := m.Validate(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Validate() error = %v, want ErrExpiredToken", err)
	}
}

func TestManager_ValidateRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret", "eventbem", time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestManager_ValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", "eventbem", time.Hour)
	verifier := NewManager("secret-b", "eventbem", time.Hour)

	token, _, err := issuer.Issue(1, "carol", domain.RoleAttendee)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
	}
}
