package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/auth"
	"github.com/Valerijkk/defect-tracker-lite/internal/domain/user"
)

func TestIssueValidateRoundTrip(t *testing.T) {
	m := auth.NewManager("test-secret-one", 3*24*time.Hour)

	u := user.User{ID: 42, Email: "eng@example.com", Role: user.RoleEngineer}

	raw, err := m.Issue(u)

	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	identity, err := m.Validate(raw)

	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	if identity.Subject != "42" {
		t.Errorf("subject = %q, want %q (stringified id)", identity.Subject, "42")
	}

	if identity.Role != user.RoleEngineer {
		t.Errorf("role = %q, want %q", identity.Role, user.RoleEngineer)
	}
}

func TestValidateFailureReasons(t *testing.T) {
	m := auth.NewManager("test-secret-one", time.Hour)
	other := auth.NewManager("test-secret-two", time.Hour)
	expiring := auth.NewManager("test-secret-one", -time.Minute)

	u := user.User{ID: 7, Role: user.RoleManager}

	expiredToken, err := expiring.Issue(u)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	foreignToken, err := other.Issue(u)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:    "expired token",
			token:   expiredToken,
			wantErr: auth.ErrTokenExpired,
		},
		{
			name:    "wrong signing secret",
			token:   foreignToken,
			wantErr: auth.ErrTokenBadSignature,
		},
		{
			name:    "garbage token",
			token:   "not.a.jwt",
			wantErr: auth.ErrTokenMalformed,
		},
		{
			name:    "empty token",
			token:   "",
			wantErr: auth.ErrTokenMalformed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Validate(tc.token)

			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestSecretsAreIsolatedPerManager(t *testing.T) {
	// two managers with distinct secrets never accept each other's tokens
	a := auth.NewManager("secret-a", time.Hour)
	b := auth.NewManager("secret-b", time.Hour)

	raw, err := a.Issue(user.User{ID: 1, Role: user.RoleEngineer})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := a.Validate(raw); err != nil {
		t.Errorf("same-secret Validate failed: %v", err)
	}

	if _, err := b.Validate(raw); !errors.Is(err, auth.ErrTokenBadSignature) {
		t.Errorf("cross-secret Validate error = %v, want %v", err, auth.ErrTokenBadSignature)
	}
}
