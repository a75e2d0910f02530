package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

var fastKeyParams = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type operatorDirectoryStub struct {
	operators map[string]persistence.Operator
	err       error
}

func (s *operatorDirectoryStub) GetOperator(ctx context.Context, id string) (persistence.Operator, error) {
	if s.err != nil {
		return persistence.Operator{}, s.err
	}
	operator, ok := s.operators[id]
	if !ok {
		return persistence.Operator{}, persistence.ErrNotFound
	}
	return operator, nil
}

func newOperatorDirectory(t *testing.T, key string, operators ...persistence.Operator) *operatorDirectoryStub {
	t.Helper()
	hash, err := HashAPIKey(key, fastKeyParams)
	if err != nil {
		t.Fatalf("HashAPIKey failed: %v", err)
	}
	stub := &operatorDirectoryStub{operators: make(map[string]persistence.Operator)}
	for _, operator := range operators {
		operator.APIKeyHash = hash
		stub.operators[operator.ID] = operator
	}
	return stub
}

func TestAuthService_IssueToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("issues a token carrying the operator role", func(t *testing.T) {
		t.Parallel()

		dir := newOperatorDirectory(t, "secret-key", persistence.Operator{ID: "op-1", Role: "custodian"})
		svc := NewAuthService(dir, nil, nil, []byte("signing"), time.Hour, clock)

		issued, err := svc.IssueToken(context.Background(), IssueTokenParams{OperatorID: " op-1 ", APIKey: "secret-key"})
		if err != nil {
			t.Fatalf("IssueToken failed: %v", err)
		}
		if !issued.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("unexpected expiry %v", issued.ExpiresAt)
		}
		if !issued.Principal.Can(CapabilityCheckout) || issued.Principal.ActorID != "op-1" {
			t.Fatalf("unexpected principal %#v", issued.Principal)
		}

		principal, err := svc.Authenticate(context.Background(), issued.Token)
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if principal.ActorID != "op-1" || principal.Role != "custodian" {
			t.Fatalf("unexpected principal %#v", principal)
		}
	})

	t.Run("rejects a wrong key", func(t *testing.T) {
		t.Parallel()

		dir := newOperatorDirectory(t, "secret-key", persistence.Operator{ID: "op-1", Role: "custodian"})
		svc := NewAuthService(dir, nil, nil, []byte("signing"), time.Hour, clock)

		_, err := svc.IssueToken(context.Background(), IssueTokenParams{OperatorID: "op-1", APIKey: "guess"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		_, err = svc.IssueToken(context.Background(), IssueTokenParams{OperatorID: "nobody", APIKey: "secret-key"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for unknown operator, got %v", err)
		}
	})

	t.Run("rejects disabled operators", func(t *testing.T) {
		t.Parallel()

		dir := newOperatorDirectory(t, "secret-key", persistence.Operator{ID: "op-1", Role: "custodian", Disabled: true})
		svc := NewAuthService(dir, nil, nil, []byte("signing"), time.Hour, clock)

		_, err := svc.IssueToken(context.Background(), IssueTokenParams{OperatorID: "op-1", APIKey: "secret-key"})
		if !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})

	t.Run("propagates directory failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("boom")
		svc := NewAuthService(&operatorDirectoryStub{err: expected}, nil, nil, []byte("signing"), time.Hour, clock)

		_, err := svc.IssueToken(context.Background(), IssueTokenParams{OperatorID: "op-1", APIKey: "key"})
		if !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
	current := now
	clock := func() time.Time { return current }

	dir := newOperatorDirectory(t, "secret-key",
		persistence.Operator{ID: "op-1", Role: "frontdesk"},
		persistence.Operator{ID: "op-2", Role: "custodian"},
	)
	svc := NewAuthService(dir, nil, nil, []byte("signing"), time.Hour, clock)
	issued, err := svc.IssueToken(context.Background(), IssueTokenParams{OperatorID: "op-1", APIKey: "secret-key"})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	t.Run("maps the role through the policy", func(t *testing.T) {
		principal, err := svc.Authenticate(context.Background(), issued.Token)
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if principal.Can(CapabilityCheckout) || !principal.Can(CapabilityReserve) {
			t.Fatalf("unexpected capabilities %#v", principal.Capabilities)
		}
	})

	t.Run("rejects tokens signed with another key", func(t *testing.T) {
		other := NewAuthService(dir, nil, nil, []byte("other"), time.Hour, clock)
		if _, err := other.Authenticate(context.Background(), issued.Token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects tokens using another algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, tokenClaims{
			Role:             "custodian",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "op-2", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		}).SignedString([]byte("signing"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects empty tokens", func(t *testing.T) {
		if _, err := svc.Authenticate(context.Background(), "  "); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		current = now.Add(2 * time.Hour)
		defer func() { current = now }()
		if _, err := svc.Authenticate(context.Background(), issued.Token); !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})
}

func TestAPIKeyHashing(t *testing.T) {
	t.Parallel()

	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	hash, err := HashAPIKey(key, fastKeyParams)
	if err != nil {
		t.Fatalf("HashAPIKey failed: %v", err)
	}
	if err := VerifyAPIKey(hash, key); err != nil {
		t.Fatalf("VerifyAPIKey rejected the key: %v", err)
	}
	if err := VerifyAPIKey(hash, key+"x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := VerifyAPIKey("plain", key); !errors.Is(err, ErrInvalidKeyHash) {
		t.Fatalf("expected ErrInvalidKeyHash, got %v", err)
	}
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	policy, err := ParsePolicy(map[string][]string{
		"Custodian": {"canCheckout", "CANCHECKIN"},
		"viewer":    {},
	})
	if err != nil {
		t.Fatalf("ParsePolicy failed: %v", err)
	}
	principal := policy.Principal("op-1", "custodian")
	if !principal.Can(CapabilityCheckout) || !principal.Can(CapabilityCheckin) || principal.Can(CapabilityReserve) {
		t.Fatalf("unexpected capabilities %#v", principal.Capabilities)
	}
	if !policy.HasRole("viewer") || policy.HasRole("admin") {
		t.Fatalf("unexpected roles %v", policy.Roles())
	}

	_, err = ParsePolicy(map[string][]string{"custodian": {"canFly"}})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.FieldErrors["custodian"] == "" {
		t.Fatalf("expected validation error for unknown capability, got %v", err)
	}
}
