package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

// OperatorDirectory exposes the operator lookups required by the auth service.
type OperatorDirectory interface {
	GetOperator(ctx context.Context, id string) (persistence.Operator, error)
}

// KeyVerifier compares a stored hash with a candidate API key.
type KeyVerifier func(hashed, key string) error

// IssueTokenParams carries the credentials exchanged for a bearer token.
type IssueTokenParams struct {
	OperatorID string
	APIKey     string
}

// IssuedToken is a signed bearer token and the principal it stands for.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	Principal Principal
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService exchanges operator API keys for bearer tokens and turns tokens
// back into principals.
type AuthService struct {
	operators OperatorDirectory
	verifyKey KeyVerifier
	policy    Policy
	secret    []byte
	tokenTTL  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(operators OperatorDirectory, verify KeyVerifier, policy Policy, secret []byte, tokenTTL time.Duration, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(operators, verify, policy, secret, tokenTTL, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(operators OperatorDirectory, verify KeyVerifier, policy Policy, secret []byte, tokenTTL time.Duration, now func() time.Time, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyAPIKey
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	if now == nil {
		now = time.Now
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AuthService{
		operators: operators,
		verifyKey: verify,
		policy:    policy,
		secret:    secret,
		tokenTTL:  tokenTTL,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// IssueToken validates an operator's API key and signs a token for it.
func (s *AuthService) IssueToken(ctx context.Context, params IssueTokenParams) (issued IssuedToken, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.operators == nil {
		err = fmt.Errorf("operator directory not configured")
		return
	}

	operatorID := strings.TrimSpace(params.OperatorID)
	logger := s.loggerWith(ctx, "IssueToken", "operator_id", operatorID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "token not issued", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "token issued", "role", issued.Principal.Role, "expires_at", issued.ExpiresAt)
	}()

	if operatorID == "" || params.APIKey == "" {
		err = ErrInvalidCredentials
		return
	}

	operator, err := s.loadOperator(ctx, operatorID)
	if err != nil {
		return
	}
	if verifyErr := s.verifyKey(operator.APIKeyHash, params.APIKey); verifyErr != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	claims := tokenClaims{
		Role: operator.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, signErr := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if signErr != nil {
		err = fmt.Errorf("sign token: %w", signErr)
		return
	}

	issued = IssuedToken{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Principal: s.policy.Principal(operator.ID, operator.Role),
	}
	return
}

// Authenticate validates a bearer token and returns the principal it carries.
// The operator is re-read so disabling it takes effect before the token expires.
func (s *AuthService) Authenticate(ctx context.Context, token string) (principal Principal, err error) {
	logger := s.loggerWith(ctx, "Authenticate")
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "token rejected", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		err = ErrUnauthorized
		return
	}

	claims := &tokenClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if _, parseErr := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); parseErr != nil {
		err = fmt.Errorf("%w: %v", ErrUnauthorized, parseErr)
		return
	}
	if !claims.VerifyExpiresAt(s.now(), true) {
		err = ErrTokenExpired
		return
	}
	if claims.Subject == "" {
		err = ErrUnauthorized
		return
	}

	operator, err := s.loadOperator(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			err = ErrUnauthorized
		}
		return
	}
	principal = s.policy.Principal(operator.ID, operator.Role)
	return
}

func (s *AuthService) loadOperator(ctx context.Context, id string) (persistence.Operator, error) {
	operator, err := s.operators.GetOperator(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Operator{}, ErrInvalidCredentials
		}
		return persistence.Operator{}, fmt.Errorf("load operator %s: %w", id, err)
	}
	if operator.Disabled {
		return persistence.Operator{}, ErrAccountDisabled
	}
	return operator, nil
}
