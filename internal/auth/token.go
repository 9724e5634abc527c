// Package auth issues and verifies identity tokens and derives the per-request
// authentication context from them.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification failures. They never leave this package other than as an
// Anonymous context.
var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token is expired")
	ErrMalformed        = errors.New("token is malformed")
)

const (
	// DefaultTokenTTL is the validity window of a freshly signed token.
	DefaultTokenTTL = 24 * time.Hour

	defaultIssuer   = "deepthoughts-api"
	defaultAudience = "deepthoughts-client"

	// clockSkew lets a token verify at exactly its exp second; the check
	// after parsing restores now > exp as the expiry rule.
	clockSkew = time.Second
)

// Identity is the set of claims a token asserts about its bearer.
type Identity struct {
	UserID   uint
	Username string
	Email    string
}

// TokenConfig holds the server-side signing parameters.
type TokenConfig struct {
	Secret   []byte
	TTL      time.Duration
	Issuer   string
	Audience string
}

// Claims is the JWT payload.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies identity tokens with an HMAC secret. It holds
// no mutable state and is safe for concurrent use.
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the time source, mostly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService builds a TokenService from cfg.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	s := &TokenService{
		secret:   append([]byte(nil), cfg.Secret...),
		ttl:      cfg.TTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenTTL
	}
	if s.issuer == "" {
		s.issuer = defaultIssuer
	}
	if s.audience == "" {
		s.audience = defaultAudience
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL reports the validity window of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Sign issues a token for id that expires TTL after now.
func (s *TokenService) Sign(id Identity) (string, error) {
	now := s.now()
	claims := Claims{
		Username: id.Username,
		Email:    id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and validity window of raw and returns the
// identity it carries.
func (s *TokenService) Verify(raw string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		return Identity{}, classify(err)
	}
	if s.now().After(claims.ExpiresAt.Time) {
		return Identity{}, fmt.Errorf("%w: token expired at %s", ErrExpired, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, strconv.IntSize)
	if err != nil || userID == 0 {
		return Identity{}, fmt.Errorf("%w: invalid subject", ErrMalformed)
	}
	if claims.Username == "" {
		return Identity{}, fmt.Errorf("%w: missing username", ErrMalformed)
	}

	return Identity{
		UserID:   uint(userID),
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

// classify maps jwt parse errors onto the package sentinels. The signature is
// checked before the time-based claims, so an expired token with a bad
// signature reports ErrInvalidSignature.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
