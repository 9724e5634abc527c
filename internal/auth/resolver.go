package auth

import (
	"errors"
	"log/slog"
	"strings"

	"deepthoughts/internal/observability"
)

// Verifier checks a raw token and returns the identity it asserts.
type Verifier interface {
	Verify(raw string) (Identity, error)
}

// ContextResolver turns an Authorization header into an AuthContext.
type ContextResolver struct {
	verifier Verifier
	logger   *slog.Logger
}

// NewContextResolver returns a resolver backed by v. A nil logger discards.
func NewContextResolver(v Verifier, logger *slog.Logger) *ContextResolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ContextResolver{verifier: v, logger: logger}
}

// Resolve never fails: a missing header, a header of the wrong shape or a
// token that does not verify all yield Anonymous.
func (r *ContextResolver) Resolve(rawAuthHeader string) AuthContext {
	token, ok := bearerToken(rawAuthHeader)
	if !ok {
		observability.TokenVerifications.WithLabelValues("absent").Inc()
		return Anonymous{}
	}

	id, err := r.verifier.Verify(token)
	if err != nil {
		result := verificationResult(err)
		observability.TokenVerifications.WithLabelValues(result).Inc()
		r.logger.Debug("token rejected, continuing anonymously",
			slog.String("result", result),
			slog.String("error", err.Error()),
		)
		return Anonymous{}
	}

	if id.UserID == 0 || id.Username == "" {
		observability.TokenVerifications.WithLabelValues("malformed").Inc()
		r.logger.Debug("verifier returned an empty identity, continuing anonymously")
		return Anonymous{}
	}

	observability.TokenVerifications.WithLabelValues("ok").Inc()
	return Authenticated{Identity: id}
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func verificationResult(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "malformed"
	}
}
