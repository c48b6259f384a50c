package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNoToken      = errors.New("auth: no bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is a caller whose token was verified by the issuer.
type Identity struct {
	Email   string
	Subject string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// DenyAll rejects every token. It stands in when no issuer is configured.
type DenyAll struct{}

func (DenyAll) Verify(context.Context, string) (Identity, error) {
	return Identity{}, ErrInvalidToken
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	const prefix = "bearer "
	h := strings.TrimSpace(header)
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", ErrNoToken
	}
	token := strings.TrimSpace(h[len(prefix):])
	if token == "" || token == "null" || token == "undefined" {
		return "", ErrNoToken
	}
	return token, nil
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the verified caller, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
