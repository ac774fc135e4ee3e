package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quchat/quchat/internal/token"
)

var (
	// ErrMissingToken reports an absent or non-Bearer Authorization header.
	ErrMissingToken = errors.New("auth: missing bearer token")
	// ErrRevoked reports a token invalidated by sign-out.
	ErrRevoked = errors.New("auth: token revoked")
	// ErrInvalidToken reports a token the codec refused.
	ErrInvalidToken = errors.New("auth: invalid token")
)

const bearerPrefix = "Bearer "

// RevocationStore answers whether an exact token string has been revoked.
type RevocationStore interface {
	IsTokenRevoked(ctx context.Context, tok string) (bool, error)
}

// Identity is the authenticated result of a successful guard check.
type Identity struct {
	UserID string
	Token  string
}

// Guard validates inbound Authorization headers against the token codec
// and the revocation store. It runs on every authenticated endpoint.
type Guard struct {
	codec       *token.Codec
	revocations RevocationStore
}

// NewGuard builds a session guard around the codec and revocation store.
func NewGuard(codec *token.Codec, revocations RevocationStore) *Guard {
	return &Guard{codec: codec, revocations: revocations}
}

// Check authenticates a raw Authorization header value. Revocation is
// checked before the signature.
func (g *Guard) Check(ctx context.Context, header string) (Identity, error) {
	tok, err := FromBearer(header)
	if err != nil {
		return Identity{}, err
	}

	revoked, err := g.revocations.IsTokenRevoked(ctx, tok)
	if err != nil {
		return Identity{}, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return Identity{}, ErrRevoked
	}

	body, err := g.codec.Verify(tok)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return Identity{UserID: body.UserID, Token: tok}, nil
}

// FromBearer extracts the token from a "Bearer <token>" header value.
func FromBearer(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingToken
	}
	tok := header[len(bearerPrefix):]
	if tok == "" {
		return "", ErrMissingToken
	}
	return tok, nil
}
