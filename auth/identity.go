package auth

import (
	"context"
	"errors"
	"net/http"

	"postservice/schemas"
)

var ErrNoIdentity = errors.New("no identity")

type identityKey struct{}

func WithIdentity(ctx context.Context, identity schemas.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFrom(ctx context.Context) (schemas.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(schemas.Identity)
	return identity, ok
}

// Resolver turns an inbound request into the caller's identity.
type Resolver interface {
	Resolve(r *http.Request) (schemas.Identity, error)
}

type ResolverFunc func(r *http.Request) (schemas.Identity, error)

func (f ResolverFunc) Resolve(r *http.Request) (schemas.Identity, error) {
	return f(r)
}
