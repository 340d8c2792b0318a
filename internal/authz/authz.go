// Package authz is the authorization port of the ledger. Every operation
// that acts on behalf of a principal calls Verify before touching state;
// a failed check aborts the whole operation.
package authz

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the caller cannot prove the claimed identity.
var ErrUnauthorized = errors.New("caller is not authorized as the required principal")

// Verifier checks that the actual caller may act as the given principal.
type Verifier interface {
	Verify(ctx context.Context, principal string) error
}

type callerContextKey struct{}

// WithCaller attaches the identities the caller has proven to the context.
// The host environment (CLI flag, authenticated session) decides what goes
// here; the ledger core only ever reads it through Verify.
func WithCaller(ctx context.Context, principals ...string) context.Context {
	attached := callersFrom(ctx)
	merged := make(map[string]struct{}, len(attached)+len(principals))
	for p := range attached {
		merged[p] = struct{}{}
	}
	for _, p := range principals {
		merged[p] = struct{}{}
	}
	return context.WithValue(ctx, callerContextKey{}, merged)
}

func callersFrom(ctx context.Context) map[string]struct{} {
	attached, _ := ctx.Value(callerContextKey{}).(map[string]struct{})
	return attached
}

// ContextVerifier authorizes principals previously attached via WithCaller.
type ContextVerifier struct{}

var _ Verifier = ContextVerifier{}

func (ContextVerifier) Verify(ctx context.Context, principal string) error {
	if principal == "" {
		return fmt.Errorf("%w: empty principal", ErrUnauthorized)
	}
	if _, ok := callersFrom(ctx)[principal]; !ok {
		return fmt.Errorf("%w: %s", ErrUnauthorized, principal)
	}
	return nil
}
