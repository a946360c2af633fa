package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

type identityContextKey struct{}

// Identity is the resolved actor for a request: the authenticated user and
// the organization owner every id in the request must belong to.
type Identity struct {
	UserID  int64
	OwnerID int64
}

// ContextWithIdentity stores the resolved identity in context.
func ContextWithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, ident)
}

// IdentityFromContext extracts the identity; the zero value means
// unauthenticated.
func IdentityFromContext(ctx context.Context) Identity {
	ident, _ := ctx.Value(identityContextKey{}).(Identity)
	return ident
}
