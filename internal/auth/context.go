// Package auth carries the authenticated staff member through a request.
package auth

import "context"

type contextKey struct{}

// Staff identifies who made an API call. Name is the label configured for
// the token that matched.
type Staff struct {
	Name string
}

func WithStaff(ctx context.Context, s Staff) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (Staff, bool) {
	s, ok := ctx.Value(contextKey{}).(Staff)
	return s, ok
}

// StaffName returns the caller's name, or "" for unauthenticated requests.
func StaffName(ctx context.Context) string {
	s, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return s.Name
}
