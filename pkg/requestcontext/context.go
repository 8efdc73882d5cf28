// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware and consumed by services. Keeping this package
// free of net/http lets domain packages import only what they need.
//
// Usage in services (read values):
//
//	employee := requestcontext.Employee(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	employeeKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Employee retrieves the authenticated employee identifier (email) from the
// context, or empty if the request is unauthenticated.
func Employee(ctx context.Context) string {
	if v, ok := ctx.Value(employeeKey{}).(string); ok {
		return v
	}
	return ""
}

// WithEmployee injects the authenticated employee identifier.
func WithEmployee(ctx context.Context, employee string) context.Context {
	return context.WithValue(ctx, employeeKey{}, employee)
}

// RequestID retrieves the correlation ID for the current request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request timestamp if one was injected, otherwise the wall
// clock. Services use this instead of time.Now so tests can pin time.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Now()
}

// WithTime pins the request timestamp. Primarily for tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
