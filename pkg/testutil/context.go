package testutil

import (
	"net/http"

	"meldeamt/pkg/requestcontext"
)

// WithEmployee adds an authenticated employee to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithEmployee(req *http.Request, employee string) *http.Request {
	if employee == "" {
		return req
	}
	return req.WithContext(requestcontext.WithEmployee(req.Context(), employee))
}

// WithRequestID adds a correlation ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
