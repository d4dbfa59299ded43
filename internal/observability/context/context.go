// Package obscontext carries correlation identifiers through request scope.
package obscontext

import (
	"context"
	"strings"
)

type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	landlordIDKey contextKey = "landlord_id"
	userIDKey     contextKey = "user_id"
)

// WithRequestID stores the request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request identifier, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// WithLandlordID stores the acting landlord identifier on the context.
func WithLandlordID(ctx context.Context, landlordID string) context.Context {
	landlordID = strings.TrimSpace(landlordID)
	if landlordID == "" {
		return ctx
	}
	return context.WithValue(ctx, landlordIDKey, landlordID)
}

// LandlordIDFromContext returns the acting landlord identifier, or "".
func LandlordIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(landlordIDKey).(string); ok {
		return value
	}
	return ""
}

// WithUserID stores the acting user identifier on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the acting user identifier, or "".
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(userIDKey).(string); ok {
		return value
	}
	return ""
}
