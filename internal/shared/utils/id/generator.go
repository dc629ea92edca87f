package id

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type callIDKey struct{}

// NewCallID generates an identifier for a single tool call, e.g. "call-0190f5c2-...".
// UUIDv7 keeps ids time-ordered in logs; a random v4 is used if the clock source fails.
func NewCallID() string {
	body, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("call-%s", uuid.NewString())
	}
	return fmt.Sprintf("call-%s", body.String())
}

// WithCallID stores callID on ctx.
func WithCallID(ctx context.Context, callID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callIDKey{}, callID)
}

// CallIDFromContext returns the call id stored on ctx, or "".
func CallIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(callIDKey{}).(string); ok {
		return v
	}
	return ""
}
