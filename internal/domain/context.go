package domain

import "context"

type cycleKey struct{}

// WithCycleID stores the export cycle identifier in the context.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleKey{}, id)
}

// CycleIDFromContext extracts the export cycle identifier from the context.
func CycleIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(cycleKey{}).(string)
	return id, ok
}
