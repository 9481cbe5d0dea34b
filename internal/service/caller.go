package service

import (
	"context"
	"strings"
)

type callerKey struct{}

// WithCaller guarda en ctx el id del miembro autenticado de la request.
func WithCaller(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, callerKey{}, memberID)
}

// CallerFromContext devuelve el miembro autenticado, si lo hay.
func CallerFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(callerKey{}).(string)
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}
