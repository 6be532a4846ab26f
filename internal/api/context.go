package api

import (
	"context"

	"github.com/terra-clan/projecthub/internal/kv"
	"github.com/terra-clan/projecthub/pkg/client"
)

type contextKey string

const visitorContextKey contextKey = "visitor"

// Visitor is the anonymous browser session behind a request
type Visitor struct {
	ID    string
	Store kv.Store
}

// VisitorFromContext extracts the Visitor from context
func VisitorFromContext(ctx context.Context) *Visitor {
	v, ok := ctx.Value(visitorContextKey).(*Visitor)
	if !ok {
		return nil
	}
	return v
}

// ContextWithVisitor adds the Visitor to context
func ContextWithVisitor(ctx context.Context, v *Visitor) context.Context {
	return context.WithValue(ctx, visitorContextKey, v)
}

// upstreamContext forwards the stored auth token of the visitor, if any
func upstreamContext(ctx context.Context, token string) context.Context {
	return client.WithToken(ctx, token)
}
