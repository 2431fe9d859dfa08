// Package context carries log correlation fields through request and job contexts.
package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type actorKey struct{}
type jobKey struct{}
type resourceKey struct{}

type actor struct {
	kind string
	id   string
}

type resource struct {
	kind string
	id   int64
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithActor records who triggered the work, e.g. ("system", "scheduler") or ("webhook", "esign").
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{
		kind: strings.TrimSpace(actorType),
		id:   strings.TrimSpace(actorID),
	})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	v, ok := ctx.Value(actorKey{}).(actor)
	if !ok {
		return "", ""
	}
	return v.kind, v.id
}

func WithJob(ctx context.Context, job string) context.Context {
	return context.WithValue(ctx, jobKey{}, strings.TrimSpace(job))
}

func JobFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(jobKey{}).(string)
	return v
}

// WithResource names the row a job or request is working on, e.g.
// ("agreement", 42). Loggers render it as "<kind>_id".
func WithResource(ctx context.Context, kind string, id int64) context.Context {
	return context.WithValue(ctx, resourceKey{}, resource{kind: strings.TrimSpace(kind), id: id})
}

func ResourceFromContext(ctx context.Context) (string, int64, bool) {
	if ctx == nil {
		return "", 0, false
	}
	v, ok := ctx.Value(resourceKey{}).(resource)
	if !ok || v.kind == "" {
		return "", 0, false
	}
	return v.kind, v.id, true
}
