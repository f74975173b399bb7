package auth

import "context"

// Actor identifies who performed a change. A nil ID means an anonymous
// actor; authorization decisions are assumed to have been made upstream.
type Actor struct {
	ID   *int64
	Name string
}

type contextKey string

const actorKey contextKey = "actor"

// ContextWithActor returns a new context that carries the acting user.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the acting user from the context, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	value := ctx.Value(actorKey)
	if value == nil {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	if !ok {
		return Actor{}, false
	}
	return actor, true
}
