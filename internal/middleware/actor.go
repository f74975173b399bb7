package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/ontograph/internal/auth"
)

// ActorMiddleware reads the acting user from the X-Actor-Id / X-Actor-Name
// headers set by the authenticating proxy and attaches it to the request
// context. Missing headers mean an anonymous actor.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := auth.Actor{Name: strings.TrimSpace(r.Header.Get("X-Actor-Name"))}
		if raw := strings.TrimSpace(r.Header.Get("X-Actor-Id")); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				actor.ID = &id
			}
		}
		ctx := auth.ContextWithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
