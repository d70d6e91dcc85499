package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/galley-erp/galley-erp/internal/platform/httpx"
)

// Middleware authenticates requests and enforces role requirements.
type Middleware struct {
	tokens TokenStore
}

func NewMiddleware(tokens TokenStore) *Middleware {
	return &Middleware{tokens: tokens}
}

// Authenticate resolves the bearer token to an actor and stores it on
// the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := m.resolveActor(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, ErrTokenRevoked) {
				msg = "token revoked"
			}
			httpx.Fail(w, http.StatusUnauthorized, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// resolveActor checks a presented "Bearer <tokenID>.<secret>" header
// against the token store. The secret is compared against the stored
// bcrypt hash.
func (m *Middleware) resolveActor(ctx context.Context, header string) (Actor, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return Actor{}, ErrTokenInvalid
	}

	tokenID, secret, ok := strings.Cut(strings.TrimPrefix(header, prefix), ".")
	if !ok || tokenID == "" || secret == "" {
		return Actor{}, ErrTokenInvalid
	}

	rec, err := m.tokens.FindToken(ctx, tokenID)
	if err != nil {
		return Actor{}, ErrTokenInvalid
	}
	if rec.Revoked {
		return Actor{}, ErrTokenRevoked
	}
	if bcrypt.CompareHashAndPassword(rec.SecretHash, []byte(secret)) != nil {
		return Actor{}, ErrTokenInvalid
	}

	return Actor{ID: rec.StaffID, Name: rec.StaffName, Role: rec.Role}, nil
}

// RequireAny allows the request through when the actor holds at least
// one of the given roles.
func RequireAny(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				httpx.Fail(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
