package auth

import (
	"context"
	"net/http"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/utils"
)

// Authenticator é o provedor de autenticação visto pelo núcleo.
type Authenticator interface {
	Authenticate(r *http.Request) (models.Identity, error)
}

type ctxKey string

const ctxIdentity ctxKey = "identity"

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

// IdentityFrom returns the caller stored by the middleware, or the zero
// identity when the request was not authenticated.
func IdentityFrom(ctx context.Context) models.Identity {
	id, _ := ctx.Value(ctxIdentity).(models.Identity)
	return id
}

func MiddlewareAutenticacao(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			id, err := a.Authenticate(r)
			if err != nil {
				utils.WriteError(w, r, apperr.Wrap(err, apperr.KindUnauthenticated, "unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole bloqueia chamadores de outro papel com 403.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IdentityFrom(r.Context()).Role != role {
				utils.WriteError(w, r, apperr.Forbidden("only "+string(role)+" accounts can do this"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
