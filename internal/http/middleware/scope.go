package middleware

import (
	"context"
	"net/http"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/apperr"
)

const contextKeyAcesso contextKey = "acesso"

// Scope resolve o perfil do uid autenticado e injeta o contexto de acesso.
// Todas as rotas privadas dependem dele para escopo e autorização.
func Scope(resolver *acesso.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := resolver.Resolve(r.Context(), GetSubject(r.Context()))
			if err != nil {
				writeError(w, apperr.HTTPStatus(err), string(apperr.KindOf(err)), apperr.MessageOf(err))
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyAcesso, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAcesso recupera o contexto de acesso resolvido.
func GetAcesso(ctx context.Context) acesso.Contexto {
	val, _ := ctx.Value(contextKeyAcesso).(acesso.Contexto)
	return val
}

// SetAcesso injeta um contexto de acesso; usado nos testes de handler.
func SetAcesso(ctx context.Context, ac acesso.Contexto) context.Context {
	return context.WithValue(ctx, contextKeyAcesso, ac)
}
