package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

// TokenValidator — интерфейс проверки токена оператора консоли
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.ConsoleClaims, error)
}

type ctxKey string

const (
	grantsKey ctxKey = "grants"
	userIDKey ctxKey = "user_id"
	emailKey  ctxKey = "email"
)

func NewMiddleware(v TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Прокидываем данные в контекст
			ctx := context.WithValue(r.Context(), grantsKey, claims.Grants)
			ctx = context.WithValue(ctx, userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, emailKey, claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireGrant пропускает запрос только при наличии конкретного права
// (например "policy.publish"). Навешивается поверх NewMiddleware.
func RequireGrant(grant string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			grants, _ := r.Context().Value(grantsKey).(map[string]bool)
			if !grants[grant] {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OperatorEmail достает email оператора из контекста (для авторства версий)
func OperatorEmail(ctx context.Context) string {
	if email, ok := ctx.Value(emailKey).(string); ok {
		return email
	}
	return ""
}
