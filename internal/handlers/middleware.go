package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brpainel/painel-gateway/internal/core/ports"
	"github.com/brpainel/painel-gateway/internal/entities"
)

type contextKey string

const sessionCtxKey contextKey = "session"

// Claims are the panel's JWT claims. Subject carries the account id.
type Claims struct {
	Name    string `json:"name"`
	Support bool   `json:"support"`
	Admin   bool   `json:"admin"`
	jwt.RegisteredClaims
}

// SessionFromContext returns the authenticated session stored by Auth.
func SessionFromContext(ctx context.Context) (entities.Session, bool) {
	s, ok := ctx.Value(sessionCtxKey).(entities.Session)
	return s, ok
}

// Auth validates the bearer token and stores the session in the request
// context. HMAC only; any other signing method is rejected.
func Auth(logger *slog.Logger, secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respondJSON(logger, w, http.StatusUnauthorized, response{Error: "unauthorized", Message: "Sessão não encontrada"})
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondJSON(logger, w, http.StatusUnauthorized, response{Error: "unauthorized", Message: "Formato de token inválido"})
				return
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return secret, nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				respondJSON(logger, w, http.StatusUnauthorized, response{Error: "unauthorized", Message: "Sessão expirada ou inválida"})
				return
			}

			session := entities.Session{
				AccountID: claims.Subject,
				Name:      claims.Name,
				Support:   claims.Support,
				Admin:     claims.Admin,
			}
			ctx := context.WithValue(r.Context(), sessionCtxKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Maintenance blocks regular accounts while the maintenance flag is up.
// Support and admin sessions pass through.
func Maintenance(logger *slog.Logger, svc ports.MaintenanceService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok {
				session = entities.Session{}
			}
			if !svc.Allow(session) {
				respondJSON(logger, w, http.StatusServiceUnavailable, response{
					Error:   "maintenance",
					Message: "Sistema em manutenção. Tente novamente em alguns minutos.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates the admin surface.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok || !session.Admin {
				respondJSON(logger, w, http.StatusForbidden, response{Error: "forbidden", Message: "Acesso restrito a administradores"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
