package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/saludtec/fedhistoria/internal/identity"
)

// ServiceAuth verifies the bearer service token on registry endpoints.
// When required is false (no signing key deployed), unauthenticated calls
// pass through with a warning logged on every request.
func ServiceAuth(issuer *identity.Issuer, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")

			if !ok || token == "" {
				if required {
					log.Warn().Str("path", r.URL.Path).Msg("Missing service token")
					http.Error(w, "Service token is required", http.StatusUnauthorized)
					return
				}
				log.Warn().Str("path", r.URL.Path).Msg("Unauthenticated service call accepted")
				next.ServeHTTP(w, r)
				return
			}

			claims, err := issuer.Verify(token)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Service token rejected")
				http.Error(w, "Invalid or expired service token", http.StatusUnauthorized)
				return
			}

			log.Debug().Str("service_id", claims.Subject).Str("path", r.URL.Path).Msg("Service authenticated")
			next.ServeHTTP(w, r)
		})
	}
}
