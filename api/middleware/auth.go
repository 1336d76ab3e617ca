package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/freightdispatch-backend/api/responses"
	pkgAuth "github.com/angelmondragon/freightdispatch-backend/pkg/auth"
	"github.com/angelmondragon/freightdispatch-backend/pkg/config"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the actor.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthenticated, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthenticated, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthenticated, err, "invalid token"))
				return
			}

			actor := claims.Actor()
			switch actor.Role {
			case enums.ActorRoleSystem:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthenticated, "system role cannot be presented by callers"))
				return
			case enums.ActorRoleCarrier, enums.ActorRoleShipper:
				if actor.CompanyID == nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthenticated, "company claim required for role"))
					return
				}
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				fields := map[string]any{
					"user_id":    actor.UserID.String(),
					"actor_role": string(actor.Role),
				}
				if actor.CompanyID != nil {
					fields["company_id"] = actor.CompanyID.String()
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
