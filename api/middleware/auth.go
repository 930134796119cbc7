package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/boardpro-billing/api/responses"
	pkgAuth "github.com/angelmondragon/boardpro-billing/pkg/auth"
	"github.com/angelmondragon/boardpro-billing/pkg/config"
	pkgerrors "github.com/angelmondragon/boardpro-billing/pkg/errors"
	"github.com/angelmondragon/boardpro-billing/pkg/logger"
)

// Auth requires an "Authorization: Bearer <jwt>" header and seeds the request
// context with the caller's user id, email and optional org id.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	verifier, verifierErr := pkgAuth.NewVerifier(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifierErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, verifierErr, "auth misconfigured"))
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			claims, err := verifier.Parse(token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, pkgAuth.ErrTokenExpired) {
					msg = "token expired"
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
				return
			}

			ctx := WithEmail(WithUserID(r.Context(), claims.UserID), claims.Email)
			if claims.OrgID != "" {
				ctx = WithOrgID(ctx, claims.OrgID)
			}
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
