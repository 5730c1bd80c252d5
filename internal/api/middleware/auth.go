package middleware

import (
	"context"
	"fmt"
	"net/http"

	"designhub/internal/common"
	"designhub/internal/common/security"
	"designhub/internal/domain/model"
	"designhub/internal/platform/logger"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const IdentityCtxKey contextKey = "identity"

// Authenticator rejects requests without a valid token and stores the caller's identity.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		who, err := identityFromToken(r.Context())
		if err != nil {
			common.RespondWithDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), who)))
	})
}

// OptionalIdentity stores the identity when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if who, err := identityFromToken(r.Context()); err == nil {
			r = r.WithContext(withIdentity(r.Context(), who))
		}
		next.ServeHTTP(w, r)
	})
}

// AdminOnly must run after Authenticator.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFromContext(r.Context()).IsAdmin() {
			common.RespondWithDomainError(w, fmt.Errorf("admin access required: %w", common.ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext returns nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *model.Identity {
	who, _ := ctx.Value(IdentityCtxKey).(*model.Identity)
	return who
}

func withIdentity(ctx context.Context, who *model.Identity) context.Context {
	ctx = context.WithValue(ctx, IdentityCtxKey, who)
	return logger.WithUserID(ctx, who.ID)
}

func identityFromToken(ctx context.Context) (*model.Identity, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return nil, fmt.Errorf("valid authorization token required: %w", common.ErrUnauthorized)
	}

	userID, err := security.GetUserIDFromClaims(claims)
	if err != nil {
		return nil, fmt.Errorf("invalid token claims: %v: %w", err, common.ErrUnauthorized)
	}
	role, err := security.GetUserRoleFromClaims(claims)
	if err != nil {
		return nil, fmt.Errorf("invalid token claims: %v: %w", err, common.ErrUnauthorized)
	}
	return &model.Identity{
		ID:         userID,
		Role:       role,
		IsVerified: security.GetVerifiedFromClaims(claims),
	}, nil
}
