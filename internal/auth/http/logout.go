package http

import (
	"net/http"

	"github.com/cartworks/auth/internal/auth/service"
	"github.com/cartworks/auth/pkg/authclient"
	"github.com/cartworks/auth/pkg/httpx"
	"github.com/cartworks/auth/pkg/slogx"
)

type LogoutHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP handles POST /v1/logout. The authn middleware has already
// verified the bearer token, so the handler only has to revoke it.
// Logout is idempotent: a second logout with a not-yet-expired token
// fails at the middleware because the token is blacklisted.
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	token := httpx.TokenFromCtx(ctx)
	if userID == "" || token == "" {
		authclient.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.Sessions.Logout(ctx, token, userID); err != nil {
		log.Error("logout failed", "user_id", userID, "err", err)
		authclient.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authclient.MessageResponse{Message: "logged out"})
}
