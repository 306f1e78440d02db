package http

import (
	"errors"
	"net/http"

	"github.com/cartworks/auth/internal/auth/service"
	"github.com/cartworks/auth/pkg/authclient"
	"github.com/cartworks/auth/pkg/httpx"
	"github.com/cartworks/auth/pkg/slogx"
)

type MeHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP handles GET /v1/me and returns the authenticated account.
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authclient.ErrInvalidToken.WriteError(w)
		return
	}

	user, err := h.Sessions.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			authclient.ErrNotFound.WriteError(w)
			return
		}
		log.Error("profile load failed", "user_id", userID, "err", err)
		authclient.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
