package http

import (
	"errors"
	"net/http"

	"github.com/cartworks/auth/internal/auth/service"
	"github.com/cartworks/auth/pkg/authclient"
	"github.com/cartworks/auth/pkg/httpx"
	"github.com/cartworks/auth/pkg/slogx"
)

type RefreshHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP handles POST /v1/refresh. Only the access token is
// reissued; a stale refresh token (superseded by a newer login) gets a
// distinct error code so clients know to re-authenticate rather than
// retry.
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authclient.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		authclient.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStaleToken):
			authclient.ErrStaleToken.WriteError(w)
		case errors.Is(err, service.ErrInvalidToken):
			authclient.ErrInvalidToken.WriteError(w)
		default:
			log.Error("refresh failed", "err", err)
			authclient.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authclient.TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   int64(pair.ExpiresIn.Seconds()),
	})
}
