package http

import (
	"errors"
	"net/http"

	"github.com/cartworks/auth/internal/auth/service"
	"github.com/cartworks/auth/pkg/authclient"
	"github.com/cartworks/auth/pkg/httpx"
	"github.com/cartworks/auth/pkg/slogx"
)

type LoginHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP handles POST /v1/login. Wrong password and unknown email
// share one response so the endpoint cannot be used to enumerate
// accounts.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authclient.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		authclient.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Email == "" || req.Password == "" {
		authclient.ErrInvalidRequest.WriteError(w)
		return
	}

	_, pair, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			authclient.ErrInvalidCredentials.WriteError(w)
		case errors.Is(err, service.ErrEmailNotVerified):
			authclient.ErrEmailNotVerified.WriteError(w)
		default:
			log.Error("login failed", "err", err)
			authclient.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authclient.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	})
}
