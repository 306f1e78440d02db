package http

import (
	"errors"
	"net/http"

	"github.com/cartworks/auth/internal/auth/service"
	"github.com/cartworks/auth/pkg/authclient"
	"github.com/cartworks/auth/pkg/httpx"
	"github.com/cartworks/auth/pkg/slogx"
)

type PasswordResetHandler struct {
	Sessions *service.SessionService
}

// HandleRequest handles POST /v1/password-reset/request. Unknown emails
// get a 404; registration already reveals which emails exist, so the
// endpoint reports honestly instead of pretending to send mail.
func (h *PasswordResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authclient.PasswordResetRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Email == "" {
		authclient.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Sessions.RequestPasswordReset(ctx, req.Email); err != nil {
		if errors.Is(err, service.ErrUnknownEmail) {
			authclient.ErrNotFound.WriteError(w)
			return
		}
		log.Error("password reset request failed", "err", err)
		authclient.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authclient.MessageResponse{Message: "password reset code sent"})
}

// HandleConfirm handles POST /v1/password-reset/confirm. On success the
// subject's active refresh token is revoked; live sessions must log in
// again with the new password.
func (h *PasswordResetHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authclient.PasswordResetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		authclient.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Email == "" || req.Code == "" || len(req.NewPassword) < minPasswordLength {
		authclient.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Sessions.ConfirmPasswordReset(ctx, req.Email, req.Code, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidResetCode) {
			authclient.ErrInvalidOrExpiredToken.WriteError(w)
			return
		}
		log.Error("password reset confirm failed", "err", err)
		authclient.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authclient.MessageResponse{Message: "password updated"})
}
