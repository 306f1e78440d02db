package http

import (
	"errors"
	"net/http"

	"github.com/cartworks/auth/internal/auth/service"
	"github.com/cartworks/auth/pkg/authclient"
	"github.com/cartworks/auth/pkg/httpx"
	"github.com/cartworks/auth/pkg/slogx"
)

type VerifyEmailHandler struct {
	Sessions *service.SessionService
}

// HandleVerify handles GET /v1/verify-email?token=... — the link the
// verification email points at. The token is single use.
func (h *VerifyEmailHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := r.URL.Query().Get("token")
	if token == "" {
		authclient.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Sessions.VerifyEmail(ctx, token); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			authclient.ErrInvalidOrExpiredToken.WriteError(w)
			return
		}
		log.Error("email verification failed", "err", err)
		authclient.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authclient.MessageResponse{Message: "email verified"})
}

// HandleResend handles POST /v1/verify-email/resend. Resending replaces
// the stored token, so only the newest emailed link works.
func (h *VerifyEmailHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authclient.ResendVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Email == "" {
		authclient.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Sessions.ResendVerification(ctx, req.Email); err != nil {
		if errors.Is(err, service.ErrUnknownEmail) {
			authclient.ErrNotFound.WriteError(w)
			return
		}
		log.Error("verification resend failed", "err", err)
		authclient.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authclient.MessageResponse{Message: "verification email sent"})
}
