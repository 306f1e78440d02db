package http

import (
	"errors"
	"net/http"

	"github.com/cartworks/auth/internal/auth/service"
	"github.com/cartworks/auth/pkg/authclient"
	"github.com/cartworks/auth/pkg/httpx"
	"github.com/cartworks/auth/pkg/slogx"
)

// minPasswordLength follows the NIST floor for memorized secrets.
const minPasswordLength = 8

type RegisterHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP handles POST /v1/register. A successful registration
// returns the new account together with an initial token pair; the
// email must be verified before any subsequent login succeeds.
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authclient.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		authclient.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Email == "" || len(req.Password) < minPasswordLength {
		authclient.ErrInvalidRequest.WriteError(w)
		return
	}

	user, pair, err := h.Sessions.Register(ctx, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			authclient.ErrConflict.WriteError(w)
			return
		}
		log.Error("registration failed", "err", err)
		authclient.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authclient.RegisterResponse{
		User: toUserResponse(user),
		Tokens: authclient.TokenResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			TokenType:    pair.TokenType,
			ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
		},
	})
}
