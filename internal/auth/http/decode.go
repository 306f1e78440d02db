package http

import (
	"encoding/json"
	"net/http"

	"github.com/cartworks/auth/internal/auth/domain"
	"github.com/cartworks/auth/pkg/authclient"
)

// maxBodyBytes caps request bodies. The largest legitimate body here is
// a registration request; 64 KiB is generous.
const maxBodyBytes = 64 << 10

// decodeJSON decodes the request body into dst and rejects anything
// that is not well-formed JSON of the expected shape.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// toUserResponse builds the public account view shared by register and me.
func toUserResponse(u domain.User) authclient.UserResponse {
	return authclient.UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          u.Role,
		EmailVerified: u.EmailVerified(),
	}
}
