package http_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authhttp "github.com/cartworks/auth/internal/auth/http"
	"github.com/cartworks/auth/internal/auth/kv"
	"github.com/cartworks/auth/internal/auth/service"
	"github.com/cartworks/auth/internal/auth/session"
	"github.com/cartworks/auth/internal/auth/store/drivers/sqlite"
	"github.com/cartworks/auth/pkg/authclient"
	"github.com/cartworks/auth/pkg/cryptox"
	"github.com/cartworks/auth/pkg/jwtx"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "http-test-*")
	if err != nil {
		os.Exit(1)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

type capturingMailer struct {
	verifyToken string
	resetCode   string
}

func (m *capturingMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	m.verifyToken = token
	return nil
}

func (m *capturingMailer) SendPasswordResetCode(ctx context.Context, email, code string) error {
	m.resetCode = code
	return nil
}

// newTestServer stands up the full router against an in-memory user
// database and a miniredis-backed session store, and returns a client
// pointed at it.
func newTestServer(t *testing.T) (*authclient.Client, *capturingMailer) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	mr := miniredis.RunT(t)
	kvStore := kv.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	codec, err := jwtx.NewCodec([]byte("router-test-secret"), "cartworks-auth")
	require.NoError(t, err)

	mailer := &capturingMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := authhttp.NewRouter(codec, "test", st, kvStore, logger)
	router.Sessions = &service.SessionService{
		Store:      st,
		Sessions:   session.NewStore(kvStore),
		Codec:      codec,
		Mailer:     mailer,
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		VerifyTTL:  time.Hour,
		ResetTTL:   5 * time.Minute,
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return authclient.New(srv.URL), mailer
}

// signUp registers and verifies an account through the public API.
func signUp(t *testing.T, c *authclient.Client, mailer *capturingMailer, email, password string) {
	t.Helper()
	ctx := context.Background()

	_, err := c.Register(ctx, authclient.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: "Grace",
		LastName:  "Hopper",
	})
	require.NoError(t, err)
	require.NoError(t, c.VerifyEmail(ctx, mailer.verifyToken))
}

func apiCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *authclient.APIError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Code
}

func TestFullSessionLifecycle(t *testing.T) {
	c, mailer := newTestServer(t)
	ctx := context.Background()

	reg, err := c.Register(ctx, authclient.RegisterRequest{
		Email:     "grace@example.com",
		Password:  "correct horse battery",
		FirstName: "Grace",
		LastName:  "Hopper",
	})
	require.NoError(t, err)
	user := reg.User
	assert.Equal(t, "grace@example.com", user.Email)
	assert.Equal(t, "customer", user.Role)
	assert.False(t, user.EmailVerified)

	// Registration hands out a working session immediately.
	require.NotEmpty(t, reg.Tokens.AccessToken)
	preVerify, err := c.Me(ctx, reg.Tokens.AccessToken)
	require.NoError(t, err)
	assert.False(t, preVerify.EmailVerified)

	require.NoError(t, c.VerifyEmail(ctx, mailer.verifyToken))

	tokens, err := c.Login(ctx, "grace@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.NotEmpty(t, tokens.RefreshToken)

	me, err := c.Me(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)
	assert.True(t, me.EmailVerified)

	refreshed, err := c.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Empty(t, refreshed.RefreshToken)

	require.NoError(t, c.Logout(ctx, tokens.AccessToken))

	// The revoked access token is rejected by the authn middleware.
	_, err = c.Me(ctx, tokens.AccessToken)
	require.Error(t, err)
	var apiErr *authclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	// And the refresh token died with the session.
	_, err = c.Refresh(ctx, tokens.RefreshToken)
	assert.Equal(t, authclient.ErrorCodeInvalidToken, apiCode(t, err))
}

func TestRegisterValidation(t *testing.T) {
	c, _ := newTestServer(t)
	ctx := context.Background()

	_, err := c.Register(ctx, authclient.RegisterRequest{Email: "grace@example.com", Password: "short"})
	assert.Equal(t, authclient.ErrorCodeInvalidRequest, apiCode(t, err))

	_, err = c.Register(ctx, authclient.RegisterRequest{Password: "correct horse battery"})
	assert.Equal(t, authclient.ErrorCodeInvalidRequest, apiCode(t, err))
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	c, mailer := newTestServer(t)
	ctx := context.Background()

	signUp(t, c, mailer, "grace@example.com", "correct horse battery")

	_, err := c.Register(ctx, authclient.RegisterRequest{
		Email:    "grace@example.com",
		Password: "another password",
	})
	assert.Equal(t, authclient.ErrorCodeConflict, apiCode(t, err))
}

func TestLoginFailures(t *testing.T) {
	c, mailer := newTestServer(t)
	ctx := context.Background()

	_, err := c.Register(ctx, authclient.RegisterRequest{
		Email:    "grace@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	// Unverified account.
	_, err = c.Login(ctx, "grace@example.com", "correct horse battery")
	assert.Equal(t, authclient.ErrorCodeEmailNotVerified, apiCode(t, err))

	require.NoError(t, c.VerifyEmail(ctx, mailer.verifyToken))

	// Wrong password and unknown email share a response.
	_, err = c.Login(ctx, "grace@example.com", "wrong password")
	assert.Equal(t, authclient.ErrorCodeInvalidCredential, apiCode(t, err))
	_, err = c.Login(ctx, "nobody@example.com", "wrong password")
	assert.Equal(t, authclient.ErrorCodeInvalidCredential, apiCode(t, err))
}

func TestRefreshStaleAfterSecondLogin(t *testing.T) {
	c, mailer := newTestServer(t)
	ctx := context.Background()

	signUp(t, c, mailer, "grace@example.com", "correct horse battery")

	first, err := c.Login(ctx, "grace@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = c.Login(ctx, "grace@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = c.Refresh(ctx, first.RefreshToken)
	assert.Equal(t, authclient.ErrorCodeStaleToken, apiCode(t, err))
}

func TestRefreshRejectsGarbage(t *testing.T) {
	c, _ := newTestServer(t)

	_, err := c.Refresh(context.Background(), "not-a-token")
	assert.Equal(t, authclient.ErrorCodeInvalidToken, apiCode(t, err))
}

func TestVerifyEmailSingleUse(t *testing.T) {
	c, mailer := newTestServer(t)
	ctx := context.Background()

	_, err := c.Register(ctx, authclient.RegisterRequest{
		Email:    "grace@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	token := mailer.verifyToken
	require.NoError(t, c.VerifyEmail(ctx, token))
	assert.Equal(t, authclient.ErrorCodeInvalidToken, apiCode(t, c.VerifyEmail(ctx, token)))
}

func TestPasswordResetOverAPI(t *testing.T) {
	c, mailer := newTestServer(t)
	ctx := context.Background()

	signUp(t, c, mailer, "grace@example.com", "correct horse battery")

	require.NoError(t, c.RequestPasswordReset(ctx, "grace@example.com"))
	require.Len(t, mailer.resetCode, 6)

	// Wrong code is rejected without burning the real one.
	err := c.ConfirmPasswordReset(ctx, "grace@example.com", "000000", "attacker password")
	assert.Equal(t, authclient.ErrorCodeInvalidToken, apiCode(t, err))

	require.NoError(t, c.ConfirmPasswordReset(ctx, "grace@example.com", mailer.resetCode, "brand new password"))

	_, err = c.Login(ctx, "grace@example.com", "correct horse battery")
	assert.Equal(t, authclient.ErrorCodeInvalidCredential, apiCode(t, err))
	_, err = c.Login(ctx, "grace@example.com", "brand new password")
	require.NoError(t, err)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	c, _ := newTestServer(t)

	err := c.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.Equal(t, authclient.ErrorCodeNotFound, apiCode(t, err))
}

func TestLogoutRequiresToken(t *testing.T) {
	c, _ := newTestServer(t)

	err := c.Logout(context.Background(), "not-a-token")
	var apiErr *authclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestRegisterRateLimited(t *testing.T) {
	c, _ := newTestServer(t)
	ctx := context.Background()

	// Strict profile: every request counts against the window,
	// including rejected ones.
	for i := 0; i < 10; i++ {
		_, err := c.Register(ctx, authclient.RegisterRequest{})
		assert.Equal(t, authclient.ErrorCodeInvalidRequest, apiCode(t, err))
	}

	_, err := c.Register(ctx, authclient.RegisterRequest{})
	var apiErr *authclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, authclient.ErrorCodeRateLimited, apiErr.Code)
}

func TestHealthProbes(t *testing.T) {
	c, _ := newTestServer(t)

	resp, err := http.Get(c.BaseURL + "/livez")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ready, err := http.Get(c.BaseURL + "/readyz")
	require.NoError(t, err)
	defer ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)
}
