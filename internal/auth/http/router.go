package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cartworks/auth/internal/auth/kv"
	"github.com/cartworks/auth/internal/auth/service"
	"github.com/cartworks/auth/internal/auth/session"
	"github.com/cartworks/auth/internal/auth/store"
	"github.com/cartworks/auth/pkg/httpx"
	"github.com/cartworks/auth/pkg/jwtx"
	"github.com/cartworks/auth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	kvStore  kv.Store
	sessions *session.Store
	limiter  *httpx.FixedWindowLimiter

	Sessions *service.SessionService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	kvStore kv.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		kvStore:      kvStore,
		sessions:     session.NewStore(kvStore),
		limiter:      &httpx.FixedWindowLimiter{Store: kvStore},
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerSessions()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// registerAccounts wires the account lifecycle: registration, email
// verification and password reset.
func (r *Router) registerAccounts() {
	registerHandler := &RegisterHandler{Sessions: r.Sessions}
	r.Mux.Handle("POST /v1/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(r.limiter, httpx.StrictLimit),
		),
	)

	verifyHandler := &VerifyEmailHandler{Sessions: r.Sessions}
	r.Mux.Handle("GET /v1/verify-email",
		httpx.Chain(http.HandlerFunc(verifyHandler.HandleVerify),
			httpx.RateLimitByIP(r.limiter, httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/verify-email/resend",
		httpx.Chain(http.HandlerFunc(verifyHandler.HandleResend),
			httpx.RateLimitByIP(r.limiter, httpx.StrictLimit),
		),
	)

	resetHandler := &PasswordResetHandler{Sessions: r.Sessions}
	r.Mux.Handle("POST /v1/password-reset/request",
		httpx.Chain(http.HandlerFunc(resetHandler.HandleRequest),
			httpx.RateLimitByIP(r.limiter, httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/password-reset/confirm",
		httpx.Chain(http.HandlerFunc(resetHandler.HandleConfirm),
			httpx.RateLimitByIP(r.limiter, httpx.StrictLimit),
		),
	)
}

// registerSessions wires login, refresh, logout and the authenticated
// profile endpoint. Logout and me run behind the authn middleware so a
// revoked or expired access token never reaches the handler.
func (r *Router) registerSessions() {
	loginHandler := &LoginHandler{Sessions: r.Sessions}
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(r.limiter, httpx.StrictLimit),
		),
	)

	refreshHandler := &RefreshHandler{Sessions: r.Sessions}
	r.Mux.Handle("POST /v1/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(r.limiter, httpx.ModerateLimit),
		),
	)

	logoutHandler := &LogoutHandler{Sessions: r.Sessions}
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(logoutHandler,
			httpx.AuthnMiddleware(r.verifier, r.sessions),
			httpx.RateLimitByUser(r.limiter, httpx.ModerateLimit),
		),
	)

	meHandler := &MeHandler{Sessions: r.Sessions}
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(meHandler,
			httpx.AuthnMiddleware(r.verifier, r.sessions),
			httpx.RateLimitByUser(r.limiter, httpx.LenientLimit),
		),
	)
}

// registerSystem wires the unauthenticated health probes.
func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.buildVersion, r.startTime))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.store, r.kvStore))
}
