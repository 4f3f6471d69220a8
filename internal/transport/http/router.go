package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-signup-presence/internal/application/presence"
	"github.com/go-signup-presence/internal/application/registration"
	"github.com/go-signup-presence/internal/application/user"
	"github.com/go-signup-presence/internal/config"
	jwtinfra "github.com/go-signup-presence/internal/infrastructure/jwt"
	s3infra "github.com/go-signup-presence/internal/infrastructure/s3"
	"github.com/go-signup-presence/internal/infrastructure/smtp"
	"github.com/go-signup-presence/internal/infrastructure/sns"
	"github.com/go-signup-presence/internal/transport/http/handler"
	appmiddleware "github.com/go-signup-presence/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    UserRepository
	Cache       Cache
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender
	JWTProvider *jwtinfra.Provider // nil disables token issuance
	StaticStore *s3infra.Store     // nil serves cfg.StaticDir
	Roster      *presence.Roster
	Hub         http.Handler
	Checks      map[string]handler.Pinger
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Without a JWT provider no tokens exist, so user reads stay public.
	passthrough := func(next http.Handler) http.Handler { return next }
	optionalAuth, requireAuth := passthrough, passthrough
	userDeps := user.ServiceDeps{UserRepo: deps.UserRepo}
	if deps.JWTProvider != nil {
		optionalAuth = appmiddleware.OptionalAuth(deps.JWTProvider)
		requireAuth = appmiddleware.Auth(deps.JWTProvider)
		userDeps.Signer = deps.JWTProvider
	}

	// 5 requests/second, burst of 10, on endpoints that send codes or check secrets.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10, cfg.TrustProxy)

	regSvc := registration.NewService(registration.ServiceDeps{
		Cache:     deps.Cache,
		UserRepo:  deps.UserRepo,
		Mailer:    deps.Mailer,
		SMSSender: deps.SMSSender,
		TTL:       cfg.OTPTTL,
	})
	userSvc := user.NewService(userDeps)

	healthH := handler.NewHealthHandler(deps.Checks)
	regH := handler.NewRegistrationHandler(regSvc, deps.Roster, cfg.ExposeOTP)
	userH := handler.NewUserHandler(userSvc)
	presenceH := handler.NewPresenceHandler(deps.Roster)

	var static http.Handler
	if deps.StaticStore != nil {
		static = handler.NewStaticHandler(deps.StaticStore, "")
	} else {
		static = handler.NewStaticHandler(nil, cfg.StaticDir)
	}

	r.Get("/health-check/{action}", healthH.Ping)
	r.Post("/health-check/{action}", healthH.Ping)
	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.ServeHTTP)
	}

	r.Route("/api/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/signup", regH.Signup)
			r.Post("/resend-otp", regH.ResendOTP)
			r.Post("/verify-otp", regH.VerifyEmailOTP)
			r.Post("/verify-mobile-otp", regH.VerifyMobileOTP)
			r.Post("/login", userH.Login)
		})
		r.Post("/add", regH.Add)

		r.With(requireAuth).Get("/all", userH.List)
		r.With(requireAuth).Get("/list", userH.List)
		r.Get("/liveUsers", presenceH.LiveUsers)
		r.With(optionalAuth).Post("/joinRoom", presenceH.JoinRoom)
		r.With(requireAuth).Get("/{id}", userH.Get)
	})

	r.Handle("/*", static)

	return r
}
