package api

import (
	"net/http"
	"time"

	"designhub/internal/api/handler"
	"designhub/internal/api/middleware"
	"designhub/internal/app/service"
	"designhub/internal/common"
	"designhub/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
)

// Services groups what the HTTP layer depends on.
type Services struct {
	Auth          *service.AuthService
	Metadata      *service.MetadataService
	Problems      *service.ProblemService
	SavedProblems *service.SavedProblemService
	Solutions     *service.SolutionService
	Users         *service.UserService
}

type RouterOptions struct {
	AllowedOrigins []string
	UpvoteLimiter  *middleware.KeyedRateLimiter
	RequestTimeout time.Duration
}

func NewRouter(svc Services, opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.UpvoteLimiter == nil {
		opts.UpvoteLimiter = middleware.NewKeyedRateLimiter(5, 10)
	}

	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Verifies "Authorization: Bearer T" and puts the token in context; the
	// identity middlewares decide what a missing or bad token means.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithDomainError(w, common.Errorf("no route for %s %s: %w", r.Method, r.URL.Path, common.ErrNotFound))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", handler.NewAuthHandler(svc.Auth).RegisterRoutes)
		v1.Route("/metadata", handler.NewMetadataHandler(svc.Metadata).RegisterRoutes)
		v1.Route("/problems", handler.NewProblemHandler(svc.Problems, svc.SavedProblems).RegisterRoutes)
		v1.Route("/solutions", handler.NewSolutionHandler(svc.Solutions, opts.UpvoteLimiter).RegisterRoutes)
		v1.Route("/users", handler.NewUserHandler(svc.Users).RegisterRoutes)
		v1.Route("/admin", handler.NewAdminHandler(svc.Problems, svc.Solutions, svc.Auth).RegisterRoutes)
	})

	return r
}
