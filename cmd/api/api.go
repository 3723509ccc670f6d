package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"venuehub/docs" // required for the generated swagger spec
	"venuehub/internal/auth"
	"venuehub/internal/discovery"
	"venuehub/internal/metrics"
	"venuehub/internal/params"
	"venuehub/internal/ratelimiter"
)

// venueDiscovery is the part of *discovery.Engine the handlers use.
type venueDiscovery interface {
	Search(ctx context.Context, q discovery.SearchQuery) (*discovery.ListResult, error)
	Nearby(ctx context.Context, q discovery.NearbyQuery) (*discovery.NearbyResult, error)
	Favorites(ctx context.Context, userID int64, page, limit int) (*discovery.ListResult, error)
	Detail(ctx context.Context, venueID int64, userID *int64) (*discovery.VenueDetail, error)
	AddFavorite(ctx context.Context, userID, venueID int64) (*discovery.FavoriteState, error)
	RemoveFavorite(ctx context.Context, userID, venueID int64) (*discovery.FavoriteState, error)
	Reviews(ctx context.Context, venueID int64, p params.Pagination) (*discovery.ReviewPage, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type application struct {
	config        config
	logger        *zap.SugaredLogger
	discovery     venueDiscovery
	db            pinger
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
	metrics       *metrics.Manager
}

type config struct {
	addr         string
	db           dbConfig
	env          string
	apiURL       string
	auth         authConfig
	media        mediaConfig
	discovery    discoveryConfig
	rateLimiter  ratelimiter.Config
	redisAddr    string
	otlpEndpoint string
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	secret string
	exp    time.Duration
	iss    string
}

type basicConfig struct {
	user string
	pass string
}

type dbConfig struct {
	addr        string
	maxConns    int32
	maxIdleTime string
	migrate     bool
}

type mediaConfig struct {
	baseURL       string
	cloudinaryURL string
}

type discoveryConfig struct {
	location     *time.Location
	queryTimeout time.Duration
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if app.metrics != nil {
		r.Use(app.metrics.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	if app.config.rateLimiter.Enabled && app.rateLimiter != nil {
		r.Use(app.RateLimiterMiddleware)
	}

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	if app.metrics != nil {
		r.Method(http.MethodGet, "/metrics", app.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)
		// relative to /v1/swagger/index.html, whatever host the UI is served from
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("doc.json")))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Route("/venues", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(app.OptionalAuthMiddleware)
				r.Get("/", app.searchVenuesHandler)
				r.Get("/nearby", app.nearbyVenuesHandler)
				r.Get("/{venueID}", app.getVenueHandler)
				r.Get("/{venueID}/reviews", app.getVenueReviewsHandler)
			})

			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Post("/{venueID}/favorite", app.addFavoriteHandler)
				r.Delete("/{venueID}/favorite", app.removeFavoriteHandler)
			})
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/favorites", app.listFavoritesHandler)
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)
	return nil
}
