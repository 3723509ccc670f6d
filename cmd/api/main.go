package main

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"runtime"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"venuehub/internal/auth"
	"venuehub/internal/db"
	"venuehub/internal/discovery"
	"venuehub/internal/domain/venues"
	"venuehub/internal/media"
	"venuehub/internal/metrics"
	"venuehub/internal/ratelimiter"
)

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	// Configure the encoder to be a console encoder with color
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder // This adds color to log levels (INFO, WARN, ERROR)

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	level := zapcore.InfoLevel

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	return zap.New(core).Sugar(), nil
}

// newResolver prefers Cloudinary when configured, falling back to the base URL
// for path-like references.
func newResolver(cfg mediaConfig) (media.Resolver, error) {
	var fallback media.Resolver = media.Passthrough{}
	if cfg.baseURL != "" {
		base, err := media.NewBaseURL(cfg.baseURL)
		if err != nil {
			return nil, err
		}
		fallback = base
	}

	if cfg.cloudinaryURL == "" {
		return fallback, nil
	}
	return media.NewCloudinary(cfg.cloudinaryURL, fallback)
}

func newRateLimiter(cfg config) (ratelimiter.Limiter, func(), error) {
	rl := cfg.rateLimiter
	if cfg.redisAddr == "" {
		limiter := ratelimiter.NewFixedWindowLimiter(rl.RequestsPerTimeFrame, rl.TimeFrame)
		return limiter, limiter.Close, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return ratelimiter.NewRedisFixedWindowLimiter(client, rl.RequestsPerTimeFrame, rl.TimeFrame), func() { client.Close() }, nil
}

var version = "1.0.0"

//	@title			Venuehub API
//	@description	Venue discovery: search, nearby, favorites and reviews.

//	@contact.name	API Support
//	@contact.url	http://www.swagger.io/support
//	@contact.email	support@swagger.io

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatalw("invalid configuration", "error", err.Error())
	}

	ctx := context.Background()

	// Tracing
	shutdownTracer, err := initTracer(ctx, cfg.otlpEndpoint, cfg.env)
	if err != nil {
		logger.Fatal(err)
	}
	defer shutdownTracer(context.Background())

	// Database
	if cfg.db.migrate {
		if err := db.Migrate(cfg.db.addr, logger); err != nil {
			logger.Fatal(err)
		}
	}

	pool, err := db.New(ctx, cfg.db.addr, cfg.db.maxConns, cfg.db.maxIdleTime)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	// Media
	resolver, err := newResolver(cfg.media)
	if err != nil {
		logger.Fatal(err)
	}

	// Metrics
	mm := metrics.NewManager("venuehub")
	mm.RegisterPoolStats("venuehub", db.PoolStats(pool))

	// Rate limiter
	rateLimiter, closeLimiter, err := newRateLimiter(cfg)
	if err != nil {
		logger.Fatal(err)
	}
	defer closeLimiter()

	engine := discovery.New(
		venues.NewRepository(pool),
		discovery.WithResolver(resolver),
		discovery.WithObserver(mm),
		discovery.WithLocation(cfg.discovery.location),
		discovery.WithQueryTimeout(cfg.discovery.queryTimeout),
		discovery.WithTracer(otel.Tracer("venuehub/internal/discovery")),
	)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
		cfg.auth.token.exp,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		discovery:     engine,
		db:            pool,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
		metrics:       mm,
	}

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		s := pool.Stat()
		return map[string]int32{
			"total":    s.TotalConns(),
			"idle":     s.IdleConns(),
			"acquired": s.AcquiredConns(),
		}
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	if err := app.run(mux); err != nil {
		logger.Fatal(err)
	}
}
