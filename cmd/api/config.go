package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"venuehub/internal/ratelimiter"
)

// envSpec is the raw environment. It is mapped onto config so handlers never
// read the environment directly.
type envSpec struct {
	Addr        string `envconfig:"ADDR" default:":8080"`
	Env         string `envconfig:"ENV" default:"development"`
	ExternalURL string `envconfig:"EXTERNAL_URL" default:"localhost:8080"`

	DBAddr        string `envconfig:"DB_ADDR" required:"true"`
	DBMaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"30"`
	DBMaxIdleTime string `envconfig:"DB_MAX_IDLE_TIME" default:"15m"`
	DBMigrate     bool   `envconfig:"DB_MIGRATE" default:"false"`

	AuthTokenSecret string `envconfig:"AUTH_TOKEN_SECRET" required:"true"`
	AuthTokenIss    string `envconfig:"AUTH_TOKEN_ISS" default:"venuehub"`
	AuthBasicUser   string `envconfig:"AUTH_BASIC_USER" default:"admin"`
	AuthBasicPass   string `envconfig:"AUTH_BASIC_PASS"`

	MediaBaseURL  string `envconfig:"MEDIA_BASE_URL"`
	CloudinaryURL string `envconfig:"CLOUDINARY_URL"`

	VenueTimezone string        `envconfig:"VENUE_TIMEZONE" default:"Asia/Ho_Chi_Minh"`
	QueryTimeout  time.Duration `envconfig:"QUERY_TIMEOUT" default:"5s"`

	RateLimiterEnabled  bool          `envconfig:"RATELIMITER_ENABLED" default:"false"`
	RateLimiterRequests int           `envconfig:"RATELIMITER_REQUESTS_COUNT" default:"200"`
	RateLimiterWindow   time.Duration `envconfig:"RATELIMITER_WINDOW" default:"5s"`
	RedisAddr           string        `envconfig:"REDIS_ADDR"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func loadConfig() (config, error) {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("load .env: %w", err)
	}

	var env envSpec
	if err := envconfig.Process("", &env); err != nil {
		return config{}, err
	}
	return env.config()
}

func (env envSpec) config() (config, error) {
	loc, err := time.LoadLocation(env.VenueTimezone)
	if err != nil {
		return config{}, fmt.Errorf("VENUE_TIMEZONE: %w", err)
	}

	return config{
		addr:   env.Addr,
		env:    env.Env,
		apiURL: env.ExternalURL,
		db: dbConfig{
			addr:        env.DBAddr,
			maxConns:    env.DBMaxConns,
			maxIdleTime: env.DBMaxIdleTime,
			migrate:     env.DBMigrate,
		},
		auth: authConfig{
			basic: basicConfig{
				user: env.AuthBasicUser,
				pass: env.AuthBasicPass,
			},
			token: tokenConfig{
				secret: env.AuthTokenSecret,
				exp:    time.Hour * 24 * 3, // 3 days
				iss:    env.AuthTokenIss,
			},
		},
		media: mediaConfig{
			baseURL:       env.MediaBaseURL,
			cloudinaryURL: env.CloudinaryURL,
		},
		discovery: discoveryConfig{
			location:     loc,
			queryTimeout: env.QueryTimeout,
		},
		rateLimiter: ratelimiter.Config{
			RequestsPerTimeFrame: env.RateLimiterRequests,
			TimeFrame:            env.RateLimiterWindow,
			Enabled:              env.RateLimiterEnabled,
		},
		redisAddr:    env.RedisAddr,
		otlpEndpoint: env.OTLPEndpoint,
	}, nil
}
