package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"venuehub/internal/auth"
	"venuehub/internal/discovery"
	"venuehub/internal/domain/venues"
	"venuehub/internal/geo"
	"venuehub/internal/metrics"
	"venuehub/internal/params"
	"venuehub/internal/ratelimiter"
)

const testSecret = "test-secret"

type stubDiscovery struct {
	search    discovery.SearchQuery
	nearby    discovery.NearbyQuery
	detailUID *int64
	favUser   int64
	favPage   int
	favLimit  int
	reviewsP  params.Pagination
	err       error
}

func (s *stubDiscovery) Search(_ context.Context, q discovery.SearchQuery) (*discovery.ListResult, error) {
	s.search = q
	if s.err != nil {
		return nil, s.err
	}
	p := params.New(q.Page, q.Limit, params.ListBounds)
	p.ComputeMeta(1)
	return &discovery.ListResult{
		Pagination: p,
		Data:       []discovery.VenueListItem{{ID: 1, Name: "Cafe A"}},
	}, nil
}

func (s *stubDiscovery) Nearby(_ context.Context, q discovery.NearbyQuery) (*discovery.NearbyResult, error) {
	s.nearby = q
	if s.err != nil {
		return nil, s.err
	}
	return &discovery.NearbyResult{
		Radius:       q.RadiusKm,
		UserLocation: geo.Point{Lat: q.Lat, Lng: q.Lng},
		Data:         []discovery.NearbyItem{},
	}, nil
}

func (s *stubDiscovery) Favorites(_ context.Context, userID int64, page, limit int) (*discovery.ListResult, error) {
	s.favUser, s.favPage, s.favLimit = userID, page, limit
	if s.err != nil {
		return nil, s.err
	}
	return &discovery.ListResult{Pagination: params.New(page, limit, params.ListBounds)}, nil
}

func (s *stubDiscovery) Detail(_ context.Context, venueID int64, userID *int64) (*discovery.VenueDetail, error) {
	s.detailUID = userID
	if s.err != nil {
		return nil, s.err
	}
	d := &discovery.VenueDetail{}
	d.ID = venueID
	if userID != nil {
		fav := true
		d.IsFavorite = &fav
	}
	return d, nil
}

func (s *stubDiscovery) AddFavorite(_ context.Context, userID, venueID int64) (*discovery.FavoriteState, error) {
	s.favUser = userID
	if s.err != nil {
		return nil, s.err
	}
	return &discovery.FavoriteState{VenueID: venueID, IsFavorite: true, FavoritesCount: 1}, nil
}

func (s *stubDiscovery) RemoveFavorite(_ context.Context, userID, venueID int64) (*discovery.FavoriteState, error) {
	s.favUser = userID
	if s.err != nil {
		return nil, s.err
	}
	return &discovery.FavoriteState{VenueID: venueID}, nil
}

func (s *stubDiscovery) Reviews(_ context.Context, venueID int64, p params.Pagination) (*discovery.ReviewPage, error) {
	s.reviewsP = p
	if s.err != nil {
		return nil, s.err
	}
	return &discovery.ReviewPage{Pagination: p, Data: []venues.Review{}}, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestApplication(t *testing.T, d venueDiscovery) *application {
	t.Helper()

	return &application{
		config: config{
			env: "test",
			auth: authConfig{
				basic: basicConfig{user: "admin", pass: "pass"},
				token: tokenConfig{secret: testSecret, exp: time.Hour, iss: "venuehub"},
			},
		},
		logger:        zap.NewNop().Sugar(),
		discovery:     d,
		authenticator: auth.NewJWTAuthenticator(testSecret, "venuehub", "venuehub", time.Hour),
	}
}

func executeRequest(req *http.Request, mux http.Handler) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func bearer(t *testing.T, app *application, userID int64) string {
	t.Helper()
	token, err := app.authenticator.GenerateToken(userID)
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, rr.Code, body.Status)
	return body.Message
}

func TestSearchVenues(t *testing.T) {
	stub := &stubDiscovery{}
	app := newTestApplication(t, stub)
	mux := app.mount()

	req := httptest.NewRequest(http.MethodGet, "/v1/venues?keyword=cafe&hasWifi=true&rating=4&page=2&limit=5", nil)
	rr := executeRequest(req, mux)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "cafe", stub.search.Keyword)
	assert.True(t, stub.search.Amenities.Wifi)
	require.NotNil(t, stub.search.MinRating)
	assert.Equal(t, 4.0, *stub.search.MinRating)

	var body struct {
		Data struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
			Data  []struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			} `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, 2, body.Data.Page)
	assert.Equal(t, 5, body.Data.Limit)
	require.Len(t, body.Data.Data, 1)
	assert.Equal(t, "Cafe A", body.Data.Data[0].Name)
}

func TestNearbyVenues(t *testing.T) {
	t.Run("missing coordinates", func(t *testing.T) {
		app := newTestApplication(t, &stubDiscovery{})
		rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/venues/nearby?lat=10.7", nil), app.mount())

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, discovery.ErrCoordinatesRequired.Error(), decodeError(t, rr))
	})

	t.Run("out of range", func(t *testing.T) {
		app := newTestApplication(t, &stubDiscovery{})
		rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/venues/nearby?lat=95&lng=106", nil), app.mount())

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, discovery.ErrInvalidCoordinates.Error(), decodeError(t, rr))
	})

	t.Run("defaults", func(t *testing.T) {
		stub := &stubDiscovery{}
		app := newTestApplication(t, stub)
		rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/venues/nearby?lat=10.77&lng=106.70", nil), app.mount())

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, discovery.DefaultRadiusKm, stub.nearby.RadiusKm)
		assert.Equal(t, discovery.DefaultNearbyLimit, stub.nearby.Limit)
	})
}

func TestGetVenue(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		app := newTestApplication(t, &stubDiscovery{})
		for _, path := range []string{"/v1/venues/abc", "/v1/venues/0", "/v1/venues/-3"} {
			rr := executeRequest(httptest.NewRequest(http.MethodGet, path, nil), app.mount())
			assert.Equal(t, http.StatusBadRequest, rr.Code, path)
		}
	})

	t.Run("not found", func(t *testing.T) {
		app := newTestApplication(t, &stubDiscovery{err: venues.ErrVenueNotFound})
		rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/venues/7", nil), app.mount())

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not found", decodeError(t, rr))
	})

	t.Run("store failure", func(t *testing.T) {
		app := newTestApplication(t, &stubDiscovery{err: context.DeadlineExceeded})
		rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/venues/7", nil), app.mount())

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		stub := &stubDiscovery{}
		app := newTestApplication(t, stub)
		rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/venues/7", nil), app.mount())

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Nil(t, stub.detailUID)
		assert.NotContains(t, rr.Body.String(), "is_favorite")
	})

	t.Run("with token", func(t *testing.T) {
		stub := &stubDiscovery{}
		app := newTestApplication(t, stub)
		req := httptest.NewRequest(http.MethodGet, "/v1/venues/7", nil)
		req.Header.Set("Authorization", bearer(t, app, 42))
		rr := executeRequest(req, app.mount())

		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, stub.detailUID)
		assert.Equal(t, int64(42), *stub.detailUID)
		assert.Contains(t, rr.Body.String(), `"is_favorite":true`)
	})

	t.Run("invalid token", func(t *testing.T) {
		app := newTestApplication(t, &stubDiscovery{})
		req := httptest.NewRequest(http.MethodGet, "/v1/venues/7", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rr := executeRequest(req, app.mount())

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestGetVenueReviews(t *testing.T) {
	stub := &stubDiscovery{}
	app := newTestApplication(t, stub)
	rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/venues/3/reviews?page=2&limit=500", nil), app.mount())

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, stub.reviewsP.Page)
	assert.Equal(t, params.ListBounds.MaxLimit, stub.reviewsP.Limit)
}

func TestFavorites(t *testing.T) {
	t.Run("requires auth", func(t *testing.T) {
		app := newTestApplication(t, &stubDiscovery{})
		mux := app.mount()

		for _, req := range []*http.Request{
			httptest.NewRequest(http.MethodPost, "/v1/venues/1/favorite", nil),
			httptest.NewRequest(http.MethodDelete, "/v1/venues/1/favorite", nil),
			httptest.NewRequest(http.MethodGet, "/v1/users/me/favorites", nil),
		} {
			rr := executeRequest(req, mux)
			assert.Equal(t, http.StatusUnauthorized, rr.Code, req.Method+" "+req.URL.Path)
		}
	})

	t.Run("add", func(t *testing.T) {
		stub := &stubDiscovery{}
		app := newTestApplication(t, stub)
		req := httptest.NewRequest(http.MethodPost, "/v1/venues/9/favorite", nil)
		req.Header.Set("Authorization", bearer(t, app, 5))
		rr := executeRequest(req, app.mount())

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, int64(5), stub.favUser)
		assert.JSONEq(t, `{"data":{"venue_id":9,"is_favorite":true,"favorites_count":1}}`, rr.Body.String())
	})

	t.Run("add inactive venue", func(t *testing.T) {
		app := newTestApplication(t, &stubDiscovery{err: venues.ErrVenueNotFound})
		req := httptest.NewRequest(http.MethodPost, "/v1/venues/9/favorite", nil)
		req.Header.Set("Authorization", bearer(t, app, 5))
		rr := executeRequest(req, app.mount())

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("remove", func(t *testing.T) {
		stub := &stubDiscovery{}
		app := newTestApplication(t, stub)
		req := httptest.NewRequest(http.MethodDelete, "/v1/venues/9/favorite", nil)
		req.Header.Set("Authorization", bearer(t, app, 5))
		rr := executeRequest(req, app.mount())

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"data":{"venue_id":9,"is_favorite":false,"favorites_count":0}}`, rr.Body.String())
	})

	t.Run("list", func(t *testing.T) {
		stub := &stubDiscovery{}
		app := newTestApplication(t, stub)
		req := httptest.NewRequest(http.MethodGet, "/v1/users/me/favorites?page=3&limit=0", nil)
		req.Header.Set("Authorization", bearer(t, app, 11))
		rr := executeRequest(req, app.mount())

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, int64(11), stub.favUser)
		assert.Equal(t, 3, stub.favPage)
		assert.Equal(t, params.ListBounds.DefaultLimit, stub.favLimit)
	})
}

func TestHealthCheck(t *testing.T) {
	app := newTestApplication(t, &stubDiscovery{})
	rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/health", nil), app.mount())
	assert.Equal(t, http.StatusOK, rr.Code)

	app.db = failingPinger{}
	rr = executeRequest(httptest.NewRequest(http.MethodGet, "/v1/health", nil), app.mount())
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "unavailable")
}

func TestDebugVarsBasicAuth(t *testing.T) {
	app := newTestApplication(t, &stubDiscovery{})
	mux := app.mount()

	rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/debug/vars", nil), mux)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/v1/debug/vars", nil)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:wrong")))
	assert.Equal(t, http.StatusUnauthorized, executeRequest(req, mux).Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/debug/vars", nil)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:pass")))
	assert.Equal(t, http.StatusOK, executeRequest(req, mux).Code)
}

func TestRateLimiterMiddleware(t *testing.T) {
	app := newTestApplication(t, &stubDiscovery{})
	app.config.rateLimiter = ratelimiter.Config{RequestsPerTimeFrame: 2, TimeFrame: time.Minute, Enabled: true}
	limiter := ratelimiter.NewFixedWindowLimiter(2, time.Minute)
	defer limiter.Close()
	app.rateLimiter = limiter
	app.metrics = metrics.NewManager("venuehub_test")

	mux := app.mount()
	for i := 0; i < 2; i++ {
		rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/venues", nil), mux)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/venues", nil), mux)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestEnvSpecConfig(t *testing.T) {
	env := envSpec{
		Addr:                ":9000",
		DBAddr:              "postgres://localhost/venuehub",
		DBMaxConns:          10,
		VenueTimezone:       "Asia/Ho_Chi_Minh",
		QueryTimeout:        3 * time.Second,
		RateLimiterRequests: 50,
		RateLimiterWindow:   time.Second,
		RateLimiterEnabled:  true,
	}

	cfg, err := env.config()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.addr)
	assert.Equal(t, int32(10), cfg.db.maxConns)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.discovery.location.String())
	assert.Equal(t, 3*time.Second, cfg.discovery.queryTimeout)
	assert.Equal(t, 50, cfg.rateLimiter.RequestsPerTimeFrame)
	assert.True(t, cfg.rateLimiter.Enabled)

	env.VenueTimezone = "Mars/Olympus"
	_, err = env.config()
	assert.Error(t, err)
}

func TestNewResolver(t *testing.T) {
	r, err := newResolver(mediaConfig{baseURL: "https://cdn.example.com/media"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/a.jpg", r.Resolve("a.jpg"))

	_, err = newResolver(mediaConfig{baseURL: "not a url"})
	assert.Error(t, err)
}

func TestSwaggerServesRelativeDocURL(t *testing.T) {
	app := newTestApplication(t, &stubDiscovery{})
	app.config.addr = ":8080"
	mux := app.mount()

	rr := executeRequest(httptest.NewRequest(http.MethodGet, "/v1/swagger/index.html", nil), mux)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"doc.json"`)
	assert.NotContains(t, rr.Body.String(), ":8080/swagger")

	rr = executeRequest(httptest.NewRequest(http.MethodGet, "/v1/swagger/doc.json", nil), mux)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/venues/nearby")
}
