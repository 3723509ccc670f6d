package discovery

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"venuehub/internal/domain/venues"
	"venuehub/internal/geo"
	"venuehub/internal/media"
	"venuehub/internal/params"
	"venuehub/internal/timewindow"
)

const DefaultQueryTimeout = 5 * time.Second

// Observer receives the size of every listing the engine produces.
type Observer interface {
	ObserveResults(op string, returned, total int)
}

type nopObserver struct{}

func (nopObserver) ObserveResults(string, int, int) {}

// Engine answers discovery queries. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	store    venues.Store
	resolver media.Resolver
	observer Observer
	tracer   trace.Tracer
	location *time.Location
	now      func() time.Time
	timeout  time.Duration
}

type Option func(*Engine)

func WithResolver(r media.Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithLocation sets the zone venue opening hours are expressed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.location = loc }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithQueryTimeout bounds every engine call. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func New(store venues.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		resolver: media.Passthrough{},
		observer: nopObserver{},
		tracer:   otel.Tracer("venuehub/internal/discovery"),
		location: time.Local,
		now:      time.Now,
		timeout:  DefaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ListResult is a page of venues plus the size of the set it was cut from.
type ListResult struct {
	params.Pagination
	Data []VenueListItem `json:"data"`
}

type NearbyResult struct {
	Count        int          `json:"count"`
	Radius       float64      `json:"radius"`
	UserLocation geo.Point    `json:"user_location"`
	Data         []NearbyItem `json:"data"`
}

type ReviewPage struct {
	params.Pagination
	Data []venues.Review `json:"data"`
}

// FavoriteState is the outcome of an add or remove.
type FavoriteState struct {
	VenueID        int64 `json:"venue_id"`
	IsFavorite     bool  `json:"is_favorite"`
	FavoritesCount int   `json:"favorites_count"`
}

func (e *Engine) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	cancel := func() {}
	if e.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	ctx, span := e.tracer.Start(ctx, "discovery."+op, trace.WithAttributes(attrs...))

	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		cancel()
	}
}

func (e *Engine) localNow() time.Time {
	return e.now().In(e.location)
}

func (e *Engine) searchCriteria(q SearchQuery) venues.Criteria {
	c := venues.Criteria{
		Keyword:   q.Keyword,
		City:      q.City,
		District:  q.District,
		PriceMin:  q.PriceMin,
		PriceMax:  q.PriceMax,
		Amenities: q.Amenities,
	}
	if q.OpenNow {
		clock := timewindow.ClockOf(e.localNow())
		c.OpenAt = &clock
	}
	return c
}

// Search runs the structural predicates, the optional rating threshold and
// pagination, then joins the aggregates of the resulting page.
func (e *Engine) Search(ctx context.Context, q SearchQuery) (res *ListResult, err error) {
	ctx, end := e.begin(ctx, "Search",
		attribute.Int("page", q.Page),
		attribute.Int("limit", q.Limit),
		attribute.Bool("rating_filter", q.MinRating != nil),
	)
	defer end(&err)

	c := e.searchCriteria(q)
	p := params.New(q.Page, q.Limit, params.ListBounds)

	var (
		rows  []venues.Venue
		total int
	)
	if q.MinRating == nil {
		total, err = e.store.CountCandidates(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("count candidates: %w", err)
		}
		if p.Offset < total {
			rows, err = e.store.ListCandidatePage(ctx, c, p.Limit, p.Offset)
			if err != nil {
				return nil, fmt.Errorf("list candidate page: %w", err)
			}
		}
	} else {
		// rating is derived: aggregate the whole candidate set, filter, then paginate
		ids, err := e.store.ListCandidateIDs(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("list candidate ids: %w", err)
		}
		averages, err := e.store.RatingAverages(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("rating averages: %w", err)
		}
		ids = filterByRating(ids, averages, *q.MinRating)
		total = len(ids)

		rows, err = e.fetchPage(ctx, pageOf(ids, p))
		if err != nil {
			return nil, err
		}
	}

	aggs, err := e.aggregate(ctx, rows)
	if err != nil {
		return nil, err
	}

	res = &ListResult{Pagination: p, Data: e.joinList(rows, aggs)}
	res.ComputeMeta(total)
	e.observer.ObserveResults("search", len(res.Data), total)
	return res, nil
}

// Nearby returns the venues within the radius of a point, nearest first.
func (e *Engine) Nearby(ctx context.Context, q NearbyQuery) (res *NearbyResult, err error) {
	ctx, end := e.begin(ctx, "Nearby",
		attribute.Float64("lat", q.Lat),
		attribute.Float64("lng", q.Lng),
		attribute.Float64("radius_km", q.RadiusKm),
	)
	defer end(&err)

	center := geo.Point{Lat: q.Lat, Lng: q.Lng}

	c := venues.Criteria{Located: true}
	if box, ok := geo.BoundingBox(center, q.RadiusKm); ok {
		c.Box = &box
	}
	candidates, err := e.store.ListLocatedCandidates(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("list located candidates: %w", err)
	}

	hits := rankByDistance(center, candidates, q.RadiusKm)
	matched := len(hits)
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}

	ids := make([]int64, len(hits))
	distances := make(map[int64]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.id
		distances[h.id] = h.km
	}

	rows, err := e.fetchPage(ctx, ids)
	if err != nil {
		return nil, err
	}
	aggs, err := e.aggregate(ctx, rows)
	if err != nil {
		return nil, err
	}

	data := make([]NearbyItem, 0, len(rows))
	for _, v := range rows {
		data = append(data, e.nearbyItem(v, aggs[v.ID], distances[v.ID]))
	}

	res = &NearbyResult{
		Count:        len(data),
		Radius:       q.RadiusKm,
		UserLocation: center,
		Data:         data,
	}
	e.observer.ObserveResults("nearby", len(data), matched)
	return res, nil
}

// Favorites lists the active venues a user has favorited, most recent first.
func (e *Engine) Favorites(ctx context.Context, userID int64, page, limit int) (res *ListResult, err error) {
	ctx, end := e.begin(ctx, "Favorites", attribute.Int64("user_id", userID))
	defer end(&err)

	ids, err := e.store.GetFavoriteVenueIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("favorite venue ids: %w", err)
	}

	p := params.New(page, limit, params.ListBounds)
	rows, err := e.fetchActivePage(ctx, pageOf(ids, p))
	if err != nil {
		return nil, err
	}
	aggs, err := e.aggregate(ctx, rows)
	if err != nil {
		return nil, err
	}

	res = &ListResult{Pagination: p, Data: e.joinList(rows, aggs)}
	res.ComputeMeta(len(ids))
	e.observer.ObserveResults("favorites", len(res.Data), len(ids))
	return res, nil
}

// activeVenue hides every non-active venue behind ErrVenueNotFound.
func (e *Engine) activeVenue(ctx context.Context, venueID int64) (*venues.Venue, error) {
	v, err := e.store.GetVenueByID(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if v.Status != venues.StatusActive {
		return nil, venues.ErrVenueNotFound
	}
	return v, nil
}

// Detail returns one active venue. IsFavorite is set only when userID is given.
func (e *Engine) Detail(ctx context.Context, venueID int64, userID *int64) (res *VenueDetail, err error) {
	ctx, end := e.begin(ctx, "Detail", attribute.Int64("venue_id", venueID))
	defer end(&err)

	v, err := e.activeVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	aggs, err := e.aggregate(ctx, []venues.Venue{*v})
	if err != nil {
		return nil, err
	}

	d := e.detail(*v, aggs[v.ID], e.localNow())
	if userID != nil {
		fav, err := e.store.IsFavorite(ctx, *userID, venueID)
		if err != nil {
			return nil, fmt.Errorf("is favorite: %w", err)
		}
		d.IsFavorite = &fav
	}
	return &d, nil
}

// AddFavorite marks an active venue as a favorite. Adding twice is a no-op.
func (e *Engine) AddFavorite(ctx context.Context, userID, venueID int64) (res *FavoriteState, err error) {
	ctx, end := e.begin(ctx, "AddFavorite", attribute.Int64("venue_id", venueID))
	defer end(&err)

	if _, err := e.activeVenue(ctx, venueID); err != nil {
		return nil, err
	}
	if err := e.store.AddFavorite(ctx, userID, venueID); err != nil {
		return nil, err
	}
	return e.favoriteState(ctx, venueID, true)
}

// RemoveFavorite drops a favorite if present. It works for venues that are no
// longer active so users can clean up their list.
func (e *Engine) RemoveFavorite(ctx context.Context, userID, venueID int64) (res *FavoriteState, err error) {
	ctx, end := e.begin(ctx, "RemoveFavorite", attribute.Int64("venue_id", venueID))
	defer end(&err)

	if _, err := e.store.GetVenueByID(ctx, venueID); err != nil {
		return nil, err
	}
	if err := e.store.RemoveFavorite(ctx, userID, venueID); err != nil {
		return nil, err
	}
	return e.favoriteState(ctx, venueID, false)
}

func (e *Engine) favoriteState(ctx context.Context, venueID int64, isFavorite bool) (*FavoriteState, error) {
	aggs, err := e.store.LoadAggregates(ctx, []int64{venueID})
	if err != nil {
		return nil, fmt.Errorf("load favorite count: %w", err)
	}
	return &FavoriteState{
		VenueID:        venueID,
		IsFavorite:     isFavorite,
		FavoritesCount: aggs[venueID].FavoritesCount,
	}, nil
}

// Reviews pages through the reviews of an active venue, newest first.
func (e *Engine) Reviews(ctx context.Context, venueID int64, p params.Pagination) (res *ReviewPage, err error) {
	ctx, end := e.begin(ctx, "Reviews", attribute.Int64("venue_id", venueID))
	defer end(&err)

	if _, err := e.activeVenue(ctx, venueID); err != nil {
		return nil, err
	}
	reviews, total, err := e.store.ListReviews(ctx, venueID, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []venues.Review{}
	}

	res = &ReviewPage{Pagination: p, Data: reviews}
	res.ComputeMeta(total)
	return res, nil
}
