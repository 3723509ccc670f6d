package discovery

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"venuehub/internal/domain/venues"
	"venuehub/internal/geo"
	"venuehub/internal/timewindow"
)

type fakePhoto struct {
	id      int64
	venueID int64
	url     string
	isCover bool
}

type favoriteKey struct{ userID, venueID int64 }

// fakeStore is an in-memory venues.Store evaluating Criteria the way the SQL does.
type fakeStore struct {
	mu        sync.Mutex
	venues    map[int64]venues.Venue
	reviews   []venues.Review
	photos    []fakePhoto
	favorites map[favoriteKey]int // insertion sequence
	favSeq    int

	err error

	aggregateCalls [][]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		venues:    map[int64]venues.Venue{},
		favorites: map[favoriteKey]int{},
	}
}

var baseTime = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

// addVenue stores an ACTIVE venue with sane defaults; mutate tweaks it.
func (s *fakeStore) addVenue(id int64, mutate ...func(*venues.Venue)) venues.Venue {
	v := venues.Venue{
		ID:          id,
		OwnerID:     1,
		Name:        "Venue",
		AddressLine: "1 Main St",
		District:    "District 1",
		City:        "Ho Chi Minh",
		PriceMin:    10000,
		PriceMax:    40000,
		Status:      venues.StatusActive,
		CreatedAt:   baseTime.Add(time.Duration(id) * time.Minute),
	}
	for _, m := range mutate {
		m(&v)
	}
	s.venues[id] = v
	return v
}

func (s *fakeStore) addReview(venueID int64, rating int) {
	s.reviews = append(s.reviews, venues.Review{
		ID:        int64(len(s.reviews) + 1),
		VenueID:   venueID,
		UserID:    int64(len(s.reviews) + 100),
		Rating:    rating,
		CreatedAt: baseTime.Add(time.Duration(len(s.reviews)) * time.Second),
	})
}

func (s *fakeStore) addPhoto(id, venueID int64, url string, isCover bool) {
	s.photos = append(s.photos, fakePhoto{id: id, venueID: venueID, url: url, isCover: isCover})
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

func matches(c venues.Criteria, v venues.Venue) bool {
	if v.Status != venues.StatusActive {
		return false
	}
	if kw := strings.TrimSpace(c.Keyword); kw != "" &&
		!containsFold(v.Name, kw) && !containsFold(v.AddressLine, kw) &&
		!containsFold(v.City, kw) && !containsFold(v.District, kw) {
		return false
	}
	if strings.TrimSpace(c.City) != "" && !containsFold(v.City, c.City) {
		return false
	}
	if strings.TrimSpace(c.District) != "" && !containsFold(v.District, c.District) {
		return false
	}
	if c.PriceMin != nil && float64(v.PriceMax) < *c.PriceMin {
		return false
	}
	if c.PriceMax != nil && float64(v.PriceMin) > *c.PriceMax {
		return false
	}
	if c.OpenAt != nil {
		if v.OpenTime == nil || v.CloseTime == nil {
			return false
		}
		w, err := timewindow.Parse(*v.OpenTime, *v.CloseTime)
		if err != nil || !w.Contains(*c.OpenAt) {
			return false
		}
	}
	a, want := v.Amenities, c.Amenities
	if (want.Wifi && !a.Wifi) || (want.AirConditioner && !a.AirConditioner) ||
		(want.Quiet && !a.Quiet) || (want.Parking && !a.Parking) ||
		(want.SmokingAllowed && !a.SmokingAllowed) || (want.PetsAllowed && !a.PetsAllowed) {
		return false
	}
	if c.IDs != nil && !slices.Contains(c.IDs, v.ID) {
		return false
	}
	if (c.Located || c.Box != nil) && !v.HasLocation() {
		return false
	}
	if c.Box != nil && !c.Box.Contains(geo.Point{Lat: *v.Latitude, Lng: *v.Longitude}) {
		return false
	}
	return true
}

// candidates returns matching venues ordered by created_at DESC, id DESC.
func (s *fakeStore) candidates(c venues.Criteria) []venues.Venue {
	var out []venues.Venue
	for _, v := range s.venues {
		if matches(c, v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b venues.Venue) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (s *fakeStore) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.err
}

func (s *fakeStore) CountCandidates(ctx context.Context, c venues.Criteria) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return 0, err
	}
	return len(s.candidates(c)), nil
}

func (s *fakeStore) ListCandidateIDs(ctx context.Context, c venues.Criteria) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	var ids []int64
	for _, v := range s.candidates(c) {
		ids = append(ids, v.ID)
	}
	return ids, nil
}

func (s *fakeStore) ListCandidatePage(ctx context.Context, c venues.Criteria, limit, offset int) ([]venues.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	all := s.candidates(c)
	start := min(offset, len(all))
	end := min(start+limit, len(all))
	return all[start:end], nil
}

func (s *fakeStore) ListLocatedCandidates(ctx context.Context, c venues.Criteria) ([]venues.Located, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	c.Located = true
	var out []venues.Located
	for _, v := range s.candidates(c) {
		out = append(out, venues.Located{ID: v.ID, Latitude: *v.Latitude, Longitude: *v.Longitude})
	}
	return out, nil
}

func (s *fakeStore) GetVenuesByIDs(ctx context.Context, ids []int64) ([]venues.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	var out []venues.Venue
	// reverse order: callers must not rely on it
	for i := len(ids) - 1; i >= 0; i-- {
		if v, ok := s.venues[ids[i]]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *fakeStore) GetVenueByID(ctx context.Context, venueID int64) (*venues.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	v, ok := s.venues[venueID]
	if !ok {
		return nil, venues.ErrVenueNotFound
	}
	return &v, nil
}

func (s *fakeStore) ratingStats(id int64) (int, float64) {
	var count, sum int
	for _, r := range s.reviews {
		if r.VenueID == id {
			count++
			sum += r.Rating
		}
	}
	if count == 0 {
		return 0, 0
	}
	return count, float64(sum) / float64(count)
}

func (s *fakeStore) RatingAverages(ctx context.Context, ids []int64) (map[int64]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	out := map[int64]float64{}
	for _, id := range ids {
		if n, avg := s.ratingStats(id); n > 0 {
			out[id] = avg
		}
	}
	return out, nil
}

func (s *fakeStore) LoadAggregates(ctx context.Context, ids []int64) (map[int64]venues.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	s.aggregateCalls = append(s.aggregateCalls, slices.Clone(ids))

	out := make(map[int64]venues.Aggregate, len(ids))
	for _, id := range ids {
		var a venues.Aggregate
		a.ReviewCount, a.AverageRating = s.ratingStats(id)

		users := map[int64]bool{}
		for k := range s.favorites {
			if k.venueID == id {
				users[k.userID] = true
			}
		}
		a.FavoritesCount = len(users)

		var cover *fakePhoto
		for i := range s.photos {
			p := &s.photos[i]
			if p.venueID == id && p.isCover && (cover == nil || p.id < cover.id) {
				cover = p
			}
		}
		if cover != nil {
			u := cover.url
			a.CoverURL = &u
		}
		out[id] = a
	}
	return out, nil
}

func (s *fakeStore) AddFavorite(ctx context.Context, userID, venueID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return err
	}
	k := favoriteKey{userID, venueID}
	if _, ok := s.favorites[k]; !ok {
		s.favSeq++
		s.favorites[k] = s.favSeq
	}
	return nil
}

func (s *fakeStore) RemoveFavorite(ctx context.Context, userID, venueID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return err
	}
	delete(s.favorites, favoriteKey{userID, venueID})
	return nil
}

func (s *fakeStore) IsFavorite(ctx context.Context, userID, venueID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return false, err
	}
	_, ok := s.favorites[favoriteKey{userID, venueID}]
	return ok, nil
}

func (s *fakeStore) GetFavoriteVenueIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	type fav struct {
		venueID int64
		seq     int
	}
	var favs []fav
	for k, seq := range s.favorites {
		if k.userID == userID && s.venues[k.venueID].Status == venues.StatusActive {
			favs = append(favs, fav{k.venueID, seq})
		}
	}
	slices.SortFunc(favs, func(a, b fav) int { return cmp.Compare(b.seq, a.seq) })

	ids := make([]int64, len(favs))
	for i, f := range favs {
		ids[i] = f.venueID
	}
	return ids, nil
}

func (s *fakeStore) ListReviews(ctx context.Context, venueID int64, limit, offset int) ([]venues.Review, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return nil, 0, err
	}
	var all []venues.Review
	for _, r := range s.reviews {
		if r.VenueID == venueID {
			all = append(all, r)
		}
	}
	slices.SortFunc(all, func(a, b venues.Review) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	start := min(offset, len(all))
	end := min(start+limit, len(all))
	return all[start:end], len(all), nil
}

// blockingStore never answers CountCandidates before the context ends.
type blockingStore struct {
	*fakeStore
}

func (s blockingStore) CountCandidates(ctx context.Context, _ venues.Criteria) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}
