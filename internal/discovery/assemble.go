package discovery

import (
	"math"
	"strings"
	"time"

	"venuehub/internal/domain/venues"
	"venuehub/internal/geo"
	"venuehub/internal/timewindow"
)

// VenueListItem is the uniform record returned by every listing.
type VenueListItem struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	PriceMin       int64   `json:"price_min"`
	PriceMax       int64   `json:"price_max"`
	Rating         float64 `json:"rating"`
	ReviewCount    int     `json:"review_count"`
	FavoritesCount int     `json:"favorites_count"`
	CoverURL       *string `json:"cover_url"`
	OpenTime       *string `json:"open_time"`
	CloseTime      *string `json:"close_time"`
}

// NearbyItem is a list item enriched with its distance from the search point.
type NearbyItem struct {
	VenueListItem
	Distance    string  `json:"distance"`
	DistanceRaw float64 `json:"distance_raw"`
	WalkingTime string  `json:"walking_time"`
}

// VenueDetail is the single-venue view.
type VenueDetail struct {
	VenueListItem
	AddressLine string           `json:"address_line"`
	District    string           `json:"district"`
	City        string           `json:"city"`
	Latitude    *float64         `json:"lat"`
	Longitude   *float64         `json:"lng"`
	Amenities   venues.Amenities `json:"amenities"`
	IsOpenNow   bool             `json:"is_open_now"`
	IsFavorite  *bool            `json:"is_favorite,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// composeAddress joins the non-blank parts with ", ".
func composeAddress(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func roundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

func (e *Engine) listItem(v venues.Venue, a venues.Aggregate) VenueListItem {
	item := VenueListItem{
		ID:             v.ID,
		Name:           v.Name,
		Address:        composeAddress(v.AddressLine, v.District, v.City),
		PriceMin:       v.PriceMin,
		PriceMax:       v.PriceMax,
		Rating:         roundRating(a.AverageRating),
		ReviewCount:    a.ReviewCount,
		FavoritesCount: a.FavoritesCount,
		OpenTime:       v.OpenTime,
		CloseTime:      v.CloseTime,
	}
	if a.CoverURL != nil {
		if u := e.resolver.Resolve(*a.CoverURL); u != "" {
			item.CoverURL = &u
		}
	}
	return item
}

func (e *Engine) nearbyItem(v venues.Venue, a venues.Aggregate, km float64) NearbyItem {
	// display values come from the rounded distance so 0.9999 km reads as 1.0 km / 12 min
	rounded := geo.RoundKm(km)
	return NearbyItem{
		VenueListItem: e.listItem(v, a),
		Distance:      geo.FormatDistance(rounded),
		DistanceRaw:   rounded,
		WalkingTime:   geo.FormatWalkingTime(rounded),
	}
}

func (e *Engine) detail(v venues.Venue, a venues.Aggregate, now time.Time) VenueDetail {
	d := VenueDetail{
		VenueListItem: e.listItem(v, a),
		AddressLine:   v.AddressLine,
		District:      v.District,
		City:          v.City,
		Amenities:     v.Amenities,
		IsOpenNow:     openAt(v, now),
		CreatedAt:     v.CreatedAt,
	}
	// a coordinate is only useful as a pair
	if v.HasLocation() {
		d.Latitude, d.Longitude = v.Latitude, v.Longitude
	}
	return d
}

// openAt is false when either bound is unknown or unparsable.
func openAt(v venues.Venue, now time.Time) bool {
	if v.OpenTime == nil || v.CloseTime == nil {
		return false
	}
	w, err := timewindow.Parse(*v.OpenTime, *v.CloseTime)
	if err != nil {
		return false
	}
	return w.OpenAt(now)
}
