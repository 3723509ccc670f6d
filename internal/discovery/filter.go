package discovery

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"venuehub/internal/domain/venues"
	"venuehub/internal/params"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const (
	DefaultRadiusKm    = 2.0
	DefaultNearbyLimit = 20
)

// nearbyBounds keeps the joiner batch bounded in proximity mode too.
var nearbyBounds = params.Bounds{DefaultLimit: DefaultNearbyLimit, MaxLimit: params.ListBounds.MaxLimit}

// RawFilter is loosely typed filter input, typically query parameters.
// Values may be strings, bools, numbers or absent.
type RawFilter map[string]any

// SearchQuery is the normalized form of a search request.
type SearchQuery struct {
	Page     int
	Limit    int
	Keyword  string
	City     string
	District string

	PriceMin  *float64
	PriceMax  *float64
	MinRating *float64

	OpenNow   bool
	Amenities venues.Amenities
}

// NearbyQuery is the normalized form of a proximity request.
type NearbyQuery struct {
	Lat      float64 `validate:"latitude"`
	Lng      float64 `validate:"longitude"`
	RadiusKm float64 `validate:"gt=0"`
	Limit    int     `validate:"min=1,max=50"`
}

func (f RawFilter) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// number parses a finite number. ok is false when the key is absent or unparsable.
func (f RawFilter) number(key string) (float64, bool) {
	var (
		n   float64
		err error
	)
	switch v := f[key].(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		n, err = strconv.ParseFloat(s, 64)
	case json.Number:
		n, err = v.Float64()
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func (f RawFilter) optNumber(key string) *float64 {
	if n, ok := f.number(key); ok {
		return &n
	}
	return nil
}

// integer truncates numeric input. Present but non-positive values become 1
// (the caller's lower clamp); absent or unparsable ones become 0 ("use default").
func (f RawFilter) integer(key string) int {
	n, ok := f.number(key)
	if !ok {
		return 0
	}
	if n < 1 {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// truthy accepts true, "true", "1" and 1. Anything else, including absence, is false.
func (f RawFilter) truthy(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1"
	}
	n, ok := f.number(key)
	return ok && n == 1
}

// NormalizeSearch never fails: unusable values fall back to their defaults.
func NormalizeSearch(f RawFilter) SearchQuery {
	p := params.New(f.integer("page"), f.integer("limit"), params.ListBounds)

	return SearchQuery{
		Page:      p.Page,
		Limit:     p.Limit,
		Keyword:   f.str("keyword"),
		City:      f.str("city"),
		District:  f.str("district"),
		PriceMin:  f.optNumber("priceMin"),
		PriceMax:  f.optNumber("priceMax"),
		MinRating: f.optNumber("rating"),
		OpenNow:   f.truthy("openNow"),
		Amenities: venues.Amenities{
			Wifi:           f.truthy("hasWifi"),
			AirConditioner: f.truthy("hasAc"),
			Quiet:          f.truthy("isQuiet"),
			Parking:        f.truthy("hasParking"),
			SmokingAllowed: f.truthy("allowSmoking"),
			PetsAllowed:    f.truthy("allowPets"),
		},
	}
}

// NormalizeNearby requires lat and lng. A non-positive or missing radius
// takes DefaultRadiusKm.
func NormalizeNearby(f RawFilter) (NearbyQuery, error) {
	lat, okLat := f.number("lat")
	lng, okLng := f.number("lng")
	if !okLat || !okLng {
		return NearbyQuery{}, ErrCoordinatesRequired
	}

	radius, ok := f.number("radius")
	if !ok || radius <= 0 {
		radius = DefaultRadiusKm
	}

	q := NearbyQuery{
		Lat:      lat,
		Lng:      lng,
		RadiusKm: radius,
		Limit:    params.New(1, f.integer("limit"), nearbyBounds).Limit,
	}
	if err := validate.Struct(q); err != nil {
		return NearbyQuery{}, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	return q, nil
}
