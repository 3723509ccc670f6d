package venues

import (
	"fmt"
	"strings"

	"venuehub/internal/geo"
	"venuehub/internal/timewindow"
)

// Criteria is the set of structural predicates for candidate selection.
// Zero values mean "no filter"; status ACTIVE is always applied.
type Criteria struct {
	Keyword  string
	City     string
	District string

	// Price overlap bounds, each applied on its own.
	PriceMin *float64
	PriceMax *float64

	// OpenAt keeps venues whose window contains this local clock time.
	OpenAt *timewindow.Clock

	Amenities Amenities

	// IDs restricts candidates to a known id set, e.g. a page of favorites.
	// A non-nil empty slice matches nothing.
	IDs []int64

	// Located drops venues without coordinates.
	Located bool
	Box     *geo.Box
}

// likePattern escapes LIKE metacharacters so user input is matched literally.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// where renders the predicates with placeholders starting at $argStart.
func (c Criteria) where(argStart int) (string, []any) {
	var (
		where      = []string{fmt.Sprintf("v.status = '%s'", StatusActive)}
		args       []any
		argCounter = argStart
	)

	// 1) Keyword: any of the text columns
	if kw := strings.TrimSpace(c.Keyword); kw != "" {
		where = append(where, fmt.Sprintf(
			"(v.name ILIKE $%[1]d OR v.address_line ILIKE $%[1]d OR v.city ILIKE $%[1]d OR v.district ILIKE $%[1]d)",
			argCounter,
		))
		args = append(args, likePattern(kw))
		argCounter++
	}

	// 2) Area
	if city := strings.TrimSpace(c.City); city != "" {
		where = append(where, fmt.Sprintf("v.city ILIKE $%d", argCounter))
		args = append(args, likePattern(city))
		argCounter++
	}
	if district := strings.TrimSpace(c.District); district != "" {
		where = append(where, fmt.Sprintf("v.district ILIKE $%d", argCounter))
		args = append(args, likePattern(district))
		argCounter++
	}

	// 3) Price overlap, not containment
	if c.PriceMin != nil {
		where = append(where, fmt.Sprintf("v.price_max >= $%d::numeric", argCounter))
		args = append(args, *c.PriceMin)
		argCounter++
	}
	if c.PriceMax != nil {
		where = append(where, fmt.Sprintf("v.price_min <= $%d::numeric", argCounter))
		args = append(args, *c.PriceMax)
		argCounter++
	}

	// 4) Open now. close < open is an overnight window.
	if c.OpenAt != nil {
		where = append(where, fmt.Sprintf(`(v.open_time IS NOT NULL AND v.close_time IS NOT NULL AND
			CASE WHEN v.close_time >= v.open_time
				THEN $%[1]d::text::time BETWEEN v.open_time AND v.close_time
				ELSE ($%[1]d::text::time >= v.open_time OR $%[1]d::text::time <= v.close_time)
			END)`, argCounter))
		args = append(args, c.OpenAt.String())
		argCounter++
	}

	// 5) Amenities: only the requested ones
	a := c.Amenities
	for _, f := range []struct {
		on     bool
		column string
	}{
		{a.Wifi, "has_wifi"},
		{a.AirConditioner, "has_ac"},
		{a.Quiet, "is_quiet"},
		{a.Parking, "has_parking"},
		{a.SmokingAllowed, "allow_smoking"},
		{a.PetsAllowed, "allow_pets"},
	} {
		if f.on {
			where = append(where, "v."+f.column+" = TRUE")
		}
	}

	// 6) Scope and location
	if c.IDs != nil {
		where = append(where, fmt.Sprintf("v.id = ANY($%d)", argCounter))
		args = append(args, c.IDs)
		argCounter++
	}
	if c.Located || c.Box != nil {
		where = append(where, "v.latitude IS NOT NULL AND v.longitude IS NOT NULL")
	}
	if b := c.Box; b != nil {
		where = append(where, fmt.Sprintf(
			"v.latitude BETWEEN $%d AND $%d AND v.longitude BETWEEN $%d AND $%d",
			argCounter, argCounter+1, argCounter+2, argCounter+3,
		))
		args = append(args, b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
	}

	return " WHERE " + strings.Join(where, " AND "), args
}
