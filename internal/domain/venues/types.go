package venues

import (
	"context"
	"errors"
	"time"
)

var (
	ErrVenueNotFound = errors.New("venue not found")
	ErrUnknownStatus = errors.New("unknown venue status")
)

// Status is the approval state of a venue. Discovery only ever sees StatusActive.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusRejected Status = "REJECTED"
	StatusClosed   Status = "CLOSED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected, StatusClosed:
		return true
	}
	return false
}

// Amenities are the boolean features a venue advertises. Used as a filter,
// a true field means "must have".
type Amenities struct {
	Wifi           bool `json:"has_wifi"`
	AirConditioner bool `json:"has_ac"`
	Quiet          bool `json:"is_quiet"`
	Parking        bool `json:"has_parking"`
	SmokingAllowed bool `json:"allow_smoking"`
	PetsAllowed    bool `json:"allow_pets"`
}

// Venue represents a venue row.
type Venue struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	AddressLine string    `json:"address_line"`
	District    string    `json:"district"`
	City        string    `json:"city"`
	Latitude    *float64  `json:"lat,omitempty"`
	Longitude   *float64  `json:"lng,omitempty"`
	PriceMin    int64     `json:"price_min"`
	PriceMax    int64     `json:"price_max"`
	OpenTime    *string   `json:"open_time,omitempty"`  // HH:MM, venue local time
	CloseTime   *string   `json:"close_time,omitempty"` // HH:MM, venue local time
	Status      Status    `json:"status"`
	Amenities   Amenities `json:"amenities"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasLocation reports whether both coordinates are known.
func (v Venue) HasLocation() bool {
	return v.Latitude != nil && v.Longitude != nil
}

// Located is the minimal projection used by proximity search.
type Located struct {
	ID        int64
	Latitude  float64
	Longitude float64
}

// Aggregate holds the derived values of one venue.
type Aggregate struct {
	ReviewCount    int
	AverageRating  float64
	FavoritesCount int
	CoverURL       *string
}

type Review struct {
	ID        int64     `json:"id"`
	VenueID   int64     `json:"venue_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the read side of the venue tables plus the favorite write pair.
// Implemented by Repository (pgxpool); discovery depends only on this interface.
type Store interface {
	// Candidate selection. Ordering is created_at DESC, id DESC everywhere.
	CountCandidates(ctx context.Context, c Criteria) (int, error)
	ListCandidateIDs(ctx context.Context, c Criteria) ([]int64, error)
	ListCandidatePage(ctx context.Context, c Criteria, limit, offset int) ([]Venue, error)
	ListLocatedCandidates(ctx context.Context, c Criteria) ([]Located, error)
	GetVenuesByIDs(ctx context.Context, ids []int64) ([]Venue, error)
	GetVenueByID(ctx context.Context, venueID int64) (*Venue, error)

	// Derived values, always batched by id.
	RatingAverages(ctx context.Context, ids []int64) (map[int64]float64, error)
	LoadAggregates(ctx context.Context, ids []int64) (map[int64]Aggregate, error)

	// Favorites
	AddFavorite(ctx context.Context, userID, venueID int64) error
	RemoveFavorite(ctx context.Context, userID, venueID int64) error
	IsFavorite(ctx context.Context, userID, venueID int64) (bool, error)
	GetFavoriteVenueIDsByUser(ctx context.Context, userID int64) ([]int64, error)

	// Reviews
	ListReviews(ctx context.Context, venueID int64, limit, offset int) ([]Review, int, error)
}
