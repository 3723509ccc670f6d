package venues

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ratingChunkSize bounds the id array sent per rating query.
const ratingChunkSize = 1000

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

const venueColumns = `
	v.id,
	v.owner_id,
	v.name,
	v.address_line,
	v.district,
	v.city,
	v.latitude,
	v.longitude,
	v.price_min,
	v.price_max,
	to_char(v.open_time, 'HH24:MI'),
	to_char(v.close_time, 'HH24:MI'),
	v.status,
	v.has_wifi,
	v.has_ac,
	v.is_quiet,
	v.has_parking,
	v.allow_smoking,
	v.allow_pets,
	v.created_at,
	v.updated_at`

const candidateOrder = " ORDER BY v.created_at DESC, v.id DESC"

func scanVenue(row pgx.Row) (Venue, error) {
	var (
		v      Venue
		status string
	)
	err := row.Scan(
		&v.ID,
		&v.OwnerID,
		&v.Name,
		&v.AddressLine,
		&v.District,
		&v.City,
		&v.Latitude,
		&v.Longitude,
		&v.PriceMin,
		&v.PriceMax,
		&v.OpenTime,
		&v.CloseTime,
		&status,
		&v.Amenities.Wifi,
		&v.Amenities.AirConditioner,
		&v.Amenities.Quiet,
		&v.Amenities.Parking,
		&v.Amenities.SmokingAllowed,
		&v.Amenities.PetsAllowed,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return v, err
	}
	v.Status, err = parseStatus(status)
	return v, err
}

// parseStatus rejects values outside the status CHECK constraint.
func parseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func collectVenues(rows pgx.Rows) ([]Venue, error) {
	defer rows.Close()

	var out []Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows venues: %w", err)
	}
	return out, nil
}

// CountCandidates returns the size of the structural candidate set.
func (r *Repository) CountCandidates(ctx context.Context, c Criteria) (int, error) {
	whereSQL, args := c.where(1)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM venues v`+whereSQL, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count venues: %w", err)
	}
	return total, nil
}

// ListCandidateIDs returns every candidate id in listing order.
func (r *Repository) ListCandidateIDs(ctx context.Context, c Criteria) ([]int64, error) {
	whereSQL, args := c.where(1)

	rows, err := r.db.Query(ctx, `SELECT v.id FROM venues v`+whereSQL+candidateOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidate ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan candidate ids: %w", err)
	}
	return ids, nil
}

// ListCandidatePage returns one page of candidate rows. Only venue columns are
// read here: children are aggregated separately for the page ids.
func (r *Repository) ListCandidatePage(ctx context.Context, c Criteria, limit, offset int) ([]Venue, error) {
	whereSQL, args := c.where(1)
	limitPos := len(args) + 1

	query := `SELECT` + venueColumns + ` FROM venues v` + whereSQL + candidateOrder +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", limitPos, limitPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return collectVenues(rows)
}

// ListLocatedCandidates returns id and coordinates of candidates with a known location.
func (r *Repository) ListLocatedCandidates(ctx context.Context, c Criteria) ([]Located, error) {
	c.Located = true
	whereSQL, args := c.where(1)

	rows, err := r.db.Query(ctx, `SELECT v.id, v.latitude, v.longitude FROM venues v`+whereSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("list located venues: %w", err)
	}
	defer rows.Close()

	var out []Located
	for rows.Next() {
		var l Located
		if err := rows.Scan(&l.ID, &l.Latitude, &l.Longitude); err != nil {
			return nil, fmt.Errorf("scan located venue: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows located venues: %w", err)
	}
	return out, nil
}

// GetVenuesByIDs fetches venue rows for a page of ids. Order is not guaranteed.
func (r *Repository) GetVenuesByIDs(ctx context.Context, ids []int64) ([]Venue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT`+venueColumns+` FROM venues v WHERE v.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get venues by ids: %w", err)
	}
	return collectVenues(rows)
}

// GetVenueByID returns a venue regardless of status.
func (r *Repository) GetVenueByID(ctx context.Context, venueID int64) (*Venue, error) {
	row := r.db.QueryRow(ctx, `SELECT`+venueColumns+` FROM venues v WHERE v.id = $1`, venueID)
	v, err := scanVenue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}
	return &v, nil
}

// RatingAverages computes the average rating for an arbitrary id set. Venues
// without reviews are absent from the map.
func (r *Repository) RatingAverages(ctx context.Context, ids []int64) (map[int64]float64, error) {
	out := make(map[int64]float64, len(ids))

	for start := 0; start < len(ids); start += ratingChunkSize {
		end := min(start+ratingChunkSize, len(ids))

		rows, err := r.db.Query(ctx, `
			SELECT venue_id, AVG(rating)::float8
			FROM reviews
			WHERE venue_id = ANY($1)
			GROUP BY venue_id
		`, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("query rating averages: %w", err)
		}

		for rows.Next() {
			var (
				id  int64
				avg float64
			)
			if err := rows.Scan(&id, &avg); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan rating average: %w", err)
			}
			out[id] = avg
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows rating averages: %w", err)
		}
	}
	return out, nil
}

// LoadAggregates fetches cover photo, rating stats and favorite counts for a
// page of ids in one round trip. Every id is present in the result; missing
// children coalesce to zero values.
func (r *Repository) LoadAggregates(ctx context.Context, ids []int64) (map[int64]Aggregate, error) {
	out := make(map[int64]Aggregate, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	for _, id := range ids {
		out[id] = Aggregate{}
	}

	b := &pgx.Batch{}

	// is_cover is not unique per venue: take the lowest photo id.
	const coverQ = `
SELECT DISTINCT ON (venue_id) venue_id, url
FROM venue_photos
WHERE is_cover = TRUE AND venue_id = ANY($1)
ORDER BY venue_id, id ASC;
`
	b.Queue(coverQ, ids)

	const ratingQ = `
SELECT venue_id, COUNT(*), COALESCE(AVG(rating), 0)::float8
FROM reviews
WHERE venue_id = ANY($1)
GROUP BY venue_id;
`
	b.Queue(ratingQ, ids)

	const favoritesQ = `
SELECT venue_id, COUNT(DISTINCT user_id)
FROM favorite_venues
WHERE venue_id = ANY($1)
GROUP BY venue_id;
`
	b.Queue(favoritesQ, ids)

	br := r.db.SendBatch(ctx, b)
	defer br.Close()

	// --- covers ---
	rows, err := br.Query()
	if err != nil {
		return nil, fmt.Errorf("query cover photos batch: %w", err)
	}
	for rows.Next() {
		var (
			id  int64
			url string
		)
		if err := rows.Scan(&id, &url); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cover photo: %w", err)
		}
		a := out[id]
		a.CoverURL = &url
		out[id] = a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cover photo rows: %w", err)
	}

	// --- ratings ---
	rows, err = br.Query()
	if err != nil {
		return nil, fmt.Errorf("query rating stats batch: %w", err)
	}
	for rows.Next() {
		var (
			id    int64
			count int
			avg   float64
		)
		if err := rows.Scan(&id, &count, &avg); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan rating stats: %w", err)
		}
		a := out[id]
		a.ReviewCount = count
		a.AverageRating = avg
		out[id] = a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rating stats rows: %w", err)
	}

	// --- favorites ---
	rows, err = br.Query()
	if err != nil {
		return nil, fmt.Errorf("query favorite counts batch: %w", err)
	}
	for rows.Next() {
		var (
			id    int64
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan favorite count: %w", err)
		}
		a := out[id]
		a.FavoritesCount = count
		out[id] = a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("favorite count rows: %w", err)
	}

	return out, nil
}

// AddFavorite inserts a record into the favorite_venues table. Adding twice is a no-op.
func (r *Repository) AddFavorite(ctx context.Context, userID, venueID int64) error {
	query := `
		INSERT INTO favorite_venues (user_id, venue_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, userID, venueID)
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite deletes a record from the favorite_venues table if it exists.
func (r *Repository) RemoveFavorite(ctx context.Context, userID, venueID int64) error {
	query := `
		DELETE FROM favorite_venues
		WHERE user_id = $1 AND venue_id = $2
	`
	_, err := r.db.Exec(ctx, query, userID, venueID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (r *Repository) IsFavorite(ctx context.Context, userID, venueID int64) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS (
          SELECT 1 FROM favorite_venues
          WHERE user_id = $1 AND venue_id = $2
        )
    `
	if err := r.db.QueryRow(ctx, query, userID, venueID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

// GetFavoriteVenueIDsByUser returns the ids of active venues a user has
// favorited, most recent first. favorite_venues is unique per (user, venue)
// so the join cannot fan out.
func (r *Repository) GetFavoriteVenueIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT f.venue_id
		FROM favorite_venues f
		JOIN venues v ON v.id = f.venue_id
		WHERE f.user_id = $1 AND v.status = 'ACTIVE'
		ORDER BY f.created_at DESC, f.venue_id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get favorite ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan favorite id: %w", err)
	}
	return ids, nil
}

// ListReviews returns a page of a venue's reviews and the true total.
func (r *Repository) ListReviews(ctx context.Context, venueID int64, limit, offset int) ([]Review, int, error) {
	b := &pgx.Batch{}
	b.Queue(`SELECT COUNT(*) FROM reviews WHERE venue_id = $1`, venueID)
	b.Queue(`
		SELECT id, venue_id, user_id, rating, COALESCE(comment, ''), created_at
		FROM reviews
		WHERE venue_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, venueID, limit, offset)

	br := r.db.SendBatch(ctx, b)
	defer br.Close()

	var total int
	if err := br.QueryRow().Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	rows, err := br.Query()
	if err != nil {
		return nil, 0, fmt.Errorf("query reviews batch: %w", err)
	}
	defer rows.Close()

	reviews := make([]Review, 0, limit)
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.VenueID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("reviews rows: %w", err)
	}
	return reviews, total, nil
}
