package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"venuehub/internal/discovery"
	"venuehub/internal/params"
)

// rawFilter takes the first value of every query parameter.
func rawFilter(q url.Values) discovery.RawFilter {
	f := make(discovery.RawFilter, len(q))
	for key, values := range q {
		if len(values) > 0 {
			f[key] = values[0]
		}
	}
	return f
}

// readIDParam parses a positive int64 path parameter.
func readIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	if err := Validate.Var(id, "gt=0"); err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// SearchVenues godoc
//
//	@Summary		Search venues
//	@Description	Lists active venues matching text, area, price overlap, rating, opening hours and amenity filters.
//	@Tags			Venue
//	@Produce		json
//	@Param			keyword			query		string	false	"Substring of name, address, district or city"
//	@Param			city			query		string	false	"City substring"
//	@Param			district		query		string	false	"District substring"
//	@Param			priceMin		query		number	false	"Lower bound of the wanted price range"
//	@Param			priceMax		query		number	false	"Upper bound of the wanted price range"
//	@Param			rating			query		number	false	"Minimum average rating"
//	@Param			openNow			query		bool	false	"Only venues open at the current local time"
//	@Param			hasWifi			query		bool	false	"Has wifi"
//	@Param			hasAc			query		bool	false	"Has air conditioning"
//	@Param			isQuiet			query		bool	false	"Is quiet"
//	@Param			hasParking		query		bool	false	"Has parking"
//	@Param			allowPets		query		bool	false	"Allows pets"
//	@Param			allowSmoking	query		bool	false	"Allows smoking"
//	@Param			page			query		int		false	"Page number"		default(1)
//	@Param			limit			query		int		false	"Items per page"	default(10)
//	@Success		200				{object}	discovery.ListResult
//	@Failure		500				{object}	error
//	@Router			/venues [get]
func (app *application) searchVenuesHandler(w http.ResponseWriter, r *http.Request) {
	q := discovery.NormalizeSearch(rawFilter(r.URL.Query()))

	res, err := app.discovery.Search(r.Context(), q)
	if err != nil {
		app.discoveryError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, res); err != nil {
		app.internalServerError(w, r, err)
	}
}

// NearbyVenues godoc
//
//	@Summary		Venues near a point
//	@Description	Lists active venues within a radius, nearest first, with distance and walking time.
//	@Tags			Venue
//	@Produce		json
//	@Param			lat		query		number	true	"Latitude"
//	@Param			lng		query		number	true	"Longitude"
//	@Param			radius	query		number	false	"Radius in km"	default(2)
//	@Param			limit	query		int		false	"Max results"	default(20)
//	@Success		200		{object}	discovery.NearbyResult
//	@Failure		400		{object}	error	"coordinates required"
//	@Failure		500		{object}	error
//	@Router			/venues/nearby [get]
func (app *application) nearbyVenuesHandler(w http.ResponseWriter, r *http.Request) {
	q, err := discovery.NormalizeNearby(rawFilter(r.URL.Query()))
	if err != nil {
		app.discoveryError(w, r, err)
		return
	}

	res, err := app.discovery.Nearby(r.Context(), q)
	if err != nil {
		app.discoveryError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, res); err != nil {
		app.internalServerError(w, r, err)
	}
}

// GetVenue godoc
//
//	@Summary		Venue detail
//	@Description	Returns one active venue. is_favorite is included when a bearer token is sent.
//	@Tags			Venue
//	@Produce		json
//	@Param			venueID	path		int	true	"Venue ID"
//	@Success		200		{object}	discovery.VenueDetail
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Router			/venues/{venueID} [get]
func (app *application) getVenueHandler(w http.ResponseWriter, r *http.Request) {
	venueID, err := readIDParam(r, "venueID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var userID *int64
	if id, ok := getUserIDFromContext(r); ok {
		userID = &id
	}

	venue, err := app.discovery.Detail(r.Context(), venueID, userID)
	if err != nil {
		app.discoveryError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, venue); err != nil {
		app.internalServerError(w, r, err)
	}
}

// GetVenueReviews godoc
//
//	@Summary		Venue reviews
//	@Description	Paginated reviews of an active venue, newest first.
//	@Tags			Venue
//	@Produce		json
//	@Param			venueID	path		int	true	"Venue ID"
//	@Param			page	query		int	false	"Page number"		default(1)
//	@Param			limit	query		int	false	"Items per page"	default(10)
//	@Success		200		{object}	discovery.ReviewPage
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Router			/venues/{venueID}/reviews [get]
func (app *application) getVenueReviewsHandler(w http.ResponseWriter, r *http.Request) {
	venueID, err := readIDParam(r, "venueID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	p := params.ParsePagination(r.URL.Query(), params.ListBounds)

	page, err := app.discovery.Reviews(r.Context(), venueID, p)
	if err != nil {
		app.discoveryError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, page); err != nil {
		app.internalServerError(w, r, err)
	}
}
