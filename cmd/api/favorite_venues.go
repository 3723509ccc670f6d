package main

import (
	"errors"
	"net/http"

	"venuehub/internal/params"
)

// AddFavoriteVenue godoc
//
//	@Summary		Add a venue to favorites
//	@Description	Adds an active venue to the caller's favorites. Adding an existing favorite is a no-op.
//	@Tags			Favorite_Venues
//	@Produce		json
//	@Param			venueID	path		int	true	"Venue ID"
//	@Success		200		{object}	discovery.FavoriteState
//	@Failure		400		{object}	error	"Invalid venue ID"
//	@Failure		401		{object}	error
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/venues/{venueID}/favorite [post]
func (app *application) addFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	venueID, err := readIDParam(r, "venueID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID, ok := getUserIDFromContext(r)
	if !ok {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthenticated request"))
		return
	}

	state, err := app.discovery.AddFavorite(r.Context(), userID, venueID)
	if err != nil {
		app.discoveryError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, state); err != nil {
		app.internalServerError(w, r, err)
	}
}

// RemoveFavoriteVenue godoc
//
//	@Summary		Remove a venue from favorites
//	@Description	Removes a venue from the caller's favorites. Removing a missing favorite is a no-op.
//	@Tags			Favorite_Venues
//	@Produce		json
//	@Param			venueID	path		int	true	"Venue ID"
//	@Success		200		{object}	discovery.FavoriteState
//	@Failure		400		{object}	error	"Invalid venue ID"
//	@Failure		401		{object}	error
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/venues/{venueID}/favorite [delete]
func (app *application) removeFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	venueID, err := readIDParam(r, "venueID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID, ok := getUserIDFromContext(r)
	if !ok {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthenticated request"))
		return
	}

	state, err := app.discovery.RemoveFavorite(r.Context(), userID, venueID)
	if err != nil {
		app.discoveryError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, state); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ListFavoriteVenues godoc
//
//	@Summary		List favorite venues
//	@Description	Paginated list of the caller's favorite venues that are still active, most recently added first.
//	@Tags			Favorite_Venues
//	@Produce		json
//	@Param			page	query		int	false	"Page number"		default(1)
//	@Param			limit	query		int	false	"Items per page"	default(10)
//	@Success		200		{object}	discovery.ListResult
//	@Failure		401		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/me/favorites [get]
func (app *application) listFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		app.unauthorizedErrorResponse(w, r, errors.New("unauthenticated request"))
		return
	}

	p := params.ParsePagination(r.URL.Query(), params.ListBounds)

	res, err := app.discovery.Favorites(r.Context(), userID, p.Page, p.Limit)
	if err != nil {
		app.discoveryError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, res); err != nil {
		app.internalServerError(w, r, err)
	}
}
