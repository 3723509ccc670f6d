package discovery

import "errors"

var (
	ErrCoordinatesRequired = errors.New("coordinates required")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)
