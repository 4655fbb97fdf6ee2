package validate

import (
	"errors"
	"fmt"
)

// Pagination limits.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Parameter validation errors
var (
	ErrInvalidPage       = errors.New("page must be at least 1")
	ErrInvalidPageSize   = errors.New("page size out of range")
	ErrInvalidCoordinate = errors.New("coordinate out of range")
)

// PageParams validates pagination parameters, applying defaults for zero
// values. page defaults to 1; pageSize defaults to DefaultPageSize and must
// not exceed MaxPageSize.
func PageParams(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return 0, 0, fmt.Errorf("%w: got %d, allowed 1-%d", ErrInvalidPageSize, pageSize, MaxPageSize)
	}
	return page, pageSize, nil
}

// Coordinates validates a latitude/longitude pair.
func Coordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, lng)
	}
	return nil
}
