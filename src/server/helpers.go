package server

import (
	"errors"
	"net/http"
	"strconv"

	"volume-spike-detector/src/helpers"
)

// -----------------------------------------------------------------------------

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	var validation *helpers.ValidationError
	switch {
	case errors.Is(err, helpers.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, helpers.ErrNotRunning):
		return http.StatusConflict
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// -----------------------------------------------------------------------------

// parseLimit reads a positive limit capped at limitMax; anything else yields limitMax.
func parseLimit(raw string, limitMax int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > limitMax {
		return limitMax
	}
	return n
}
