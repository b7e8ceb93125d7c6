package domain

import "errors"

var (
	// ErrReportFetch means the settlement report could not be downloaded.
	ErrReportFetch = errors.New("report fetch failed")

	// ErrMalformedReport means the report payload is not a flat map of
	// transaction id to outcome token.
	ErrMalformedReport = errors.New("malformed report")

	// ErrUnknownOutcome means the report producer sent an outcome token this
	// service does not know how to map.
	ErrUnknownOutcome = errors.New("unknown report outcome")

	ErrNotFound = errors.New("not found")
)
