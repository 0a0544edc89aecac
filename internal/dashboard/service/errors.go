package service

import "errors"

// Ingestion errors. An import that fails leaves no partial tab behind.
var (
	ErrEmptyOrInvalidFile = errors.New("file is empty or invalid")
	ErrMissingCodeColumn  = errors.New("no code column found")
	ErrParseFailure       = errors.New("parse failure")
	ErrUnsupportedFile    = errors.New("unsupported file type")
)

// Watchlist mutation errors.
var (
	ErrInvalidCode        = errors.New("invalid stock code")
	ErrUnknownTab         = errors.New("unknown tab")
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidViewMode    = errors.New("invalid view mode")
	ErrInvalidGridColumns = errors.New("invalid grid columns")
	ErrInvalidFilterKind  = errors.New("invalid filter kind")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrNoFavorites        = errors.New("no favorites to export")
)
