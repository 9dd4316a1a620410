package models

import "errors"

var (
	// ErrParseFailure is recorded when a grammar could not be used. It never
	// leaves the extractor; the strategy is downgraded instead.
	ErrParseFailure = errors.New("parse failure")
	// ErrCacheMiss means no valid record exists and one must be extracted.
	ErrCacheMiss = errors.New("cache miss")
	// ErrOracleFailure covers oracle errors, timeouts and empty or malformed output.
	ErrOracleFailure = errors.New("generation oracle failure")
	// ErrValidationFailure is a structural defect in a candidate that could not be corrected.
	ErrValidationFailure = errors.New("validation failure")
	// ErrConcurrentModification rejects a request for a file that already has one in flight.
	ErrConcurrentModification = errors.New("modification already in flight for file")
	ErrFileNotFound           = errors.New("file not found")
	ErrProjectNotFound        = errors.New("project not found")
)
