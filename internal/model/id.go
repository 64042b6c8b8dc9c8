package model

import "github.com/oklog/ulid/v2"

// NewRunID generates a ULID identifying a single process run. Journal rows
// and log records carry it so overlapping histories in the same database can
// be told apart.
func NewRunID() string {
	return ulid.Make().String()
}
