package util

import "github.com/oklog/ulid/v2"

// NewID returns a new lexicographically sortable unique id.
func NewID() string {
	return ulid.Make().String()
}
