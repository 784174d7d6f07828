package id

import (
	"github.com/oklog/ulid/v2"
)

// New returns a ULID string. IDs minted by this process sort in creation
// order, including within the same millisecond.
func New() string {
	return ulid.Make().String()
}
