package note

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID returns a fresh note identifier: a ULID, so identifiers sort
// by creation time and are collision-resistant (48-bit millisecond
// prefix plus 80 random bits). Identifiers are never reused.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
