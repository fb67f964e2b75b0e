package store

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/goliatone/go-record-graph/record"
)

// ULIDGenerator returns a generator producing unique, time-ordered record
// identities. Each generator owns its entropy source and is safe for
// concurrent use. Backends use this both for identities and change tags,
// since ULIDs order by creation time, which keeps identity-sorted scans
// aligned with insertion order.
func ULIDGenerator() func() record.Identity {
	var mu sync.Mutex
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() record.Identity {
		mu.Lock()
		defer mu.Unlock()
		id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
		return record.Identity(id.String())
	}
}
