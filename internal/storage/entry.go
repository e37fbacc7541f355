package storage

import (
	"time"

	"github.com/eternalApril/moondb/internal/value"
)

// Entry is a stored value together with its deadline
type Entry struct {
	Value    value.Value
	ExpireAt time.Time // zero means the key never expires
}

// HasExpiration reports whether the entry has a deadline
func (e Entry) HasExpiration() bool {
	return !e.ExpireAt.IsZero()
}
