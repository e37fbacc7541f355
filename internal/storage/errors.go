package storage

import (
	"errors"
	"fmt"

	"github.com/eternalApril/moondb/internal/value"
)

// ErrWrongType is matched by every TypeMismatchError
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// TypeMismatchError is returned when a typed operation meets a key of another tag
type TypeMismatchError struct {
	Key      string
	Expected value.Kind
	Actual   value.Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: key %q holds %s, expected %s", ErrWrongType.Error(), e.Key, e.Actual, e.Expected)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrWrongType
}

// ErrNoSuchKey is returned when the source of a rename does not exist
var ErrNoSuchKey = errors.New("no such key")

var (
	errShardsPowerOfTwo = errors.New("requested shards must be a power of 2")
	errShardsTooMany    = errors.New("requested shards must be less or equal than 64")
)
