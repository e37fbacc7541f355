package command

import (
	"time"

	"github.com/eternalApril/moondb/internal/storage"
	"github.com/eternalApril/moondb/internal/value"
)

// context carries everything a handler may touch during one execution
type context struct {
	name    string // upper-cased command name
	args    []value.Value
	storage storage.Storage
	now     time.Time
}

type command interface {
	execute(ctx *context) (value.Value, error)
}

type commandFunc func(ctx *context) (value.Value, error)

func (c commandFunc) execute(ctx *context) (value.Value, error) {
	return c(ctx)
}
