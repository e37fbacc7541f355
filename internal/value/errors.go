package value

import (
	"errors"
	"fmt"
)

// ErrParse is matched by every conversion failure
var ErrParse = errors.New("parse error")

// ParseError describes a failed conversion between a Go type and a Value
type ParseError struct {
	From   string // source tag or Go type
	Target string // requested type
	Input  string // offending input, empty when not meaningful
}

func (e *ParseError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("parse error: cannot convert %s %q to %s", e.From, e.Input, e.Target)
	}
	return fmt.Sprintf("parse error: cannot convert %s to %s", e.From, e.Target)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func parseError(from Kind, target string, input []byte) error {
	return &ParseError{From: from.String(), Target: target, Input: string(input)}
}
