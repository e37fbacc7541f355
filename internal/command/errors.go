package command

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrWrongArgs      = errors.New("wrong number of arguments")
	ErrSyntax         = errors.New("syntax error")
	ErrNotInteger     = errors.New("value is not an integer or out of range")
	ErrInvalidExpire  = errors.New("invalid expire time")
	ErrOverflow       = errors.New("increment or decrement would overflow")
	ErrHashNotInteger = errors.New("hash value is not an integer")
	ErrOffsetRange    = errors.New("offset is out of range")
	ErrStringTooLong  = errors.New("string exceeds maximum allowed size")
	ErrSameObject     = errors.New("source and destination objects are the same")
	ErrNotPositive    = errors.New("value is out of range, must be positive")
)

func unknownCommand(name string) error {
	return fmt.Errorf("%w '%s'", ErrUnknownCommand, name)
}

func wrongArgs(name string) error {
	return fmt.Errorf("%w for '%s' command", ErrWrongArgs, strings.ToLower(name))
}

func syntaxError(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, a...))
}

func invalidExpire(name string) error {
	return fmt.Errorf("%w in '%s' command", ErrInvalidExpire, strings.ToLower(name))
}
