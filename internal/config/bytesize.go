package config

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// ByteSize is an amount of memory written as "0", "512kb", "100mb", "1gib"...
// Decimal units are powers of 1000, binary ones (kib, mib, gib) powers of 1024
type ByteSize int64

func (b *ByteSize) UnmarshalText(text []byte) error {
	n, err := humanize.ParseBytes(string(text))
	if err != nil {
		return fmt.Errorf("invalid byte size %q: %w", text, err)
	}
	if n > math.MaxInt64 {
		return fmt.Errorf("byte size %q is too large", text)
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(max(b, 0)))
}
