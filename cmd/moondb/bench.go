package main

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/eternalApril/moondb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Performance testing tool for an embedded store",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	benchKeyPrefix = "__bench"
)

func init() {
	benchCmd.Flags().Int("threads", 10, "parallelism multiplier for each benchmark")
	benchCmd.Flags().Int("keys", 100, "how many different keys to use for each benchmark")
	benchCmd.Flags().Int("value-size", 64, "size in bytes of the values written")
	benchCmd.Flags().String("skip", "", "benchmarks to skip (comma separated, e.g. set,get)")
}

// benchSettings are the parsed bench flags
type benchSettings struct {
	threads   int
	keys      int
	valueSize int
	skip      []string
}

func (s benchSettings) shouldSkip(test string) bool {
	for _, skip := range s.skip {
		if test == skip {
			return true
		}
	}
	return false
}

// keyFor returns the key of counter i in the keyspace of a benchmark (with wraparound)
func (s benchSettings) keyFor(prefix string) func(int) string {
	keys := make([]string, s.keys)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", benchKeyPrefix, prefix, i)
	}
	return func(i int) string {
		return keys[i%len(keys)]
	}
}

type benchmark struct {
	name string
	prep func(db *moondb.DB, key func(int) string) error
	op   func(db *moondb.DB, key string, i int) error
}

func runBench(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	settings := benchSettings{}
	var err error
	if settings.threads, err = flags.GetInt("threads"); err != nil {
		return err
	}
	if settings.keys, err = flags.GetInt("keys"); err != nil {
		return err
	}
	if settings.valueSize, err = flags.GetInt("value-size"); err != nil {
		return err
	}
	skip, err := flags.GetString("skip")
	if err != nil {
		return err
	}
	if skip != "" {
		settings.skip = strings.Split(skip, ",")
	}
	if settings.keys <= 0 || settings.threads <= 0 {
		return fmt.Errorf("threads and keys must be positive")
	}

	db, log, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	defer db.Close()  //nolint:errcheck

	value := strings.Repeat("x", settings.valueSize)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Performance testing tool for moondb")
	fmt.Fprintf(out, "Threads: %d, Keys: %d, Value size: %dB\n\n", settings.threads, settings.keys, settings.valueSize)

	benchmarks := []benchmark{
		{name: "set", op: func(db *moondb.DB, key string, _ int) error {
			return db.Set(key, value)
		}},
		{name: "get", prep: fill(value), op: func(db *moondb.DB, key string, _ int) error {
			_, err := db.Get(key)
			return err
		}},
		{name: "mixed", prep: fill(value), op: func(db *moondb.DB, key string, i int) error {
			// 90% reads, 10% writes
			if i%10 == 0 {
				return db.Set(key, value)
			}
			_, err := db.Get(key)
			return err
		}},
		{name: "incr", op: func(db *moondb.DB, key string, _ int) error {
			_, err := db.Incr(key)
			return err
		}},
		{name: "hset", op: func(db *moondb.DB, key string, i int) error {
			_, err := db.HSet(key, i%16, value)
			return err
		}},
		{name: "sadd", op: func(db *moondb.DB, key string, i int) error {
			_, err := db.SAdd(key, i%64)
			return err
		}},
		{name: "set-ex", op: func(db *moondb.DB, key string, _ int) error {
			return db.SetEX(key, value, 50*time.Millisecond)
		}},
	}

	for _, bm := range benchmarks {
		if settings.shouldSkip(bm.name) {
			printResult(cmd, bm.name, testing.BenchmarkResult{})
			continue
		}

		key := settings.keyFor(bm.name)
		if bm.prep != nil {
			if err := bm.prep(db, key); err != nil {
				return err
			}
		}

		result := testing.Benchmark(func(b *testing.B) {
			b.SetParallelism(settings.threads)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					if err := bm.op(db, key(counter), counter); err != nil {
						log.Error("benchmark operation failed", zap.String("bench", bm.name), zap.Error(err))
					}
					counter++
				}
			})
		})
		printResult(cmd, bm.name, result)

		if err := db.FlushDB(); err != nil {
			return err
		}
	}

	return nil
}

func fill(value string) func(db *moondb.DB, key func(int) string) error {
	return func(db *moondb.DB, key func(int) string) error {
		// keyFor wraps around, so the first pass covers the whole keyspace
		seen := map[string]bool{}
		for i := 0; ; i++ {
			k := key(i)
			if seen[k] {
				return nil
			}
			seen[k] = true
			if err := db.Set(k, value); err != nil {
				return err
			}
		}
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(cmd *cobra.Command, test string, result testing.BenchmarkResult) {
	out := cmd.OutOrStdout()
	if result.NsPerOp() == 0 {
		fmt.Fprintf(out, "%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Fprintf(out, "%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}
