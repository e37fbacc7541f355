package storage

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/eternalApril/moondb/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStorage() (*MapStorage, *fakeClock) {
	clock := newFakeClock()
	return NewMapStorage(WithClock(clock.Now)), clock
}

func addMember(member string) MutateFunc {
	return func(v *value.Value) (value.Value, error) {
		if v.AddMember(member) {
			return value.MakeInteger(1), nil
		}
		return value.MakeInteger(0), nil
	}
}

func setField(name, val string) MutateFunc {
	return func(v *value.Value) (value.Value, error) {
		if v.SetField(name, value.MakeString(val)) {
			return value.MakeInteger(1), nil
		}
		return value.MakeInteger(0), nil
	}
}

func TestMapStorage_ReadWrite(t *testing.T) {
	s, _ := newTestStorage()

	_, ok := s.Read("missing")
	assert.False(t, ok)

	s.Write("a", value.MakeString("x"), NoExpiration())
	entry, ok := s.Read("a")
	require.True(t, ok)
	assert.True(t, entry.Value.Equal(value.MakeString("x")))
	assert.False(t, entry.HasExpiration())

	// read returns a copy
	entry.Value.Bytes()[0] = 'y'
	again, _ := s.Read("a")
	assert.Equal(t, "x", string(again.Value.Bytes()))

	stats := s.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestMapStorage_WriteIf(t *testing.T) {
	s, _ := newTestStorage()

	assert.False(t, s.WriteIf("k", value.MakeString("v"), NoExpiration(), IfPresent))
	assert.False(t, s.Exists("k"))

	assert.True(t, s.WriteIf("k", value.MakeString("v1"), NoExpiration(), IfAbsent))
	assert.False(t, s.WriteIf("k", value.MakeString("v2"), NoExpiration(), IfAbsent))

	entry, _ := s.Read("k")
	assert.Equal(t, "v1", string(entry.Value.Bytes()))

	assert.True(t, s.WriteIf("k", value.MakeString("v3"), NoExpiration(), IfPresent))
	entry, _ = s.Read("k")
	assert.Equal(t, "v3", string(entry.Value.Bytes()))
}

func TestMapStorage_ExpirationPolicies(t *testing.T) {
	s, clock := newTestStorage()

	s.Write("k", value.MakeString("v"), ExpireAt(clock.Now().Add(100*time.Second)))
	assert.Equal(t, int64(100), s.TTL("k").Seconds())

	// keep retains the deadline
	s.Write("k", value.MakeString("v2"), KeepTTL())
	assert.Equal(t, int64(100), s.TTL("k").Seconds())

	// a bare write clears it
	s.Write("k", value.MakeString("v3"), NoExpiration())
	assert.Equal(t, TTLNoExpiration, s.TTL("k").State)

	// keep on a new key means no deadline
	s.Write("fresh", value.MakeString("v"), KeepTTL())
	assert.Equal(t, TTLNoExpiration, s.TTL("fresh").State)

	// a deadline in the past removes the key
	s.Write("past", value.MakeString("v"), ExpireAt(clock.Now().Add(-time.Second)))
	assert.False(t, s.Exists("past"))

	// keep on an expired key does not resurrect its deadline
	s.Write("old", value.MakeString("v"), ExpireAt(clock.Now().Add(time.Second)))
	clock.Advance(2 * time.Second)
	s.Write("old", value.MakeString("new"), KeepTTL())
	assert.Equal(t, TTLNoExpiration, s.TTL("old").State)
}

func TestMapStorage_LazyExpiration(t *testing.T) {
	s, clock := newTestStorage()

	s.Write("k", value.MakeString("v"), ExpireAt(clock.Now().Add(time.Second)))
	assert.True(t, s.Exists("k"))
	assert.Equal(t, 1, s.KeyCount())

	clock.Advance(time.Second)

	// deadline reached: every query agrees the key is gone
	assert.False(t, s.Exists("k"))
	assert.Equal(t, TTLAbsent, s.TTL("k").State)
	assert.Equal(t, 0, s.KeyCount())
	assert.Empty(t, s.Keys())
	assert.False(t, s.Delete("k"))
	assert.False(t, s.Persist("k"))
	assert.False(t, s.SetExpiration("k", clock.Now().Add(time.Hour)))

	_, ok := s.Read("k")
	assert.False(t, ok)
	assert.GreaterOrEqual(t, s.Stats().ExpiredLazy, int64(1))
}

func TestMapStorage_LazyExpirationRealClock(t *testing.T) {
	s := NewMapStorage()

	s.Write("k", value.MakeString("v"), ExpireAt(time.Now().Add(50*time.Millisecond)))
	time.Sleep(100 * time.Millisecond)

	_, ok := s.Read("k")
	assert.False(t, ok)
}

func TestMapStorage_TTL(t *testing.T) {
	s, clock := newTestStorage()

	assert.Equal(t, int64(-2), s.TTL("missing").Seconds())

	s.Write("persistent", value.MakeString("v"), NoExpiration())
	assert.Equal(t, int64(-1), s.TTL("persistent").Seconds())
	assert.Equal(t, int64(-1), s.TTL("persistent").Milliseconds())

	s.Write("k", value.MakeString("v"), ExpireAt(clock.Now().Add(2500*time.Millisecond)))
	ttl := s.TTL("k")
	assert.Equal(t, TTLRemaining, ttl.State)
	// floored
	assert.Equal(t, int64(2), ttl.Seconds())
	assert.Equal(t, int64(2500), ttl.Milliseconds())
	assert.True(t, ttl.At.Equal(clock.Now().Add(2500*time.Millisecond)))

	clock.Advance(2400 * time.Millisecond)
	assert.Equal(t, int64(0), s.TTL("k").Seconds())
	assert.Equal(t, int64(100), s.TTL("k").Milliseconds())
}

func TestMapStorage_SetExpiration(t *testing.T) {
	s, clock := newTestStorage()

	assert.False(t, s.SetExpiration("missing", clock.Now().Add(60*time.Second)))
	assert.Equal(t, TTLAbsent, s.TTL("missing").State)

	s.Write("k", value.MakeString("v"), NoExpiration())
	assert.True(t, s.SetExpiration("k", clock.Now().Add(60*time.Second)))
	assert.Equal(t, int64(60), s.TTL("k").Seconds())

	assert.True(t, s.SetExpiration("k", time.Time{}))
	assert.Equal(t, TTLNoExpiration, s.TTL("k").State)

	assert.True(t, s.SetExpiration("k", clock.Now().Add(-time.Second)))
	assert.False(t, s.Exists("k"))
}

func TestMapStorage_PersistIdempotent(t *testing.T) {
	s, clock := newTestStorage()

	s.Write("k", value.MakeString("v"), ExpireAt(clock.Now().Add(time.Minute)))
	assert.True(t, s.Persist("k"))
	assert.False(t, s.Persist("k"))
	assert.Equal(t, TTLNoExpiration, s.TTL("k").State)
	assert.False(t, s.Persist("missing"))
}

func TestMapStorage_MutateTyped(t *testing.T) {
	s, clock := newTestStorage()

	t.Run("creates missing key", func(t *testing.T) {
		res, err := s.MutateTyped("h", value.KindMap, setField("name", "Alice"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Integer())

		res, err = s.MutateTyped("h", value.KindMap, setField("name", "Alice"))
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.Integer())

		entry, ok := s.Read("h")
		require.True(t, ok)
		assert.True(t, entry.Value.Equal(value.MakeMap(map[string]value.Value{"name": value.MakeString("Alice")})))
	})

	t.Run("type mismatch leaves entry unchanged", func(t *testing.T) {
		s.Write("a", value.MakeString("x"), NoExpiration())

		called := false
		_, err := s.MutateTyped("a", value.KindList, func(v *value.Value) (value.Value, error) {
			called = true
			return value.MakeNull(), nil
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrWrongType)

		var mismatch *TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, value.KindList, mismatch.Expected)
		assert.Equal(t, value.KindBytes, mismatch.Actual)
		assert.False(t, called)

		entry, _ := s.Read("a")
		assert.True(t, entry.Value.Equal(value.MakeString("x")))
	})

	t.Run("preserves deadline", func(t *testing.T) {
		s.Write("l", value.MakeList(value.MakeString("a")), ExpireAt(clock.Now().Add(time.Minute)))
		_, err := s.MutateTyped("l", value.KindList, func(v *value.Value) (value.Value, error) {
			v.PushBack(value.MakeString("b"))
			return value.MakeInteger(int64(v.Len())), nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(60), s.TTL("l").Seconds())
	})

	t.Run("expired key starts fresh", func(t *testing.T) {
		s.Write("e", value.MakeString("old"), ExpireAt(clock.Now().Add(time.Second)))
		clock.Advance(time.Second)

		_, err := s.MutateTyped("e", value.KindSet, addMember("m"))
		require.NoError(t, err)
		assert.Equal(t, TTLNoExpiration, s.TTL("e").State)

		entry, _ := s.Read("e")
		assert.Equal(t, value.KindSet, entry.Value.Kind())
	})

	t.Run("failed mutation does not create key", func(t *testing.T) {
		_, err := s.MutateTyped("nothing", value.KindList, func(v *value.Value) (value.Value, error) {
			return value.MakeNull(), assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, s.Exists("nothing"))
	})

	t.Run("emptied collection is removed", func(t *testing.T) {
		_, err := s.MutateTyped("s", value.KindSet, addMember("only"))
		require.NoError(t, err)
		_, err = s.MutateTyped("s", value.KindSet, func(v *value.Value) (value.Value, error) {
			v.RemoveMember("only")
			return value.MakeInteger(1), nil
		})
		require.NoError(t, err)
		assert.False(t, s.Exists("s"))
	})
}

func TestMapStorage_ViewTyped(t *testing.T) {
	s, _ := newTestStorage()

	length := func(v value.Value) (value.Value, error) {
		return value.MakeInteger(int64(v.Len())), nil
	}

	res, err := s.ViewTyped("missing", value.KindList, length)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Integer())
	assert.False(t, s.Exists("missing"))

	s.Write("l", value.MakeList(value.MakeString("a"), value.MakeString("b")), NoExpiration())
	res, err = s.ViewTyped("l", value.KindList, length)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Integer())

	_, err = s.ViewTyped("l", value.KindMap, length)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestMapStorage_DeleteAndClear(t *testing.T) {
	s, _ := newTestStorage()

	s.Write("a", value.MakeString("1"), NoExpiration())
	s.Write("b", value.MakeString("2"), NoExpiration())

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.Equal(t, 1, s.KeyCount())

	s.ClearAll()
	assert.Equal(t, 0, s.KeyCount())
	assert.False(t, s.Exists("b"))
}

func TestMapStorage_DeleteExpired(t *testing.T) {
	s, clock := newTestStorage()

	for i := 0; i < 10; i++ {
		s.Write(fmt.Sprintf("short-%d", i), value.MakeString("v"), ExpireAt(clock.Now().Add(time.Second)))
		s.Write(fmt.Sprintf("long-%d", i), value.MakeString("v"), ExpireAt(clock.Now().Add(time.Hour)))
		s.Write(fmt.Sprintf("forever-%d", i), value.MakeString("v"), NoExpiration())
	}

	clock.Advance(2 * time.Second)

	stats := s.DeleteExpired(3, nil)
	assert.Equal(t, 20, stats.Scanned)
	assert.Equal(t, 10, stats.Removed)
	assert.Len(t, s.data, 20)
	assert.Len(t, s.expires, 10)
	assert.Equal(t, int64(10), s.Stats().ExpiredActive)

	// nothing left to remove
	stats = s.DeleteExpired(3, nil)
	assert.Equal(t, 0, stats.Removed)
}

func TestMapStorage_DeleteExpiredStopped(t *testing.T) {
	s, clock := newTestStorage()

	for i := 0; i < 10; i++ {
		s.Write(fmt.Sprintf("k-%d", i), value.MakeString("v"), ExpireAt(clock.Now().Add(time.Second)))
	}
	clock.Advance(time.Minute)

	stop := make(chan struct{})
	close(stop)

	stats := s.DeleteExpired(2, stop)
	assert.Equal(t, 0, stats.Removed)
	// lazy checks still hide the keys
	assert.Equal(t, 0, s.KeyCount())
}

func TestMapStorage_ConcurrentMutations(t *testing.T) {
	s := NewMapStorage()
	const workers = 50
	const perWorker = 200

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := s.MutateTyped("set", value.KindSet, addMember(fmt.Sprintf("%d-%d", workerID, j)))
				if err != nil {
					t.Errorf("mutate failed: %v", err)
					return
				}
			}
		}(i)
	}

	wg.Wait()

	entry, ok := s.Read("set")
	require.True(t, ok)
	assert.Equal(t, workers*perWorker, entry.Value.Len())
}

func TestMapStorage_Concurrency(t *testing.T) {
	s := NewMapStorage()
	const workers = 100
	const opsPerWorker = 10000

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for j := 0; j < opsPerWorker; j++ {
				key := fmt.Sprintf("key-%d", r.Intn(50))
				val := fmt.Sprintf("val-%d", j)

				op := r.Intn(5)
				switch op {
				case 0:
					s.Write(key, value.MakeString(val), ExpireAt(time.Now().Add(time.Duration(r.Intn(5))*time.Millisecond)))
				case 1:
					s.Read(key)
				case 2:
					s.Delete(key)
				case 3:
					s.MutateTyped(key, value.KindList, func(v *value.Value) (value.Value, error) { //nolint:errcheck
						v.PushBack(value.MakeString(val))
						return value.MakeNull(), nil
					})
				case 4:
					s.DeleteExpired(8, nil)
				}
			}
		}(i)
	}

	wg.Wait()
}

func FuzzMapStorage(f *testing.F) {
	s := NewMapStorage()

	f.Add("key1", "val1")
	f.Add("special", "!@#$%^&*()")

	f.Fuzz(func(t *testing.T, key string, val string) {
		s.Write(key, value.MakeString(val), NoExpiration())

		entry, ok := s.Read(key)
		if !ok || string(entry.Value.Bytes()) != val {
			t.Errorf("Read failed after Write: key=%q, val=%q", key, val)
		}
	})
}

func TestMapStorage_FarFutureDeadline(t *testing.T) {
	s, clock := newTestStorage()
	farFuture := time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Write("written", value.MakeString("v"), ExpireAt(farFuture))
	s.Write("expired", value.MakeString("v"), NoExpiration())
	assert.True(t, s.SetExpiration("expired", time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)))

	for _, key := range []string{"written", "expired"} {
		assert.True(t, s.Exists(key), key)
		ttl := s.TTL(key)
		assert.Equal(t, TTLRemaining, ttl.State, key)
		assert.Greater(t, ttl.Remaining, farFuture.Sub(clock.Now())/2, key)
	}

	// instants before the representable range are in the past
	assert.True(t, s.SetExpiration("expired", time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, s.Exists("expired"))
}

func TestMapStorage_Rename(t *testing.T) {
	s, clock := newTestStorage()

	_, err := s.Rename("missing", "dst", false)
	assert.ErrorIs(t, err, ErrNoSuchKey)

	s.Write("src", value.MakeString("v"), ExpireAt(clock.Now().Add(time.Minute)))
	ok, err := s.Rename("src", "dst", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, s.Exists("src"))
	assert.Equal(t, int64(60), s.TTL("dst").Seconds())

	// nx keeps an existing destination
	s.Write("other", value.MakeString("o"), NoExpiration())
	ok, err = s.Rename("other", "dst", true)
	require.NoError(t, err)
	assert.False(t, ok)
	e, _ := s.Read("dst")
	assert.Equal(t, "v", string(e.Value.Bytes()))

	ok, err = s.Rename("other", "dst", false)
	require.NoError(t, err)
	assert.True(t, ok)
	e, _ = s.Read("dst")
	assert.Equal(t, "o", string(e.Value.Bytes()))
	assert.Equal(t, TTLNoExpiration, s.TTL("dst").State)

	ok, err = s.Rename("dst", "dst", false)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Rename("dst", "dst", true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMapStorage_Copy(t *testing.T) {
	s, clock := newTestStorage()

	assert.False(t, s.Copy("missing", "dst", false))

	_, err := s.MutateTyped("src", value.KindSet, addMember("a"))
	require.NoError(t, err)
	require.True(t, s.SetExpiration("src", clock.Now().Add(time.Minute)))

	assert.True(t, s.Copy("src", "dst", false))
	assert.Equal(t, int64(60), s.TTL("dst").Seconds())

	// the copy is independent of the source
	_, err = s.MutateTyped("src", value.KindSet, addMember("b"))
	require.NoError(t, err)
	e, _ := s.Read("dst")
	assert.Equal(t, []string{"a"}, e.Value.Members())

	assert.False(t, s.Copy("src", "dst", false))
	assert.True(t, s.Copy("src", "dst", true))
	e, _ = s.Read("dst")
	assert.Equal(t, []string{"a", "b"}, e.Value.Members())

	assert.False(t, s.Copy("src", "src", true))
}
