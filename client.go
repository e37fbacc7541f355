package moondb

import (
	"time"

	"github.com/eternalApril/moondb/internal/value"
)

func (db *DB) str(name string, args ...any) (string, error) {
	v, err := db.Do(name, args...)
	if err != nil {
		return "", err
	}
	return value.ToString(v)
}

func (db *DB) integer(name string, args ...any) (int64, error) {
	v, err := db.Do(name, args...)
	if err != nil {
		return 0, err
	}
	return value.ToInt64(v)
}

func (db *DB) boolean(name string, args ...any) (bool, error) {
	v, err := db.Do(name, args...)
	if err != nil {
		return false, err
	}
	return value.ToBool(v)
}

func (db *DB) strings(name string, args ...any) ([]string, error) {
	v, err := db.Do(name, args...)
	if err != nil {
		return nil, err
	}
	return value.ToStrings(v)
}

// written reports whether a conditional SET answered OK rather than Null
func (db *DB) written(args ...any) (bool, error) {
	v, err := db.Do("SET", args...)
	if err != nil {
		return false, err
	}
	return !v.IsNull(), nil
}

// ttlMillis converts a positive ttl to milliseconds, rounding a fraction of a millisecond up
func ttlMillis(ttl time.Duration) int64 {
	ms := ttl.Milliseconds()
	if ttl > 0 && ttl%time.Millisecond != 0 {
		ms++
	}
	return ms
}

// Set stores v under key without expiration
func (db *DB) Set(key string, v any) error {
	_, err := db.Do("SET", key, v)
	return err
}

// SetEX stores v under key for ttl, with millisecond resolution
func (db *DB) SetEX(key string, v any, ttl time.Duration) error {
	_, err := db.Do("SET", key, v, "PX", ttlMillis(ttl))
	return err
}

// SetNX stores v only if key is absent. A positive ttl also sets a deadline
func (db *DB) SetNX(key string, v any, ttl time.Duration) (bool, error) {
	if ttl > 0 {
		return db.written(key, v, "PX", ttlMillis(ttl), "NX")
	}
	return db.written(key, v, "NX")
}

// SetXX stores v only if key already exists. A positive ttl also sets a deadline
func (db *DB) SetXX(key string, v any, ttl time.Duration) (bool, error) {
	if ttl > 0 {
		return db.written(key, v, "PX", ttlMillis(ttl), "XX")
	}
	return db.written(key, v, "XX")
}

// Get returns the string at key, "" when the key is missing
func (db *DB) Get(key string) (string, error) {
	return db.str("GET", key)
}

// MGet returns one value per key, Null for missing keys
func (db *DB) MGet(keys ...string) ([]Value, error) {
	v, err := db.Do("MGET", keys)
	if err != nil {
		return nil, err
	}
	return value.ToList(v)
}

// MSet takes alternating keys and values
func (db *DB) MSet(pairs ...any) error {
	_, err := db.Do("MSET", pairs...)
	return err
}

func (db *DB) Append(key string, v any) (int64, error) {
	return db.integer("APPEND", key, v)
}

func (db *DB) StrLen(key string) (int64, error) {
	return db.integer("STRLEN", key)
}

// GetRange returns the inclusive byte range [start, end]. Negative offsets count from the end
func (db *DB) GetRange(key string, start, end int64) (string, error) {
	return db.str("GETRANGE", key, start, end)
}

// SetRange overwrites key from offset, padding with zero bytes, and returns the new length
func (db *DB) SetRange(key string, offset int64, v any) (int64, error) {
	return db.integer("SETRANGE", key, offset, v)
}

func (db *DB) Incr(key string) (int64, error) {
	return db.integer("INCR", key)
}

func (db *DB) IncrBy(key string, n int64) (int64, error) {
	return db.integer("INCRBY", key, n)
}

func (db *DB) Decr(key string) (int64, error) {
	return db.integer("DECR", key)
}

func (db *DB) DecrBy(key string, n int64) (int64, error) {
	return db.integer("DECRBY", key, n)
}

// Del returns the number of keys removed
func (db *DB) Del(keys ...string) (int64, error) {
	return db.integer("DEL", keys)
}

// Exists returns how many of keys exist, counting repeats
func (db *DB) Exists(keys ...string) (int64, error) {
	return db.integer("EXISTS", keys)
}

// Expire sets a relative deadline with millisecond resolution.
// A non-positive ttl deletes the key. Returns false if key is missing
func (db *DB) Expire(key string, ttl time.Duration) (bool, error) {
	return db.boolean("PEXPIRE", key, ttlMillis(ttl))
}

// ExpireAt sets an absolute deadline. Returns false if key is missing
func (db *DB) ExpireAt(key string, at time.Time) (bool, error) {
	return db.boolean("PEXPIREAT", key, at.UnixMilli())
}

// TTL returns the remaining seconds, -1 for a key without deadline and -2 for a missing key
func (db *DB) TTL(key string) (int64, error) {
	return db.integer("TTL", key)
}

// PTTL is TTL in milliseconds
func (db *DB) PTTL(key string) (int64, error) {
	return db.integer("PTTL", key)
}

// ExpireTime returns the deadline of key, or ok false when the key is missing or persistent
func (db *DB) ExpireTime(key string) (at time.Time, ok bool, err error) {
	ms, err := db.integer("PEXPIRETIME", key)
	if err != nil || ms < 0 {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

// Persist removes the deadline of key. Returns false if there was none
func (db *DB) Persist(key string) (bool, error) {
	return db.boolean("PERSIST", key)
}

// Rename moves key to newKey with its deadline, replacing whatever newKey held
func (db *DB) Rename(key, newKey string) error {
	_, err := db.Do("RENAME", key, newKey)
	return err
}

// RenameNX is Rename that leaves an existing newKey alone and reports false
func (db *DB) RenameNX(key, newKey string) (bool, error) {
	return db.boolean("RENAMENX", key, newKey)
}

// Copy duplicates src into dst. Without replace an existing dst is kept and false returned
func (db *DB) Copy(src, dst string, replace bool) (bool, error) {
	if replace {
		return db.boolean("COPY", src, dst, "REPLACE")
	}
	return db.boolean("COPY", src, dst)
}

// Unlink is Del
func (db *DB) Unlink(keys ...string) (int64, error) {
	return db.integer("UNLINK", keys)
}

// Type returns "string", "list", "hash", "set" or "none"
func (db *DB) Type(key string) (string, error) {
	return db.str("TYPE", key)
}

// Keys returns the sorted keys matching a glob pattern
func (db *DB) Keys(pattern string) ([]string, error) {
	return db.strings("KEYS", pattern)
}

// HSet takes alternating fields and values and returns the number of new fields
func (db *DB) HSet(key string, pairs ...any) (int64, error) {
	return db.integer("HSET", append([]any{key}, pairs...)...)
}

// HGet returns the field value, "" when the field or the key is missing
func (db *DB) HGet(key, field string) (string, error) {
	return db.str("HGET", key, field)
}

// HMGet returns one value per field, Null for missing fields
func (db *DB) HMGet(key string, fields ...string) ([]Value, error) {
	v, err := db.Do("HMGET", key, fields)
	if err != nil {
		return nil, err
	}
	return value.ToList(v)
}

func (db *DB) HIncrBy(key, field string, n int64) (int64, error) {
	return db.integer("HINCRBY", key, field, n)
}

func (db *DB) HGetAll(key string) (map[string]string, error) {
	v, err := db.Do("HGETALL", key)
	if err != nil {
		return nil, err
	}
	return value.ToStringMap(v)
}

func (db *DB) HDel(key string, fields ...string) (int64, error) {
	return db.integer("HDEL", key, fields)
}

func (db *DB) HExists(key, field string) (bool, error) {
	return db.boolean("HEXISTS", key, field)
}

func (db *DB) HLen(key string) (int64, error) {
	return db.integer("HLEN", key)
}

// HKeys returns the field names in sorted order
func (db *DB) HKeys(key string) ([]string, error) {
	return db.strings("HKEYS", key)
}

// HVals returns the values in the order of HKeys
func (db *DB) HVals(key string) ([]string, error) {
	return db.strings("HVALS", key)
}

// LPush inserts values at the head one by one, so the last one ends up first
func (db *DB) LPush(key string, values ...any) (int64, error) {
	return db.integer("LPUSH", append([]any{key}, values...)...)
}

func (db *DB) RPush(key string, values ...any) (int64, error) {
	return db.integer("RPUSH", append([]any{key}, values...)...)
}

// LPop returns "" when the list is empty or missing
func (db *DB) LPop(key string) (string, error) {
	return db.str("LPOP", key)
}

// RPop returns "" when the list is empty or missing
func (db *DB) RPop(key string) (string, error) {
	return db.str("RPOP", key)
}

func (db *DB) LLen(key string) (int64, error) {
	return db.integer("LLEN", key)
}

// LIndex returns the element at index, "" when it is out of range
func (db *DB) LIndex(key string, index int64) (string, error) {
	return db.str("LINDEX", key, index)
}

// LRange returns the inclusive range [start, stop]. Negative indexes count from the tail
func (db *DB) LRange(key string, start, stop int64) ([]string, error) {
	return db.strings("LRANGE", key, start, stop)
}

func (db *DB) SAdd(key string, members ...any) (int64, error) {
	return db.integer("SADD", append([]any{key}, members...)...)
}

func (db *DB) SRem(key string, members ...any) (int64, error) {
	return db.integer("SREM", append([]any{key}, members...)...)
}

// SMembers returns the members in sorted order
func (db *DB) SMembers(key string) ([]string, error) {
	return db.strings("SMEMBERS", key)
}

func (db *DB) SIsMember(key string, member any) (bool, error) {
	return db.boolean("SISMEMBER", key, member)
}

// SPop removes and returns up to count random members
func (db *DB) SPop(key string, count int64) ([]string, error) {
	return db.strings("SPOP", key, count)
}

func (db *DB) SCard(key string) (int64, error) {
	return db.integer("SCARD", key)
}

func (db *DB) Ping() (string, error) {
	return db.str("PING")
}

func (db *DB) Echo(msg string) (string, error) {
	return db.str("ECHO", msg)
}

// DBSize returns the number of live keys
func (db *DB) DBSize() (int64, error) {
	return db.integer("DBSIZE")
}

// FlushDB removes every key
func (db *DB) FlushDB() error {
	_, err := db.Do("FLUSHDB")
	return err
}
