package command

import (
	"slices"
	"sort"
	"strings"

	"github.com/eternalApril/moondb/internal/value"
)

type commandMetadata struct {
	arity      int      // Arity includes the command name itself, negative means "at least"
	flags      []string // readonly, write, fast, denyoom, etc
	firstKey   int      // 1-based index of the first key
	lastKey    int      // 1-based index of the last key
	step       int      // Step count for finding keys
	summary    string
	complexity string
	group      string
}

const since = "1.0.0"

var commandRegistry = map[string]commandMetadata{
	// connection and server
	"PING":     {-1, []string{"fast", "stale"}, 0, 0, 0, "Returns PONG or the given message.", "O(1)", "connection"},
	"ECHO":     {2, []string{"fast"}, 0, 0, 0, "Returns the given string.", "O(1)", "connection"},
	"DBSIZE":   {1, []string{"readonly", "fast"}, 0, 0, 0, "Returns the number of keys.", "O(N) where N is the number of keys with a TTL.", "server"},
	"FLUSHDB":  {-1, []string{"write"}, 0, 0, 0, "Removes all keys.", "O(N) where N is the number of shards.", "server"},
	"FLUSHALL": {-1, []string{"write"}, 0, 0, 0, "Removes all keys.", "O(N) where N is the number of shards.", "server"},
	"INFO":     {-1, []string{"random", "stale"}, 0, 0, 0, "Returns keyspace statistics.", "O(N) where N is the number of keys with a TTL.", "server"},
	"COMMAND":  {-1, []string{"random", "stale"}, 0, 0, 0, "Returns details about commands.", "O(N) where N is the number of commands to look up.", "server"},
	"CONFIG":   {-2, []string{"admin", "stale"}, 0, 0, 0, "Gets or sets the memory limit and the eviction policy.", "O(N) where N is the number of parameters.", "server"},

	// generic
	"DEL":         {-2, []string{"write"}, 1, -1, 1, "Deletes one or more keys.", "O(N) where N is the number of keys that will be removed.", "generic"},
	"UNLINK":      {-2, []string{"write", "fast"}, 1, -1, 1, "Deletes one or more keys.", "O(N) where N is the number of keys that will be removed.", "generic"},
	"EXISTS":      {-2, []string{"readonly", "fast"}, 1, -1, 1, "Counts how many of the given keys exist.", "O(N) where N is the number of keys to check.", "generic"},
	"EXPIRE":      {3, []string{"write", "fast"}, 1, 1, 1, "Sets the expiration time of a key in seconds.", "O(1)", "generic"},
	"PEXPIRE":     {3, []string{"write", "fast"}, 1, 1, 1, "Sets the expiration time of a key in milliseconds.", "O(1)", "generic"},
	"EXPIREAT":    {3, []string{"write", "fast"}, 1, 1, 1, "Sets the expiration time of a key to a Unix timestamp.", "O(1)", "generic"},
	"PEXPIREAT":   {3, []string{"write", "fast"}, 1, 1, 1, "Sets the expiration time of a key to a Unix milliseconds timestamp.", "O(1)", "generic"},
	"TTL":         {2, []string{"readonly", "fast"}, 1, 1, 1, "Get the time to live for a key in seconds.", "O(1)", "generic"},
	"PTTL":        {2, []string{"readonly", "fast"}, 1, 1, 1, "Get the time to live for a key in milliseconds.", "O(1)", "generic"},
	"EXPIRETIME":  {2, []string{"readonly", "fast"}, 1, 1, 1, "Returns the expiration time of a key as a Unix timestamp.", "O(1)", "generic"},
	"PEXPIRETIME": {2, []string{"readonly", "fast"}, 1, 1, 1, "Returns the expiration time of a key as a Unix milliseconds timestamp.", "O(1)", "generic"},
	"PERSIST":     {2, []string{"write", "fast"}, 1, 1, 1, "Remove the expiration from a key.", "O(1)", "generic"},
	"TYPE":        {2, []string{"readonly", "fast"}, 1, 1, 1, "Determines the type of value stored at a key.", "O(1)", "generic"},
	"KEYS":        {2, []string{"readonly"}, 0, 0, 0, "Returns all key names that match a pattern.", "O(N) with N being the number of keys.", "generic"},
	"RENAME":      {3, []string{"write"}, 1, 2, 1, "Renames a key and overwrites the destination.", "O(1)", "generic"},
	"RENAMENX":    {3, []string{"write", "fast"}, 1, 2, 1, "Renames a key only when the target key name doesn't exist.", "O(1)", "generic"},
	"COPY":        {-3, []string{"write", "denyoom"}, 1, 2, 1, "Copies the value of a key to a new key.", "O(N) where N is the number of elements in the copied value.", "generic"},

	// string
	"GET":      {2, []string{"readonly", "fast"}, 1, 1, 1, "Get the value of a key.", "O(1)", "string"},
	"SET":      {-3, []string{"write", "denyoom"}, 1, 1, 1, "Set the string value of a key.", "O(1)", "string"},
	"MGET":     {-2, []string{"readonly", "fast"}, 1, -1, 1, "Atomically returns the string values of one or more keys.", "O(N) where N is the number of keys to retrieve.", "string"},
	"MSET":     {-3, []string{"write", "denyoom"}, 1, -1, 2, "Sets the string values of one or more keys.", "O(N) where N is the number of keys to set.", "string"},
	"APPEND":   {3, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Appends a string to the value of a key.", "O(1)", "string"},
	"STRLEN":   {2, []string{"readonly", "fast"}, 1, 1, 1, "Returns the length of a string value.", "O(1)", "string"},
	"GETRANGE": {4, []string{"readonly"}, 1, 1, 1, "Returns a substring of the string stored at a key.", "O(N) where N is the length of the returned string.", "string"},
	"SETRANGE": {4, []string{"write", "denyoom"}, 1, 1, 1, "Overwrites a part of a string value with another by an offset.", "O(1), not counting the time taken to copy the new string in place.", "string"},
	"INCR":     {2, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Increments the integer value of a key by one.", "O(1)", "string"},
	"INCRBY":   {3, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Increments the integer value of a key by a number.", "O(1)", "string"},
	"DECR":     {2, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Decrements the integer value of a key by one.", "O(1)", "string"},
	"DECRBY":   {3, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Decrements a number from the integer value of a key.", "O(1)", "string"},

	// hash
	"HSET":    {-4, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Creates or modifies the value of fields in a hash.", "O(N) where N is the number of fields being set.", "hash"},
	"HGET":    {3, []string{"readonly", "fast"}, 1, 1, 1, "Returns the value of a field in a hash.", "O(1)", "hash"},
	"HMGET":   {-3, []string{"readonly", "fast"}, 1, 1, 1, "Returns the values of all fields in a hash.", "O(N) where N is the number of fields being requested.", "hash"},
	"HINCRBY": {4, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Increments the integer value of a field in a hash by a number.", "O(1)", "hash"},
	"HGETALL": {2, []string{"readonly"}, 1, 1, 1, "Returns all fields and values in a hash.", "O(N) where N is the size of the hash.", "hash"},
	"HDEL":    {-3, []string{"write", "fast"}, 1, 1, 1, "Deletes one or more fields from a hash.", "O(N) where N is the number of fields to be removed.", "hash"},
	"HEXISTS": {3, []string{"readonly", "fast"}, 1, 1, 1, "Determines whether a field exists in a hash.", "O(1)", "hash"},
	"HLEN":    {2, []string{"readonly", "fast"}, 1, 1, 1, "Returns the number of fields in a hash.", "O(1)", "hash"},
	"HKEYS":   {2, []string{"readonly"}, 1, 1, 1, "Returns all fields in a hash.", "O(N) where N is the size of the hash.", "hash"},
	"HVALS":   {2, []string{"readonly"}, 1, 1, 1, "Returns all values in a hash.", "O(N) where N is the size of the hash.", "hash"},

	// list
	"LPUSH":  {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Prepends one or more elements to a list.", "O(N) where N is the length of the list.", "list"},
	"RPUSH":  {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Appends one or more elements to a list.", "O(1) for each element added.", "list"},
	"LPOP":   {2, []string{"write", "fast"}, 1, 1, 1, "Returns the first element of a list after removing it.", "O(1)", "list"},
	"RPOP":   {2, []string{"write", "fast"}, 1, 1, 1, "Returns the last element of a list after removing it.", "O(1)", "list"},
	"LLEN":   {2, []string{"readonly", "fast"}, 1, 1, 1, "Returns the length of a list.", "O(1)", "list"},
	"LINDEX": {3, []string{"readonly"}, 1, 1, 1, "Returns an element from a list by its index.", "O(N) where N is the number of elements to traverse.", "list"},
	"LRANGE": {4, []string{"readonly"}, 1, 1, 1, "Returns a range of elements from a list.", "O(S+N) where S is the start offset and N the number of elements.", "list"},

	// set
	"SADD":      {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Adds one or more members to a set.", "O(1) for each member added.", "set"},
	"SREM":      {-3, []string{"write", "fast"}, 1, 1, 1, "Removes one or more members from a set.", "O(N) where N is the number of members to be removed.", "set"},
	"SMEMBERS":  {2, []string{"readonly"}, 1, 1, 1, "Returns all members of a set.", "O(N) where N is the set cardinality.", "set"},
	"SISMEMBER": {3, []string{"readonly", "fast"}, 1, 1, 1, "Determines whether a member belongs to a set.", "O(1)", "set"},
	"SCARD":     {2, []string{"readonly", "fast"}, 1, 1, 1, "Returns the number of members in a set.", "O(1)", "set"},
	"SPOP":      {-2, []string{"write", "fast"}, 1, 1, 1, "Returns one or more random members from a set after removing them.", "O(N) where N is the set cardinality.", "set"},
}

// checkArity validates the argument count (without the command name) against the registry
func checkArity(name string, argc int) error {
	meta, ok := commandRegistry[name]
	if !ok {
		return nil
	}

	total := argc + 1
	if meta.arity >= 0 && total != meta.arity {
		return wrongArgs(name)
	}
	if meta.arity < 0 && total < -meta.arity {
		return wrongArgs(name)
	}
	return nil
}

// denyOOM reports whether name must be refused while memory is over the limit
func denyOOM(name string) bool {
	return slices.Contains(commandRegistry[name].flags, "denyoom")
}

func makeFlagsArray(flags []string) value.Value {
	vals := make([]value.Value, len(flags))
	for i, f := range flags {
		vals[i] = value.MakeString(f)
	}
	return value.MakeList(vals...)
}

func makeInfoCmdArray(name string) value.Value {
	meta := commandRegistry[name]
	return value.MakeList(
		value.MakeString(strings.ToLower(name)),
		value.MakeInteger(int64(meta.arity)),
		makeFlagsArray(meta.flags),
		value.MakeInteger(int64(meta.firstKey)),
		value.MakeInteger(int64(meta.lastKey)),
		value.MakeInteger(int64(meta.step)),
	)
}

func sortedCommandNames() []string {
	names := make([]string, 0, len(commandRegistry))
	for name := range commandRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getAllCommands() value.Value {
	names := sortedCommandNames()
	cmdArray := make([]value.Value, 0, len(names))
	for _, name := range names {
		cmdArray = append(cmdArray, makeInfoCmdArray(name))
	}
	return value.MakeList(cmdArray...)
}

// getCommandsInfo returns the details of the named commands, Null for unknown ones
func getCommandsInfo(names []string) value.Value {
	out := make([]value.Value, 0, len(names))
	for _, name := range names {
		upper := strings.ToUpper(name)
		if _, ok := commandRegistry[upper]; !ok {
			out = append(out, value.MakeNull())
			continue
		}
		out = append(out, makeInfoCmdArray(upper))
	}
	return value.MakeList(out...)
}

// getCommandsDocs returns documentation for specified commands or all commands
// Format: {name: {summary, since, group, complexity}}
func getCommandsDocs(names []string) value.Value {
	if len(names) == 0 {
		names = sortedCommandNames()
	}

	result := make(map[string]value.Value, len(names))
	for _, name := range names {
		upper := strings.ToUpper(name)
		meta, ok := commandRegistry[upper]
		if !ok {
			continue
		}

		result[strings.ToLower(upper)] = value.MakeMap(map[string]value.Value{
			"summary":    value.MakeString(meta.summary),
			"since":      value.MakeString(since),
			"group":      value.MakeString(meta.group),
			"complexity": value.MakeString(meta.complexity),
		})
	}

	return value.MakeMap(result)
}
