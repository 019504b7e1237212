package memcache

import (
	"strconv"
	"strings"
	"sync"
)

// A single request.  Immutable once built, except for its one-shot
// completion.
type Command struct {
	line    string
	key     string
	value   []byte
	noReply bool

	once sync.Once
	done chan Reply
}

// NewCommand builds a request from its command line (without the trailing
// CRLF), the key it targets (empty for server wide commands) and an optional
// data block.
func NewCommand(line string, key string, value []byte, noReply bool) *Command {
	return &Command{
		line:    line,
		key:     key,
		value:   value,
		noReply: noReply,
		done:    make(chan Reply, 1),
	}
}

func (c *Command) Line() string {
	return c.line
}

func (c *Command) Key() string {
	return c.key
}

func (c *Command) NoReply() bool {
	return c.noReply
}

// The wire encoding: line CRLF [value CRLF].
func (c *Command) buffer() []byte {
	size := len(c.line) + 2
	if c.value != nil {
		size += len(c.value) + 2
	}

	buf := make([]byte, 0, size)
	buf = append(buf, c.line...)
	buf = append(buf, crlf...)
	if c.value != nil {
		buf = append(buf, c.value...)
		buf = append(buf, crlf...)
	}
	return buf
}

// Resolves the command.  Only the first call has an effect.
func (c *Command) resolve(reply Reply) {
	c.once.Do(func() {
		c.done <- reply
	})
}

// The channel receiving the reply once the command is resolved.
func (c *Command) Done() <-chan Reply {
	return c.done
}

//
// Verb encoders.  Keys must already be validated.
//

func getCommand(key string) *Command {
	return NewCommand("get "+key, key, nil, false)
}

func gatCommand(key string, ttl int) *Command {
	return NewCommand("gat "+strconv.Itoa(ttl)+" "+key, key, nil, false)
}

// mode is "" for set, "ME" for add and "MR" for replace.
func metaSetCommand(key string, value []byte, mode string, ttl int) *Command {
	params := []string{"ms", key, strconv.Itoa(len(value))}
	if mode != "" {
		params = append(params, mode)
	}
	if ttl > 0 {
		params = append(params, "T"+strconv.Itoa(ttl))
	}

	if value == nil {
		value = []byte{}
	}
	return NewCommand(strings.Join(params, " "), key, value, false)
}

func deleteCommand(key string) *Command {
	return NewCommand("delete "+key+" noreply", key, nil, true)
}

func touchCommand(key string, ttl int) *Command {
	return NewCommand(
		"touch "+key+" "+strconv.Itoa(ttl)+" noreply",
		key,
		nil,
		true)
}

func incrementCommand(key string, offset uint64, initial uint64, ttl int) *Command {
	params := []string{
		"ma",
		key,
		"N" + strconv.Itoa(ttl),
		"D" + strconv.FormatUint(offset, 10),
		"J" + strconv.FormatUint(initial, 10),
		"v",
	}
	if ttl > 0 {
		params = append(params, "T"+strconv.Itoa(ttl))
	}
	return NewCommand(strings.Join(params, " "), key, nil, false)
}

func decrementCommand(key string, offset uint64, initial uint64, ttl int) *Command {
	params := []string{
		"ma",
		key,
		"D" + strconv.FormatUint(offset, 10),
		"J" + strconv.FormatUint(initial, 10),
		"MD",
		"v",
	}
	if ttl > 0 {
		params = append(params, "N"+strconv.Itoa(ttl))
	}
	return NewCommand(strings.Join(params, " "), key, nil, false)
}

func flushCommand() *Command {
	return NewCommand("flush_all", "", nil, false)
}

func formatCounter(value uint64) string {
	return strconv.FormatUint(value, 10)
}

func parseCounter(value []byte) (uint64, bool) {
	result, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		return 0, false
	}
	return result, true
}
