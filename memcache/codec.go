package memcache

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/memshard/memshard/dlog"
	"github.com/memshard/memshard/stats"
)

// The decoder's view of the pending request queue.  All calls happen with
// the owning connection's lock held.
type replySink interface {
	// The oldest pending command, or nil.
	head() *Command

	// Pops the oldest pending command and resolves it.  Returns false when
	// nothing was pending.
	answer(reply Reply) bool
}

// Incremental response decoder.  Bytes are appended with feed; complete
// responses are handed to the sink in arrival order.
type decoder struct {
	addr         string
	maxValueSize int
	logger       dlog.Logger

	buf []byte

	// Raw payload collection (after VALUE or VA).
	collecting bool
	meta       bool
	expected   int

	// Classic VALUE state, resolved by END.
	haveValue bool
	value     []byte
	mismatch  *ProtocolError

	protocolErrors stats.CounterStat
	serverErrors   stats.CounterStat
}

func newDecoder(
	addr string,
	maxValueSize int,
	logger dlog.Logger,
	statsFactory stats.StatsFactory) *decoder {

	if maxValueSize <= 0 {
		maxValueSize = DefaultMaxValueSize
	}

	tags := map[string]string{"addr": addr}
	return &decoder{
		addr:           addr,
		maxValueSize:   maxValueSize,
		logger:         logger,
		protocolErrors: statsFactory.NewCounter(statProtocolErrors, tags),
		serverErrors:   statsFactory.NewCounter(statServerErrors, tags),
	}
}

// Drops all buffered bytes and partial response state.
func (d *decoder) reset() {
	d.buf = nil
	d.collecting = false
	d.meta = false
	d.expected = 0
	d.haveValue = false
	d.value = nil
	d.mismatch = nil
}

// Appends data and decodes as many complete responses as possible.  A
// non-nil return means the stream can no longer be trusted and the
// connection must be reset.
func (d *decoder) feed(data []byte, sink replySink) *ProtocolError {
	d.buf = append(d.buf, data...)

	for {
		if d.collecting {
			done, err := d.collect(sink)
			if err != nil {
				return err
			}
			if !done {
				break
			}
			continue
		}

		idx := bytes.Index(d.buf, crlf)
		if idx < 0 {
			break
		}
		line := string(d.buf[:idx])
		d.buf = d.buf[idx+len(crlf):]

		if err := d.handleLine(line, sink); err != nil {
			return err
		}
	}

	if len(d.buf) == 0 {
		// Release the backing array once fully drained.
		d.buf = nil
	}
	return nil
}

// Consumes a length delimited payload plus its CRLF terminator.  Returns
// false when more bytes are needed.
func (d *decoder) collect(sink replySink) (bool, *ProtocolError) {
	need := d.expected + len(crlf)
	if len(d.buf) < need {
		return false, nil
	}

	payload := make([]byte, d.expected)
	copy(payload, d.buf[:d.expected])
	terminator := d.buf[d.expected:need]
	d.buf = d.buf[need:]
	d.collecting = false

	if !bytes.Equal(terminator, crlf) {
		err := d.protocolError(
			"",
			"data block of %d bytes not followed by CRLF",
			d.expected)
		sink.answer(noneReply(err))
		return false, err
	}

	if d.meta {
		d.meta = false
		if !sink.answer(valueReply(payload)) {
			d.logger.Warningf(
				"Memcache %s: dropped VA response, no command waiting",
				d.addr)
		}
		return true, nil
	}

	d.haveValue = true
	d.value = payload
	return true, nil
}

func (d *decoder) handleLine(line string, sink replySink) *ProtocolError {
	fields := strings.Split(line, " ")
	token := fields[0]

	switch token {
	case tokValue:
		// VALUE <key> <flags> <bytes> [<cas unique>]
		if len(fields) < 4 {
			return d.unexpected(line, sink)
		}
		size, ok := d.parseSize(fields[3])
		if !ok {
			return d.unexpected(line, sink)
		}

		head := sink.head()
		if head == nil {
			d.logger.Warningf(
				"Memcache %s: incorrect result, no command waiting: %s",
				d.addr,
				line)
		} else if head.key != fields[1] {
			d.mismatch = d.protocolError(
				line,
				"expected key %q but received %q",
				head.key,
				fields[1])
		}

		d.collecting = true
		d.meta = false
		d.expected = size
		return nil

	case tokMetaValue:
		// VA <bytes> <flags>*
		if len(fields) < 2 {
			return d.unexpected(line, sink)
		}
		size, ok := d.parseSize(fields[1])
		if !ok {
			return d.unexpected(line, sink)
		}

		d.collecting = true
		d.meta = true
		d.expected = size
		return nil

	case tokEnd:
		var reply Reply
		if d.mismatch != nil {
			reply = noneReply(d.mismatch)
		} else if d.haveValue {
			reply = valueReply(d.value)
		} else {
			reply = noneReply(nil)
		}
		d.haveValue = false
		d.value = nil
		d.mismatch = nil

		if !sink.answer(reply) {
			d.logger.Warningf(
				"Memcache %s: dropped END response, no command waiting",
				d.addr)
		}
		return nil
	}

	if reply, ok := statusTokenReply(token); ok {
		if !sink.answer(reply) {
			d.logger.Warningf(
				"Memcache %s: dropped %s response, no command waiting",
				d.addr,
				token)
		}
		return nil
	}

	if isServerErrorToken(token) {
		d.serverErrors.Inc()
		head := sink.head()
		if head == nil {
			d.logger.Warningf(
				"Memcache %s: dropped server error, no command waiting: %s",
				d.addr,
				line)
			return nil
		}
		d.logger.Warningf(
			"Memcache %s: server error: %s\nCOMMAND:\n%s",
			d.addr,
			line,
			head.line)
		sink.answer(noneReply(nil))
		return nil
	}

	return d.unexpected(line, sink)
}

// An unrecognized line fails the head command only.  With nothing pending
// the stream is out of sync and the error is returned as fatal.
// Payload sizes above maxValueSize are treated as garbage rather than
// buffered.
func (d *decoder) parseSize(field string) (int, bool) {
	size, err := strconv.Atoi(field)
	if err != nil || size < 0 || size > d.maxValueSize {
		return 0, false
	}
	return size, true
}

func (d *decoder) unexpected(line string, sink replySink) *ProtocolError {
	err := d.protocolError(line, "unexpected response line %q", line)
	if sink.answer(noneReply(err)) {
		return nil
	}
	return err
}

func (d *decoder) protocolError(
	line string,
	format string,
	args ...interface{}) *ProtocolError {

	d.protocolErrors.Inc()
	return newProtocolError(d.addr, line, format, args...)
}
