package memcache

import (
	"time"
)

const (
	// Keys longer than this are folded to a prefix plus their md5 digest.
	maxKeyLength = 250

	DefaultWaitTimeout       = 200 * time.Millisecond
	DefaultReconnectInterval = 1 * time.Second
	DefaultConnectTimeout    = 1 * time.Second

	// Matches the server's default item size limit.
	DefaultMaxValueSize = 1024 * 1024

	readBufferSize = 16 * 1024
)

var crlf = []byte("\r\n")

//
// Response tokens
//

const (
	// Classic protocol
	tokValue       = "VALUE"
	tokEnd         = "END"
	tokStored      = "STORED"
	tokNotStored   = "NOT_STORED"
	tokExists      = "EXISTS"
	tokNotFound    = "NOT_FOUND"
	tokDeleted     = "DELETED"
	tokTouched     = "TOUCHED"
	tokOk          = "OK"
	tokError       = "ERROR"
	tokClientError = "CLIENT_ERROR"
	tokServerError = "SERVER_ERROR"

	// Meta protocol
	tokMetaValue    = "VA"
	tokMetaHeader   = "HD"
	tokMetaNotStore = "NS"
	tokMetaExists   = "EX"
	tokMetaNotFound = "NF"
	tokMetaMiss     = "EN"
)

//
// Stat names
//

const (
	statRingOk          = "memcache.ring.ok"
	statRingFailover    = "memcache.ring.failover"
	statRingUnavailable = "memcache.ring.unavailable"

	statConnects       = "memcache.conn.connects"
	statConnectErrors  = "memcache.conn.connect_errors"
	statTimeouts       = "memcache.conn.timeouts"
	statProtocolErrors = "memcache.conn.protocol_errors"
	statServerErrors   = "memcache.conn.server_errors"
	statPending        = "memcache.conn.pending"
	statLatency        = "memcache.conn.latency_ms"
)
