package net2

import (
	"net"
	"strings"
	"time"
)

const defaultDialTimeout = 1 * time.Second

type ConnectionOptions struct {
	// The maximum amount of time a connect may take.  A non-positive value
	// means the 1 second default.
	DialTimeout time.Duration

	// Dial specifies the dial function for creating network connections.
	// If Dial is nil, a net.Dialer (or the SOCKS5 proxy, when configured) is
	// used with DialTimeout.
	Dial func(network string, address string) (net.Conn, error)

	// When non-empty, connections are tunneled through the SOCKS5 proxy at
	// this host:port.  Ignored when Dial is set.
	SocksProxy string

	// This specifies the now time function.  When the function is non-nil,
	// deadlines are computed from it instead of time.Now.
	NowFunc func() time.Time

	// This specifies the timeout for any Read() operation.  Zero disables the
	// read deadline, which is what long lived pipelined readers want.
	ReadTimeout time.Duration

	// This specifies the timeout for any Write() operation.
	WriteTimeout time.Duration
}

func (o ConnectionOptions) getCurrentTime() time.Time {
	if o.NowFunc == nil {
		return time.Now()
	} else {
		return o.NowFunc()
	}
}

func (o ConnectionOptions) dialTimeout() time.Duration {
	if o.DialTimeout <= 0 {
		return defaultDialTimeout
	}
	return o.DialTimeout
}

// ParseResourceLocation splits a server location into its (network, address)
// pair.  Locations are either "host:port", "unix:/path/to/socket" or an
// explicit "<network> <address>".
func ParseResourceLocation(resourceLocation string) (
	network string,
	address string) {

	idx := strings.Index(resourceLocation, " ")
	if idx >= 0 {
		return resourceLocation[:idx], resourceLocation[idx+1:]
	}

	if strings.HasPrefix(resourceLocation, "unix:") {
		return "unix", resourceLocation[len("unix:"):]
	}

	return "tcp", resourceLocation
}
