package net2

import (
	"context"
	"net"

	"golang.org/x/net/proxy"

	"github.com/memshard/memshard/errors"
)

// Dial connects to resourceLocation (see ParseResourceLocation) and returns a
// connection which applies the read / write timeouts of options to every
// operation.
func Dial(
	ctx context.Context,
	resourceLocation string,
	options ConnectionOptions) (net.Conn, error) {

	network, address := ParseResourceLocation(resourceLocation)

	raw, err := dialRaw(ctx, network, address, options)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to dial %s", resourceLocation)
	}

	return &DeadlineConn{
		Conn:    raw,
		options: options,
	}, nil
}

func dialRaw(
	ctx context.Context,
	network string,
	address string,
	options ConnectionOptions) (net.Conn, error) {

	if options.Dial != nil {
		return options.Dial(network, address)
	}

	ctx, cancel := context.WithTimeout(ctx, options.dialTimeout())
	defer cancel()

	direct := &net.Dialer{Timeout: options.dialTimeout()}
	if options.SocksProxy == "" || network == "unix" {
		return direct.DialContext(ctx, network, address)
	}

	dialer, err := proxy.SOCKS5("tcp", options.SocksProxy, nil, direct)
	if err != nil {
		return nil, errors.Wrapf(
			err,
			"Invalid socks proxy %s",
			options.SocksProxy)
	}
	if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
		return ctxDialer.DialContext(ctx, network, address)
	}
	return dialer.Dial(network, address)
}

// A net.Conn which sets a fresh deadline before each Read / Write, based on
// the ConnectionOptions it was dialed with.
type DeadlineConn struct {
	net.Conn

	options ConnectionOptions
}

// See net.Conn for documentation
func (c *DeadlineConn) Read(b []byte) (n int, err error) {
	if c.options.ReadTimeout > 0 {
		deadline := c.options.getCurrentTime().Add(c.options.ReadTimeout)
		_ = c.Conn.SetReadDeadline(deadline)
	}
	n, err = c.Conn.Read(b)
	if err != nil {
		err = errors.Wrap(err, "Read error")
	}
	return
}

// See net.Conn for documentation
func (c *DeadlineConn) Write(b []byte) (n int, err error) {
	if c.options.WriteTimeout > 0 {
		deadline := c.options.getCurrentTime().Add(c.options.WriteTimeout)
		_ = c.Conn.SetWriteDeadline(deadline)
	}
	n, err = c.Conn.Write(b)
	if err != nil {
		err = errors.Wrap(err, "Write error")
	}
	return
}

// This returns the underlying net.Conn implementation.
func (c *DeadlineConn) RawConn() net.Conn {
	return c.Conn
}

var _ net.Conn = &DeadlineConn{}
