// A sharded memcache client which speaks memcached's ascii protocol (the
// classic get / gat / delete / touch / flush_all verbs plus the meta ms / ma
// commands).
//
// Keys are routed to servers through a consistent hash ring (160 SHA-1 points
// per server, CRC32 key hash).  Each server is served by a single pipelined
// Connection: requests are written in order and responses are matched to the
// oldest outstanding request.  A request which is not answered within the
// wait timeout resets the whole connection; a background timer reconnects
// dead connections.
//
// Network and protocol failures never reach the caller.  They are logged and
// degrade to the zero result (nil value, false, no counter).  Only invalid
// keys, and calls made after Close, return errors.
//
// See https://github.com/memcached/memcached/blob/master/doc/protocol.txt
// for additional details.
package memcache
