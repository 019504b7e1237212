// Command memshard runs single cache operations against a sharded set of
// memcache servers.
//
//	memshard --servers 10.0.0.1:11211,10.0.0.2:11211 set greeting hello --ttl 60
//	memshard get greeting
//
// Every flag can also be given as a MEMSHARD_ prefixed environment variable
// (MEMSHARD_SERVERS, MEMSHARD_WAIT_TIMEOUT ...), or in a .env / .env.local
// file in the working directory.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
