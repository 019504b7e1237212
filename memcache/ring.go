package memcache

import (
	"strconv"

	"github.com/memshard/memshard/hash2/hashring"
	"github.com/memshard/memshard/stats"
)

// Routes keys to connections.  Read only after construction.
type ring struct {
	conns  []*Connection
	points *hashring.HashRing

	ok          []stats.CounterStat
	failover    []stats.CounterStat
	unavailable []stats.CounterStat
}

func newRing(
	conns []*Connection,
	pointsPerServer int,
	statsFactory stats.StatsFactory) *ring {

	addrs := make([]string, len(conns))
	r := &ring{
		conns:       conns,
		ok:          make([]stats.CounterStat, len(conns)),
		failover:    make([]stats.CounterStat, len(conns)),
		unavailable: make([]stats.CounterStat, len(conns)),
	}
	for i, conn := range conns {
		addrs[i] = conn.Addr()

		tags := map[string]string{"addr": conn.Addr()}
		r.ok[i] = statsFactory.NewCounter(statRingOk, tags)
		r.failover[i] = statsFactory.NewCounter(statRingFailover, tags)
		r.unavailable[i] = statsFactory.NewCounter(statRingUnavailable, tags)
	}

	if len(conns) > 1 {
		r.points = hashring.New(addrs, pointsPerServer)
	}
	return r
}

// The shard index owning key, ignoring liveness.  With a single server no
// hash is computed.
func (r *ring) shard(key string) int {
	if r.points == nil {
		return 0
	}
	return r.points.Locate(hashring.KeyHash(key))
}

// Returns a live connection for key.  When the owning shard is down, the
// key is rehashed as strconv.Itoa(i) + key for i = 0, 1, ... to pick another
// ring position, up to one attempt per server.
func (r *ring) lookup(key string) (*Connection, error) {
	if len(r.conns) == 0 {
		return nil, ErrNoConnection
	}
	if r.points == nil {
		return r.conns[0], nil
	}

	primary := r.shard(key)
	idx := primary
	for i := 0; i < len(r.conns); i++ {
		if r.conns[idx].IsAlive() {
			if idx == primary {
				r.ok[idx].Inc()
			} else {
				r.failover[primary].Inc()
			}
			return r.conns[idx], nil
		}
		idx = r.points.Locate(hashring.KeyHash(strconv.Itoa(i) + key))
	}

	r.unavailable[primary].Inc()
	return nil, ErrNoConnection
}
