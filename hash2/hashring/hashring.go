// Package hashring implements the consistent hash continuum used to map
// memcache keys onto servers.
//
// Every node is placed on a 32-bit circle at PointsPerNode positions derived
// from SHA-1("<node>:<j>").  A key is hashed with CRC32 and owned by the node
// of the first point at or after the key's hash, wrapping around to the first
// point of the circle.  When points of several nodes share a hash, the node
// listed last owns that position and the other points are discarded.
package hashring

import (
	"crypto/sha1"
	"encoding/binary"
	"hash/crc32"
	"sort"
	"strconv"
)

// DefaultPointsPerNode is the number of circle positions per node.  The
// value approximates an even load split as the node count grows.
const DefaultPointsPerNode = 160

type point struct {
	hash uint32
	node int
}

type pointOrders []point

func (p pointOrders) Len() int      { return len(p) }
func (p pointOrders) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p pointOrders) Less(i, j int) bool {
	if p[i].hash == p[j].hash {
		// Later nodes first, so dedupe keeps them.
		return p[i].node > p[j].node
	}
	return p[i].hash < p[j].hash
}

// HashRing is immutable once built and safe for concurrent use.
type HashRing struct {
	points []point
	nodes  []string
}

// New builds the continuum for nodes.  A non-positive pointsPerNode uses
// DefaultPointsPerNode.
func New(nodes []string, pointsPerNode int) *HashRing {
	if pointsPerNode <= 0 {
		pointsPerNode = DefaultPointsPerNode
	}
	hashRing := &HashRing{
		points: make([]point, 0, len(nodes)*pointsPerNode),
		nodes:  append([]string(nil), nodes...),
	}
	hashRing.generateCircle(pointsPerNode)
	return hashRing
}

func (h *HashRing) generateCircle(pointsPerNode int) {
	for i, node := range h.nodes {
		for j := 0; j < pointsPerNode; j++ {
			h.points = append(h.points, point{
				hash: PointHash(node, j),
				node: i,
			})
		}
	}

	h.points = sortPoints(h.points)
}

// Sorts points around the circle, keeping one point (the one from the
// highest node index) per hash.
func sortPoints(points []point) []point {
	sort.Sort(pointOrders(points))

	unique := points[:0]
	for _, p := range points {
		if len(unique) > 0 && p.hash == unique[len(unique)-1].hash {
			continue
		}
		unique = append(unique, p)
	}
	return unique
}

// NumNodes returns the number of nodes the ring was built from.
func (h *HashRing) NumNodes() int {
	return len(h.nodes)
}

// NumPoints returns the number of positions on the circle.
func (h *HashRing) NumPoints() int {
	return len(h.points)
}

// Node returns the name of the node at index i.
func (h *HashRing) Node(i int) string {
	return h.nodes[i]
}

// Locate returns the index of the node owning hash, or -1 for an empty ring.
func (h *HashRing) Locate(hash uint32) int {
	if len(h.points) == 0 {
		return -1
	}

	points := h.points
	pos := sort.Search(len(points), func(i int) bool {
		return points[i].hash >= hash
	})
	if pos == len(points) {
		// Wrap the search, should return first node
		pos = 0
	}
	return points[pos].node
}

// GetNode returns the node owning key, or "" for an empty ring.
func (h *HashRing) GetNode(key string) string {
	idx := h.Locate(KeyHash(key))
	if idx < 0 {
		return ""
	}
	return h.nodes[idx]
}

// KeyHash is the position of key on the circle.
func KeyHash(key string) uint32 {
	return crc32.ChecksumIEEE([]byte(key))
}

// PointHash is the position of the j-th point of node: the first four bytes,
// big-endian, of SHA-1("<node>:<j>").
func PointHash(node string, j int) uint32 {
	digest := sha1.Sum([]byte(node + ":" + strconv.Itoa(j)))
	return binary.BigEndian.Uint32(digest[0:4])
}
