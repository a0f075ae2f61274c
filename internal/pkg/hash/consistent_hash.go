package hash

import (
	"slices"
	"strconv"
	"sync"
)

const defaultReplicas = 100

// Ring maps keys onto named nodes with consistent hashing. Each node owns
// replicas virtual points, so removing a node only moves the keys it owned.
type Ring struct {
	mu       sync.RWMutex
	hashFunc func(data []byte) uint64
	replicas int
	points   []uint64          // sorted
	owners   map[uint64]string // point to node
	nodes    map[string]struct{}
}

// RingOption configures a Ring.
type RingOption func(r *Ring)

// WithReplicas sets the number of virtual points per node.
func WithReplicas(n int) RingOption {
	return func(r *Ring) {
		if n > 0 {
			r.replicas = n
		}
	}
}

// WithHashFunc replaces the default murmur3 hash.
func WithHashFunc(fn func(data []byte) uint64) RingOption {
	return func(r *Ring) {
		r.hashFunc = fn
	}
}

// NewRing creates an empty Ring.
func NewRing(opts ...RingOption) *Ring {
	r := &Ring{
		hashFunc: Hash,
		replicas: defaultReplicas,
		owners:   make(map[uint64]string),
		nodes:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Ring) point(node string, i int) uint64 {
	return r.hashFunc([]byte(node + "#" + strconv.Itoa(i)))
}

// Add places node on the ring. Adding a known node is a no-op.
func (r *Ring) Add(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[node]; ok {
		return
	}
	r.nodes[node] = struct{}{}
	for i := 0; i < r.replicas; i++ {
		p := r.point(node, i)
		// on a collision the first owner keeps the point
		if _, taken := r.owners[p]; taken {
			continue
		}
		r.owners[p] = node
		r.points = append(r.points, p)
	}
	slices.Sort(r.points)
}

// Remove takes node off the ring.
func (r *Ring) Remove(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[node]; !ok {
		return
	}
	delete(r.nodes, node)
	kept := r.points[:0]
	for _, p := range r.points {
		if r.owners[p] == node {
			delete(r.owners, p)
			continue
		}
		kept = append(kept, p)
	}
	r.points = kept
}

// Owner returns the node responsible for key.
func (r *Ring) Owner(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.points) == 0 {
		return "", false
	}
	h := r.hashFunc([]byte(key))
	i, _ := slices.BinarySearch(r.points, h)
	if i == len(r.points) {
		i = 0
	}
	return r.owners[r.points[i]], true
}

// Len returns the number of nodes.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}
