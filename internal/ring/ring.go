package ring

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
)

const (
	// DefaultRange is the default ring capacity.
	DefaultRange = 100000
	// DefaultWeight is the default number of control points per node.
	DefaultWeight = 40
)

// Distribution selects how control points are placed.
type Distribution int

const (
	// Random samples each control point uniformly at random.
	Random Distribution = iota
	// Uniform spaces the points of all pending nodes evenly at lookup time.
	Uniform
)

// String returns the string representation of Distribution.
func (d Distribution) String() string {
	switch d {
	case Random:
		return "random"
	case Uniform:
		return "uniform"
	default:
		return "unknown"
	}
}

// ParseDistribution parses "random" or "uniform". An empty string is Random.
func ParseDistribution(s string) (Distribution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "random":
		return Random, nil
	case "uniform":
		return Uniform, nil
	default:
		return Random, fmt.Errorf("unknown distribution %q (expected random or uniform)", s)
	}
}

// Options configures a Ring. Zero values select the defaults.
type Options[N comparable] struct {
	Range        int
	Weight       int
	Distribution Distribution
	// OrderNodes reorders newly pending nodes before uniform placement so that
	// rings built in different processes end up with the same layout.
	OrderNodes func(a, b N) int
	Hash       Hasher
	// Rand is the source for random placement. If nil, a runtime-seeded
	// source is used.
	Rand *rand.Rand
}

// entry is one Add call: a node and the control points it owns.
type entry[N comparable] struct {
	node    N
	points  []int
	pending bool // waiting for uniform placement
}

// Ring implements consistent hashing over nodes of type N.
// It is safe for concurrent use; reads may rebuild derived state, so every
// method takes the same exclusive lock.
type Ring[N comparable] struct {
	mu sync.Mutex

	size         int
	weight       int
	distribution Distribution
	orderNodes   func(a, b N) int
	hash         Hasher
	rnd          *rand.Rand

	entries []*entry[N]
	owners  map[int]N // control point -> node
	pending int

	// Derived state, rebuilt by prepare.
	index       []int
	indexDirty  bool
	ownersDirty bool
}

// New creates an empty ring.
func New[N comparable](opts Options[N]) *Ring[N] {
	r := &Ring[N]{
		size:         opts.Range,
		weight:       opts.Weight,
		distribution: opts.Distribution,
		orderNodes:   opts.OrderNodes,
		hash:         opts.Hash,
		rnd:          opts.Rand,
		owners:       make(map[int]N),
	}
	if r.size <= 0 {
		r.size = DefaultRange
	}
	if r.weight <= 0 {
		r.weight = DefaultWeight
	}
	if r.hash == nil {
		r.hash = PJWHash
	}
	if r.rnd == nil {
		r.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return r
}

// Add adds node with the default weight.
func (r *Ring[N]) Add(node N) error {
	return r.AddWeighted(node, 0)
}

// AddWeighted adds a new entry for node owning weight control points. A
// weight <= 0 selects the default. Uniform rings always use the default weight
// and defer placement until the next read.
//
// Adding a node that is already present creates a second, independent entry,
// which increases its share of keys.
func (r *Ring[N]) AddWeighted(node N, weight int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.distribution == Uniform {
		r.entries = append(r.entries, &entry[N]{node: node, pending: true})
		r.pending++
		r.ownersDirty = true
		r.indexDirty = true
		return nil
	}

	if weight <= 0 {
		weight = r.weight
	}
	points, err := r.randomPoints(weight)
	if err != nil {
		return fmt.Errorf("add node %v: %w", node, err)
	}
	r.appendEntry(node, points)
	return nil
}

// AddPoints adds a new entry for node at exactly the given control points.
// Duplicate points are not checked; a shared point resolves to whichever
// entry was written last.
func (r *Ring[N]) AddPoints(node N, points ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.appendEntry(node, append([]int(nil), points...))
}

func (r *Ring[N]) appendEntry(node N, points []int) {
	r.entries = append(r.entries, &entry[N]{node: node, points: points})
	for _, p := range points {
		r.owners[p] = node
	}
	r.indexDirty = true
}

// Remove removes every entry for node. Removing an absent node is a no-op.
// Points of the remaining nodes keep their positions, including on uniform
// rings.
func (r *Ring[N]) Remove(node N) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for i := 0; i < len(r.entries); {
		e := r.entries[i]
		if e.node != node {
			i++
			continue
		}

		for _, p := range e.points {
			delete(r.owners, p)
		}
		if e.pending {
			r.pending--
		}

		last := len(r.entries) - 1
		r.entries[i] = r.entries[last]
		r.entries[last] = nil
		r.entries = r.entries[:last]
		removed = true
	}

	if removed {
		r.indexDirty = true
		r.ownersDirty = true
	}
}

// Clone returns an independent copy of the ring. The copy shares the random
// source of r, so placements on either ring advance the same sequence.
func (r *Ring[N]) Clone() *Ring[N] {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Ring[N]{
		size:         r.size,
		weight:       r.weight,
		distribution: r.distribution,
		orderNodes:   r.orderNodes,
		hash:         r.hash,
		rnd:          r.rnd,
		entries:      make([]*entry[N], len(r.entries)),
		owners:       maps.Clone(r.owners),
		pending:      r.pending,
		index:        slices.Clone(r.index),
		indexDirty:   r.indexDirty,
		ownersDirty:  r.ownersDirty,
	}
	for i, e := range r.entries {
		c.entries[i] = &entry[N]{node: e.node, points: slices.Clone(e.points), pending: e.pending}
	}
	return c
}

// Nodes returns one element per entry, so a node added twice appears twice.
func (r *Ring[N]) Nodes() []N {
	r.mu.Lock()
	defer r.mu.Unlock()

	nodes := make([]N, len(r.entries))
	for i, e := range r.entries {
		nodes[i] = e.node
	}
	return nodes
}

// Points returns the control points owned by node, resolving any pending
// uniform placement first. It returns false if node is not in the ring.
func (r *Ring[N]) Points(node N) ([]int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prepare()

	var points []int
	found := false
	for _, e := range r.entries {
		if e.node == node {
			found = true
			points = append(points, e.points...)
		}
	}
	return points, found
}

// Len returns the number of active control points.
func (r *Ring[N]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prepare()
	return len(r.index)
}

// Distribution returns how many control points each node owns.
func (r *Ring[N]) Distribution() map[N]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prepare()
	dist := make(map[N]int)
	for _, e := range r.entries {
		dist[e.node] += len(e.points)
	}
	return dist
}

// Get returns the node responsible for key.
// Returns (node, true) if found, (zero, false) if the ring is empty.
func (r *Ring[N]) Get(key string) (N, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prepare()

	var zero N
	idx := r.locate(key)
	if idx < 0 {
		return zero, false
	}
	node, ok := r.owners[r.index[idx]]
	return node, ok
}

// GetN returns up to count distinct nodes for key, in ring order starting at
// the key's position. The first node is the one Get returns.
func (r *Ring[N]) GetN(key string, count int) []N {
	r.mu.Lock()
	defer r.mu.Unlock()

	if count <= 0 {
		return nil
	}
	r.prepare()

	idx := r.locate(key)
	if idx < 0 {
		return nil
	}
	return r.distinctFrom(idx, count)
}

// locate returns the index position of the first control point at or after
// the key's ring position, or -1 if the ring is empty.
func (r *Ring[N]) locate(key string) int {
	return search(r.index, position(r.hash(key), r.size))
}

// distinctFrom walks the index from start, wrapping around, and collects
// distinct owners.
func (r *Ring[N]) distinctFrom(start, count int) []N {
	count = min(count, len(r.index))
	seen := make(map[N]struct{}, count)
	result := make([]N, 0, count)

	for i := 0; i < len(r.index) && len(result) < count; i++ {
		node, ok := r.owners[r.index[(start+i)%len(r.index)]]
		if !ok {
			continue
		}
		if _, dup := seen[node]; dup {
			continue
		}
		seen[node] = struct{}{}
		result = append(result, node)
	}
	return result
}

// prepare brings the derived state up to date: pending uniform placement,
// then the reverse map, then the sorted index.
func (r *Ring[N]) prepare() {
	if r.pending > 0 {
		r.placeUniform()
	}

	if r.ownersDirty {
		owners := make(map[int]N, len(r.owners))
		for _, e := range r.entries {
			for _, p := range e.points {
				owners[p] = e.node
			}
		}
		r.owners = owners
		r.ownersDirty = false
	}

	if r.indexDirty {
		r.index = buildIndex(r.entries)
		r.indexDirty = false
	}
}
