package ring

import (
	"fmt"
	"math"
	"slices"
)

// maxProbes bounds the random samples tried for each control point.
const maxProbes = 100

// randomPoints picks n unused control points. Points already owned by the ring
// and points chosen earlier in the same batch are both rejected. Nothing is
// written to the ring, so a failed call leaves it untouched.
func (r *Ring[N]) randomPoints(n int) ([]int, error) {
	if free := r.size - len(r.owners); n > free {
		return nil, fmt.Errorf("%w: %d points requested, %d free (range %d)",
			ErrPointExhaustion, n, free, r.size)
	}

	points := make([]int, 0, n)
	chosen := make(map[int]struct{}, n)

	for i := 0; i < n; i++ {
		placed := false
		for probe := 0; probe < maxProbes; probe++ {
			p := r.rnd.IntN(r.size)
			if _, taken := r.owners[p]; taken {
				continue
			}
			if _, taken := chosen[p]; taken {
				continue
			}
			chosen[p] = struct{}{}
			points = append(points, p)
			placed = true
			break
		}
		if !placed {
			return nil, fmt.Errorf("%w: point %d of %d after %d probes (range %d)",
				ErrPointExhaustion, i+1, n, maxProbes, r.size)
		}
	}

	return points, nil
}

// placeUniform assigns points to every pending entry in one pass. Pending
// entry i gets weight points spaced pending*step apart, offset by step*i, so
// the points of different nodes interleave around the ring.
func (r *Ring[N]) placeUniform() {
	var slots []int
	var pending []*entry[N]
	for i, e := range r.entries {
		if e.pending {
			slots = append(slots, i)
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		return
	}

	if r.orderNodes != nil {
		slices.SortStableFunc(pending, func(a, b *entry[N]) int {
			return r.orderNodes(a.node, b.node)
		})
		for k, slot := range slots {
			r.entries[slot] = pending[k]
		}
	}

	count := len(pending)
	step := float64(r.size) / float64(count*r.weight)
	for i, e := range pending {
		e.points = make([]int, r.weight)
		for j := 0; j < r.weight; j++ {
			p := int(math.Round(step*float64(i) + step/2 + step*float64(count)*float64(j)))
			e.points[j] = p % r.size
		}
		e.pending = false
	}

	r.pending = 0
	r.ownersDirty = true
	r.indexDirty = true
}
