package ring

import "slices"

// searchGap is the window size at which search stops bisecting and scans.
const searchGap = 25

// search returns the index of the first value in sorted that is >= pos.
// If pos is larger than every value it wraps to 0. It returns -1 for an
// empty slice.
func search(sorted []int, pos int) int {
	if len(sorted) == 0 {
		return -1
	}

	lo, hi := 0, len(sorted)-1
	for hi-lo > searchGap {
		mid := int(uint(lo+hi) >> 1)
		if sorted[mid] < pos {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	for i := lo; i < len(sorted); i++ {
		if sorted[i] >= pos {
			return i
		}
	}
	return 0
}

// buildIndex flattens the control points of every entry into one sorted slice.
func buildIndex[N comparable](entries []*entry[N]) []int {
	n := 0
	for _, e := range entries {
		n += len(e.points)
	}

	index := make([]int, 0, n)
	for _, e := range entries {
		index = append(index, e.points...)
	}
	slices.Sort(index)
	return index
}
