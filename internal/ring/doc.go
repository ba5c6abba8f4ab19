// Package ring implements a consistent hashing ring with weighted control points.
// It maps keys to nodes while minimizing key movement when membership changes,
// places control points either randomly or on a uniform grid, and supports
// selection of distinct fallback nodes for a key.
package ring
