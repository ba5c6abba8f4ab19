package ring

import "errors"

// ErrPointExhaustion is returned when random placement cannot find a free
// control point within maxProbes attempts. It means Range is too small for the
// requested number of points.
var ErrPointExhaustion = errors.New("unable to place control point")
