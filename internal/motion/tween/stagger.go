package tween

import (
	"fmt"
	"math"
	"time"
)

// Stagger origins.
const (
	FromFirst  = "first"
	FromLast   = "last"
	FromCenter = "center"
	FromIndex  = "index"
)

// DelayFunc returns the delay of item index out of total.
type DelayFunc func(index, total int) time.Duration

// StaggerOptions shapes a stagger.
type StaggerOptions struct {
	Start time.Duration
	// From is one of FromFirst (default), FromLast, FromCenter or
	// FromIndex, which staggers outward from Index.
	From  string
	Index int
	// Ease distributes the delays; linear when empty.
	Ease string
}

// Stagger returns a DelayFunc spacing items each apart, counted from the
// origin in opts.
func Stagger(each time.Duration, opts StaggerOptions) (DelayFunc, error) {
	ease := Easing(func(t float64) float64 { return t })
	if opts.Ease != "" {
		e, err := LookupEase(opts.Ease)
		if err != nil {
			return nil, err
		}
		ease = e
	}
	switch opts.From {
	case "", FromFirst, FromLast, FromCenter, FromIndex:
	default:
		return nil, fmt.Errorf("tween: unknown stagger origin %q", opts.From)
	}

	return func(index, total int) time.Duration {
		if total < 1 {
			total = 1
		}
		origin := staggerOrigin(opts, total)
		distance := math.Abs(float64(index) - origin)
		if opts.Ease == "" {
			return opts.Start + time.Duration(distance*float64(each))
		}
		maxDistance := math.Max(origin, float64(total-1)-origin)
		if maxDistance == 0 {
			return opts.Start
		}
		maxDelay := maxDistance * float64(each)
		return opts.Start + time.Duration(ease(distance/maxDistance)*maxDelay)
	}, nil
}

func staggerOrigin(opts StaggerOptions, total int) float64 {
	switch opts.From {
	case FromLast:
		return float64(total - 1)
	case FromCenter:
		return float64(total-1) / 2
	case FromIndex:
		return float64(opts.Index)
	default:
		return 0
	}
}
