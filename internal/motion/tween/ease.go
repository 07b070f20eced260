package tween

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

// ErrUnknownEase is returned for an easing name the engine does not know.
var ErrUnknownEase = errors.New("tween: unknown easing")

// Easing maps linear progress in [0, 1] to eased progress.
type Easing func(t float64) float64

const backOvershoot = 1.70158

var easings = map[string]Easing{
	"linear":     func(t float64) float64 { return t },
	"easeIn":     func(t float64) float64 { return t * t * t },
	"easeOut":    func(t float64) float64 { return 1 - math.Pow(1-t, 3) },
	"easeInOut":  mirrored(func(t float64) float64 { return t * t * t }),
	"circIn":     circIn,
	"circOut":    reversed(circIn),
	"circInOut":  mirrored(circIn),
	"backIn":     backIn,
	"backOut":    reversed(backIn),
	"backInOut":  mirrored(backIn),
	"anticipate": anticipate,
}

// LookupEase returns the easing registered under name. The empty name is
// easeInOut.
func LookupEase(name string) (Easing, error) {
	if name == "" {
		name = "easeInOut"
	}
	e, ok := easings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEase, name)
	}
	return e, nil
}

// Easings returns the registered easing names in sorted order.
func Easings() []string {
	return slices.Sorted(maps.Keys(easings))
}

func circIn(t float64) float64 {
	return 1 - math.Sqrt(1-math.Min(1, t*t))
}

func backIn(t float64) float64 {
	return t * t * ((backOvershoot+1)*t - backOvershoot)
}

func anticipate(t float64) float64 {
	if t >= 1 {
		return 1
	}
	t *= 2
	if t < 1 {
		return 0.5 * backIn(t)
	}
	return 0.5 * (2 - math.Pow(2, -10*(t-1)))
}

func reversed(e Easing) Easing {
	return func(t float64) float64 { return 1 - e(1-t) }
}

func mirrored(e Easing) Easing {
	return func(t float64) float64 {
		if t <= 0.5 {
			return e(2*t) / 2
		}
		return (2 - e(2*(1-t))) / 2
	}
}
