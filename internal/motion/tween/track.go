package tween

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/interp"

	"github.com/GriffinCanCode/motionbridge/internal/element"
)

var (
	// ErrNoKeyframes is returned for a property without values.
	ErrNoKeyframes = errors.New("tween: property has no keyframes")
	// ErrOffsets is returned when offsets do not fit the keyframes.
	ErrOffsets = errors.New("tween: offsets must rise from 0 to 1 and match the keyframe count")
)

// Transform shorthands in composition order.
var shorthands = []string{"x", "y", "scale", "scaleX", "scaleY", "rotate"}

var shorthandIdentity = map[string]string{
	"x":      "0px",
	"y":      "0px",
	"scale":  "1",
	"scaleX": "1",
	"scaleY": "1",
	"rotate": "0deg",
}

func isShorthand(name string) bool {
	_, ok := shorthandIdentity[name]
	return ok
}

// defaultUnit is appended to bare numbers of length and angle properties.
func defaultUnit(name string) string {
	switch name {
	case "x", "y", "width", "height", "top", "left", "right", "bottom",
		"margin", "padding", "font-size", "border-radius",
		"margin-top", "margin-left", "margin-right", "margin-bottom",
		"padding-top", "padding-left", "padding-right", "padding-bottom":
		return "px"
	case "rotate":
		return "deg"
	default:
		return ""
	}
}

type trackKind int

const (
	numericTrack trackKind = iota
	colorTrack
	discreteTrack
)

// track interpolates one property over progress in [0, 1]. Progress
// outside that range (a spring overshooting) extrapolates numbers and
// clamps everything else.
type track struct {
	name    string
	kind    trackKind
	offsets []float64

	unit   string
	ys     []float64
	linear interp.PiecewiseLinear

	colors []rgba
	raw    []string
}

func newTrack(name string, values []string, offsets []float64) (*track, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrNoKeyframes, name)
	}
	if offsets == nil {
		offsets = evenOffsets(len(values))
	}
	if err := checkOffsets(offsets, len(values)); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	t := &track{name: name, offsets: offsets, raw: values}
	if t.fitNumbers(values) {
		return t, nil
	}
	if t.fitColors(values) {
		return t, nil
	}
	t.kind = discreteTrack
	return t, nil
}

func (t *track) fitNumbers(values []string) bool {
	ys := make([]float64, len(values))
	unit := ""
	for i, v := range values {
		n, ok := parseNumber(v)
		if !ok {
			return false
		}
		if n.unit == "" {
			n.unit = defaultUnit(t.name)
		}
		// A bare zero adopts the unit of its neighbours.
		if n.value == 0 && n.unit == "" {
			n.unit = unit
		}
		if unit == "" {
			unit = n.unit
		} else if n.unit != "" && n.unit != unit {
			return false
		}
		ys[i] = n.value
	}
	if err := t.linear.Fit(t.offsets, ys); err != nil {
		return false
	}
	t.kind = numericTrack
	t.unit = unit
	t.ys = ys
	return true
}

func (t *track) fitColors(values []string) bool {
	colors := make([]rgba, len(values))
	for i, v := range values {
		c, ok := parseColor(v)
		if !ok {
			return false
		}
		colors[i] = c
	}
	t.kind = colorTrack
	t.colors = colors
	return true
}

// number returns the numeric value at progress p.
func (t *track) number(p float64) float64 {
	n := len(t.offsets)
	switch {
	case p < 0:
		slope := (t.ys[1] - t.ys[0]) / (t.offsets[1] - t.offsets[0])
		return t.ys[0] + slope*p
	case p > 1:
		slope := (t.ys[n-1] - t.ys[n-2]) / (t.offsets[n-1] - t.offsets[n-2])
		return t.ys[n-1] + slope*(p-1)
	default:
		return t.linear.Predict(p)
	}
}

// at renders the property value at progress p.
func (t *track) at(p float64) string {
	switch t.kind {
	case numericTrack:
		return formatNumber(t.number(p), t.unit)
	case colorTrack:
		i, local := t.segment(p)
		switch {
		case local <= 0:
			return t.colors[i].String()
		case local >= 1:
			return t.colors[i+1].String()
		}
		return blend(t.colors[i], t.colors[i+1], local).String()
	default:
		i, local := t.segment(p)
		if local >= 1 {
			return t.raw[i+1]
		}
		return t.raw[i]
	}
}

// segment locates p between two keyframes and returns the index of the
// first one and the local progress between them.
func (t *track) segment(p float64) (int, float64) {
	p = clamp01(p)
	last := len(t.offsets) - 2
	for i := 0; i <= last; i++ {
		if p <= t.offsets[i+1] || i == last {
			span := t.offsets[i+1] - t.offsets[i]
			return i, clamp01((p - t.offsets[i]) / span)
		}
	}
	return last, 1
}

func evenOffsets(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / float64(n-1)
	}
	return out
}

func checkOffsets(offsets []float64, n int) error {
	if len(offsets) != n || offsets[0] != 0 || offsets[n-1] != 1 {
		return ErrOffsets
	}
	for i := 1; i < n; i++ {
		if offsets[i] <= offsets[i-1] {
			return ErrOffsets
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}

// composeTransform joins shorthand values in their fixed order.
func composeTransform(values map[string]string) string {
	parts := make([]string, 0, len(values))
	for _, name := range shorthands {
		v, ok := values[name]
		if !ok {
			continue
		}
		switch name {
		case "x":
			parts = append(parts, "translateX("+v+")")
		case "y":
			parts = append(parts, "translateY("+v+")")
		default:
			parts = append(parts, name+"("+v+")")
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

// wireName is the style property a keyframe name writes to.
func wireName(name string) string {
	if isShorthand(name) {
		return "transform"
	}
	return element.Kebab(name)
}
