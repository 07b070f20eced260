// Package tween is the animation engine driven by the motion facades.
//
// Keyframes are interpolated per property: lengths and plain numbers
// through a piecewise linear fit over the keyframe offsets, colors in
// CIE-Lab. Transform shorthands (x, y, scale, scaleX, scaleY, rotate) are
// composed into a single transform value. Frames run on one execution
// context, so the writes of a frame coalesce into one flush.
package tween
