package tween

import (
	"math"
	"time"
)

// Spring defaults.
const (
	DefaultStiffness = 100
	DefaultDamping   = 10
	DefaultMass      = 1

	restThreshold = 0.005
	maxSettle     = 10 * time.Second
)

// spring is a damped harmonic oscillator moving from 0 to 1.
type spring struct {
	omega float64 // undamped angular frequency
	zeta  float64 // damping ratio
}

func newSpring(stiffness, damping, mass float64) spring {
	if stiffness <= 0 {
		stiffness = DefaultStiffness
	}
	if damping < 0 {
		damping = DefaultDamping
	}
	if mass <= 0 {
		mass = DefaultMass
	}
	omega := math.Sqrt(stiffness / mass)
	return spring{
		omega: omega,
		zeta:  damping / (2 * math.Sqrt(stiffness*mass)),
	}
}

// at returns the spring position after t seconds. It may overshoot 1.
func (s spring) at(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if s.zeta < 1 {
		wd := s.omega * math.Sqrt(1-s.zeta*s.zeta)
		envelope := math.Exp(-s.zeta * s.omega * t)
		return 1 - envelope*(math.Cos(wd*t)+(s.zeta*s.omega/wd)*math.Sin(wd*t))
	}
	// Critically damped or slower: approach without overshoot.
	w := s.omega * s.zeta
	return 1 - math.Exp(-w*t)*(1+w*t)
}

// settle returns how long the spring takes to stay within the rest
// threshold, capped at maxSettle.
func (s spring) settle() time.Duration {
	decay := s.zeta * s.omega
	if s.zeta >= 1 {
		decay = s.omega * s.zeta / 2
	}
	if decay <= 0 {
		return maxSettle
	}
	d := time.Duration(-math.Log(restThreshold) / decay * float64(time.Second))
	return min(d, maxSettle)
}
