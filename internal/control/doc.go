// Package control provides the deterministic feedback law of the fast loop.
//
//   - [PD]: proportional-derivative position law with fixed gains
//   - [Limits]: per-channel actuator saturation
//   - [Law]: PD followed by saturation over a command vector
//
// # Usage
//
//	pd, _ := control.NewPD(500, 50)
//	lim, _ := control.UniformLimits(6, -1000, 1000)
//	law := control.NewLaw(pd, lim)
//	law.Compute(targets, q, v, out)
//
// Saturation is not optional: every command leaving a [Law] is finite and
// inside its channel bounds.
package control
