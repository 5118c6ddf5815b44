// Package physics provides actuated plant models for the control loop.
//
// Each model implements [dynamo.System] with one actuator per generalized
// coordinate:
//
//   - [Joints]: independent rotors with inertia, damping and an optional spring
//   - [Chain]: spring-coupled masses between two walls, every mass actuated
//
// Both implement [dynamo.Configurable] and [dynamo.Hamiltonian].
package physics
