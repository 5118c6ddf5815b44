// Package dynamo provides the plant primitives shared by the physics engine
// and the control loop.
//
//   - [State]: plant state vector, positions first then velocities
//   - [Control]: actuator command vector
//   - [System]: actuated ODE (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator
//
// # Allocation
//
// [System.Derive] and [Integrator.Step] write into caller-owned buffers so a
// plant can be stepped from a real-time loop without producing garbage.
package dynamo
