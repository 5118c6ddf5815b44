// Package rt holds helpers for running the control loop on a dedicated,
// fixed-period execution context: thread pinning and a tick time budget.
package rt
