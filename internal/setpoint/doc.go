// Package setpoint is the hand-off surface between the governance path and
// the fast control loop.
//
// A [Store] holds one immutable [Setpoint] behind an atomic pointer. The
// [Adapter] is the single entry point that copies, truncates and stamps
// incoming setpoints before publishing them; the control loop and watchdog
// only read and invalidate.
//
// # Ordering
//
// Accepted ticks strictly increase. A submission whose tick is equal to or
// older than the stored one is rejected with [ErrOutOfOrder] and reported to
// the [AnomalyReporter]; the stored setpoint is left as it was.
package setpoint
