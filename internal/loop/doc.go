// Package loop implements the fast control loop.
//
// Each tick performs, in order:
//
//  1. the watchdog check against the setpoint store
//  2. the PD law for every populated channel, or zero when no fresh setpoint
//  3. saturation of every command
//  4. the command write into the plant
//  5. exactly one plant step
//
// Steps 2 to 4 only read memory already held by the loop, so a run is fully
// determined by the plant and the setpoint history. [Loop.Run] drives ticks
// from a ticker on wall-clock time; [Loop.Simulate] drives them on virtual
// time for reproducible runs.
package loop
