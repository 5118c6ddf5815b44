// Package viz renders the bridge in the terminal.
//
// [Dashboard] is a Bubble Tea program fed by a [Sampler] loop observer. It
// shows each channel's target, position and command, the watchdog state and
// the loop's timing budget. [PlotChannel] and [Summary] draw recorded runs.
//
// # Key Bindings
//
//	p   - Pause/resume the gate (watch the watchdog stop the plant)
//	tab - Select the channel shown in the command graph
//	t   - Cycle color themes
//	?   - Show help
//	q   - Quit
package viz
