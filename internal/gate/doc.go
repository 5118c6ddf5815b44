// Package gate provides stand-ins for the governance authority: a scripted
// schedule for deterministic runs, a wall-clock player of the same schedule,
// and a feed that republishes setpoints read from a watched file. All of
// them write through a setpoint.Adapter and nothing else.
package gate
