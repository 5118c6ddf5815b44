package setpoint

// MaxChannels is the fixed capacity of a Setpoint.
const MaxChannels = 16

// Setpoint is a Gate-authorized target position vector and the tick it was
// authorized at. Published setpoints are immutable; readers get copies.
type Setpoint struct {
	Values [MaxChannels]float64
	Count  int
	Tick   uint64
	Valid  bool
}

// Channels returns the populated prefix of Values.
func (s *Setpoint) Channels() []float64 {
	return s.Values[:s.Count]
}

// Age returns how many milliseconds have passed since the setpoint was
// authorized. A tick earlier than the authorization counts as age 0.
func (s *Setpoint) Age(now uint64) uint64 {
	if now <= s.Tick {
		return 0
	}
	return now - s.Tick
}
