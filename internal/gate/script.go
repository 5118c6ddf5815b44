package gate

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/gatebridge/internal/loop"
)

// Submitter is the gate's only write path into the bridge.
type Submitter interface {
	Submit(values []float64, count int, tick uint64) error
}

// Entry schedules values at tick At. With RefreshMs set the same values are
// republished every RefreshMs until Until (inclusive), keeping the setpoint
// fresh for the watchdog.
type Entry struct {
	At        uint64    `yaml:"at" json:"at"`
	Values    []float64 `yaml:"values" json:"values"`
	RefreshMs uint64    `yaml:"refresh_ms,omitempty" json:"refresh_ms,omitempty"`
	Until     uint64    `yaml:"until,omitempty" json:"until,omitempty"`
}

type Submission struct {
	Tick   uint64
	Values []float64
}

type Script struct {
	Entries []Entry
}

func NewScript(entries []Entry) (*Script, error) {
	s := &Script{Entries: entries}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Script) Validate() error {
	for i, e := range s.Entries {
		if len(e.Values) == 0 {
			return fmt.Errorf("entry %d: no values", i)
		}
		for j, v := range e.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("entry %d: value %d is not finite", i, j)
			}
		}
		if e.RefreshMs > 0 && e.Until < e.At {
			return fmt.Errorf("entry %d: until %d before at %d", i, e.Until, e.At)
		}
	}
	return nil
}

// Expand lists every submission in tick order. Entries that land on the same
// tick keep their declaration order; the adapter accepts only the first.
func (s *Script) Expand() []Submission {
	var subs []Submission
	for _, e := range s.Entries {
		subs = append(subs, Submission{Tick: e.At, Values: e.Values})
		if e.RefreshMs == 0 {
			continue
		}
		for t := e.At + e.RefreshMs; t <= e.Until; t += e.RefreshMs {
			subs = append(subs, Submission{Tick: t, Values: e.Values})
		}
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Tick < subs[j].Tick })
	return subs
}

// End is the last scheduled tick.
func (s *Script) End() uint64 {
	var end uint64
	for _, e := range s.Entries {
		last := e.At
		if e.RefreshMs > 0 && e.Until > last {
			last = e.Until
		}
		if last > end {
			end = last
		}
	}
	return end
}

// Cursor walks an expanded schedule forward in time.
type Cursor struct {
	subs []Submission
	next int
}

func NewCursor(subs []Submission) *Cursor {
	return &Cursor{subs: subs}
}

// Deliver submits every pending submission due at or before now, in order.
// It returns how many were submitted and the first submission error.
func (c *Cursor) Deliver(now uint64, to Submitter) (int, error) {
	var firstErr error
	n := 0
	for c.next < len(c.subs) && c.subs[c.next].Tick <= now {
		sub := c.subs[c.next]
		c.next++
		n++
		if err := to.Submit(sub.Values, len(sub.Values), sub.Tick); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return n, firstErr
}

// Skip discards pending submissions due at or before now.
func (c *Cursor) Skip(now uint64) int {
	n := 0
	for c.next < len(c.subs) && c.subs[c.next].Tick <= now {
		c.next++
		n++
	}
	return n
}

func (c *Cursor) Done() bool { return c.next >= len(c.subs) }

// Hook adapts the script for loop.Simulate. Rejections are already reported
// by the adapter, so the hook ignores them.
func (s *Script) Hook(to Submitter) loop.Hook {
	c := NewCursor(s.Expand())
	return func(now uint64) {
		_, _ = c.Deliver(now, to)
	}
}
