package setpoint

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreEmpty(t *testing.T) {
	s := NewStore()

	assert.Nil(t, s.Load())
	sp := s.Read()
	assert.False(t, sp.Valid)
	assert.Equal(t, 0, sp.Count)
	assert.Equal(t, uint64(0), sp.Tick)

	s.Invalidate()
	assert.Nil(t, s.Load(), "invalidating an empty store should not create a setpoint")
}

func TestStoreWriteRead(t *testing.T) {
	s := NewStore()
	sp := Setpoint{Count: 2, Tick: 100}
	sp.Values[0], sp.Values[1] = 1.0, 2.0

	require.NoError(t, s.Write(sp))

	got := s.Read()
	assert.True(t, got.Valid)
	assert.Equal(t, uint64(100), got.Tick)
	assert.Equal(t, []float64{1.0, 2.0}, got.Channels())
}

func TestStoreRejectsOutOfOrder(t *testing.T) {
	tests := []struct {
		name string
		tick uint64
	}{
		{"equal tick", 100},
		{"older tick", 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			first := Setpoint{Count: 1, Tick: 100}
			first.Values[0] = 7
			require.NoError(t, s.Write(first))

			err := s.Write(Setpoint{Count: 1, Tick: tt.tick})
			require.ErrorIs(t, err, ErrOutOfOrder)

			got := s.Read()
			assert.Equal(t, 7.0, got.Values[0])
			assert.Equal(t, uint64(100), got.Tick)
		})
	}
}

func TestStoreRejectsOldTickAfterInvalidate(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write(Setpoint{Count: 1, Tick: 10}))
	s.Invalidate()

	assert.ErrorIs(t, s.Write(Setpoint{Count: 1, Tick: 10}), ErrOutOfOrder)
	assert.NoError(t, s.Write(Setpoint{Count: 1, Tick: 11}))
	assert.True(t, s.Read().Valid)
}

func TestStoreRejectsBadCount(t *testing.T) {
	s := NewStore()
	assert.Error(t, s.Write(Setpoint{Count: MaxChannels + 1, Tick: 1}))
	assert.Error(t, s.Write(Setpoint{Count: -1, Tick: 1}))
	assert.Nil(t, s.Load())
}

func TestInvalidateKeepsChannels(t *testing.T) {
	s := NewStore()
	sp := Setpoint{Count: 3, Tick: 5}
	sp.Values = [MaxChannels]float64{1, 2, 3}
	require.NoError(t, s.Write(sp))

	s.Invalidate()

	got := s.Read()
	assert.False(t, got.Valid)
	assert.Equal(t, uint64(5), got.Tick)
	assert.Equal(t, []float64{1, 2, 3}, got.Channels())
}

func TestInvalidateIfSparesNewerSetpoint(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write(Setpoint{Count: 1, Tick: 1}))
	judged := s.Load()

	require.NoError(t, s.Write(Setpoint{Count: 1, Tick: 2}))

	assert.False(t, s.InvalidateIf(judged))
	assert.True(t, s.Read().Valid)
	assert.Equal(t, uint64(2), s.Read().Tick)

	assert.True(t, s.InvalidateIf(s.Load()))
	assert.False(t, s.Read().Valid)
	assert.False(t, s.InvalidateIf(s.Load()), "already invalid snapshot")
}

func TestPublishedSnapshotIsImmutable(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write(Setpoint{Count: 1, Tick: 1}))
	before := s.Load()

	s.Invalidate()

	assert.True(t, before.Valid, "invalidation must swap a new snapshot, not mutate the old one")
}

// Every writer fills all channels with its own tick; any reader that sees
// two different values in one snapshot observed a torn write.
func TestStoreNoTearing(t *testing.T) {
	s := NewStore()
	const writers = 4
	const perWriter = 2000

	var ticks sync.Mutex
	next := uint64(0)

	var wg sync.WaitGroup
	done := make(chan struct{})

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				ticks.Lock()
				next++
				tick := next
				ticks.Unlock()

				sp := Setpoint{Count: MaxChannels, Tick: tick}
				for c := range sp.Values {
					sp.Values[c] = float64(tick)
				}
				_ = s.Write(sp)
			}
		}()
	}

	torn := 0
	var rwg sync.WaitGroup
	rwg.Add(1)
	go func() {
		defer rwg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			sp := s.Read()
			if !sp.Valid {
				continue
			}
			for _, v := range sp.Values {
				if v != float64(sp.Tick) {
					torn++
					break
				}
			}
		}
	}()

	wg.Wait()
	close(done)
	rwg.Wait()

	assert.Zero(t, torn, "reader observed torn setpoints")
	assert.LessOrEqual(t, s.Read().Tick, uint64(writers*perWriter))
}
