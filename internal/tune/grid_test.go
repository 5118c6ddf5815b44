package tune

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/gatebridge/internal/config"
	"github.com/san-kum/gatebridge/internal/gate"
)

func baseConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Plant.Actuators = 2
	cfg.Run.Ticks = 300
	cfg.Gate.Script = []gate.Entry{{At: 0, Values: []float64{0.5, -0.5}, RefreshMs: 10, Until: 300}}
	return cfg
}

func TestNewGridSearchValidates(t *testing.T) {
	_, err := NewGridSearch([]string{"kp"}, nil)
	assert.Error(t, err)

	_, err = NewGridSearch([]string{"kp"}, [][]float64{{}})
	assert.Error(t, err)

	g, err := NewGridSearch([]string{"kp", "kd"}, [][]float64{{100, 200, 500}, {10, 50}})
	require.NoError(t, err)
	assert.Equal(t, 6, g.Size())
}

func TestSearchPicksLowestScore(t *testing.T) {
	g, err := NewGridSearch([]string{"kp", "kd"}, [][]float64{{-1, 100, 500}, {50}})
	require.NoError(t, err)

	best, score, all, err := g.Search(context.Background(), baseConfig(), "tracking_rms")
	require.NoError(t, err)
	require.Len(t, all, 3)

	// negative gain fails validation and never wins
	assert.Error(t, all[0].Err)
	assert.NotEqual(t, -1.0, best["kp"])

	for _, c := range all[1:] {
		require.NoError(t, c.Err)
		assert.LessOrEqual(t, score, c.Score)
	}
	assert.Equal(t, 50.0, best["kd"])
}

func TestSearchLeavesBaseUntouched(t *testing.T) {
	base := baseConfig()
	g, err := NewGridSearch([]string{"kp"}, [][]float64{{100}})
	require.NoError(t, err)

	_, _, _, err = g.Search(context.Background(), base, "tracking_rms")
	require.NoError(t, err)
	assert.Equal(t, 500.0, base.Gains.Kp)
}

func TestSearchUnknownMetric(t *testing.T) {
	g, err := NewGridSearch([]string{"kp"}, [][]float64{{100}})
	require.NoError(t, err)

	_, _, all, err := g.Search(context.Background(), baseConfig(), "nope")
	assert.Error(t, err)
	require.Len(t, all, 1)
	assert.Error(t, all[0].Err)
}

func TestSearchCancelled(t *testing.T) {
	g, err := NewGridSearch([]string{"kp"}, [][]float64{{100, 200}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err = g.Search(ctx, baseConfig(), "tracking_rms")
	assert.True(t, errors.Is(err, context.Canceled))
}
