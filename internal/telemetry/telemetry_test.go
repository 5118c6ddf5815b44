package telemetry

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/gatebridge/internal/loop"
	"github.com/san-kum/gatebridge/internal/rt"
	"github.com/san-kum/gatebridge/internal/setpoint"
	"github.com/san-kum/gatebridge/internal/watchdog"
)

func newObserved(t *testing.T, queue int) (*Alerter, *Metrics, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	m := NewMetrics(nil)
	a := NewAlerter(zap.New(core), m, queue)
	return a, m, logs
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "console", false},
		{"debug", "json", false},
		{"", "", false},
		{"loud", "json", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			z, err := NewLogger(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, z)
			assert.True(t, Logr(z).Enabled())
		})
	}
}

func TestStaleIsFatalWithoutExit(t *testing.T) {
	a, m, logs := newObserved(t, 8)

	a.ReportStale(watchdog.StaleEvent{Tick: 151, LastUpdate: 100, SinceUpdateMs: 51, TimeoutMs: 50})
	require.NoError(t, a.Close())

	fatal := logs.FilterLevelExact(zapcore.FatalLevel)
	require.Equal(t, 1, fatal.Len())
	entry := fatal.All()[0]
	assert.Equal(t, "watchdog", entry.LoggerName)
	assert.Equal(t, uint64(51), entry.ContextMap()["sinceUpdateMs"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trips))
}

func TestAnomaliesAreWarnings(t *testing.T) {
	a, m, logs := newObserved(t, 8)

	a.ReportOverflow(setpoint.OverflowEvent{Tick: 1, Requested: 20, Accepted: 16})
	a.ReportOutOfOrder(setpoint.OutOfOrderEvent{Tick: 1, Stored: 5})
	a.ReportOverrun(rt.Overrun{Tick: 9, Elapsed: 2 * time.Millisecond, Period: time.Millisecond})
	require.NoError(t, a.Close())

	assert.Equal(t, 3, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.overflow))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outOfOrder))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.overruns))
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	a := &Alerter{log: zap.New(core), queue: make(chan alert, 2), done: make(chan struct{})}

	for i := 0; i < 5; i++ {
		a.ReportOverflow(setpoint.OverflowEvent{Tick: uint64(i)})
	}
	assert.Equal(t, uint64(3), a.Dropped())
}

func TestStaleSurvivesFullQueue(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := &Alerter{
		log:   zap.New(core),
		queue: make(chan alert, 4),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	// writer not started yet so the queue stays full
	for i := 0; i < 10; i++ {
		a.ReportOutOfOrder(setpoint.OutOfOrderEvent{Tick: uint64(i), Stored: 100})
	}
	a.ReportStale(watchdog.StaleEvent{Tick: 151, LastUpdate: 100, SinceUpdateMs: 51, TimeoutMs: 50})
	assert.Equal(t, uint64(6), a.Dropped())

	a.wg.Add(1)
	go a.run()
	require.NoError(t, a.Close())

	require.Equal(t, 1, logs.FilterLevelExact(zapcore.FatalLevel).Len())
	assert.Equal(t, 4, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, zapcore.FatalLevel, logs.All()[0].Level, "stale event written ahead of queued warnings")
}

func TestStaleAfterCloseStillWritten(t *testing.T) {
	a, _, logs := newObserved(t, 4)
	require.NoError(t, a.Close())

	a.ReportStale(watchdog.StaleEvent{Tick: 10, LastUpdate: 1, SinceUpdateMs: 9, TimeoutMs: 5})
	a.ReportOverflow(setpoint.OverflowEvent{Tick: 10})

	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.FatalLevel).Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, uint64(1), a.Dropped())
}

func TestFaultStreakLoggedOnce(t *testing.T) {
	a, _, logs := newObserved(t, 16)
	boom := errors.New("unstable")

	for tick := uint64(0); tick < 5; tick++ {
		a.OnTick(&loop.Record{Tick: tick, Err: boom})
	}
	a.OnTick(&loop.Record{Tick: 5})
	a.OnTick(&loop.Record{Tick: 6})
	require.NoError(t, a.Close())

	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("plant stepping again").Len())
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics(nil)

	m.OnTick(&loop.Record{Tick: 120, Valid: true, SetpointTick: 100, Saturated: 2})
	m.OnTick(&loop.Record{Tick: 121, Err: errors.New("x")})
	m.OnSubmit(&setpoint.Setpoint{})
	m.ObserveTickDuration(40 * time.Microsecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.saturated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.faults))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.setpointAge))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.accepted))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tickDuration))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(nil)
	m.OnTick(&loop.Record{Tick: 1})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "gatebridge_ticks_total"), "missing ticks counter in:\n%s", body)
}
