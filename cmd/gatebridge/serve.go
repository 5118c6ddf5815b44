package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/gatebridge/internal/bridge"
	"github.com/san-kum/gatebridge/internal/gate"
	"github.com/san-kum/gatebridge/internal/loop"
	"github.com/san-kum/gatebridge/internal/telemetry"
	"github.com/san-kum/gatebridge/internal/viz"
)

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := telemetry.Logr(logger)

	m := telemetry.NewMetrics(prometheus.NewRegistry())
	alerter := telemetry.NewAlerter(logger, m, 0)
	defer alerter.Close()

	b, err := bridge.New(cfg, bridge.Options{
		Logger:    log,
		Stale:     alerter,
		Anomalies: alerter,
		OnOverrun: alerter.ReportOverrun,
		OnTiming:  m.ObserveTickDuration,
	})
	if err != nil {
		return err
	}
	b.Adapter.SetObserver(m)
	b.Loop.AddObserver(m)
	b.Loop.AddObserver(alerter)

	var sampler *viz.Sampler
	if withTUI {
		sampler = viz.NewSampler()
		b.Loop.AddObserver(sampler)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := loop.NewMonotonicClock()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return clean(b.Loop.Run(ctx, clock))
	})

	var player *gate.Player
	if len(cfg.Gate.Script) > 0 {
		script, err := gate.NewScript(cfg.Gate.Script)
		if err != nil {
			return err
		}
		player = gate.NewPlayer(script, b.Adapter, clock, log)
		g.Go(func() error { return clean(player.Run(ctx)) })
	}

	if cfg.Gate.FeedFile != "" {
		feed := gate.NewFileFeed(gate.FeedConfig{
			Path:    cfg.Gate.FeedFile,
			Refresh: time.Duration(cfg.Gate.FeedRefreshMs) * time.Millisecond,
		}, b.Adapter, clock, log)
		g.Go(func() error { return clean(feed.Run(ctx)) })
	}

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("control loop started",
		zap.String("model", cfg.Plant.Model),
		zap.Int("actuators", cfg.Plant.Actuators),
		zap.Duration("period", b.Loop.Period()),
		zap.Uint64("watchdog_timeout_ms", cfg.Loop.WatchdogTimeoutMs),
	)

	if withTUI {
		var pauser viz.Pauser
		if player != nil {
			pauser = player
		}
		dash := viz.NewDashboard(viz.DashboardConfig{
			Title:   "gatebridge",
			Model:   cfg.Plant.Model,
			Sampler: sampler,
			Loop:    b.Loop,
			Limits:  b.Law.Limits(),
			Gate:    pauser,
			Palette: palette,
		})
		p := tea.NewProgram(dash, tea.WithAltScreen(), tea.WithContext(ctx))
		_, tuiErr := p.Run()
		stop()
		if err := g.Wait(); err != nil {
			return err
		}
		if tuiErr != nil && !errors.Is(tuiErr, tea.ErrProgramKilled) {
			return tuiErr
		}
	} else if err := g.Wait(); err != nil {
		return err
	}

	budget := b.Loop.Budget()
	logger.Info("control loop stopped",
		zap.Uint64("ticks", b.Loop.Ticks()),
		zap.Uint64("watchdog_trips", b.Watchdog.Trips()),
		zap.Uint64("overruns", budget.Overruns()),
		zap.Duration("worst_tick", budget.Worst()),
		zap.Uint64("alerts_dropped", alerter.Dropped()),
	)
	return nil
}

// clean treats cancellation as a normal shutdown.
func clean(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
