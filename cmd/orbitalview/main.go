package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/orbitalview/config"
	"github.com/signalsfoundry/orbitalview/feed"
	"github.com/signalsfoundry/orbitalview/internal/logging"
	"github.com/signalsfoundry/orbitalview/internal/observability"
	"github.com/signalsfoundry/orbitalview/model"
	"github.com/signalsfoundry/orbitalview/playback"
	"github.com/signalsfoundry/orbitalview/scene"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	feedURL := flag.String("url", "", "live feed websocket URL (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (overrides config)")
	tick := flag.Duration("tick", time.Second, "playback tick interval")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.Err(err))
		os.Exit(1)
	}
	if *feedURL != "" {
		cfg.Feed.URL = *feedURL
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewFeedCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(cfg.Metrics.Addr, collector, log)

	state := scene.NewSceneState(
		scene.WithLogger(log),
		scene.WithMetrics(collector),
	)

	channel := feed.NewChannel(
		cfg.Feed.URL,
		feed.WithLogger(log),
		feed.WithMetrics(collector),
		feed.WithBackoff(cfg.Feed.ReconnectFloor(), cfg.Feed.ReconnectCeiling(), cfg.Feed.ReconnectGrowth),
		feed.WithHandler(func(ctx context.Context, snap *model.Snapshot) {
			state.ApplySnapshot(ctx, snap)
		}),
	)

	// The clock animates orbital positions between feed updates; point
	// categories only move when a new snapshot arrives.
	clock := playback.NewTicker(*tick)
	clock.AddListener(func(now time.Time) {
		for _, r := range state.Renderables(model.CategorySatellite) {
			pos, ok := r.PositionAt(now)
			if !ok {
				continue
			}
			log.Debug(ctx, "satellite position",
				logging.String("name", r.Appearance.Label),
				logging.Float64("lon", pos.Longitude),
				logging.Float64("lat", pos.Latitude),
				logging.Float64("alt_m", pos.Altitude),
			)
		}
	})

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tickerDone := clock.Start(stopCtx)
	channel.Connect(stopCtx)
	log.Info(ctx, "orbitalview client started",
		logging.String("feed_url", cfg.Feed.URL),
		logging.String("metrics_addr", cfg.Metrics.Addr),
	)

	<-stopCtx.Done()
	log.Info(ctx, "shutting down")

	channel.Close()
	<-tickerDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.FeedCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
