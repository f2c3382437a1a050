package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AaronLay10/SemanticZoom/internal/api"
	"github.com/AaronLay10/SemanticZoom/internal/config"
	"github.com/AaronLay10/SemanticZoom/internal/events"
	"github.com/AaronLay10/SemanticZoom/internal/layout"
	"github.com/AaronLay10/SemanticZoom/internal/miner"
	"github.com/AaronLay10/SemanticZoom/internal/mqtt"
	"github.com/AaronLay10/SemanticZoom/internal/storage/postgres"
	"github.com/AaronLay10/SemanticZoom/internal/version"
)

const healthInterval = 10 * time.Second

func loadConfig() (*config.ViewerConfig, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.LoadViewerConfig(configPath)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	hostname, _ := os.Hostname()
	logEvent("info", "system.startup", "viewer starting", map[string]interface{}{
		"service":  "semzoom",
		"viewer":   cfg.Viewer.Name,
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
		"miner":    cfg.Miner.URL,
	})

	api.InitTLS()
	if err := api.InitAuth(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mc := miner.New(cfg.Miner.URL, cfg.Miner.Timeout)
	dot := layout.NewGraphviz(cfg.Layout.DotPath, cfg.Layout.Timeout)
	api.SetLayoutAvailable(dot.Available())
	if !dot.Available() {
		log.Printf("layout engine %q not found; nets cannot be rendered", cfg.Layout.DotPath)
	}

	opts := api.Options{
		Config:  cfg,
		Miner:   mc,
		Layout:  dot,
		Metrics: api.NewMetrics(cfg.Viewer.Name),
	}

	var pg *postgres.Client
	if cfg.Postgres.Enabled {
		api.SetPostgresOptional(false)
		pg, err = postgres.New(cfg.Viewer.Name)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pg.Close()
		api.SetPostgresConnected(true)
		events.SetStore(pg)
		opts.History = pg
		opts.OnDiscovered = func(ctx context.Context, sessionID, fileName string, res *miner.Result) {
			d := postgres.Discovery{
				LogID:     res.LogID,
				FileName:  fileName,
				SessionID: sessionID,
				Places:    len(res.Graph.Places()),
				Trans:     len(res.Graph.Transitions()),
				Links:     len(res.Graph.Links),
			}
			if err := pg.RecordDiscovery(ctx, d); err != nil {
				log.Printf("record discovery %s: %v", res.LogID, err)
			}
		}
	}

	var broker *mqtt.Client
	if cfg.MQTT.Enabled {
		api.SetMQTTOptional(false)
		broker = mqtt.NewClient(cfg.MQTT.Prefix + "-" + cfg.Viewer.Name)
		if err := broker.Connect(); err != nil {
			log.Printf("mqtt connect failed, retrying in background: %v", err)
		}
		defer broker.Disconnect()
		status := mqtt.NewStatusPublisher(broker, cfg.MQTT.Prefix, cfg.Viewer.Name)
		opts.OnStatus = status.PublishStatus
	}

	server := api.NewServer(opts)

	if broker != nil {
		controls := mqtt.NewControlSubscriber(broker, cfg.MQTT.Prefix, server.Sessions())
		if err := controls.Start(); err != nil {
			log.Printf("mqtt control subscription failed: %v", err)
		}
		monitor := mqtt.NewMonitor(broker, api.SetMQTTConnected)
		monitor.Start(healthInterval)
		defer monitor.Stop()
	}

	alerter := api.NewAlerter(cfg.Viewer.Name)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})
	g.Go(func() error {
		alerter.Run(gctx, healthInterval)
		return nil
	})
	g.Go(func() error {
		pingLoop(gctx, "miner", mc.Ping, api.SetMinerReachable)
		return nil
	})
	if pg != nil {
		g.Go(func() error {
			pingLoop(gctx, "postgres", pg.Ping, api.SetPostgresConnected)
			return nil
		})
	}

	err = g.Wait()
	alerter.Wait()
	logEvent("info", "system.shutdown", "viewer stopped", map[string]interface{}{"viewer": cfg.Viewer.Name})
	return err
}

// pingLoop probes a dependency until ctx is done, logging state changes.
func pingLoop(ctx context.Context, name string, ping func(context.Context) error, set func(bool)) {
	last := -1
	probe := func() {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := ping(pctx)
		cancel()
		up := err == nil
		set(up)
		if state := boolInt(up); state != last {
			if up {
				log.Printf("%s reachable", name)
			} else {
				log.Printf("%s unreachable: %v", name, err)
			}
			last = state
		}
	}

	probe()
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
