package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/overland-eastbay/ebosite/internal/config"
	applog "github.com/overland-eastbay/ebosite/internal/log"
	"github.com/overland-eastbay/ebosite/internal/store"
	"github.com/overland-eastbay/ebosite/internal/weather"
	"github.com/overland-eastbay/ebosite/internal/web"
)

// flagConfig holds CLI flag values; flags override the config file.
type flagConfig struct {
	configPath string
	listen     string
	dbPath     string
	debug      bool
}

func main() {
	applog.Info("ebosite starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		applog.SetLevel(applog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		applog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.dbPath != "" {
		conf.DBPath = flags.dbPath
	}

	applog.Info("effective config",
		"listen", conf.Listen,
		"base_url", conf.BaseURL,
		"db_path", conf.DBPath,
		"static_dir", conf.StaticDir,
		"weather_refresh", conf.WeatherRefreshCron,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		applog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	st, err := store.Open(conf.DBPath)
	if err != nil {
		applog.Error("failed to open store", err, "db_path", conf.DBPath)
		os.Exit(1)
	}
	defer st.Close()

	wc := weather.NewClient(time.Duration(conf.WeatherCacheMinutes) * time.Minute)

	// Background forecast refresh keeps the weather widgets warm.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(conf.WeatherRefreshCron, func() {
		wc.RefreshAll(ctx)
	}); err != nil {
		applog.Error("invalid weather refresh schedule", err, "cron", conf.WeatherRefreshCron)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, st, wc).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		applog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			applog.Error("graceful shutdown failed", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}

	applog.Info("ebosite exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/ebosite/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.dbPath, "db", "", "SQLite database path (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
