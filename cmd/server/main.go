package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"overburnt.game/internal/config"
	"overburnt.game/internal/configstore"
	"overburnt.game/internal/metrics"
	"overburnt.game/internal/persistence/indexdb"
	persistlog "overburnt.game/internal/persistence/log"
	"overburnt.game/internal/transport/ws"
)

func main() {
	if err := newRootCommand(run).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(run func(*config.Config) error) *cobra.Command {
	v := viper.New()
	var configPath string

	cmd := &cobra.Command{
		Use:   "overburnt-server",
		Short: "Serve Overburnt game sessions over websocket",
		Long: `Serves one simulated game session per websocket connection.

Configuration priority: flags > OB_* environment > config file > defaults.

Examples:
  overburnt-server --addr :8080 --config-dir ./configs
  OB_SERVER_MAX_SESSIONS=50 overburnt-server`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "path to server config file (default: search ./overburnt.yaml)")
	f.String("addr", ":8080", "listen address")
	f.String("config-dir", "./configs", "game data directory")
	f.String("data-dir", "./data", "tick logs and index directory")
	f.Int("max-sessions", 0, "concurrent session cap (0 = unlimited)")
	f.Bool("watch-configs", true, "reload game data when files change")
	f.Bool("disable-tick-log", false, "do not write per-session tick logs")
	f.Bool("disable-index", false, "do not maintain the sqlite attempt index")
	f.Int64("seed", 0, "default session seed (0 = clock)")

	for key, name := range map[string]string{
		"server.addr":             "addr",
		"server.config_dir":       "config-dir",
		"server.data_dir":         "data-dir",
		"server.max_sessions":     "max-sessions",
		"server.watch_configs":    "watch-configs",
		"server.disable_tick_log": "disable-tick-log",
		"server.disable_index":    "disable-index",
		"session.default_seed":    "seed",
	} {
		_ = v.BindPFlag(key, f.Lookup(name))
	}
	return cmd
}

func run(cfg *config.Config) error {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := signalContext()
	defer cancel()

	store, err := configstore.Open(cfg.Server.ConfigDir, log.New(os.Stdout, "[configs] ", log.LstdFlags))
	if err != nil {
		return fmt.Errorf("load game data: %w", err)
	}
	b := store.Current()
	logger.Printf("game data %s: items=%d recipes=%d levels=%d", b.Dir, len(b.Catalogs.Items.Defs), len(b.Catalogs.Recipes.Order), b.Levels.Len())

	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		return err
	}

	opts := ws.Options{
		DefaultSeed:     cfg.Session.DefaultSeed,
		StateEveryTicks: cfg.Session.StateEveryTicks,
		MaxSessions:     cfg.Server.MaxSessions,
	}

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.NewSessionCollector()
		if err := m.Register(reg); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		opts.Metrics = m
	}

	if !cfg.Server.DisableIndex {
		idx, err := indexdb.OpenSQLite(filepath.Join(cfg.Server.DataDir, "index.db"))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(b.Dir, b.Catalogs, b.Tuning, b.Levels.Digest); err != nil {
			logger.Printf("index catalogs: %v", err)
		}
		store.OnReload(func(nb *configstore.Bundle) {
			if err := idx.UpsertCatalogs(nb.Dir, nb.Catalogs, nb.Tuning, nb.Levels.Digest); err != nil {
				logger.Printf("index catalogs: %v", err)
			}
		})
		opts.Recorder = idx
	}

	if !cfg.Server.DisableTickLog {
		dataDir := cfg.Server.DataDir
		opts.TickLogs = func(sessionID string) ws.TickLog {
			return persistlog.NewTickLogger(dataDir, sessionID)
		}
	}

	if cfg.Server.WatchConfigs {
		go func() {
			if err := store.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf("config watch stopped: %v", err)
			}
		}()
	}

	srv := ws.NewServer(store, logger, opts)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", srv.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(rw, "ok sessions=%d\n", srv.ActiveSessions())
	})
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.Server.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	logger.Printf("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpSrv.Shutdown(shutdownCtx)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
