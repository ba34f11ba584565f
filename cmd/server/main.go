package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/metrics"
	"github.com/RedstoneFuture/missilewars-sub001/internal/persistence/indexdb"
	persistlog "github.com/RedstoneFuture/missilewars-sub001/internal/persistence/log"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/blockworld"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/missile"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/paste"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/scheduler"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/structure"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/tuning"
	"github.com/RedstoneFuture/missilewars-sub001/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		configPath = flag.String("config", "", "path to missilewars.yaml (default: <configs>/missilewars.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite placement index")
		preload    = flag.Bool("preload", true, "load every configured missile at startup")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Str("svc", "server").Logger()

	cp := strings.TrimSpace(*configPath)
	if cp == "" {
		cp = filepath.Join(*configDir, "missilewars.yaml")
	}
	tune, err := tuning.Load(cp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatal().Err(err).Str("path", cp).Msg("load config")
		}
		logger.Warn().Str("path", cp).Msg("config not found; using defaults")
		tune = tuning.Defaults()
	}

	structDir := tune.StructuresDir
	if !filepath.IsAbs(structDir) {
		structDir = filepath.Join(*configDir, structDir)
	}
	mode, _ := structure.ParseMode(tune.CompatibilityMode)
	library := structure.NewLibrary(structure.NewLoader(os.DirFS(structDir), mode), logger)
	if *preload {
		for _, m := range tune.Missiles {
			if _, err := library.Get(m.Schematic); err != nil {
				logger.Error().Err(err).Str("missile", m.Name).Msg("could not preload missile")
			}
		}
	}

	worlds := blockworld.NewRegistry()
	for _, a := range tune.Arenas {
		if _, err := worlds.Get(a.World); err == nil {
			continue
		}
		worlds.Add(blockworld.NewMemWorld(a.World, tune.World.MinY, tune.World.MaxY))
	}

	sched := scheduler.New(tune.TickRateHz, logger)
	engine, err := paste.Select(tune.Engine, sched, tune.BlocksPerTick, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("paste engine")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mtr := metrics.New(reg)

	placementLog := persistlog.NewPlacementLogger(*dataDir)
	defer placementLog.Close()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatal().Err(err).Msg("open placement index")
		}
		defer idx.Close()
	}

	hub := observer.NewHub()
	svc, err := missile.New(missile.Deps{
		Tuning:    tune,
		Worlds:    worlds,
		Library:   library,
		Engine:    engine,
		Scheduler: sched,
		Metrics:   mtr,
		Sink:      newEventSink(placementLog, idx, hub, logger),
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("missile service")
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := sched.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	api := newAPI(tune, svc, library, idx, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", mtr.Handler())
	mux.HandleFunc("/v1/place", api.handlePlace)
	mux.HandleFunc("/v1/placements", api.handlePlacements)
	mux.HandleFunc("/v1/ws", observer.NewServer(hub, logger).WSHandler())

	if envBool("MW_ENABLE_ADMIN_HTTP", true) {
		mux.HandleFunc("/admin/v1/reload", api.handleReload)
		mux.HandleFunc("/admin/v1/arena/reset", api.handleArenaReset)
	} else {
		logger.Info().Msg("admin endpoints disabled (MW_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("MW_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopped := stopOnDone(ctx, 5*time.Second, logger, srv, svc, sched)

	logger.Info().Str("addr", *addr).Str("engine", engine.Name()).Int("arenas", len(tune.Arenas)).
		Int("missiles", len(tune.Missiles)).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("ListenAndServe")
	}
	<-stopped
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

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
