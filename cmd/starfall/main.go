package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/starfall/server/internal/auth"
	"github.com/starfall/server/internal/config"
	"github.com/starfall/server/internal/crash"
	"github.com/starfall/server/internal/data"
	"github.com/starfall/server/internal/handler"
	"github.com/starfall/server/internal/metrics"
	gonet "github.com/starfall/server/internal/net"
	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/scripting"
	"github.com/starfall/server/internal/system"
	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            Starfall  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      realtime space combat server         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("STARFALL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Persistence: PostgreSQL when a DSN is configured, in-memory
	// otherwise (development and tests).
	printSection("storage")

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer bootCancel()

	var store persist.PlayerStore
	if cfg.Database.DSN == "" {
		store = persist.NewMemStore()
		printOK("in-memory store (no dsn configured)")
	} else {
		db, err := persist.NewDB(bootCtx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("postgresql connected")

		if err := persist.RunMigrations(bootCtx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		store = persist.NewPgStore(db, log)
	}
	fmt.Println()

	// 4. Load static tables
	printSection("data")

	shipTable, err := data.LoadShipTable("data/yaml/ship_list.yaml")
	if err != nil {
		return fmt.Errorf("load ship table: %w", err)
	}
	printStat("ship hulls", shipTable.Count())

	npcTable, err := data.LoadNpcTable("data/yaml/npc_list.yaml")
	if err != nil {
		return fmt.Errorf("load npc table: %w", err)
	}
	printStat("npc templates", npcTable.Count())

	dropTable, err := data.LoadDropTable("data/yaml/drop_list.yaml")
	if err != nil {
		return fmt.Errorf("load drop table: %w", err)
	}
	printStat("drop groups", dropTable.Count())

	mapTable, err := data.LoadMapTable("data/yaml/map_list.yaml")
	if err != nil {
		return fmt.Errorf("load map table: %w", err)
	}
	printStat("maps", mapTable.Count())

	rankLadder, err := data.LoadRankLadder("data/yaml/rank_list.yaml")
	if err != nil {
		return fmt.Errorf("load rank ladder: %w", err)
	}
	printStat("rank steps", rankLadder.Count())

	// 5. Lua scripting engine
	luaEngine, err := scripting.NewEngine("scripts", log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("lua scripts loaded")
	fmt.Println()

	// 6. Observability and crash trails
	reg := prometheus.NewRegistry()
	mets := metrics.New(reg)
	crashReporter := crash.NewReporter("crash", log)

	// 7. Save queue
	saveQueue := persist.NewQueue(store, cfg.Game.Persist.QueueSize, cfg.Game.Persist.Workers, log, persist.QueueStats{
		Queued:  func() { mets.SavesQueued.Inc() },
		Dropped: func() { mets.SavesDropped.Inc() },
		Errored: func() { mets.SaveErrors.Inc() },
	})

	// 8. Shared system environment
	env := &system.Env{
		Cfg:      cfg,
		Ships:    shipTable,
		NpcTypes: npcTable,
		Drops:    dropTable,
		Ranks:    rankLadder,
		Lua:      luaEngine,
		Bc:       world.NewBroadcaster(log),
		Spatial:  world.LinearSpatial{},
		Saves:    saveQueue,
		Crash:    crashReporter,
		Metrics:  mets,
		Log:      log,
	}

	// 9. Router and handlers
	router := wire.NewRouter(log, crashReporter, func(string) { mets.UnknownFrames.Inc() })

	verifier, err := auth.FromConfig(cfg.Auth.Mode, cfg.Auth.Secret)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	registry := system.NewRegistry()
	deps := &handler.Deps{
		Cfg:      cfg,
		Env:      env,
		Verifier: verifier,
		Store:    store,
		Maps:     registry,
		Log:      log,
	}
	handler.RegisterAll(router, deps)

	// 10. Build one runner per map and seed NPC populations
	printSection("world")
	for _, mapID := range mapTable.IDs() {
		info := mapTable.Get(mapID)
		m := world.NewMap(info, cfg.Network.InQueueSize, log)
		runner := system.NewRunner(env, m, router)
		runner.Seed()
		registry.Add(runner)
		printStat("npcs on "+mapID, len(m.Npcs))
	}
	if registry.Get(cfg.Game.DefaultMap) == nil {
		return fmt.Errorf("default map %q not in map table", cfg.Game.DefaultMap)
	}
	fmt.Println()

	// 11. Run everything under one group with signal-driven shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	saveQueue.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	for _, runner := range registry.All() {
		runner := runner
		g.Go(func() error {
			runner.Run(gctx)
			return nil
		})
	}

	var metricsHandler http.Handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	server := gonet.NewServer(cfg, router, env, metricsHandler, log)
	g.Go(func() error {
		return server.Start(gctx)
	})

	printSection("ready")
	printReady("listening on " + cfg.Network.BindAddress)
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Game.TickRate))
	fmt.Println()

	err = g.Wait()

	// Runners have flushed their shutdown saves by now; let the queue
	// drain before closing the store.
	saveQueue.Close()
	log.Info("server stopped")
	return err
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
