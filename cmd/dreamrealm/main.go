// Package main provides the Dream Realm Guardians binary. By default it plays
// one save slot on the terminal; with -serve it hosts dreamers over Telnet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/config"
	"github.com/cory-johannsen/dreamrealm/internal/console"
	"github.com/cory-johannsen/dreamrealm/internal/frontend/telnet"
	"github.com/cory-johannsen/dreamrealm/internal/game/ai"
	"github.com/cory-johannsen/dreamrealm/internal/game/battle"
	"github.com/cory-johannsen/dreamrealm/internal/game/campaign"
	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/dice"
	"github.com/cory-johannsen/dreamrealm/internal/game/ending"
	"github.com/cory-johannsen/dreamrealm/internal/observability"
	"github.com/cory-johannsen/dreamrealm/internal/scripting"
	"github.com/cory-johannsen/dreamrealm/internal/server"
	"github.com/cory-johannsen/dreamrealm/internal/storage/postgres"
	"github.com/cory-johannsen/dreamrealm/internal/storage/savefile"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	slot := flag.String("slot", "", "save slot; empty uses storage.slot from the config")
	seed := flag.Uint64("seed", 0, "random seed for a reproducible run; 0 = crypto randomness")
	serve := flag.Bool("serve", false, "host dreamers over Telnet instead of playing on the terminal")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	// Load content
	contentStart := time.Now()
	store, err := content.Load(cfg.Content.Dir)
	if err != nil {
		logger.Fatal("loading content", zap.String("dir", cfg.Content.Dir), zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("skills", len(store.Skills())),
		zap.Int("stages", len(store.Stages())),
		zap.Int("endings", len(store.EndingRules())),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Load AI behaviors
	aiRegistry := ai.NewRegistry()
	aiDir := filepath.Join(cfg.Content.Dir, "ai")
	if info, err := os.Stat(aiDir); err == nil && info.IsDir() {
		behaviors, err := ai.LoadBehaviors(aiDir)
		if err != nil {
			logger.Fatal("loading ai behaviors", zap.Error(err))
		}
		for _, b := range behaviors {
			if err := aiRegistry.Register(b); err != nil {
				logger.Fatal("registering ai behavior", zap.String("id", b.ID), zap.Error(err))
			}
		}
		logger.Info("ai behaviors loaded", zap.Int("count", aiRegistry.Len()))
	}

	// Save storage
	var saves campaign.SaveStore
	switch cfg.Storage.Backend {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer db.Close()
		if err := db.Ready(ctx); err != nil {
			logger.Fatal("save database not ready", zap.Error(err))
		}
		saves = db.Saves()
	default:
		fileStore, err := savefile.New(cfg.Storage.Dir, logger)
		if err != nil {
			logger.Fatal("opening save directory", zap.String("dir", cfg.Storage.Dir), zap.Error(err))
		}
		saves = fileStore
	}

	w := &world{cfg: cfg, store: store, ai: aiRegistry, saves: saves, seed: *seed, logger: logger}

	if *serve {
		srv := console.NewServer(store, w.newSession, logger)
		acceptor := telnet.NewAcceptor(cfg.Telnet, srv, logger)
		lc := server.NewLifecycle(logger)
		lc.Add("telnet", &server.FuncService{StartFn: acceptor.ListenAndServe, StopFn: acceptor.Stop})
		logger.Info("dream realm serving",
			zap.String("addr", cfg.Telnet.Addr()),
			zap.String("storage", cfg.Storage.Backend),
			zap.Duration("startup", time.Since(start)),
		)
		if err := lc.Run(ctx); err != nil {
			logger.Error("server stopped", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	saveSlot := cfg.Storage.Slot
	if *slot != "" {
		saveSlot = *slot
	}
	term := console.NewStdio(os.Stdin, os.Stdout)
	director, release, err := w.newSession(saveSlot, console.NewSink(term))
	if err != nil {
		logger.Fatal("preparing game", zap.Error(err))
	}
	defer release()

	logger.Info("dream realm ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("slot", saveSlot),
		zap.Duration("startup", time.Since(start)),
	)
	if err := console.New(director, store, term, logger).Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("console stopped", zap.Error(err))
		release()
		os.Exit(1)
	}
}

// world holds what every session shares. Random sources and Lua states are
// not safe for concurrent use, so each session gets its own.
type world struct {
	cfg    config.Config
	store  *content.Store
	ai     *ai.Registry
	saves  campaign.SaveStore
	seed   uint64
	logger *zap.Logger
}

// newSession builds the director for slot. It satisfies console.SessionFactory.
func (w *world) newSession(slot string, sink battle.Sink) (*campaign.Director, func(), error) {
	logger := w.logger.With(zap.String("slot", slot))

	var src dice.Source = dice.NewCryptoSource()
	if w.seed != 0 {
		src = dice.NewSeededSource(w.seed)
	}
	roller := dice.NewLoggedSource(src, logger)

	scriptStart := time.Now()
	scripts := scripting.NewManager(roller, logger, w.cfg.Content.InstructionLimit)
	if err := w.loadScripts(scripts); err != nil {
		scripts.Close()
		return nil, nil, err
	}
	logger.Debug("scripting engine initialized", zap.Duration("elapsed", time.Since(scriptStart)))

	selector := ai.NewSelector(w.ai, ai.DefaultBehavior(w.cfg.Battle.AI), scripts, roller, logger)
	engine := battle.NewEngine(w.cfg.Battle, w.store, selector, roller, battle.Sinks{sink, battle.NewLogSink(logger)}, logger)
	evaluator := ending.NewEvaluator(w.store.EndingRules(), w.cfg.Content.FallbackEnding, logger)
	director := campaign.NewDirector(w.cfg.NewGame, w.store, engine, evaluator, w.saves, slot, logger)

	release := func() {
		scripts.Close()
		logger.Info("session closed", zap.Uint64("random_draws", roller.Draws()))
	}
	return director, release, nil
}

// loadScripts loads the global scripts and one scope per AI behavior that
// ships a script directory.
func (w *world) loadScripts(m *scripting.Manager) error {
	globalDir := filepath.Join(w.cfg.Content.ScriptsDir, "global")
	if info, err := os.Stat(globalDir); err == nil && info.IsDir() {
		if err := m.LoadGlobal(globalDir); err != nil {
			return fmt.Errorf("loading global scripts: %w", err)
		}
	}
	for _, id := range w.ai.IDs() {
		dir := filepath.Join(w.cfg.Content.ScriptsDir, "ai", id)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := m.LoadScope(id, dir); err != nil {
			return fmt.Errorf("loading scripts for behavior %q: %w", id, err)
		}
	}
	return nil
}
