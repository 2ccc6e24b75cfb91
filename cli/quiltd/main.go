// quiltd boots an agent memory from the local .quilt/ directory, hydrates it
// from the persisted store, and serves it until interrupted. Configuration
// comes from .quilt/config.toml and QUILT_-prefixed environment variables;
// QUILT_DIR overrides the directory lookup.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/agent"
	"github.com/quiltmem/quilt/pkg/config"
	"github.com/quiltmem/quilt/pkg/dotdir"
	"github.com/quiltmem/quilt/pkg/logger"
	"github.com/quiltmem/quilt/pkg/utils"
)

func main() {
	log := logger.NewLogger(os.Getenv("QUILT_DEBUG") != "")
	defer log.Sync()

	log.Info("quiltd starting",
		zap.String("version", utils.Version),
		zap.String("sha", utils.Sha),
	)

	if err := run(log); err != nil {
		log.Fatal("quiltd failed", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dirs := dotdir.NewManager()
	dir, err := dirs.Target(os.Getenv("QUILT_DIR"))
	if err != nil {
		return err
	}

	cfgPath, err := dirs.ConfigPath(dir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	// Relative store paths land inside the quilt directory.
	cfg.MemoryStore.Path = dotdir.Anchor(dir, cfg.MemoryStore.Path)
	cfg.MemoryStore.PersistDir = dotdir.Anchor(dir, cfg.MemoryStore.PersistDir)
	cfg.FeedbackStore.Path = dotdir.Anchor(dir, cfg.FeedbackStore.Path)

	a, err := agent.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	loaded, err := a.LoadFromStore(ctx)
	if err != nil {
		return err
	}

	stats := a.GetStats()
	log.Info("quiltd ready",
		zap.String("dir", dir),
		zap.Int("loaded", loaded),
		zap.Int("components", stats.Components),
		zap.Int("active_goals", stats.ActiveGoals),
		zap.String("summarizer", a.SummarizerStatus().String()),
	)

	<-ctx.Done()
	log.Info("quiltd shutting down")
	return nil
}
