package main

import (
	"context"
	"log"
	"os"

	"github.com/samirrijal/criticaltracks/internal/adapters/store"
	"github.com/samirrijal/criticaltracks/internal/pkg/config"
	"github.com/samirrijal/criticaltracks/internal/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down> [store]")
	}

	cfg, err := config.Load("criticaltracks-migrate", nil)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	storeCfg := cfg.Store
	if len(os.Args) > 2 {
		storeCfg = store.WithLocation(storeCfg, os.Args[2])
	}

	ctx := context.Background()
	s, err := store.Open(ctx, storeCfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer s.Close()

	switch os.Args[1] {
	case "up":
		if err := s.EnsureSchema(ctx); err != nil {
			log.Fatalf("up: %v", err)
		}
		logger.Info("schema applied", "driver", storeCfg.Driver)
	case "down":
		if err := s.DropSchema(ctx); err != nil {
			log.Fatalf("down: %v", err)
		}
		logger.Info("schema dropped", "driver", storeCfg.Driver)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
