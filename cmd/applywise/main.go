package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/applywise/applywise/internal/chat"
	"github.com/applywise/applywise/internal/config"
	"github.com/applywise/applywise/internal/db"
	"github.com/applywise/applywise/internal/letter"
	"github.com/applywise/applywise/internal/llm"
	"github.com/applywise/applywise/internal/server"
	"github.com/applywise/applywise/internal/session"
	"github.com/applywise/applywise/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (default config.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	st, cleanup, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.OpenAIAPIKey == "" {
		log.Println("no OpenAI API key configured; chat replies will use deterministic fallbacks")
	}
	completer := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIEndpoint)

	sessions := session.NewService(st)
	letters := letter.NewService(st, st)
	orchestrator := chat.NewOrchestrator(letters, st, st, completer)

	srv := server.New(st, sessions, letters, orchestrator)
	if err := srv.Listen(cfg.Addr); err != nil {
		return err
	}
	return srv.Serve(ctx)
}

func openStore(cfg *config.Config) (store.Store, func(), error) {
	if cfg.Storage == "memory" {
		return store.NewMemory(), func() {}, nil
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		var err error
		dbPath, err = db.DefaultPath()
		if err != nil {
			return nil, nil, err
		}
	}
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return db.NewQueries(database), func() { database.Close() }, nil
}
