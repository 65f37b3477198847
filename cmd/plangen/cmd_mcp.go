package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/HerbHall/plangen/internal/limiter"
	"github.com/HerbHall/plangen/internal/llm"
	"github.com/HerbHall/plangen/internal/mcp"
	"github.com/HerbHall/plangen/internal/plan"
	"github.com/HerbHall/plangen/internal/store"
	"go.uber.org/zap"
)

// runMCPStdio runs a standalone MCP server over stdio for desktop
// assistants. It registers the same tools as the HTTP endpoint and records
// generations in the same database. Logs go to stderr so stdout stays a
// clean protocol stream.
func runMCPStdio(args []string) {
	fset := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fset.String("config", "", "path to configuration file")
	_ = fset.Parse(args)

	cfg, _ := loadConfig(*configPath)
	logger := mustLogger(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	generations, err := store.NewGenerationStore(ctx, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize generation store: %v\n", err)
		os.Exit(1)
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, logger.Named("llm"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create llm provider: %v\n", err)
		os.Exit(1)
	}

	service := plan.NewService(templateStore(cfg.Prompt), provider, cfg.Generation, logger.Named("plan"),
		plan.WithRecorder(generations),
	)
	server := mcp.New(service, limiter.New("generation", cfg.Limiter.MaxConcurrent), generations, logger.Named("mcp"))

	if err := server.RunStdio(ctx); err != nil && ctx.Err() == nil {
		logger.Error("mcp server error", zap.Error(err))
		os.Exit(1)
	}
}
