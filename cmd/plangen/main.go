package main

//	@title						plangen API
//	@version					0.1.0
//	@description				Generates kindergarten weekly and daily plans with a large language model.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/HerbHall/plangen/api/swagger"
	"github.com/HerbHall/plangen/internal/auth"
	"github.com/HerbHall/plangen/internal/config"
	"github.com/HerbHall/plangen/internal/limiter"
	"github.com/HerbHall/plangen/internal/llm"
	"github.com/HerbHall/plangen/internal/mcp"
	"github.com/HerbHall/plangen/internal/plan"
	"github.com/HerbHall/plangen/internal/prompt"
	"github.com/HerbHall/plangen/internal/server"
	"github.com/HerbHall/plangen/internal/store"
	"github.com/HerbHall/plangen/internal/version"
	"github.com/HerbHall/plangen/internal/ws"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const usage = `Usage: plangen [command] [flags]

Commands:
  serve      run the HTTP server (default)
  mcp        run an MCP server on stdin/stdout
  token      issue an access token
  templates  list the available prompt templates
  render     render a prompt template with variables
  version    print version information
`

func main() {
	// Subcommand dispatch (before flag parsing).
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		runServe(args)
	case "mcp":
		runMCPStdio(args)
	case "token":
		runToken(args)
	case "templates":
		runTemplates(args)
	case "render":
		runRender(args)
	case "version":
		fmt.Println(version.Info())
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

// loadConfig reads and validates the configuration, exiting on failure.
func loadConfig(path string) (*config.Config, *viper.Viper) {
	v, err := server.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	return cfg, v
}

func mustLogger(cfg config.Logging) *zap.Logger {
	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// templateStore layers the override directory, when set, over the
// built-in templates.
func templateStore(cfg config.Prompt) *prompt.Store {
	layers := []fs.FS{}
	if cfg.Dir != "" {
		layers = append(layers, os.DirFS(cfg.Dir))
	}
	return prompt.NewStore(append(layers, prompt.Builtin())...)
}

// openDatabase opens the SQLite file, creating its directory first, and
// refuses databases written by a newer release.
func openDatabase(ctx context.Context, path string) (*store.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := store.New(path)
	if err != nil {
		return nil, err
	}
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runServe(args []string) {
	fset := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fset.String("config", "", "path to configuration file")
	showVersion := fset.Bool("version", false, "print version information and exit")
	_ = fset.Parse(args)

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	cfg, v := loadConfig(*configPath)
	logger := mustLogger(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	logger.Info("plangen server starting", zap.String("version", version.Short()))
	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults", zap.String("component", "config"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("component", "database"), zap.String("path", cfg.Database.Path))

	generations, err := store.NewGenerationStore(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize generation store", zap.Error(err))
	}

	var (
		authReg server.AuthRegistrar
		tokens  *auth.TokenService
	)
	if cfg.Auth.Enabled() {
		users, err := auth.NewUserStore(ctx, db)
		if err != nil {
			logger.Fatal("failed to initialize auth store", zap.Error(err))
		}
		tokens = auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
		authService := auth.NewService(users, tokens, logger.Named("auth"), auth.WithBcryptCost(cfg.Auth.BcryptCost))
		authReg = auth.NewHandler(authService, logger.Named("auth"))
		logger.Info("authentication enabled",
			zap.String("component", "auth"),
			zap.Duration("token_ttl", cfg.Auth.TokenTTL),
		)
	} else {
		logger.Warn("auth.jwt_secret not set, API is unauthenticated", zap.String("component", "auth"))
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, logger.Named("llm"))
	if err != nil {
		logger.Fatal("failed to create llm provider", zap.Error(err))
	}

	hub := ws.NewHub(logger.Named("ws"))
	service := plan.NewService(templateStore(cfg.Prompt), provider, cfg.Generation, logger.Named("plan"),
		plan.WithRecorder(hub.Recorder(generations)),
	)
	lim := limiter.New("generation", cfg.Limiter.MaxConcurrent)

	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.Ping(ctx)
	})
	srv := server.New(cfg.Server, logger, readyCheck, authReg,
		plan.NewHandler(service, lim, generations, logger.Named("plan")),
		llm.NewHandler(provider, cfg.LLM, logger.Named("llm")),
		ws.NewHandler(hub, service, lim, tokens, logger.Named("ws")),
		mcp.New(service, lim, generations, logger.Named("mcp")),
	)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("plangen server ready", zap.String("addr", cfg.Server.Addr()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// In-flight generations may take minutes; give them a bounded grace period.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("plangen server stopped")
}
