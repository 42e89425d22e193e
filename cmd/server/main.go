package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/recollect/recollect/internal/config"
	"github.com/recollect/recollect/internal/domain/meeting"
	"github.com/recollect/recollect/internal/domain/user"
	"github.com/recollect/recollect/internal/engine"
	"github.com/recollect/recollect/internal/mcp"
	"github.com/recollect/recollect/internal/orchestrator"
	"github.com/recollect/recollect/internal/search"
	"github.com/recollect/recollect/internal/sqlite"
	"github.com/recollect/recollect/internal/transport"
)

func main() {
	mcpStdio := flag.Bool("mcp-stdio", false, "serve MCP over stdio instead of HTTP")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := os.Stdout
	if *mcpStdio {
		logWriter = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	meetingRepo := sqlite.NewMeetingRepository(db)
	jobRepo := sqlite.NewJobRepository(db)
	userRepo := sqlite.NewUserRepository(db)
	blobStore := sqlite.NewBlobStore(db)
	postingRepo := sqlite.NewPostingRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	index := search.NewIndex(postingRepo, logger)

	transcriber, summarizer, err := buildEngines(cfg.Engine)
	if err != nil {
		logger.Error("failed to configure engines", "error", err)
		os.Exit(1)
	}
	logger.Info("engines configured", "provider", cfg.Engine.Provider)

	orch := orchestrator.New(orchestrator.Config{
		Workers:      cfg.Pipeline.Workers,
		MaxAttempts:  cfg.Pipeline.MaxAttempts,
		PollInterval: cfg.Pipeline.PollInterval.Std(),
		BackoffBase:  cfg.Pipeline.BackoffBase.Std(),
		BackoffCap:   cfg.Pipeline.BackoffCap.Std(),
	}, jobRepo, meetingRepo, blobStore, transcriber, summarizer, index, activityRepo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Recover(ctx); err != nil {
		logger.Error("failed to recover job queue", "error", err)
		os.Exit(1)
	}
	orch.Start(ctx)
	defer orch.Stop()

	meetingSvc := meeting.NewService(meetingRepo, blobStore, orch, index, activityRepo, logger)
	userSvc := user.NewService(userRepo, logger)

	if *mcpStdio {
		runStdioMode(ctx, cancel, logger, cfg, userRepo, meetingSvc)
		return
	}
	runHTTPMode(logger, cfg, meetingSvc, userSvc)
}

// buildEngines selects the transcription and summarization backend.
func buildEngines(cfg config.EngineConfig) (engine.Transcriber, engine.Summarizer, error) {
	switch cfg.Provider {
	case "openai":
		eng, err := engine.NewOpenAIEngine(engine.OpenAIConfig{APIKey: cfg.OpenAIAPIKey})
		if err != nil {
			return nil, nil, err
		}
		return eng, eng, nil
	case "", "mock":
		t := engine.NewMockTranscriber("This is a development transcription of the uploaded audio.")
		s := engine.NewMockSummarizer(engine.SummaryResult{})
		return t, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine provider %q", cfg.Provider)
	}
}

func runStdioMode(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, cfg config.Config, users *sqlite.UserRepository, meetings *meeting.Service) {
	if cfg.MCP.OwnerEmail == "" {
		logger.Error("stdio mode requires RECOLLECT_MCP_OWNER_EMAIL")
		os.Exit(1)
	}
	owner, _, err := users.GetByEmail(ctx, cfg.MCP.OwnerEmail)
	if err != nil {
		logger.Error("failed to resolve MCP owner account", "email", cfg.MCP.OwnerEmail, "error", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting stdio transport", "owner", owner.ID)
	server := mcp.NewServer(meetings, owner.ID, logger)
	if err := server.Run(ctx); err != nil {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(logger *slog.Logger, cfg config.Config, meetings *meeting.Service, users *user.Service) {
	router := transport.NewServer(meetings, users, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
