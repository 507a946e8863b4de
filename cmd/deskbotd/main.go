package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	apiPkg "github.com/cremix-io/deskbot/internal/api"
	"github.com/cremix-io/deskbot/internal/completion"
	"github.com/cremix-io/deskbot/internal/config"
	"github.com/cremix-io/deskbot/internal/engine"
	"github.com/cremix-io/deskbot/internal/kb"
	"github.com/cremix-io/deskbot/internal/logring"
	"github.com/cremix-io/deskbot/internal/notify"
	"github.com/cremix-io/deskbot/internal/session"
	"github.com/cremix-io/deskbot/internal/ticket"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	ring := logring.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logring.NewHandler(jsonHandler, ring))

	// Load config (file or env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("deskbotd starting")

	// 1. Knowledge base
	var knowledge *kb.KnowledgeBase
	if cfg.KnowledgeBase != "" {
		knowledge, err = kb.LoadFile(cfg.KnowledgeBase)
	} else {
		knowledge, err = kb.Default()
	}
	if err != nil {
		logger.Error("failed to load knowledge base", "path", cfg.KnowledgeBase, "error", err)
		os.Exit(1)
	}
	logger.Info("knowledge base loaded", "categories", len(knowledge.Names()))

	// 2. Completion client
	var aiOpts []completion.Option
	if cfg.Completion.BaseURL != "" {
		aiOpts = append(aiOpts, completion.WithBaseURL(cfg.Completion.BaseURL))
	}
	if cfg.Completion.Model != "" {
		aiOpts = append(aiOpts, completion.WithModel(cfg.Completion.Model))
	}
	aiOpts = append(aiOpts, completion.WithLogger(logger.With("component", "completion")))
	ai := completion.New(cfg.Completion.APIKey, knowledge, aiOpts...)
	if ai.Configured() {
		logger.Info("completion client configured", "model", cfg.Completion.Model)
	} else {
		logger.Warn("no completion credential, running on rule-based responses only")
	}

	// 3. Ticket backend
	var tickets ticket.API
	if cfg.Tickets.BaseURL != "" {
		tickets = ticket.NewClient(cfg.Tickets.BaseURL, cfg.Tickets.APIKey)
		logger.Info("ticket backend configured", "url", cfg.Tickets.BaseURL)
	} else {
		tickets = ticket.NewMemory()
		logger.Warn("no ticket backend configured, tickets stay in process memory")
	}

	// 4. Resolved-issue store
	os.MkdirAll(cfg.DataDir, 0o755)
	dbPath := cfg.DataDir + "/resolved.db"
	resolved, err := ticket.NewResolvedStore(dbPath)
	if err != nil {
		logger.Error("failed to open resolved store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer resolved.Close()

	// 5. Slack notifier
	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.Slack != nil {
		slackNotifier, err := notify.NewSlack(cfg.Notify.Slack.BotToken, cfg.Notify.Slack.Channel,
			logger.With("component", "notify"))
		if err != nil {
			logger.Error("failed to init slack notifier", "error", err)
			os.Exit(1)
		}
		notifier = slackNotifier
		logger.Info("slack notifier configured", "channel", cfg.Notify.Slack.Channel)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 6. Sessions + TTL sweep
	sessions := session.NewManager(cfg.TTL())
	sweeper, err := session.NewSweeper(sessions, cfg.Sessions.SweepSchedule,
		logger.With("component", "sweeper"))
	if err != nil {
		logger.Error("failed to init session sweeper", "error", err)
		os.Exit(1)
	}
	go safeGo(logger, "sweeper", func() { sweeper.Start(ctx) })

	// 7. Engine + service + API server
	eng := engine.New(knowledge, ai, logger.With("component", "engine"))
	svc := apiPkg.NewService(eng, sessions, ai, tickets, resolved, notifier,
		logger.With("component", "service"))
	srv := apiPkg.NewServer(svc, apiPkg.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
		Key:  cfg.Server.Key,
	}, logger.With("component", "api"), ring)

	go safeGo(logger, "api-server", func() { srv.Start(ctx) })
	logger.Info("api server started", "port", cfg.Server.Port)

	// 8. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	logger.Info("deskbotd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
