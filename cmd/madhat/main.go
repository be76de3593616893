// Command madhat runs the Mad Hatter nickname-shuffling Discord bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/madhatbot/madhat/internal/backup"
	"github.com/madhatbot/madhat/internal/config"
	discordbot "github.com/madhatbot/madhat/internal/discord"
	"github.com/madhatbot/madhat/internal/discord/commands"
	"github.com/madhatbot/madhat/internal/engine"
	"github.com/madhatbot/madhat/internal/health"
	"github.com/madhatbot/madhat/internal/observe"
	"github.com/madhatbot/madhat/internal/roomstate"
)

// version is set via -ldflags at build time.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// .env is a developer convenience; absence is fine.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "madhat: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	// Token resolution order: first CLI argument, TOKEN env, config file.
	token := cfg.Discord.Token
	if v := os.Getenv("TOKEN"); v != "" {
		token = v
	}
	if flag.NArg() > 0 {
		token = flag.Arg(0)
	}
	if token == "" {
		slog.Error("no bot token: pass it as the first argument, set TOKEN, or set discord.token in the config")
		return 1
	}

	slog.Info("madhat starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"storage", cfg.Storage.Backend,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "madhat",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Backup storage ────────────────────────────────────────────────────────
	store, closeStore, err := newBackupStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to initialise backup storage", "err", err)
		return 1
	}
	defer closeStore()

	// ── Bot and engine ────────────────────────────────────────────────────────
	bot, err := discordbot.New(discordbot.Config{
		Token:       token,
		BotNickname: cfg.Discord.BotNickname,
		SelfRename:  cfg.Features.SelfRename,
	}, metrics)
	if err != nil {
		slog.Error("failed to create Discord bot", "err", err)
		return 1
	}

	tz, err := time.LoadLocation(cfg.Pause.DisplayTimezone)
	if err != nil {
		slog.Error("invalid pause.display_timezone", "zone", cfg.Pause.DisplayTimezone, "err", err)
		return 1
	}

	states := roomstate.NewStore(cfg.Features.ShuffleDefaultOn)
	eng := engine.New(states, store, bot, engine.Config{
		Keywords:        cfg.Trigger.Keywords,
		CaseSensitive:   cfg.Trigger.CaseSensitive,
		PauseDuration:   time.Duration(cfg.Pause.Duration),
		DisplayTimezone: tz,
		ShuffleToggle:   cfg.Features.ShuffleToggle,
	}, metrics)
	bot.AttachEngine(eng)

	commands.NewNicknameCommands(bot, eng, metrics)
	commands.NewShuffleCommands(bot, eng, metrics, cfg.Features.ShuffleToggle)

	// ── Operational HTTP endpoint ─────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(
		health.Gateway(bot.Connected),
		health.Storage(store),
	).Register(mux)
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("ops endpoint listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("discord bot: %w", err)
		}
		return nil
	})

	slog.Info("bot ready — press Ctrl+C to shut down")

	err = g.Wait()

	slog.Info("shutdown signal received, stopping…")
	if closeErr := bot.Close(); closeErr != nil {
		slog.Warn("discord bot close error", "err", closeErr)
	}
	if err != nil {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// newBackupStore builds the backup store selected by cfg and returns it with
// a cleanup function.
func newBackupStore(ctx context.Context, cfg config.StorageConfig) (backup.Store, func(), error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return backup.NewMemStore(), func() {}, nil

	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := backup.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	default:
		fs, err := backup.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
