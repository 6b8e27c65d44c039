package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"parrotbot/internal/archive"
	"parrotbot/internal/bot"
	"parrotbot/internal/bus"
	"parrotbot/internal/channel"
	"parrotbot/internal/config"
	"parrotbot/internal/domain"
	"parrotbot/internal/metrics"
	"parrotbot/internal/parrot"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	// Tokens are usually referenced as ${VAR} in the config file.
	_ = godotenv.Load()

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "parrotbot",
		Short:   "ParrotBot: a chat bot that imitates the people it listens to",
		Long:    "ParrotBot archives chat messages and answers /parrot <username> with a Markov-chain imitation of that user.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json or config.yaml (default: ~/.parrotbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(wizardCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(parrotCmd())
	root.AddCommand(forgetCmd())
	root.AddCommand(trackCmd())
	root.AddCommand(entitiesCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(restoreCmd())
	root.AddCommand(configCmd())

	daemon := &cobra.Command{Use: "daemon", Short: "Manage the gateway as a background service"}
	daemon.AddCommand(installDaemonCmd(), uninstallDaemonCmd())
	root.AddCommand(daemon)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default config and the archive directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			dbDir := filepath.Dir(config.ExpandPath(cfg.Archive.DBPath))
			if err := os.MkdirAll(dbDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "archive", cfg.Archive.DBPath)
			return nil
		},
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file and reconfigures the package logger from
// it. With fallback set, a missing or invalid file yields the defaults.
func loadConfig(fallback bool) (*config.Config, func(), error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !fallback {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		logger.Warn("config not loaded, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		cfg.Archive.DBPath = config.ExpandPath(cfg.Archive.DBPath)
	}

	l, closeLog, err := newLogger(cfg.General)
	if err != nil {
		return nil, nil, err
	}
	logger = l
	return cfg, closeLog, nil
}

// newLogger builds a text logger at the configured level, also writing to
// general.logFile when set.
func newLogger(gc config.GeneralConfig) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(gc.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	closer := func() {}
	if gc.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(gc.LogFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(gc.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = func() { f.Close() }
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closer, nil
}

// openService opens the archive and builds the parrot service on top of it.
func openService(cfg *config.Config) (*parrot.Service, *archive.SQLiteStore, error) {
	store, err := archive.NewSQLiteStore(cfg.Archive.DBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("archive store: %w", err)
	}
	svc := parrot.NewService(parrot.Config{
		Archive:      store,
		Logger:       logger,
		MaxTokens:    cfg.Parrot.MaxTokens,
		HistoryLimit: cfg.Archive.HistoryLimit,
	})
	return svc, store, nil
}

func newLoop(cfg *config.Config, svc *parrot.Service, b domain.MessageBus) *bot.Loop {
	return bot.NewLoop(bot.LoopConfig{
		Service:         svc,
		Bus:             b,
		Logger:          logger,
		Concurrency:     cfg.Parrot.Concurrency,
		ParrotBurst:     cfg.Parrot.Burst,
		ParrotPerMinute: cfg.Parrot.PerMinute,
	})
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the bot in the terminal as a local user",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig(true)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, store, err := openService(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	messageBus := bus.New(100, logger)
	defer messageBus.Close()

	go newLoop(cfg, svc, messageBus).Run(ctx)

	cliCh := channel.NewCLI(channel.CLIConfig{
		Logger:   logger,
		UserID:   cfg.Channels.CLI.UserID,
		Username: cfg.Channels.CLI.Username,
		ChatID:   cfg.Channels.CLI.ChatID,
	})
	return cliCh.Start(ctx, messageBus)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show config and archive status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false, "err", err)
				cfg = config.Defaults()
				cfg.Archive.DBPath = config.ExpandPath(cfg.Archive.DBPath)
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			logger.Info("channels",
				"telegram", cfg.Channels.Telegram.Enabled,
				"discord", cfg.Channels.Discord.Enabled,
				"metrics", cfg.Metrics.Enabled,
			)

			if _, err := os.Stat(cfg.Archive.DBPath); err != nil {
				logger.Info("archive", "path", cfg.Archive.DBPath, "exists", false)
				return nil
			}
			store, err := archive.NewSQLiteStore(cfg.Archive.DBPath, logger)
			if err != nil {
				return fmt.Errorf("archive store: %w", err)
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			sum, err := store.Summarize(ctx)
			if err != nil {
				return fmt.Errorf("summarize archive: %w", err)
			}
			logger.Info("archive",
				"path", cfg.Archive.DBPath,
				"schema_version", sum.SchemaVersion,
				"users", sum.Users,
				"groups", sum.Groups,
				"messages", sum.Messages,
			)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. parrot.maxTokens)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(config.Sanitize(cfg), args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. archive.historyLimit 1000)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			value := args[1]
			if config.IsSecret(args[0]) {
				value = "***"
			}
			logger.Info("config updated", "path", args[0], "value", value, "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			table := newTable([]string{"Key", "Value"})
			table.AppendBulk(lo.Map(config.Settings(config.Sanitize(cfg)), func(s config.Setting, _ int) []string {
				return []string{s.Path, fmt.Sprint(s.Value())}
			}))
			table.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start gateway (Telegram + Discord + bot loop)",
		Long:  "Starts all enabled channels, the bot loop and the metrics endpoint. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig(false)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, store, err := openService(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Message bus (closed during graceful shutdown below)
	messageBus := bus.New(100, logger)

	var channels []domain.Channel
	if cfg.Channels.Telegram.Enabled {
		channels = append(channels, channel.NewTelegram(channel.TelegramConfig{
			Token:     cfg.Channels.Telegram.Token,
			AllowFrom: cfg.Channels.Telegram.AllowFrom,
			ParseMode: cfg.Channels.Telegram.ParseMode,
			Logger:    logger,
		}))
	}
	if cfg.Channels.Discord.Enabled {
		channels = append(channels, channel.NewDiscord(channel.DiscordConfig{
			Token:   cfg.Channels.Discord.Token,
			GuildID: cfg.Channels.Discord.GuildID,
			Logger:  logger,
		}))
	}
	if len(channels) == 0 {
		return fmt.Errorf("no channels enabled: set channels.telegram.enabled or channels.discord.enabled")
	}

	go newLoop(cfg, svc, messageBus).Run(ctx)

	for _, ch := range channels {
		go func(ch domain.Channel) {
			if err := ch.Start(ctx, messageBus); err != nil {
				logger.Error("channel error", "channel", ch.Name(), "err", err)
			}
		}(ch)
		logger.Info("channel enabled", "channel", ch.Name())
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, cfg.Metrics.Path, logger); err != nil {
				logger.Error("metrics endpoint error", "err", err)
			}
		}()
	}

	logger.Info("gateway started. Press Ctrl+C to stop.", "version", version)

	// Block until shutdown signal
	<-ctx.Done()
	logger.Info("shutting down gateway...")

	// Graceful shutdown with timeout
	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ch := range channels {
			if err := ch.Stop(); err != nil {
				logger.Warn("channel stop failed", "channel", ch.Name(), "err", err)
			}
		}
		messageBus.Close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		shutdownErr = fmt.Errorf("shutdown timed out")
	}

	return shutdownErr
}
