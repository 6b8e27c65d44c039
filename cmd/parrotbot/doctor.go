package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"parrotbot/internal/archive"
	"parrotbot/internal/config"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your ParrotBot installation",
		Long: `Verifies that ParrotBot's configuration, archive database, channels and
metrics endpoint are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("ParrotBot Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'parrotbot init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return fmt.Errorf("%d check(s) failed", failed)
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Archive opens, migrates and is writable
			if detail, err := checkArchive(cfg.Archive.DBPath); err != nil {
				printFail("Archive", err.Error())
				failed++
			} else {
				printPass("Archive", detail)
				passed++
			}

			// 4. Channels
			enabled := 0
			if tg := cfg.Channels.Telegram; tg.Enabled {
				enabled++
				if !strings.Contains(tg.Token, ":") {
					printWarn("Telegram", "token does not look like <bot-id>:<secret>")
					warned++
				} else {
					printPass("Telegram", fmt.Sprintf("enabled, %d allowed chat(s)", len(tg.AllowFrom)))
					passed++
				}
			}
			if dc := cfg.Channels.Discord; dc.Enabled {
				enabled++
				printPass("Discord", "enabled")
				passed++
			}
			if enabled == 0 {
				printWarn("Channels", "none enabled, only 'parrotbot chat' will work")
				warned++
			}

			// 5. Metrics listen address
			if cfg.Metrics.Enabled {
				if err := checkListen(cfg.Metrics.Listen); err != nil {
					printWarn("Metrics", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Listen, err))
					warned++
				} else {
					printPass("Metrics", cfg.Metrics.Listen+cfg.Metrics.Path)
					passed++
				}
			}

			// 6. Check log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running ParrotBot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nParrotBot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! ParrotBot is ready to run.\n")
			}
			return nil
		},
	}
}

// checkArchive opens the store, which runs migrations, and reports its size.
func checkArchive(dbPath string) (string, error) {
	store, err := archive.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return "", err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		return "", fmt.Errorf("cannot ping: %w", err)
	}
	sum, err := store.Summarize(ctx)
	if err != nil {
		return "", fmt.Errorf("cannot query: %w", err)
	}
	return fmt.Sprintf("%s (schema v%d, %d users, %d messages)", dbPath, sum.SchemaVersion, sum.Users, sum.Messages), nil
}

func checkListen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  %s %-20s %s\n", color.Green.Render("[PASS]"), check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  %s %-20s %s\n", color.Red.Render("[FAIL]"), check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  %s %-20s %s\n", color.Yellow.Render("[WARN]"), check, detail)
}
