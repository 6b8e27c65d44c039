package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"parrotbot/internal/config"

	"github.com/spf13/cobra"
)

var knownChannels = []struct {
	ID   string
	Desc string
}{{"cli", "Terminal chat only"}, {"telegram", "Telegram bot"}, {"discord", "Discord bot"}}

func wizardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Interactive setup: archive → channel → save config",
		Long:  "Guides you through the archive location, the chat channel (and its bot token) and the history limit. Writes config to the path used by --config or default.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWizard(os.Stdin, os.Stdout)
		},
	}
}

func runWizard(in io.Reader, out io.Writer) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = config.Defaults()
	}

	reader := bufio.NewReader(in)
	prompt := func(def string) (string, error) {
		if def != "" {
			fmt.Fprintf(out, " [%s]: ", def)
		} else {
			fmt.Fprint(out, ": ")
		}
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		s := strings.TrimSpace(line)
		if s == "" {
			return def, nil
		}
		return s, nil
	}

	// Step 1: Archive
	fmt.Fprintln(out, "\n--- Step 1: Archive ---")
	fmt.Fprint(out, "SQLite file for archived messages")
	dbPath, err := prompt(cfg.Archive.DBPath)
	if err != nil {
		return err
	}
	cfg.Archive.DBPath = config.ExpandPath(dbPath)
	if err := os.MkdirAll(filepath.Dir(cfg.Archive.DBPath), 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	fmt.Fprintf(out, "  Using archive: %s\n", cfg.Archive.DBPath)

	// Step 2: Channel
	fmt.Fprintln(out, "\n--- Step 2: Channel ---")
	for i, c := range knownChannels {
		fmt.Fprintf(out, "  %d) %s: %s\n", i+1, c.ID, c.Desc)
	}
	fmt.Fprintf(out, "Choose channel (1-%d)", len(knownChannels))
	chChoice, err := prompt("1")
	if err != nil {
		return err
	}
	chIdx, err := strconv.Atoi(chChoice)
	if err != nil || chIdx < 1 || chIdx > len(knownChannels) {
		chIdx = 1
	}
	chID := knownChannels[chIdx-1].ID
	cfg.Channels.Telegram.Enabled = chID == "telegram"
	cfg.Channels.Discord.Enabled = chID == "discord"
	switch chID {
	case "telegram":
		fmt.Fprint(out, "Telegram bot token (from @BotFather, or ${TELEGRAM_TOKEN})")
		tok, err := prompt("${TELEGRAM_TOKEN}")
		if err != nil {
			return err
		}
		cfg.Channels.Telegram.Token = tok
	case "discord":
		fmt.Fprint(out, "Discord bot token (or ${DISCORD_TOKEN})")
		tok, err := prompt("${DISCORD_TOKEN}")
		if err != nil {
			return err
		}
		cfg.Channels.Discord.Token = tok
	}
	fmt.Fprintf(out, "  Using channel: %s\n", chID)

	// Step 3: History
	fmt.Fprintln(out, "\n--- Step 3: History ---")
	fmt.Fprint(out, "Most recent messages per user used for parroting (0 = all)")
	limit, err := prompt(strconv.Itoa(cfg.Archive.HistoryLimit))
	if err != nil {
		return err
	}
	if n, err := strconv.Atoi(limit); err == nil && n >= 0 {
		cfg.Archive.HistoryLimit = n
	}

	// Save
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nConfig saved to %s\n", cfgPath)
	if chID == "cli" {
		fmt.Fprintln(out, "Next: run 'parrotbot chat'.")
	} else {
		fmt.Fprintln(out, "Next: run 'parrotbot doctor', then 'parrotbot gateway'.")
	}
	return nil
}
