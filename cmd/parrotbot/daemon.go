package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	"parrotbot/internal/config"

	"github.com/spf13/cobra"
)

const (
	launchdLabel = "com.parrotbot.gateway"
	systemdUnit  = "parrotbot.service"
)

// serviceSpec is everything baked into a generated service file. Paths are
// absolute because the service manager starts the gateway outside any shell.
type serviceSpec struct {
	Label      string
	Exec       string
	Config     string
	WorkDir    string // config directory, so a .env next to the config is loaded
	ArchiveDir string
	Log        string
	ErrLog     string
}

// newServiceSpec reads the config at cfgPath and derives the service layout
// from it. Logs go to a logs/ directory beside the archive.
func newServiceSpec(execPath, cfgPath string) (serviceSpec, error) {
	cfgPath, err := filepath.Abs(config.ExpandPath(cfgPath))
	if err != nil {
		return serviceSpec{}, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return serviceSpec{}, fmt.Errorf("%w\nrun 'parrotbot init' first", err)
	}
	if !cfg.Channels.Telegram.Enabled && !cfg.Channels.Discord.Enabled {
		return serviceSpec{}, fmt.Errorf("no channel enabled in %s; the gateway would exit immediately", cfgPath)
	}
	dbPath, err := filepath.Abs(cfg.Archive.DBPath)
	if err != nil {
		return serviceSpec{}, err
	}
	archiveDir := filepath.Dir(dbPath)
	logDir := filepath.Join(archiveDir, "logs")
	return serviceSpec{
		Label:      launchdLabel,
		Exec:       execPath,
		Config:     cfgPath,
		WorkDir:    filepath.Dir(cfgPath),
		ArchiveDir: archiveDir,
		Log:        filepath.Join(logDir, "gateway.log"),
		ErrLog:     filepath.Join(logDir, "gateway-error.log"),
	}, nil
}

// servicePath is where the service file for goos lives under home.
func servicePath(goos, home string) (string, error) {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "LaunchAgents", launchdLabel+".plist"), nil
	case "linux":
		return filepath.Join(home, ".config", "systemd", "user", systemdUnit), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s (supported: darwin, linux)", goos)
	}
}

func renderService(goos string, spec serviceSpec) (string, error) {
	tmpl := systemdTemplate
	if goos == "darwin" {
		tmpl = launchdTemplate
	}
	var sb strings.Builder
	if err := template.Must(template.New(goos).Parse(tmpl)).Execute(&sb, spec); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func installDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install the gateway as a user service (launchd/systemd)",
		Long: "Writes a launchd agent or systemd user unit that runs 'parrotbot gateway' " +
			"with the current --config, logging next to the archive.",
		RunE: func(cmd *cobra.Command, args []string) error {
			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("cannot determine executable path: %w", err)
			}
			spec, err := newServiceSpec(execPath, resolveConfigPath())
			if err != nil {
				return err
			}
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path, err := writeService(runtime.GOOS, home, spec)
			if err != nil {
				return err
			}

			logger.Info("daemon installed", "file", path, "config", spec.Config, "logs", filepath.Dir(spec.Log))
			if runtime.GOOS == "darwin" {
				fmt.Printf("To start: launchctl load %s\n", path)
				fmt.Printf("To stop:  launchctl unload %s\n", path)
			} else {
				fmt.Println("To start:  systemctl --user daemon-reload && systemctl --user start parrotbot")
				fmt.Println("To enable: systemctl --user enable parrotbot")
			}
			return nil
		},
	}
}

// writeService renders spec and writes it, creating the log directory the
// service manager will redirect output into.
func writeService(goos, home string, spec serviceSpec) (string, error) {
	path, err := servicePath(goos, home)
	if err != nil {
		return "", err
	}
	content, err := renderService(goos, spec)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(spec.Log), 0o755); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func uninstallDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the gateway service file",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path, err := servicePath(runtime.GOOS, home)
			if err != nil {
				return err
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove service file: %w", err)
			}
			logger.Info("daemon uninstalled", "file", path)
			return nil
		},
	}
}

const launchdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Exec}}</string>
        <string>gateway</string>
        <string>--config</string>
        <string>{{.Config}}</string>
    </array>
    <key>WorkingDirectory</key>
    <string>{{.WorkDir}}</string>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.Log}}</string>
    <key>StandardErrorPath</key>
    <string>{{.ErrLog}}</string>
</dict>
</plist>
`

const systemdTemplate = `[Unit]
Description=ParrotBot chat archive and parrot gateway
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
WorkingDirectory={{.WorkDir}}
ExecStart={{.Exec}} gateway --config {{.Config}}
ReadWritePaths={{.ArchiveDir}}
StandardOutput=append:{{.Log}}
StandardError=append:{{.ErrLog}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`
