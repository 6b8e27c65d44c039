package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"parrotbot/internal/archive"
	"parrotbot/internal/config"

	"github.com/spf13/cobra"
)

// Entry names inside a backup. The manifest is always the first entry.
const (
	backupManifestName = "manifest.json"
	backupDBName       = "archive.db"
	backupConfigStem   = "config"
)

// backupManifest describes the archive a backup was taken from.
type backupManifest struct {
	Version       string    `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	SchemaVersion int       `json:"schemaVersion"`
	Users         int       `json:"users"`
	Groups        int       `json:"groups"`
	Messages      int       `json:"messages"`
	Config        string    `json:"config,omitempty"` // entry name of the config file, if included
}

func backupCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the message archive and config into a .tar.gz",
		Long: `Takes a consistent snapshot of the SQLite archive (safe while the
gateway is running) and packs it with the config file and a manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := config.ExpandPath(resolveConfigPath())
			dbPath := resolveDBPath(cfgPath)

			if outputPath == "" {
				backupDir := filepath.Join(filepath.Dir(dbPath), "backups")
				if err := os.MkdirAll(backupDir, 0o755); err != nil {
					return fmt.Errorf("cannot create backup directory: %w", err)
				}
				ts := time.Now().Format("20060102-150405")
				outputPath = filepath.Join(backupDir, fmt.Sprintf("parrotbot-backup-%s.tar.gz", ts))
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			m, err := createBackup(ctx, outputPath, dbPath, cfgPath)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			var size int64
			if info, err := os.Stat(outputPath); err == nil {
				size = info.Size()
			}
			logger.Info("backup created",
				"file", outputPath,
				"size", humanSize(size),
				"schema_version", m.SchemaVersion,
				"users", m.Users,
				"messages", m.Messages,
				"config", m.Config != "",
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: backups/ next to the archive)")
	return cmd
}

func restoreCmd() *cobra.Command {
	var inputPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "restore [file.tar.gz]",
		Short: "Restore the message archive and config from a backup",
		Long: `Restores a backup created by 'parrotbot backup'. Stop the gateway
first: the archive file is replaced underneath it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" && len(args) > 0 {
				inputPath = args[0]
			}
			if inputPath == "" {
				return errors.New("specify a backup file: parrotbot restore <file.tar.gz>")
			}

			cfgPath := config.ExpandPath(resolveConfigPath())
			dbPath := resolveDBPath(cfgPath)

			if !force {
				for _, p := range []string{dbPath, cfgPath} {
					if _, err := os.Stat(p); err == nil {
						return fmt.Errorf("%s exists and would be overwritten (use --force to proceed)", p)
					}
				}
			}

			m, restored, err := restoreBackup(inputPath, dbPath, cfgPath)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			// Opening the store migrates an older snapshot and proves it is readable.
			store, err := archive.NewSQLiteStore(dbPath, logger)
			if err != nil {
				return fmt.Errorf("restored archive is unusable: %w", err)
			}
			defer store.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sum, err := store.Summarize(ctx)
			if err != nil {
				return fmt.Errorf("restored archive is unusable: %w", err)
			}

			logger.Info("restore completed",
				"from", inputPath,
				"taken", m.CreatedAt.Format(time.RFC3339),
				"files", strings.Join(restored, ", "),
				"users", sum.Users,
				"messages", sum.Messages,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "backup file to restore from")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite the existing archive and config")
	return cmd
}

// resolveDBPath returns the archive path from the config, or the default
// archive path when the config cannot be loaded.
func resolveDBPath(cfgPath string) string {
	if cfg, err := config.Load(cfgPath); err == nil {
		return cfg.Archive.DBPath
	}
	return config.ExpandPath(config.Defaults().Archive.DBPath)
}

// createBackup snapshots the archive at dbPath and writes it, the config at
// cfgPath (when present) and a manifest to outputPath.
func createBackup(ctx context.Context, outputPath, dbPath, cfgPath string) (backupManifest, error) {
	var m backupManifest
	if _, err := os.Stat(dbPath); err != nil {
		return m, fmt.Errorf("no archive at %s: %w", dbPath, err)
	}

	tmpDir, err := os.MkdirTemp("", "parrotbot-backup-")
	if err != nil {
		return m, err
	}
	defer os.RemoveAll(tmpDir)

	store, err := archive.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return m, err
	}
	defer store.Close()

	sum, err := store.Summarize(ctx)
	if err != nil {
		return m, err
	}
	snapshot := filepath.Join(tmpDir, backupDBName)
	if err := store.Snapshot(ctx, snapshot); err != nil {
		return m, err
	}

	m = backupManifest{
		Version:       version,
		CreatedAt:     time.Now().UTC(),
		SchemaVersion: sum.SchemaVersion,
		Users:         sum.Users,
		Groups:        sum.Groups,
		Messages:      sum.Messages,
	}
	if _, err := os.Stat(cfgPath); err == nil {
		m.Config = backupConfigStem + filepath.Ext(cfgPath)
	}
	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return m, err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return m, err
	}
	defer out.Close()
	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	if err := addTarEntry(tw, backupManifestName, bytes.NewReader(manifest), int64(len(manifest))); err != nil {
		return m, err
	}
	if err := addFileToTar(tw, backupDBName, snapshot); err != nil {
		return m, err
	}
	if m.Config != "" {
		if err := addFileToTar(tw, m.Config, cfgPath); err != nil {
			return m, err
		}
	}

	if err := tw.Close(); err != nil {
		return m, err
	}
	if err := gw.Close(); err != nil {
		return m, err
	}
	return m, out.Close()
}

func addFileToTar(tw *tar.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	return addTarEntry(tw, name, f, info.Size())
}

func addTarEntry(tw *tar.Writer, name string, r io.Reader, size int64) error {
	hdr := &tar.Header{Name: name, Mode: 0o600, Size: size, ModTime: time.Now()}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(tw, r); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	return nil
}

// restoreBackup unpacks a backup over dbPath and cfgPath. Files are staged
// beside their targets and renamed into place only after the whole backup
// has been read. Stale -wal and -shm files of the old archive are removed so
// SQLite cannot replay them onto the restored one. A config saved in another
// format keeps its own extension next to cfgPath.
func restoreBackup(backupPath, dbPath, cfgPath string) (backupManifest, []string, error) {
	var m backupManifest

	f, err := os.Open(backupPath)
	if err != nil {
		return m, nil, err
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		return m, nil, fmt.Errorf("not a valid gzip file: %w", err)
	}
	defer gr.Close()
	tr := tar.NewReader(gr)

	hdr, err := tr.Next()
	if err != nil || hdr.Name != backupManifestName {
		return m, nil, errors.New("not a parrotbot backup: manifest missing")
	}
	if err := json.NewDecoder(tr).Decode(&m); err != nil {
		return m, nil, fmt.Errorf("read manifest: %w", err)
	}
	if m.SchemaVersion > archive.LatestSchemaVersion {
		return m, nil, fmt.Errorf("backup has schema v%d, this build supports up to v%d", m.SchemaVersion, archive.LatestSchemaVersion)
	}

	staged := map[string]string{} // target -> staged file
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return m, nil, err
		}

		var target string
		switch {
		case hdr.Name == backupDBName:
			target = dbPath
		case m.Config != "" && hdr.Name == m.Config:
			target = strings.TrimSuffix(cfgPath, filepath.Ext(cfgPath)) + filepath.Ext(m.Config)
		default:
			return m, nil, fmt.Errorf("unexpected entry %q in backup", hdr.Name)
		}

		tmp, err := stageFile(target, tr)
		if err != nil {
			return m, nil, err
		}
		staged[target] = tmp
	}
	if _, ok := staged[dbPath]; !ok {
		return m, nil, errors.New("backup contains no archive")
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return m, nil, err
		}
	}
	var restored []string
	for target, tmp := range staged {
		if err := os.Rename(tmp, target); err != nil {
			return m, nil, err
		}
		delete(staged, target)
		restored = append(restored, target)
	}
	return m, restored, nil
}

func stageFile(target string, r io.Reader) (string, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	out, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".restore-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("extract %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

func humanSize(n int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case n >= gb:
		return fmt.Sprintf("%.1f GB", float64(n)/float64(gb))
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
