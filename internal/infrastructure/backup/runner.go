// Package backup copies the sqlite database file into a dated backup
// directory and prunes old copies.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaiwen/taskline/internal/application/port"
)

// Config holds backup configuration
type Config struct {
	// DatabasePath is the live sqlite file to copy.
	DatabasePath string
	// OutputDir receives dated copies.
	OutputDir string
	// Keep is how many recent copies survive pruning. Zero disables pruning.
	Keep int
}

// Runner implements port.BackupRunner with a file copy.
type Runner struct {
	cfg    Config
	logger *zap.Logger
}

// NewRunner creates a backup runner
func NewRunner(cfg Config, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logger,
	}
}

// Run copies the database file into the output directory with a timestamped
// name, then prunes copies beyond the retention count.
func (r *Runner) Run(ctx context.Context) error {
	if err := os.MkdirAll(r.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("taskline_%s.db", time.Now().Format("20060102_150405"))
	dst := filepath.Join(r.cfg.OutputDir, name)

	if err := copyFile(r.cfg.DatabasePath, dst); err != nil {
		r.logger.Error("Backup copy failed",
			zap.String("source", r.cfg.DatabasePath),
			zap.String("destination", dst),
			zap.Error(err))
		return fmt.Errorf("copy database: %w", err)
	}

	r.logger.Info("Backup written", zap.String("path", dst))

	if r.cfg.Keep > 0 {
		if err := r.prune(); err != nil {
			r.logger.Warn("Backup pruning failed", zap.Error(err))
		}
	}
	return nil
}

func (r *Runner) prune() error {
	entries, err := os.ReadDir(r.cfg.OutputDir)
	if err != nil {
		return err
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), "taskline_") && strings.HasSuffix(entry.Name(), ".db") {
			backups = append(backups, entry.Name())
		}
	}

	// Timestamped names sort chronologically.
	sort.Strings(backups)
	for len(backups) > r.cfg.Keep {
		victim := filepath.Join(r.cfg.OutputDir, backups[0])
		if err := os.Remove(victim); err != nil {
			return err
		}
		r.logger.Debug("Pruned old backup", zap.String("path", victim))
		backups = backups[1:]
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// Verify interface compliance
var _ port.BackupRunner = (*Runner)(nil)
