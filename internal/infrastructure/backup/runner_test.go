package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunnerRun(t *testing.T) {
	tempDir := t.TempDir()
	logger, _ := zap.NewDevelopment()

	dbPath := filepath.Join(tempDir, "live.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("sqlite payload"), 0644))

	outputDir := filepath.Join(tempDir, "backups")

	t.Run("copies the database file", func(t *testing.T) {
		r := NewRunner(Config{DatabasePath: dbPath, OutputDir: outputDir}, logger)
		require.NoError(t, r.Run(context.Background()))

		entries, err := os.ReadDir(outputDir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, strings.HasPrefix(entries[0].Name(), "taskline_"))
		assert.True(t, strings.HasSuffix(entries[0].Name(), ".db"))

		copied, err := os.ReadFile(filepath.Join(outputDir, entries[0].Name()))
		require.NoError(t, err)
		assert.Equal(t, []byte("sqlite payload"), copied)
	})

	t.Run("fails when the database file is missing", func(t *testing.T) {
		r := NewRunner(Config{
			DatabasePath: filepath.Join(tempDir, "missing.db"),
			OutputDir:    outputDir,
		}, logger)
		assert.Error(t, r.Run(context.Background()))
	})
}

func TestRunnerPrune(t *testing.T) {
	tempDir := t.TempDir()
	logger, _ := zap.NewDevelopment()

	dbPath := filepath.Join(tempDir, "live.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("sqlite payload"), 0644))

	outputDir := filepath.Join(tempDir, "backups")
	require.NoError(t, os.MkdirAll(outputDir, 0755))

	// Older copies with names that sort before anything Run produces, plus
	// an unrelated file pruning must not touch.
	old := []string{
		"taskline_20250101_000000.db",
		"taskline_20250102_000000.db",
		"taskline_20250103_000000.db",
	}
	for _, name := range old {
		require.NoError(t, os.WriteFile(filepath.Join(outputDir, name), []byte("old"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "notes.txt"), []byte("keep"), 0644))

	r := NewRunner(Config{DatabasePath: dbPath, OutputDir: outputDir, Keep: 2}, logger)
	require.NoError(t, r.Run(context.Background()))

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)

	var backups []string
	unrelated := false
	for _, entry := range entries {
		if entry.Name() == "notes.txt" {
			unrelated = true
			continue
		}
		backups = append(backups, entry.Name())
	}

	assert.True(t, unrelated, "unrelated file was pruned")
	require.Len(t, backups, 2, "retention should keep the two newest copies")
	for _, name := range old[:2] {
		assert.NotContains(t, backups, name)
	}
}
