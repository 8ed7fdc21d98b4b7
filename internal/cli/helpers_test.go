package cli

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aqasim81/journal-migrate/internal/config"
)

// setupTestConfig points AppConfig at a database in a temp directory and
// silences the logger. Both are restored on cleanup.
func setupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	oldCfg, oldLogger, oldNoColor := AppConfig, logger, color.NoColor

	cfg := config.New()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "trading_journal.db")

	AppConfig = cfg
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	color.NoColor = true

	t.Cleanup(func() {
		AppConfig, logger, color.NoColor = oldCfg, oldLogger, oldNoColor
	})

	return cfg
}

// newTestCmd creates a fresh command wired to run with a captured output buffer.
func newTestCmd(run func(*cobra.Command, []string) error, flags func(*cobra.Command)) (*cobra.Command, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{Use: "test", RunE: run, SilenceUsage: true, SilenceErrors: true}

	if flags != nil {
		flags(cmd)
	}

	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	return cmd, buf
}

func migrateFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "")
	cmd.Flags().Bool("force", false, "")
}

// execute runs cmd with args and returns its output.
func execute(cmd *cobra.Command, buf *bytes.Buffer, args ...string) (string, error) {
	cmd.SetArgs(args)
	err := cmd.Execute()

	return buf.String(), err
}
