package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/journal-migrate/internal/config"
)

func newFlagCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", config.DefaultFile, "")
	cmd.Flags().String("env-file", filepath.Join(os.TempDir(), "journaldb-missing.env"), "")
	cmd.Flags().String("db", "", "")
	cmd.Flags().String("backup-dir", "", "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("format", "", "")

	return cmd
}

func TestMergeFlags_overridesConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cmd := newFlagCmd()

	require.NoError(t, cmd.Flags().Set("db", "/srv/journal.db"))
	require.NoError(t, cmd.Flags().Set("backup-dir", "/srv/backups"))
	require.NoError(t, cmd.Flags().Set("log-level", "debug"))
	require.NoError(t, cmd.Flags().Set("format", "JSON"))

	mergeFlags(cmd, cfg)
	assert.Equal(t, "/srv/journal.db", cfg.DatabasePath)
	assert.Equal(t, "/srv/backups", cfg.BackupDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.Format)
}

func TestMergeFlags_unchangedFlags_preserveConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cfg.DatabasePath = "/original/journal.db"
	cfg.BackupDir = "/original/backups"

	mergeFlags(newFlagCmd(), cfg)
	assert.Equal(t, "/original/journal.db", cfg.DatabasePath)
	assert.Equal(t, "/original/backups", cfg.BackupDir)
	assert.Equal(t, config.DefaultFormat, cfg.Format)
}

func TestLoadConfig_missingFile_usesDefaults(t *testing.T) { // not parallel: mutates global AppConfig
	setupTestConfig(t)

	cmd := newFlagCmd()
	require.NoError(t, cmd.Flags().Set("db", "/tmp/journal.db"))

	require.NoError(t, loadConfig(cmd))
	require.NotNil(t, AppConfig)
	assert.Equal(t, "/tmp/journal.db", AppConfig.DatabasePath)
	assert.Equal(t, config.DefaultBackupRetention, AppConfig.BackupRetention)
	assert.Equal(t, config.DefaultBusyTimeout, AppConfig.BusyTimeout)
}

func TestLoadConfig_validFile_loadsValues(t *testing.T) { // not parallel: mutates global AppConfig
	setupTestConfig(t)

	cfgPath := filepath.Join(t.TempDir(), "journaldb.yml")
	yamlContent := "database_path: /from/yaml.db\nbackup_retention: 2\nformat: json\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0o600))

	cmd := newFlagCmd()
	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	require.NoError(t, loadConfig(cmd))
	assert.Equal(t, "/from/yaml.db", AppConfig.DatabasePath)
	assert.Equal(t, 2, AppConfig.BackupRetention)
	assert.Equal(t, "json", outputFormat())
}

func TestLoadConfig_invalidFile_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	setupTestConfig(t)

	cfgPath := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("backup_retention: [unclosed"), 0o600))

	cmd := newFlagCmd()
	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestLoadConfig_invalidValue_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	setupTestConfig(t)

	cmd := newFlagCmd()
	require.NoError(t, cmd.Flags().Set("format", "xml"))

	err := loadConfig(cmd)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewLogger_jsonFormat_writesJSON(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	l := newLogger(buf, slog.LevelInfo, "json")

	l.Debug("hidden")
	l.Info("migration applied", "version", 3)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"migration applied"`)
	assert.Contains(t, buf.String(), `"version":3`)
}

func TestIsTerminal_buffer_returnsFalse(t *testing.T) {
	t.Parallel()

	assert.False(t, isTerminal(new(bytes.Buffer)))
}
