package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/stratadb/logger"
)

func discardLoggerFactory(captured *logger.LogConfiguration) LoggerFactory {
	return func(cfg *logger.LogConfiguration) (*slog.Logger, error) {
		if captured != nil {
			*captured = *cfg
		}
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nil
	}
}

// executeProbe runs the application with a no-op subcommand so that the
// configuration initialization of the base command is exercised.
func executeProbe(t *testing.T, app *stratadbApp, args ...string) error {
	t.Helper()
	app.baseCmd.AddCommand(&cobra.Command{
		Use:  "probe",
		RunE: func(cmd *cobra.Command, args []string) error { return nil },
	})
	app.baseCmd.SetArgs(append([]string{"probe"}, args...))
	return app.Execute(context.Background())
}

func Test_baseCmd_logLevelFromEnv(t *testing.T) {
	t.Setenv("STRATA_HOME", t.TempDir())
	t.Setenv("STRATA_LOG_LEVEL", "warn")

	var cfg logger.LogConfiguration
	require.NoError(t, executeProbe(t, New(discardLoggerFactory(&cfg))))
	require.Equal(t, "warn", cfg.Level)
}

func Test_baseCmd_flagOverridesEnv(t *testing.T) {
	t.Setenv("STRATA_HOME", t.TempDir())
	t.Setenv("STRATA_LOG_LEVEL", "warn")

	var cfg logger.LogConfiguration
	require.NoError(t, executeProbe(t, New(discardLoggerFactory(&cfg)), "--log-level=error"))
	require.Equal(t, "error", cfg.Level)
}

func Test_baseCmd_loggerConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("STRATA_HOME", home)
	logCfg := filepath.Join(home, defaultLoggerConfigFile)
	require.NoError(t, os.WriteFile(logCfg, []byte("level: debug\nformat: json\n"), 0600))

	var cfg logger.LogConfiguration
	require.NoError(t, executeProbe(t, New(discardLoggerFactory(&cfg))))
	require.Equal(t, "debug", cfg.Level)
	require.Equal(t, "json", cfg.Format)
}

func Test_baseCmd_invalidMetricsExporter(t *testing.T) {
	t.Setenv("STRATA_HOME", t.TempDir())

	err := executeProbe(t, New(discardLoggerFactory(nil)), "--metrics=nosuch")
	require.ErrorContains(t, err, `unsupported metrics exporter "nosuch"`)
}
