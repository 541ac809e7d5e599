package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const (
	rebarCSV = `timestamp,open,high,low,close,volume
2023-10-09 15:00:00,3490,3505,3485,3500,1000
2023-10-10 15:00:00,3500,3525,3495,3520,1200
2023-10-11 15:00:00,3520,3530,3500,3510,900
`
	contractsYAML = `rb:
  multiplier: 10
  margin_rate: 0.1
  commission_rate: 0.0002
  tick_size: 1
`
	runConfig = `{
	"nickname": "cli run",
	"strategy-settings": {"name": "buyandhold", "custom-settings": {"lots": 2}},
	"initial-capital": 1000000,
	"symbols": ["RB0"],
	"data-settings": {"source": "csv", "csv-data": {"directory": "data"}},
	"contracts-file": "contracts.yaml"
}`
)

func testApp() *cli.App {
	return &cli.App{
		Name: "backtester",
		Commands: []*cli.Command{
			runCommand,
			validateCommand,
			strategiesCommand,
			migrateCommand,
			importCommand,
		},
	}
}

func writeWorkspace(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "RB0.csv"), []byte(rebarCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contracts.yaml"), []byte(contractsYAML), 0o600))
	cfg := strings.Replace(runConfig, `"directory": "data"`, `"directory": "`+filepath.ToSlash(filepath.Join(dir, "data"))+`"`, 1)
	cfgPath = filepath.Join(dir, "run.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return dir, cfgPath
}

func TestValidateCommand(t *testing.T) {
	_, cfgPath := writeWorkspace(t)
	require.NoError(t, testApp().Run([]string{"backtester", "validate", "--config", cfgPath}))

	err := testApp().Run([]string{"backtester", "validate"})
	assert.ErrorIs(t, err, errNoConfig)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"symbols": ["CU0"]}`), 0o600))
	assert.Error(t, testApp().Run([]string{"backtester", "validate", bad}))
}

func TestRunCommand(t *testing.T) {
	dir, cfgPath := writeWorkspace(t)
	out := filepath.Join(dir, "results")
	require.NoError(t, testApp().Run([]string{"backtester", "run", "--config", cfgPath, "--output", out, "--format", "json,csv"}))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	require.NoError(t, testApp().Run([]string{"backtester", "run", cfgPath, cfgPath}), "several configs run concurrently")
}

func TestStrategiesCommand(t *testing.T) {
	assert.NoError(t, testApp().Run([]string{"backtester", "strategies"}))
}

func TestImportAndMigrateCommands(t *testing.T) {
	dir, _ := writeWorkspace(t)
	dsn := filepath.Join(dir, "candles.db")
	require.NoError(t, testApp().Run([]string{"backtester", "import", "--dir", filepath.Join(dir, "data"), "--symbol", "rb0", "--dsn", dsn}))
	assert.FileExists(t, dsn)
	require.NoError(t, testApp().Run([]string{"backtester", "migrate", "--dsn", dsn, "status"}))
	assert.Error(t, testApp().Run([]string{"backtester", "migrate", "--dsn", dsn, "--driver", "oracle", "up"}))
}
