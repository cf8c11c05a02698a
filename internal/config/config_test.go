package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qpcrcli/internal/ddct"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Server.MaxUploadBytes)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)

	opts, err := cfg.Analysis.Options()
	require.NoError(t, err)
	want := ddct.DefaultOptions()
	assert.Equal(t, want, opts)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  read_timeout: 5s
analysis:
  control_pattern: "^WT"
  reference_pattern: "GAPDH"
  outlier_method: iqr
  outlier_threshold: 1.5
  record_outliers: false
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "absent keys keep defaults")

	opts, err := cfg.Analysis.Options()
	require.NoError(t, err)
	assert.Equal(t, "^WT", opts.ControlPattern)
	assert.Equal(t, "GAPDH", opts.ReferencePattern)
	assert.Equal(t, ddct.MethodIQR, opts.OutlierMethod)
	assert.Equal(t, 1.5, opts.OutlierThreshold)
	assert.False(t, opts.RecordOutliers)
	assert.True(t, opts.OutlierFilter)
	assert.Equal(t, 3, opts.MinReps)
}

func TestLoadFileEnvWins(t *testing.T) {
	path := writeConfigFile(t, `
analysis:
  min_reps: 4
  control_column: Label
`)
	t.Setenv("DDCT_ANALYSIS_MIN_REPS", "6")
	t.Setenv("DDCT_ANALYSIS_CASE_SENSITIVE", "true")
	t.Setenv("DDCT_SECURITY_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Analysis.MinReps)
	assert.Equal(t, "Label", cfg.Analysis.ControlColumn)
	assert.True(t, cfg.Analysis.CaseSensitive)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{name: "bad yaml", content: "server: [", wantErr: "failed to load config from file"},
		{name: "bad env value", env: map[string]string{"DDCT_SERVER_PORT": "http"}, wantErr: "failed to load config from env"},
		{name: "port out of range", content: "server:\n  port: 70000\n", wantErr: "invalid server port"},
		{name: "unknown method", content: "analysis:\n  outlier_method: grubbs\n", wantErr: "unknown outlier method"},
		{name: "zero min reps", content: "analysis:\n  min_reps: 0\n", wantErr: "MinReps failed min"},
		{name: "negative threshold", content: "analysis:\n  outlier_threshold: -1\n", wantErr: "OutlierThreshold failed gte"},
		{name: "blank cq column", content: "analysis:\n  cq_column: \"\"\n", wantErr: "Columns.Cq"},
		{name: "bad output", content: "logging:\n  output: syslog\n", wantErr: "invalid logging output"},
		{name: "bad format", content: "analysis:\n  output_format: ods\n", wantErr: "invalid output format"},
		{name: "bad exporter", content: "telemetry:\n  trace_exporter: jaeger\n", wantErr: "invalid trace exporter"},
		{name: "zero parallel", content: "analysis:\n  parallel: 0\n", wantErr: "parallel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.content != "" {
				path = writeConfigFile(t, tt.content)
			}
			_, err := LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateNormalisesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "both"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, DefaultLogFile, cfg.Logging.FilePath)
}

func TestGetConfigFilePathFromEnv(t *testing.T) {
	t.Setenv(ConfigFileEnv, "/etc/ddct/config.yaml")
	assert.Equal(t, "/etc/ddct/config.yaml", getConfigFilePath())
}

func TestLoadUsesConfigFileEnv(t *testing.T) {
	path := writeConfigFile(t, "analysis:\n  sheet: Results\n")
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Results", cfg.Analysis.Sheet)
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "^CTR", cfg.Analysis.ControlPattern)
	assert.Equal(t, "^ACTB$", cfg.Analysis.ReferencePattern)

	opts, err := cfg.Analysis.Options()
	require.NoError(t, err)
	require.NoError(t, opts.Validate())
}
