package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Config
		wantErr string
	}{
		{
			name:    "empty file uses defaults",
			content: "",
			want:    DefaultConfig(),
		},
		{
			name: "overrides values",
			content: `db_path: /var/lib/qops/qops.db
log_level: debug
default_project: checkout
strict_metrics: true
failure_rate_tolerance: 0.5
`,
			want: &Config{
				DBPath:               "/var/lib/qops/qops.db",
				LogLevel:             "debug",
				DefaultProject:       "checkout",
				StrictMetrics:        true,
				FailureRateTolerance: 0.5,
			},
		},
		{
			name:    "invalid yaml",
			content: "db_path: [unterminated",
			wantErr: "failed to parse config file",
		},
		{
			name:    "negative tolerance",
			content: "failure_rate_tolerance: -1",
			wantErr: "failure_rate_tolerance must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg, err := LoadConfig(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
