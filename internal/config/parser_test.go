package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T, env map[string]string) *Parser {
	t.Helper()
	p := NewParser()
	p.getenv = func(k string) string { return env[k] }
	return p
}

func TestParser_LoadReader_MinimalConfig(t *testing.T) {
	yaml := `
app:
  data_dir: /var/lib/clinicguard
`
	cfg, err := newTestParser(t, nil).LoadReader(yaml)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.False(t, cfg.App.Production())
	assert.Equal(t, "/var/lib/clinicguard/state", cfg.App.StateDir())
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/clinicguard/records.db", cfg.Store.Path)
	assert.Equal(t, "hourly", cfg.Schedule.Emergency)
	assert.Equal(t, "0 2 * * *", cfg.Schedule.Full)
	assert.Equal(t, "every 6h", cfg.Schedule.Integrity)
	assert.Equal(t, 5*time.Second, cfg.Liveness.Timeout)
	assert.Equal(t, "store", cfg.Liveness.Mode)
	assert.Equal(t, DefaultBaseURL, cfg.Liveness.BaseURL)
	assert.Equal(t, "/api/health", cfg.Liveness.Path)
	assert.Empty(t, cfg.Integrity.LogPath)

	require.Len(t, cfg.Locations, 3)
	assert.Equal(t, "primary", cfg.Locations[0].Name)
	assert.Equal(t, "/var/lib/clinicguard/backups", cfg.Locations[0].Path)
	assert.Equal(t, "zstd", cfg.Locations[1].Codec)
	assert.Equal(t, "plain", cfg.Locations[2].Codec)
}

func TestParser_LoadReader_FullConfig(t *testing.T) {
	yaml := `
app:
  environment: Production
  data_dir: /srv/cg
server:
  listen: "127.0.0.1:9000"
  rate_limit: 2.5
  rate_burst: 5
  cors_origins: ["https://clinic.example"]
store:
  driver: memory
age:
  recipients: age1qyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqs3290gq
schedule:
  emergency: "every 30m"
  auto_start: true
liveness:
  mode: both
  base_url: https://api.clinic.example
  timeout: 2s
locations:
  - name: local
    type: filesystem
    path: ${BACKUP_ROOT}/local
  - name: offsite
    type: s3
    bucket: clinic-backups
    prefix: prod
    region: sa-east-1
    codec: age
    secret_access_key: ${AWS_SECRET}
  - name: archive
    type: gcs
    bucket: clinic-archive
    codec: zstd
tracing:
  exporter: stdout
`
	cfg, err := newTestParser(t, map[string]string{"BACKUP_ROOT": "/mnt/backup", "AWS_SECRET": "s3cr3t"}).LoadReader(yaml)
	require.NoError(t, err)

	assert.True(t, cfg.App.Production())
	assert.Equal(t, "/srv/cg/integrity", cfg.Integrity.LogPath)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, []string{"https://clinic.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "every 30m", cfg.Schedule.Emergency)
	assert.True(t, cfg.Schedule.AutoStart)
	assert.Equal(t, "https://api.clinic.example", cfg.Liveness.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Liveness.Timeout)

	require.Len(t, cfg.Locations, 3)
	assert.Equal(t, "/mnt/backup/local", cfg.Locations[0].Path)
	assert.Equal(t, LocationS3, cfg.Locations[1].Type)
	assert.Equal(t, "s3cr3t", cfg.Locations[1].SecretAccessKey)
	assert.Equal(t, "sa-east-1", cfg.Locations[1].Region)
	assert.Equal(t, "clinic-archive", cfg.Locations[2].Bucket)
}

func TestParser_LoadReader_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad driver", "store:\n  driver: postgres\n", "store.driver"},
		{"bad liveness", "liveness:\n  mode: ping\n", "liveness.mode"},
		{"missing bucket", "locations:\n  - name: s3\n    type: s3\n", "bucket is required"},
		{"missing path", "locations:\n  - name: a\n    type: filesystem\n", "path is required"},
		{"duplicate", "locations:\n  - {name: a, type: filesystem, path: /a}\n  - {name: a, type: filesystem, path: /b}\n", "duplicate location"},
		{"age without recipients", "locations:\n  - {name: a, type: filesystem, path: /a, codec: age}\n", "age.recipients"},
		{"bad type", "locations:\n  - {name: a, type: ftp}\n", "type must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser(t, nil).LoadReader("app:\n  data_dir: /tmp/cg\n" + tt.yaml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParser_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CLINICGUARD_SERVER_LISTEN", ":9999")
	t.Setenv("CLINICGUARD_BASE_URL", "https://from-env.example")
	t.Setenv("CLINICGUARD_APP_DATA_DIR", "/env/data")

	cfg, err := NewParser().Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Listen)
	assert.Equal(t, "https://from-env.example", cfg.Liveness.BaseURL)
	assert.Equal(t, "/env/data", cfg.App.DataDir)
}

func TestParser_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinicguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  data_dir: /opt/cg\nlogging:\n  level: debug\n"), 0600))

	cfg, err := newTestParser(t, nil).LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "debug", cfg.Logging.Level)

	_, err = NewParser().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveBaseURL(t *testing.T) {
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}
	assert.Equal(t, "https://cfg", ResolveBaseURL("https://cfg", env(map[string]string{"BASE_URL": "https://b"})))
	assert.Equal(t, "https://b", ResolveBaseURL("", env(map[string]string{"BASE_URL": "https://b", "PUBLIC_BASE_URL": "https://p"})))
	assert.Equal(t, "https://p", ResolveBaseURL("", env(map[string]string{"PUBLIC_BASE_URL": "https://p"})))
	assert.Equal(t, DefaultBaseURL, ResolveBaseURL("", env(nil)))
}
