// Package config defines the service configuration and loads it from YAML
// plus CLINICGUARD_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// EnvPrefix prefixes every environment override, e.g. CLINICGUARD_SERVER_LISTEN.
const EnvPrefix = "CLINICGUARD"

// Liveness defaults.
const (
	DefaultBaseURL    = "http://localhost:3000"
	DefaultHealthPath = "/api/health"
)

// Config is the complete service configuration.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Store     StoreConfig
	Locations []LocationConfig
	Age       AgeConfig
	Schedule  ScheduleConfig
	Liveness  LivenessConfig
	Integrity IntegrityConfig
	Logging   LoggingConfig
	Tracing   TracingConfig

	// ConfigFile is the file the config was read from, if any.
	ConfigFile string
}

type AppConfig struct {
	Environment string
	// DataDir is the root for the record store, default locations and lock files.
	DataDir string
}

// Production reports whether the service runs in production mode.
func (a AppConfig) Production() bool {
	return a.Environment == "production"
}

// StateDir holds lock files shared between instances.
func (a AppConfig) StateDir() string {
	return filepath.Join(a.DataDir, "state")
}

type ServerConfig struct {
	Listen          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
	// APIKey, when set, is required by the RPC endpoints.
	APIKey string
}

type StoreConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string
	Path   string
}

// Location types.
const (
	LocationFilesystem = "filesystem"
	LocationS3         = "s3"
	LocationGCS        = "gcs"
)

// LocationConfig describes one backup destination.
type LocationConfig struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
	// Codec is "plain", "zstd" or "age".
	Codec string `mapstructure:"codec"`

	Path string `mapstructure:"path"`

	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	CredentialsFile string `mapstructure:"credentials_file"`

	MaxRetries int `mapstructure:"max_retries"`
}

type AgeConfig struct {
	// Recipients are age1... public keys, one per line.
	Recipients string
	// IdentityFile holds AGE-SECRET-KEY-1... identities used to read encrypted copies.
	IdentityFile string
}

type ScheduleConfig struct {
	Emergency string
	Full      string
	Integrity string
	// AutoStart starts the timers outside production too.
	AutoStart bool
}

type LivenessConfig struct {
	// Mode is "store", "http" or "both".
	Mode    string
	BaseURL string
	Path    string
	Timeout time.Duration
}

type IntegrityConfig struct {
	// LogPath is the badger directory for audit reports; empty keeps reports in memory.
	LogPath     string
	StaleWindow time.Duration
}

type LoggingConfig struct {
	Level string
	JSON  bool
}

type TracingConfig struct {
	// Exporter is "none" or "stdout".
	Exporter    string
	ServiceName string
}

// DefaultDataDir returns ~/.clinicguard
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clinicguard"
	}
	return filepath.Join(home, ".clinicguard")
}

// DefaultLocations are the three redundant local directories under dataDir.
func DefaultLocations(dataDir string) []LocationConfig {
	return []LocationConfig{
		{Name: "primary", Type: LocationFilesystem, Codec: "plain", Path: filepath.Join(dataDir, "backups")},
		{Name: "compressed", Type: LocationFilesystem, Codec: "zstd", Path: filepath.Join(dataDir, "backups", "compressed")},
		{Name: "security", Type: LocationFilesystem, Codec: "plain", Path: filepath.Join(dataDir, "security-backups")},
	}
}

// ResolveBaseURL picks the liveness base URL: the configured value, then the
// BASE_URL and PUBLIC_BASE_URL environment variables, then DefaultBaseURL.
func ResolveBaseURL(configured string, getenv func(string) string) string {
	if configured != "" {
		return configured
	}
	for _, key := range []string{"BASE_URL", "PUBLIC_BASE_URL"} {
		if v := getenv(key); v != "" {
			return v
		}
	}
	return DefaultBaseURL
}
