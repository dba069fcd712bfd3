package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Parser loads configuration with viper.
type Parser struct {
	v      *viper.Viper
	getenv func(string) string
}

// NewParser creates a parser with defaults and CLINICGUARD_* environment overrides.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("liveness.base_url", EnvPrefix+"_LIVENESS_BASE_URL", EnvPrefix+"_BASE_URL")
	setDefaults(v)
	return &Parser{v: v, getenv: os.Getenv}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.data_dir", DefaultDataDir())

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.api_key", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "")

	v.SetDefault("age.recipients", "")
	v.SetDefault("age.identity_file", "")

	v.SetDefault("schedule.emergency", "hourly")
	v.SetDefault("schedule.full", "0 2 * * *")
	v.SetDefault("schedule.integrity", "every 6h")
	v.SetDefault("schedule.auto_start", false)

	v.SetDefault("liveness.mode", "store")
	v.SetDefault("liveness.base_url", "")
	v.SetDefault("liveness.path", DefaultHealthPath)
	v.SetDefault("liveness.timeout", 5*time.Second)

	v.SetDefault("integrity.log_path", "")
	v.SetDefault("integrity.stale_window", 365*24*time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)

	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.service_name", "clinicguard")
}

// Load reads path when it is non-empty, otherwise defaults and environment only.
func (p *Parser) Load(path string) (*Config, error) {
	if path == "" {
		return p.parse()
	}
	return p.LoadFile(path)
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*Config, error) {
	p.v.SetConfigFile(path)
	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := p.parse()
	if err != nil {
		return nil, err
	}
	cfg.ConfigFile = path
	return cfg, nil
}

// LoadReader loads configuration from YAML content.
func (p *Parser) LoadReader(content string) (*Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return p.parse()
}

func (p *Parser) parse() (*Config, error) {
	v := p.v
	cfg := &Config{
		App: AppConfig{
			Environment: strings.ToLower(v.GetString("app.environment")),
			DataDir:     p.expandEnv(v.GetString("app.data_dir")),
		},
		Server: ServerConfig{
			Listen:          v.GetString("server.listen"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			RateLimit:       v.GetFloat64("server.rate_limit"),
			RateBurst:       v.GetInt("server.rate_burst"),
			CORSOrigins:     v.GetStringSlice("server.cors_origins"),
			APIKey:          p.expandEnv(v.GetString("server.api_key")),
		},
		Store: StoreConfig{
			Driver: v.GetString("store.driver"),
			Path:   p.expandEnv(v.GetString("store.path")),
		},
		Age: AgeConfig{
			Recipients:   p.expandEnv(v.GetString("age.recipients")),
			IdentityFile: p.expandEnv(v.GetString("age.identity_file")),
		},
		Schedule: ScheduleConfig{
			Emergency: v.GetString("schedule.emergency"),
			Full:      v.GetString("schedule.full"),
			Integrity: v.GetString("schedule.integrity"),
			AutoStart: v.GetBool("schedule.auto_start"),
		},
		Liveness: LivenessConfig{
			Mode:    v.GetString("liveness.mode"),
			BaseURL: ResolveBaseURL(v.GetString("liveness.base_url"), p.getenv),
			Path:    v.GetString("liveness.path"),
			Timeout: v.GetDuration("liveness.timeout"),
		},
		Integrity: IntegrityConfig{
			LogPath:     p.expandEnv(v.GetString("integrity.log_path")),
			StaleWindow: v.GetDuration("integrity.stale_window"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("logging.level"),
			JSON:  v.GetBool("logging.json"),
		},
		Tracing: TracingConfig{
			Exporter:    v.GetString("tracing.exporter"),
			ServiceName: v.GetString("tracing.service_name"),
		},
	}

	if cfg.App.DataDir == "" {
		return nil, errors.New("app.data_dir is required")
	}
	if cfg.Store.Path == "" && cfg.Store.Driver == "sqlite" {
		cfg.Store.Path = filepath.Join(cfg.App.DataDir, "records.db")
	}

	if v.IsSet("locations") {
		if err := v.UnmarshalKey("locations", &cfg.Locations); err != nil {
			return nil, fmt.Errorf("parsing locations: %w", err)
		}
		for i := range cfg.Locations {
			l := &cfg.Locations[i]
			l.Path = p.expandEnv(l.Path)
			l.AccessKeyID = p.expandEnv(l.AccessKeyID)
			l.SecretAccessKey = p.expandEnv(l.SecretAccessKey)
			l.CredentialsFile = p.expandEnv(l.CredentialsFile)
		}
	}
	if len(cfg.Locations) == 0 {
		cfg.Locations = DefaultLocations(cfg.App.DataDir)
		if cfg.Age.Recipients != "" {
			cfg.Locations[2].Codec = "age"
		}
	}
	if cfg.Integrity.LogPath == "" && cfg.App.Production() {
		cfg.Integrity.LogPath = filepath.Join(cfg.App.DataDir, "integrity")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.Expand(s, p.getenv)
}

// Validate checks values that have no usable default.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	switch cfg.Store.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("store.driver must be one of: sqlite, memory")
	}

	switch cfg.Liveness.Mode {
	case "store", "http", "both":
	default:
		return fmt.Errorf("liveness.mode must be one of: store, http, both")
	}

	switch cfg.Tracing.Exporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("tracing.exporter must be one of: none, stdout")
	}

	if cfg.Server.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}

	seen := make(map[string]bool, len(cfg.Locations))
	for i, l := range cfg.Locations {
		if l.Name == "" {
			return fmt.Errorf("locations[%d].name is required", i)
		}
		if seen[l.Name] {
			return fmt.Errorf("duplicate location name %q", l.Name)
		}
		seen[l.Name] = true

		switch l.Codec {
		case "", "plain", "zstd":
		case "age":
			if cfg.Age.Recipients == "" {
				return fmt.Errorf("location %s uses the age codec but age.recipients is empty", l.Name)
			}
		default:
			return fmt.Errorf("location %s: codec must be one of: plain, zstd, age", l.Name)
		}

		switch l.Type {
		case LocationFilesystem:
			if l.Path == "" {
				return fmt.Errorf("location %s: path is required", l.Name)
			}
		case LocationS3, LocationGCS:
			if l.Bucket == "" {
				return fmt.Errorf("location %s: bucket is required", l.Name)
			}
		default:
			return fmt.Errorf("location %s: type must be one of: filesystem, s3, gcs", l.Name)
		}
	}
	return nil
}
