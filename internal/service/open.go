package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/config"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/health"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/integrity"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/scheduler"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/storage"
)

// Open builds the services described by cfg. The caller must Close the result.
func Open(ctx context.Context, cfg *config.Config) (svc *Services, err error) {
	var closers []io.Closer
	defer func() {
		if err != nil {
			closeAll(closers)
		}
	}()

	if err := os.MkdirAll(cfg.App.StateDir(), 0700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	store, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}

	ageCodec, err := LoadAge(cfg.Age)
	if err != nil {
		return nil, err
	}

	locations, locClosers, err := OpenLocations(ctx, cfg.Locations, ageCodec)
	closers = append(closers, locClosers...)
	if err != nil {
		return nil, err
	}

	var reportLog *integrity.ReportLog
	if cfg.Integrity.LogPath != "" {
		reportLog, err = integrity.OpenReportLog(integrity.ReportLogConfig{
			Path:       cfg.Integrity.LogPath,
			SyncWrites: true,
		})
		if err != nil {
			return nil, err
		}
		closers = append(closers, reportLog)
	}

	svc, err = New(Deps{
		Store:       store,
		Writer:      storage.NewMultiWriter(locations...),
		Decoder:     storage.NewDecoder(ageCodec),
		Liveness:    health.NewChecker(LivenessProber(cfg.Liveness, store), cfg.Liveness.Timeout),
		ReportLog:   reportLog,
		StaleWindow: cfg.Integrity.StaleWindow,
		Schedule: scheduler.Config{
			Emergency: cfg.Schedule.Emergency,
			Full:      cfg.Schedule.Full,
			Integrity: cfg.Schedule.Integrity,
			StateDir:  cfg.App.StateDir(),
		},
	})
	if err != nil {
		return nil, err
	}
	svc.closers = closers

	names := make([]string, 0, len(locations))
	for _, l := range locations {
		names = append(names, l.Name+"="+l.Backend.Describe())
	}
	logging.Info("Backup services ready",
		logging.String("store", cfg.Store.Driver),
		logging.Strings("locations", names),
		logging.String("liveness", cfg.Liveness.Mode))
	return svc, nil
}

// OpenStore opens the record store selected by cfg.Driver.
func OpenStore(cfg config.StoreConfig) (recordstore.Store, error) {
	switch cfg.Driver {
	case "memory":
		return recordstore.NewMemoryStore(), nil
	case "sqlite", "":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		return recordstore.OpenSQLite(cfg.Path)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// LoadAge builds the age codec from the configured recipients and identity
// file. It returns nil when neither is configured.
func LoadAge(cfg config.AgeConfig) (*storage.Age, error) {
	if cfg.Recipients == "" && cfg.IdentityFile == "" {
		return nil, nil
	}
	var identities string
	if cfg.IdentityFile != "" {
		data, err := os.ReadFile(cfg.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("reading age identity file: %w", err)
		}
		identities = string(data)
	}
	return storage.NewAge(cfg.Recipients, identities)
}

// OpenLocations creates a storage.Location per configured location. The
// returned closers release remote clients and are valid even on error.
func OpenLocations(ctx context.Context, cfgs []config.LocationConfig, ageCodec *storage.Age) ([]storage.Location, []io.Closer, error) {
	var (
		locations []storage.Location
		closers   []io.Closer
	)
	for _, lc := range cfgs {
		codec, err := codecFor(lc, ageCodec)
		if err != nil {
			return nil, closers, err
		}

		loc := storage.Location{Name: lc.Name, Codec: codec, Retry: storage.NoRetry()}
		switch lc.Type {
		case config.LocationFilesystem:
			loc.Backend = storage.NewFileSystemBackend(lc.Path)
		case config.LocationS3:
			b, err := storage.NewS3Backend(ctx, storage.S3Config{
				Bucket:          lc.Bucket,
				Prefix:          lc.Prefix,
				Region:          lc.Region,
				Endpoint:        lc.Endpoint,
				AccessKeyID:     lc.AccessKeyID,
				SecretAccessKey: lc.SecretAccessKey,
			})
			if err != nil {
				return nil, closers, fmt.Errorf("location %s: %w", lc.Name, err)
			}
			loc.Backend = b
			loc.Retry = storage.DefaultRetryStrategy()
		case config.LocationGCS:
			b, err := storage.NewGCSBackend(ctx, storage.GCSConfig{
				Bucket:          lc.Bucket,
				Prefix:          lc.Prefix,
				CredentialsFile: lc.CredentialsFile,
			})
			if err != nil {
				return nil, closers, fmt.Errorf("location %s: %w", lc.Name, err)
			}
			closers = append(closers, b)
			loc.Backend = b
			loc.Retry = storage.DefaultRetryStrategy()
		default:
			return nil, closers, fmt.Errorf("location %s: unknown type %q", lc.Name, lc.Type)
		}

		if lc.MaxRetries > 0 {
			r := *storage.DefaultRetryStrategy()
			r.MaxRetries = lc.MaxRetries
			loc.Retry = &r
		}
		locations = append(locations, loc)
	}
	return locations, closers, nil
}

func codecFor(lc config.LocationConfig, ageCodec *storage.Age) (storage.Codec, error) {
	switch lc.Codec {
	case "", "plain":
		return storage.Plain{}, nil
	case "zstd":
		return storage.Zstd{}, nil
	case "age":
		if ageCodec == nil || !ageCodec.CanEncrypt() {
			return nil, fmt.Errorf("location %s: age codec needs at least one recipient", lc.Name)
		}
		return ageCodec, nil
	}
	return nil, fmt.Errorf("location %s: unknown codec %q", lc.Name, lc.Codec)
}

// LivenessProber selects the liveness probe for cfg.Mode.
func LivenessProber(cfg config.LivenessConfig, store recordstore.Store) health.Prober {
	switch cfg.Mode {
	case "http":
		return health.NewHTTPProber(cfg.BaseURL, cfg.Path)
	case "both":
		return health.All(health.NewStoreProber(store), health.NewHTTPProber(cfg.BaseURL, cfg.Path))
	}
	return health.NewStoreProber(store)
}

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logging.Warn("Close failed", logging.Err(err))
		}
	}
}
