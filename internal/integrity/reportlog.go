package integrity

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
)

var reportPrefix = []byte("report/")

// ReportLogConfig configures the badger-backed report log.
type ReportLogConfig struct {
	// Path is the badger directory; ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// ReportLog is an append-only store of integrity reports ordered by time.
type ReportLog struct {
	db *badger.DB
}

// OpenReportLog opens (or creates) a report log.
func OpenReportLog(cfg ReportLogConfig) (*ReportLog, error) {
	path := cfg.Path
	if cfg.InMemory {
		path = ""
	} else if path == "" {
		return nil, fmt.Errorf("report log path required")
	}
	opts := badger.DefaultOptions(path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{l: logging.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening report log: %w", err)
	}
	return &ReportLog{db: db}, nil
}

// Close flushes and closes the log.
func (l *ReportLog) Close() error {
	return l.db.Close()
}

func reportKey(r *Report) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", reportPrefix, r.Timestamp.UnixNano(), r.ID))
}

// Append stores a report. Reports are never updated.
func (l *ReportLog) Append(r *Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(reportKey(r), data)
	})
}

// Recent returns up to limit reports, newest first. limit <= 0 returns all.
func (l *ReportLog) Recent(limit int) ([]Report, error) {
	var out []Report
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = reportPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, reportPrefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(reportPrefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var r Report
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading report log: %w", err)
	}
	return out, nil
}

type badgerLogger struct {
	l *zap.SugaredLogger
}

func (b badgerLogger) Errorf(format string, args ...interface{})   { b.l.Errorf(format, args...) }
func (b badgerLogger) Warningf(format string, args ...interface{}) { b.l.Warnf(format, args...) }
func (b badgerLogger) Infof(format string, args ...interface{})    { b.l.Debugf(format, args...) }
func (b badgerLogger) Debugf(format string, args ...interface{})   { b.l.Debugf(format, args...) }
