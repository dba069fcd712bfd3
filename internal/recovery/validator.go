// Package recovery validates stored snapshots and restores them into the record store.
package recovery

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/snapshot"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/storage"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/tracing"
)

// Source reads stored snapshot copies by reference. *storage.MultiWriter implements it.
type Source interface {
	Read(ctx context.Context, ref string) (key string, data []byte, err error)
}

// ValidationResult is the outcome of validating one stored copy.
// Snapshot is only set when IsValid is true.
type ValidationResult struct {
	IsValid  bool
	Snapshot *snapshot.Snapshot
	Error    string

	// Err keeps the underlying error for classification by callers.
	Err error
}

// NotFound reports whether validation failed because the copy does not exist.
func (r ValidationResult) NotFound() bool {
	return errors.Is(r.Err, apperrors.ErrNotFound)
}

// Validator checks that a stored copy is decodable, complete and untampered.
type Validator struct {
	src      Source
	decoder  *storage.Decoder
	required []string
}

// NewValidator creates a Validator requiring every protected collection.
func NewValidator(src Source, decoder *storage.Decoder) *Validator {
	if decoder == nil {
		decoder = storage.NewDecoder(nil)
	}
	return &Validator{src: src, decoder: decoder, required: recordstore.Protected()}
}

// Validate never mutates the stored copy and never panics.
func (v *Validator) Validate(ctx context.Context, ref string) (result ValidationResult) {
	ctx, span := tracing.Start(ctx, "recovery.validate")
	defer func() {
		if r := recover(); r != nil {
			result = invalid(fmt.Errorf("invalid backup file: %v", r))
		}
		if result.IsValid {
			tracing.End(span, nil)
		} else {
			tracing.End(span, result.Err)
		}
	}()

	key, data, err := v.src.Read(ctx, ref)
	if err != nil {
		if errors.Is(err, apperrors.ErrOutsideBackupRoots) {
			// Paths outside every location are reported like missing files.
			logging.Warn("Rejected backup path outside configured locations", logging.String("path", ref))
			return invalid(apperrors.ErrNotFound)
		}
		return invalid(err)
	}

	doc, err := v.decoder.Decode(key, data)
	if err != nil {
		if errors.Is(err, apperrors.ErrIdentityRequired) {
			return invalid(err)
		}
		return invalid(&apperrors.ValidationError{Reason: "invalid backup file: " + err.Error(), Err: err})
	}

	snap, err := snapshot.Decode(doc, v.required)
	if err != nil {
		return invalid(err)
	}

	ok, err := snapshot.Verify(snap)
	if err != nil {
		return invalid(&apperrors.ValidationError{Reason: "invalid backup file: " + err.Error(), Err: err})
	}
	if !ok {
		return invalid(apperrors.ErrChecksumMismatch)
	}
	// totalRecords is outside the checksum, so compare it with what the file holds.
	if n := snap.RecordCount(); n != snap.TotalRecords {
		return invalid(&apperrors.ValidationError{
			Field:  snapshot.FieldTotalRecords,
			Reason: fmt.Sprintf("%s: file claims %d, collections hold %d", apperrors.ErrTotalRecordsMismatch, snap.TotalRecords, n),
			Err:    apperrors.ErrTotalRecordsMismatch,
		})
	}

	logging.Info("Backup validated",
		logging.String("ref", ref),
		logging.Int("totalRecords", snap.TotalRecords),
	)
	return ValidationResult{IsValid: true, Snapshot: snap}
}

func invalid(err error) ValidationResult {
	return ValidationResult{Error: err.Error(), Err: err}
}
