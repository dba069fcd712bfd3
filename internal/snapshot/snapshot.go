// Package snapshot builds, stamps and (de)serializes point-in-time exports of
// the protected collections.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
)

// Kind tells why a snapshot was taken.
type Kind string

const (
	KindEmergency   Kind = "emergency"
	KindFull        Kind = "full"
	KindManual      Kind = "manual"
	KindPreRecovery Kind = "pre-recovery"
)

// ParseKind maps a file-name prefix or API value to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(s)) {
	case KindEmergency:
		return KindEmergency, true
	case KindFull:
		return KindFull, true
	case KindManual:
		return KindManual, true
	case KindPreRecovery:
		return KindPreRecovery, true
	}
	return "", false
}

// TimestampLayout is used in the document and in file names.
const (
	TimestampLayout = time.RFC3339Nano
	fileTimeLayout  = "20060102-150405"
)

// Snapshot is an immutable point-in-time export. The checksum covers Collections only.
type Snapshot struct {
	ID           string
	Kind         Kind
	Timestamp    time.Time
	Collections  map[string][]recordstore.Record
	TotalRecords int
	Checksum     string
}

// Counts returns the number of records per collection.
func (s *Snapshot) Counts() map[string]int {
	out := make(map[string]int, len(s.Collections))
	for name, recs := range s.Collections {
		out[name] = len(recs)
	}
	return out
}

// RecordCount sums the records actually held in Collections.
func (s *Snapshot) RecordCount() int {
	n := 0
	for _, recs := range s.Collections {
		n += len(recs)
	}
	return n
}

// BaseName is the storage key without codec extension.
func (s *Snapshot) BaseName() string {
	id := s.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("%s-backup-%s", s.Kind, s.Timestamp.UTC().Format(fileTimeLayout))
	if id != "" {
		name += "-" + id
	}
	return name + ".json"
}

// KindFromName detects the kind prefix of a stored snapshot name.
func KindFromName(name string) Kind {
	i := strings.Index(name, "-backup-")
	if i <= 0 {
		return ""
	}
	k, _ := ParseKind(name[:i])
	return k
}

// Reserved document fields; every other top-level key is a collection.
const (
	FieldID           = "id"
	FieldKind         = "kind"
	FieldTimestamp    = "timestamp"
	FieldTotalRecords = "totalRecords"
	FieldChecksum     = "checksum"
)

// Encode renders s as the persisted document: metadata plus one field per collection.
func Encode(s *Snapshot) ([]byte, error) {
	doc := make(map[string]any, len(s.Collections)+5)
	for name, recs := range s.Collections {
		if recs == nil {
			recs = []recordstore.Record{}
		}
		doc[name] = recs
	}
	doc[FieldID] = s.ID
	doc[FieldKind] = s.Kind
	doc[FieldTimestamp] = s.Timestamp.UTC().Format(TimestampLayout)
	doc[FieldTotalRecords] = s.TotalRecords
	doc[FieldChecksum] = s.Checksum

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a persisted document. Every name in required must be present
// as a top-level field, as must timestamp and checksum; a missing one yields a
// *errors.ValidationError. Collections not in required are kept as-is.
func Decode(data []byte, required []string) (*Snapshot, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &apperrors.ValidationError{Reason: "invalid backup file: " + err.Error(), Err: err}
	}

	for _, f := range append([]string{FieldTimestamp}, required...) {
		if _, ok := doc[f]; !ok {
			return nil, apperrors.MissingField(f)
		}
	}
	if _, ok := doc[FieldChecksum]; !ok {
		return nil, apperrors.MissingField(FieldChecksum)
	}

	s := &Snapshot{Collections: make(map[string][]recordstore.Record)}

	var ts string
	if err := json.Unmarshal(doc[FieldTimestamp], &ts); err != nil {
		return nil, invalidField(FieldTimestamp, err)
	}
	t, err := time.Parse(TimestampLayout, ts)
	if err != nil {
		return nil, invalidField(FieldTimestamp, err)
	}
	s.Timestamp = t

	if err := json.Unmarshal(doc[FieldChecksum], &s.Checksum); err != nil {
		return nil, invalidField(FieldChecksum, err)
	}
	if raw, ok := doc[FieldID]; ok {
		_ = json.Unmarshal(raw, &s.ID)
	}
	if raw, ok := doc[FieldKind]; ok {
		var k string
		_ = json.Unmarshal(raw, &k)
		s.Kind, _ = ParseKind(k)
	}
	raw, hasTotal := doc[FieldTotalRecords]
	if hasTotal {
		if err := json.Unmarshal(raw, &s.TotalRecords); err != nil {
			return nil, invalidField(FieldTotalRecords, err)
		}
	}

	for name, raw := range doc {
		switch name {
		case FieldID, FieldKind, FieldTimestamp, FieldTotalRecords, FieldChecksum:
			continue
		}
		recs, err := decodeRecords(raw)
		if err != nil {
			return nil, invalidField(name, err)
		}
		s.Collections[name] = recs
	}
	if !hasTotal {
		s.TotalRecords = s.RecordCount()
	}
	return s, nil
}

func decodeRecords(raw json.RawMessage) ([]recordstore.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var recs []recordstore.Record
	if err := dec.Decode(&recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []recordstore.Record{}
	}
	return recs, nil
}

func invalidField(field string, err error) error {
	return &apperrors.ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("invalid field %s: %v", field, err),
		Err:    err,
	}
}
