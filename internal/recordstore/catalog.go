// Package recordstore is the boundary between the backup subsystem and the
// clinical record store. Records are opaque documents; the only structure the
// subsystem relies on is the natural key of each protected collection.
package recordstore

import (
	"fmt"
	"strings"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
)

// Record is a single opaque document from a collection.
type Record map[string]any

// Protected collection names.
const (
	Patients              = "patients"
	CommunicationContacts = "communicationContacts"
	Appointments          = "appointments"
	MedicalRecords        = "medicalRecords"
	Consultations         = "consultations"
	Reviews               = "reviews"
	Users                 = "users"
	AuditLogs             = "auditLogs"
	ScheduleBlocks        = "scheduleBlocks"
)

// CollectionSpec describes a protected collection.
type CollectionSpec struct {
	Name string
	// KeyFields are tried in order when looking up an existing record.
	KeyFields []string
}

var catalog = []CollectionSpec{
	{Name: Patients, KeyFields: []string{"cpf", "id"}},
	{Name: CommunicationContacts, KeyFields: []string{"email", "id"}},
	{Name: Appointments, KeyFields: []string{"id"}},
	{Name: MedicalRecords, KeyFields: []string{"id"}},
	{Name: Consultations, KeyFields: []string{"id"}},
	{Name: Reviews, KeyFields: []string{"id"}},
	{Name: Users, KeyFields: []string{"email", "username"}},
	{Name: AuditLogs, KeyFields: []string{"id"}},
	{Name: ScheduleBlocks, KeyFields: []string{"id"}},
}

// Protected returns the protected collection names in canonical order.
func Protected() []string {
	names := make([]string, len(catalog))
	for i, c := range catalog {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the spec for a collection.
func Lookup(name string) (CollectionSpec, bool) {
	for _, c := range catalog {
		if c.Name == name {
			return c, true
		}
	}
	return CollectionSpec{}, false
}

// IsProtected reports whether name is one of the protected collections.
func IsProtected(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Key identifies a record by one of its natural-key fields.
type Key struct {
	Field string
	Value string
}

func (k Key) String() string {
	return k.Field + "=" + k.Value
}

// NaturalKey returns the first populated key field of rec.
func NaturalKey(collection string, rec Record) (Key, error) {
	spec, ok := Lookup(collection)
	if !ok {
		return Key{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownCollection, collection)
	}
	for _, field := range spec.KeyFields {
		if v := FieldString(rec, field); v != "" {
			return Key{Field: field, Value: v}, nil
		}
	}
	return Key{}, fmt.Errorf("%w: %s needs one of %s", apperrors.ErrMissingNaturalKey,
		collection, strings.Join(spec.KeyFields, ", "))
}

// FieldString renders a scalar field as a string; missing or nil fields yield "".
func FieldString(rec Record, field string) string {
	v, ok := rec[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Clone returns a shallow copy of rec.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
