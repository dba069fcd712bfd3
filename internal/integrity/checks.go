package integrity

import (
	"fmt"
	"time"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
)

// StaleWindow is how far back a patient's last appointment may be.
const StaleWindow = 365 * 24 * time.Hour

// fields holding an appointment's date, in preference order
var appointmentDateFields = []string{"appointmentDate", "date", "createdAt"}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// patient-owned collections checked for dangling patient references
var patientOwned = []struct {
	collection string
	noun       string
}{
	{recordstore.Appointments, "appointments"},
	{recordstore.MedicalRecords, "medical records"},
	{recordstore.Consultations, "consultations"},
}

func checkEmpty(collection string, recs []recordstore.Record) []Issue {
	if len(recs) > 0 {
		return nil
	}
	return []Issue{{
		Type:        MissingData,
		Collection:  collection,
		Description: "collection is empty",
		Severity:    Medium,
	}}
}

// checkDuplicates flags repeated values of a collection's primary natural key.
func checkDuplicates(collection string, recs []recordstore.Record) []Issue {
	spec, ok := recordstore.Lookup(collection)
	if !ok || len(spec.KeyFields) == 0 {
		return nil
	}
	field := spec.KeyFields[0]
	seen := make(map[string]int, len(recs))
	dups := 0
	for _, r := range recs {
		v := recordstore.FieldString(r, field)
		if v == "" {
			continue
		}
		seen[v]++
		if seen[v] == 2 {
			dups++
		}
	}
	if dups == 0 {
		return nil
	}
	return []Issue{{
		Type:        InconsistentData,
		Collection:  collection,
		Description: fmt.Sprintf("%d duplicate %s values", dups, field),
		Severity:    High,
	}}
}

// patientIndex holds every identifier a child record may use to reference a patient.
func patientIndex(patients []recordstore.Record) map[string]bool {
	idx := make(map[string]bool, len(patients)*2)
	for _, p := range patients {
		for _, f := range []string{"id", "cpf"} {
			if v := recordstore.FieldString(p, f); v != "" {
				idx[v] = true
			}
		}
	}
	return idx
}

func checkOrphans(collection, noun string, recs []recordstore.Record, patients map[string]bool) []Issue {
	orphans := 0
	for _, r := range recs {
		ref := recordstore.FieldString(r, "patientId")
		if ref == "" || !patients[ref] {
			orphans++
		}
	}
	if orphans == 0 {
		return nil
	}
	return []Issue{{
		Type:        MissingData,
		Collection:  collection,
		Description: fmt.Sprintf("%d %s without an associated patient", orphans, noun),
		Severity:    High,
	}}
}

// checkStale flags patients with no appointment dated within window before now.
func checkStale(patients, appointments []recordstore.Record, now time.Time, window time.Duration) []Issue {
	cutoff := now.Add(-window)
	recent := make(map[string]bool)
	for _, a := range appointments {
		when, ok := appointmentDate(a)
		if !ok || when.Before(cutoff) {
			continue
		}
		if ref := recordstore.FieldString(a, "patientId"); ref != "" {
			recent[ref] = true
		}
	}

	stale := 0
	for _, p := range patients {
		id := recordstore.FieldString(p, "id")
		cpf := recordstore.FieldString(p, "cpf")
		if (id != "" && recent[id]) || (cpf != "" && recent[cpf]) {
			continue
		}
		stale++
	}
	if stale == 0 {
		return nil
	}
	return []Issue{{
		Type:        StaleData,
		Collection:  recordstore.Patients,
		Description: fmt.Sprintf("%d patients without recent appointments", stale),
		Severity:    Low,
	}}
}

func appointmentDate(r recordstore.Record) (time.Time, bool) {
	for _, f := range appointmentDateFields {
		s := recordstore.FieldString(r, f)
		if s == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
