// Package testutil provides shared test fixtures for the backup and recovery packages.
// Fixtures follow a builder pattern:
//
//	store := testutil.NewClinicFixture(t).WithPatients(3).WithAppointments(2).MustBuild()
package testutil

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
	"os"
	"testing"
	"time"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
)

// ReferenceTime is the fixed "now" used by clinic fixtures.
var ReferenceTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// GetTestSeed returns a seed for deterministic fixture data.
// CLINICGUARD_TEST_SEED overrides the random seed so failures can be reproduced.
func GetTestSeed(t *testing.T) int64 {
	t.Helper()

	if seedStr := os.Getenv("CLINICGUARD_TEST_SEED"); seedStr != "" {
		var seed int64
		if _, err := fmt.Sscanf(seedStr, "%d", &seed); err == nil {
			t.Logf("Using seed from CLINICGUARD_TEST_SEED: %d", seed)
			return seed
		}
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatalf("Failed to generate random seed: %v", err)
	}
	seed := n.Int64()
	t.Logf("Generated test seed: %d (set CLINICGUARD_TEST_SEED=%d to reproduce)", seed, seed)
	return seed
}

// ClinicFixtureBuilder assembles an in-memory record store with clinical data.
type ClinicFixtureBuilder struct {
	t   *testing.T
	rnd *mrand.Rand

	patients        int
	appointments    int
	orphanAppts     int
	orphanRecords   int
	stalePatients   int
	fillOthers      bool
	emptyCollection map[string]bool
}

// NewClinicFixture starts a builder. By default every protected collection gets one record.
func NewClinicFixture(t *testing.T) *ClinicFixtureBuilder {
	t.Helper()
	return &ClinicFixtureBuilder{
		t:               t,
		rnd:             mrand.New(mrand.NewSource(GetTestSeed(t))),
		patients:        1,
		appointments:    1,
		fillOthers:      true,
		emptyCollection: make(map[string]bool),
	}
}

// WithPatients sets the number of patients with a recent appointment each.
func (b *ClinicFixtureBuilder) WithPatients(n int) *ClinicFixtureBuilder {
	b.patients = n
	return b
}

// WithAppointments sets how many recent appointments each patient has.
func (b *ClinicFixtureBuilder) WithAppointments(perPatient int) *ClinicFixtureBuilder {
	b.appointments = perPatient
	return b
}

// WithOrphanAppointments adds appointments referencing patients that do not exist.
func (b *ClinicFixtureBuilder) WithOrphanAppointments(n int) *ClinicFixtureBuilder {
	b.orphanAppts = n
	return b
}

// WithOrphanMedicalRecords adds medical records referencing patients that do not exist.
func (b *ClinicFixtureBuilder) WithOrphanMedicalRecords(n int) *ClinicFixtureBuilder {
	b.orphanRecords = n
	return b
}

// WithStalePatients adds patients whose only appointment is older than a year.
func (b *ClinicFixtureBuilder) WithStalePatients(n int) *ClinicFixtureBuilder {
	b.stalePatients = n
	return b
}

// WithEmpty leaves the named collections without records.
func (b *ClinicFixtureBuilder) WithEmpty(collections ...string) *ClinicFixtureBuilder {
	for _, c := range collections {
		b.emptyCollection[c] = true
	}
	return b
}

// Build populates a new memory store.
func (b *ClinicFixtureBuilder) Build() (*recordstore.MemoryStore, error) {
	store := recordstore.NewMemoryStore()
	data := make(map[string][]recordstore.Record)

	recent := ReferenceTime.AddDate(0, -1, 0)
	old := ReferenceTime.AddDate(-2, 0, 0)

	for i := 1; i <= b.patients; i++ {
		pid := fmt.Sprintf("p%d", i)
		data[recordstore.Patients] = append(data[recordstore.Patients], b.patient(pid, i))
		for j := 1; j <= b.appointments; j++ {
			data[recordstore.Appointments] = append(data[recordstore.Appointments],
				appointment(fmt.Sprintf("a%d-%d", i, j), pid, recent))
		}
		data[recordstore.MedicalRecords] = append(data[recordstore.MedicalRecords], recordstore.Record{
			"id": "mr" + pid, "patientId": pid, "createdAt": recent.Format(time.RFC3339),
		})
	}
	for i := 1; i <= b.stalePatients; i++ {
		pid := fmt.Sprintf("s%d", i)
		data[recordstore.Patients] = append(data[recordstore.Patients], b.patient(pid, 100+i))
		data[recordstore.Appointments] = append(data[recordstore.Appointments],
			appointment("old-"+pid, pid, old))
	}
	for i := 1; i <= b.orphanAppts; i++ {
		data[recordstore.Appointments] = append(data[recordstore.Appointments],
			appointment(fmt.Sprintf("orphan-a%d", i), fmt.Sprintf("ghost%d", i), recent))
	}
	for i := 1; i <= b.orphanRecords; i++ {
		data[recordstore.MedicalRecords] = append(data[recordstore.MedicalRecords], recordstore.Record{
			"id": fmt.Sprintf("orphan-mr%d", i), "patientId": fmt.Sprintf("ghost%d", i),
		})
	}

	if b.fillOthers {
		data[recordstore.CommunicationContacts] = []recordstore.Record{{"id": "c1", "email": "contato@clinica.example", "name": "Recepção"}}
		data[recordstore.Consultations] = []recordstore.Record{{"id": "cs1", "patientId": "p1", "date": recent.Format(time.RFC3339)}}
		data[recordstore.Reviews] = []recordstore.Record{{"id": "r1", "rating": b.rnd.Intn(5) + 1, "comment": "ótimo atendimento"}}
		data[recordstore.Users] = []recordstore.Record{{"id": "u1", "email": "medico@clinica.example", "username": "medico", "role": "DOCTOR"}}
		data[recordstore.AuditLogs] = []recordstore.Record{{"id": "l1", "action": "LOGIN", "userId": "u1"}}
		data[recordstore.ScheduleBlocks] = []recordstore.Record{{"id": "b1", "start": recent.Format(time.RFC3339), "reason": "feriado"}}
		if b.patients == 0 {
			data[recordstore.Consultations] = nil
		}
	}

	for _, name := range recordstore.Protected() {
		if b.emptyCollection[name] {
			continue
		}
		store.Seed(name, data[name]...)
	}
	return store, nil
}

// MustBuild builds or fails the test.
func (b *ClinicFixtureBuilder) MustBuild() *recordstore.MemoryStore {
	b.t.Helper()
	store, err := b.Build()
	if err != nil {
		b.t.Fatalf("building clinic fixture: %v", err)
	}
	return store
}

func (b *ClinicFixtureBuilder) patient(id string, n int) recordstore.Record {
	return recordstore.Record{
		"id":        id,
		"cpf":       fmt.Sprintf("%03d.%03d.%03d-%02d", n, b.rnd.Intn(1000), b.rnd.Intn(1000), n%100),
		"name":      fmt.Sprintf("Paciente %d", n),
		"birthDate": "1980-01-01",
	}
}

func appointment(id, patientID string, at time.Time) recordstore.Record {
	return recordstore.Record{
		"id":              id,
		"patientId":       patientID,
		"appointmentDate": at.Format(time.RFC3339),
		"status":          "CONFIRMED",
	}
}
