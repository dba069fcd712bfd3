package recordstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore/migrations"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreMigrates(t *testing.T) {
	s := newTestSQLite(t)

	v, dirty, err := migrations.Version(s.db)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), v)
	require.NoError(t, s.Ping(context.Background()))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.Insert(ctx, Patients, Record{"id": "p1", "cpf": "111", "age": 40}))
	require.NoError(t, s.Insert(ctx, Patients, Record{"id": "p2", "cpf": "222"}))
	require.NoError(t, s.Insert(ctx, Appointments, Record{"id": 7, "patientId": "p1"}))

	recs, err := s.List(ctx, Patients)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "p1", recs[0]["id"])
	assert.Equal(t, json.Number("40"), recs[0]["age"])

	empty, err := s.List(ctx, Reviews)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	appt, err := s.Find(ctx, Appointments, Key{"id", "7"})
	require.NoError(t, err)
	assert.Equal(t, "p1", appt["patientId"])

	_, err = s.Find(ctx, Patients, Key{"cpf", "999"})
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)

	require.NoError(t, s.Update(ctx, Patients, Key{"cpf", "111"}, Record{"id": "p1", "cpf": "111", "age": 41}))
	got, err := s.Find(ctx, Patients, Key{"cpf", "111"})
	require.NoError(t, err)
	assert.Equal(t, json.Number("41"), got["age"])

	err = s.Update(ctx, Patients, Key{"cpf", "999"}, Record{"cpf": "999"})
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}

func TestSQLiteStoreClosedIsUnreachable(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(context.Background()), apperrors.ErrConnectivity)
}
