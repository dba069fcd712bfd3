package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
)

func sampleCollections() map[string][]recordstore.Record {
	return map[string][]recordstore.Record{
		"patients": {
			{"id": "p1", "cpf": "111", "name": "Ana", "age": 40},
			{"id": "p2", "cpf": "222", "name": "Bruno <b>", "age": 31},
		},
		"appointments": {
			{"id": "a1", "patientId": "p1"},
		},
		"reviews": {},
	}
}

func TestComputeChecksumDeterministic(t *testing.T) {
	a, err := ComputeChecksum(sampleCollections())
	require.NoError(t, err)
	b, err := ComputeChecksum(sampleCollections())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestComputeChecksumIgnoresMapInsertionOrder(t *testing.T) {
	r1 := recordstore.Record{}
	r1["b"] = 2
	r1["a"] = 1
	r2 := recordstore.Record{"a": 1, "b": 2}

	a, err := ComputeChecksum(map[string][]recordstore.Record{"x": {r1}})
	require.NoError(t, err)
	b, err := ComputeChecksum(map[string][]recordstore.Record{"x": {r2}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeChecksumDetectsChanges(t *testing.T) {
	base, err := ComputeChecksum(sampleCollections())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c map[string][]recordstore.Record)
	}{
		{"scalar change", func(c map[string][]recordstore.Record) { c["patients"][0]["name"] = "Ana Maria" }},
		{"number change", func(c map[string][]recordstore.Record) { c["patients"][1]["age"] = 32 }},
		{"record added", func(c map[string][]recordstore.Record) {
			c["reviews"] = append(c["reviews"], recordstore.Record{"id": "r1"})
		}},
		{"record removed", func(c map[string][]recordstore.Record) { c["appointments"] = nil }},
		{"records reordered", func(c map[string][]recordstore.Record) {
			p := c["patients"]
			p[0], p[1] = p[1], p[0]
		}},
		{"collection renamed", func(c map[string][]recordstore.Record) {
			c["consultations"] = c["appointments"]
			delete(c, "appointments")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sampleCollections()
			tt.mutate(c)
			got, err := ComputeChecksum(c)
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}

func TestComputeChecksumStableAcrossDecode(t *testing.T) {
	orig := sampleCollections()
	sum, err := ComputeChecksum(orig)
	require.NoError(t, err)

	snap := &Snapshot{Collections: orig, Checksum: sum}
	data, err := Encode(snap)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	decoded, err := Decode(data, []string{"patients", "appointments", "reviews"})
	require.NoError(t, err)

	ok, err := Verify(decoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestComputeChecksumRejectsUnencodable(t *testing.T) {
	_, err := ComputeChecksum(map[string][]recordstore.Record{"x": {{"ch": make(chan int)}}})
	assert.Error(t, err)
}
