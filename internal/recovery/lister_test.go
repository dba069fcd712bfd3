package recovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/snapshot"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/testutil"
)

func TestListBackupsNewestFirst(t *testing.T) {
	e := newEnv(t, testutil.NewClinicFixture(t))
	first := e.storeSnapshot(t, snapshot.KindFull)
	second := e.storeSnapshot(t, snapshot.KindEmergency)

	entries := ListBackups(context.Background(), e.writer)
	require.Len(t, entries, 2)
	assert.Equal(t, second, entries[0].Path)
	assert.Equal(t, snapshot.KindEmergency, entries[0].Kind)
	assert.Equal(t, first, entries[1].Path)
	assert.Equal(t, "primary", entries[1].Location)
	assert.Equal(t, "memory:primary", entries[1].Directory)
}
