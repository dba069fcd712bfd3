package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/backup"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/config"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/health"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/integrity"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recovery"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/scheduler"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/storage"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/testutil"
)

type testEnv struct {
	svc     *Services
	store   *recordstore.MemoryStore
	backend *storage.MemoryBackend
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := testutil.NewClinicFixture(t).WithPatients(4).WithAppointments(1).MustBuild()
	backend := storage.NewMemoryBackend("primary")
	writer := storage.NewMultiWriter(storage.Location{Name: "primary", Backend: backend})

	svc, err := New(Deps{
		Store:    store,
		Writer:   writer,
		Liveness: health.NewChecker(health.NewStoreProber(store), 0),
		Schedule: scheduler.Config{StateDir: t.TempDir()},
		Clock:    testutil.NewStubClock(testutil.ReferenceTime),
		IDs:      testutil.NewStubIDGenerator("b"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return &testEnv{svc: svc, store: store, backend: backend}
}

func TestNew_RequiresStoreAndWriter(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)

	_, err = New(Deps{Store: recordstore.NewMemoryStore()})
	assert.Error(t, err)
}

func TestBackupService_TriggerAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.svc.Backup.Trigger(ctx)
	require.NotNil(t, res)
	assert.Equal(t, backup.StatusComplete, res.Status)
	assert.Equal(t, backup.TriggerManual, res.Trigger)
	assert.True(t, res.Success)

	list := env.svc.Backup.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "manual", string(list[0].Kind))
	assert.Equal(t, "primary", list[0].Location)
}

func TestBackupService_TriggerFallsBackWhenStoreDown(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetDown(true)

	res := env.svc.Backup.Trigger(context.Background())
	assert.Equal(t, backup.StatusFallbackMode, res.Status)
	assert.True(t, res.Success)
	assert.Zero(t, res.TotalRecords)
	assert.Empty(t, env.svc.Backup.List(context.Background()))
}

func TestRecoveryService_ValidateAndRestore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.svc.Backup.Trigger(ctx)
	primary, ok := res.Primary()
	require.True(t, ok)

	v := env.svc.Recovery.Validate(ctx, primary.Ref)
	require.True(t, v.IsValid, v.Error)
	assert.Equal(t, res.TotalRecords, v.Snapshot.TotalRecords)

	restored, validated := env.svc.Recovery.Restore(ctx, primary.Ref, recovery.Policy{})
	require.True(t, validated.IsValid)
	require.NotNil(t, restored)
	assert.True(t, restored.Success, restored.Message)
	assert.Zero(t, restored.Recovered(), "records already exist and overwrite is off")
	assert.NotEmpty(t, restored.PreRestoreSnapshotRef)

	// the pre-recovery snapshot shows up in the listing
	assert.Len(t, env.svc.Recovery.List(ctx), 2)
}

func TestRecoveryService_RestoreRejectsMissingCopy(t *testing.T) {
	env := newTestEnv(t)

	restored, validated := env.svc.Recovery.Restore(context.Background(), "primary:nope.json", recovery.Policy{})
	assert.Nil(t, restored)
	assert.False(t, validated.IsValid)
	assert.True(t, validated.NotFound())
}

func TestIntegrityService_AuditAndHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.svc.Integrity.Audit(ctx)
	second := env.svc.Integrity.Audit(ctx)

	history, err := env.svc.Integrity.History(0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)

	history, err = env.svc.Integrity.History(1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSchedulerService_Control(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sched := env.svc.Scheduler

	res, err := sched.Control(ctx, ActionStart)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Scheduler started", res.Message)
	assert.True(t, res.Status.IsRunning)

	res, err = sched.Control(ctx, ActionStart)
	require.NoError(t, err)
	assert.Equal(t, "Scheduler already running", res.Message)

	res, err = sched.Control(ctx, ActionForce)
	require.NoError(t, err)
	require.NotNil(t, res.Backup)
	assert.Equal(t, backup.StatusComplete, res.Backup.Status)
	assert.Equal(t, backup.TriggerForced, res.Backup.Trigger)
	assert.True(t, res.Status.IsRunning, "force leaves the timers running")
	require.NotNil(t, res.Status.LastBackupTime)

	res, err = sched.Control(ctx, ActionStop)
	require.NoError(t, err)
	assert.Equal(t, "Scheduler stopped", res.Message)
	assert.False(t, res.Status.IsRunning)

	_, err = sched.Control(ctx, "reboot")
	assert.True(t, errors.Is(err, ErrUnknownAction))
}

func TestSchedulerService_ForceWhenStoreDown(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetDown(true)

	res, err := env.svc.Scheduler.Control(context.Background(), ActionForce)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, backup.StatusFallbackMode, res.Backup.Status)
	assert.Contains(t, res.Message, "FALLBACK_MODE")
	assert.Nil(t, res.Status.LastBackupTime)
}

func TestOpenLocations(t *testing.T) {
	dir := t.TempDir()
	id, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	ageCodec, err := storage.NewAge(id.Recipient().String(), id.String())
	require.NoError(t, err)

	locs, closers, err := OpenLocations(context.Background(), []config.LocationConfig{
		{Name: "primary", Type: config.LocationFilesystem, Path: filepath.Join(dir, "a")},
		{Name: "compressed", Type: config.LocationFilesystem, Codec: "zstd", Path: filepath.Join(dir, "b")},
		{Name: "security", Type: config.LocationFilesystem, Codec: "age", Path: filepath.Join(dir, "c"), MaxRetries: 3},
	}, ageCodec)
	require.NoError(t, err)
	assert.Empty(t, closers)
	require.Len(t, locs, 3)

	assert.Equal(t, "plain", locs[0].Codec.Name())
	assert.Equal(t, "zstd", locs[1].Codec.Name())
	assert.Equal(t, "age", locs[2].Codec.Name())
	assert.Equal(t, 3, locs[2].Retry.MaxRetries)
	assert.Equal(t, "filesystem:"+filepath.Join(dir, "b"), locs[1].Backend.Describe())
}

func TestOpenLocations_Errors(t *testing.T) {
	tests := []struct {
		name string
		loc  config.LocationConfig
	}{
		{"unknown type", config.LocationConfig{Name: "x", Type: "ftp"}},
		{"unknown codec", config.LocationConfig{Name: "x", Type: config.LocationFilesystem, Path: "/tmp/x", Codec: "lz4"}},
		{"age without recipients", config.LocationConfig{Name: "x", Type: config.LocationFilesystem, Path: "/tmp/x", Codec: "age"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := OpenLocations(context.Background(), []config.LocationConfig{tt.loc}, nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadAge(t *testing.T) {
	codec, err := LoadAge(config.AgeConfig{})
	require.NoError(t, err)
	assert.Nil(t, codec)

	_, err = LoadAge(config.AgeConfig{IdentityFile: filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)
}

func TestLivenessProber(t *testing.T) {
	store := recordstore.NewMemoryStore()
	store.SetDown(true)

	p := LivenessProber(config.LivenessConfig{Mode: "store"}, store)
	assert.Error(t, p.Probe(context.Background()))

	p = LivenessProber(config.LivenessConfig{Mode: "http", BaseURL: "http://localhost:3000", Path: "/api/health"}, store)
	hp, ok := p.(*health.HTTPProber)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:3000/api/health", hp.URL())

	p = LivenessProber(config.LivenessConfig{Mode: "both", BaseURL: "http://localhost:3000", Path: "/api/health"}, store)
	assert.Error(t, p.Probe(context.Background()), "store probe runs first")
}

func TestOpen_MemoryStore(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		App:       config.AppConfig{Environment: "development", DataDir: dir},
		Store:     config.StoreConfig{Driver: "memory"},
		Locations: config.DefaultLocations(dir),
		Schedule:  config.ScheduleConfig{Emergency: "hourly", Full: "daily", Integrity: "every 6h"},
		Liveness:  config.LivenessConfig{Mode: "store"},
		Integrity: config.IntegrityConfig{LogPath: filepath.Join(dir, "integrity")},
	}

	svc, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	// an empty store still backs up to all three directories
	res := svc.Backup.Trigger(context.Background())
	require.Equal(t, backup.StatusComplete, res.Status, res.Error)
	assert.Len(t, res.Copies, 3)
	assert.DirExists(t, cfg.App.StateDir())

	report := svc.Integrity.Audit(context.Background())
	assert.NotEqual(t, integrity.Failed, report.Status)
	history, err := svc.Integrity.History(5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, report.ID, history[0].ID)
}
