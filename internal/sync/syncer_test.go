package sync

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/store"
)

type fakeRemote struct {
	reports []*domain.Report
	version int64

	failFetch    error
	failStore    error
	conflictsLeft int

	fetches int
	stores  int
}

func (f *fakeRemote) Fetch(_ context.Context) ([]*domain.Report, int64, error) {
	f.fetches++
	if f.failFetch != nil {
		return nil, 0, f.failFetch
	}
	return f.reports, f.version, nil
}

func (f *fakeRemote) Store(_ context.Context, reports []*domain.Report, expected int64) (int64, error) {
	f.stores++
	if f.failStore != nil {
		return 0, f.failStore
	}
	if f.conflictsLeft > 0 || expected != f.version {
		if f.conflictsLeft > 0 {
			f.conflictsLeft--
		}
		return 0, ErrVersionConflict
	}
	f.reports = reports
	f.version++
	return f.version, nil
}

func newTestSyncer(remote Remote, reports *store.ReportStore, onApply func()) *Syncer {
	return NewSyncer(remote, reports, time.Minute, 3, onApply, slog.Default())
}

func TestSyncOncePullsRemoteChanges(t *testing.T) {
	base := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	remote := &fakeRemote{
		reports: []*domain.Report{{ID: "r1", Street: "נמיר", UpdatedAt: base}},
		version: 4,
	}
	reports := store.NewReportStore()
	applied := 0
	s := newTestSyncer(remote, reports, func() { applied++ })

	require.NoError(t, s.SyncOnce(context.Background()))

	_, ok := reports.Get("r1")
	assert.True(t, ok)
	assert.Equal(t, 1, applied)

	st := s.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, int64(4), st.RemoteVersion)
	assert.Empty(t, st.LastError)
}

func TestSyncOncePullSkipsWhenVersionUnchanged(t *testing.T) {
	remote := &fakeRemote{version: 0}
	reports := store.NewReportStore()
	s := newTestSyncer(remote, reports, nil)

	require.NoError(t, s.SyncOnce(context.Background()))
	require.NoError(t, s.SyncOnce(context.Background()))
	assert.Equal(t, 0, remote.stores)
}

func TestSyncOncePushesLocalChanges(t *testing.T) {
	remote := &fakeRemote{}
	reports := store.NewReportStore()
	s := newTestSyncer(remote, reports, nil)

	reports.Put(&domain.Report{ID: "r1", Street: "אבן גבירול"})
	require.NoError(t, s.SyncOnce(context.Background()))

	require.Len(t, remote.reports, 1)
	assert.Equal(t, "r1", remote.reports[0].ID)
	assert.Equal(t, int64(1), s.Status().RemoteVersion)

	// Clean again: the next cycle is a pull, not a re-push.
	require.NoError(t, s.SyncOnce(context.Background()))
	assert.Equal(t, 1, remote.stores)
}

func TestSyncOnceRetriesAfterConflict(t *testing.T) {
	base := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	remote := &fakeRemote{
		reports:      []*domain.Report{{ID: "remote", UpdatedAt: base}},
		version:      2,
		conflictsLeft: 1,
	}
	reports := store.NewReportStore()
	s := newTestSyncer(remote, reports, nil)

	reports.Put(&domain.Report{ID: "local", UpdatedAt: base})
	require.NoError(t, s.SyncOnce(context.Background()))

	// The conflicted push refetched, merged and retried: both the
	// local and the remote report survive.
	assert.Len(t, remote.reports, 2)
	assert.Equal(t, 2, remote.stores)
	assert.Equal(t, StateIdle, s.Status().State)
}

func TestSyncOnceGivesUpAfterRepeatedConflicts(t *testing.T) {
	remote := &fakeRemote{conflictsLeft: 10}
	reports := store.NewReportStore()
	s := newTestSyncer(remote, reports, nil)

	reports.Put(&domain.Report{ID: "local"})
	err := s.SyncOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, remote.stores)
	assert.Equal(t, StateOffline, s.Status().State)
}

func TestSyncOnceGoesOfflineOnFetchFailure(t *testing.T) {
	remote := &fakeRemote{failFetch: errors.New("connection refused")}
	reports := store.NewReportStore()
	s := newTestSyncer(remote, reports, nil)

	err := s.SyncOnce(context.Background())
	require.Error(t, err)
	st := s.Status()
	assert.Equal(t, StateOffline, st.State)
	assert.Contains(t, st.LastError, "connection refused")

	// Recovery on the next cycle clears the error.
	remote.failFetch = nil
	require.NoError(t, s.SyncOnce(context.Background()))
	assert.Equal(t, StateIdle, s.Status().State)
	assert.Empty(t, s.Status().LastError)
}
