// Package sync keeps the local report store and the remote store of
// record converged. Writes are optimistic: a push carries the remote
// version it was based on, and a mismatch triggers a bounded
// fetch-merge-retry loop with last-writer-wins per report.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/store"
)

// State is the syncer's externally visible condition, reported in the
// stats endpoint.
type State string

const (
	StateIdle          State = "idle"
	StateSyncing       State = "syncing"
	StateConflictRetry State = "conflict-retry"
	StateOffline       State = "offline"
)

// ErrVersionConflict is returned by a Remote when a push was based on
// a stale version.
var ErrVersionConflict = errors.New("remote version conflict")

// Remote is the store of record for reports.
type Remote interface {
	// Fetch returns the full remote report set and its version.
	Fetch(ctx context.Context) ([]*domain.Report, int64, error)
	// Store replaces the remote set, but only if the remote is still
	// at the expected version. Returns the new version on success and
	// ErrVersionConflict on a stale expectation.
	Store(ctx context.Context, reports []*domain.Report, expected int64) (int64, error)
}

// Status is a point-in-time snapshot of the syncer for stats.
type Status struct {
	State         State     `json:"state"`
	RemoteVersion int64     `json:"remoteVersion"`
	LastSyncAt    time.Time `json:"lastSyncAt,omitzero"`
	LastError     string    `json:"lastError,omitempty"`
}

// Syncer drives the periodic reconciliation loop.
type Syncer struct {
	remote     Remote
	reports    *store.ReportStore
	interval   time.Duration
	maxRetries int
	onApply    func()
	logger     *slog.Logger

	mu            sync.Mutex
	state         State
	remoteVersion int64
	lastPushed    uint64
	lastSyncAt    time.Time
	lastErr       string
}

// NewSyncer builds a syncer. onApply runs after any cycle that changed
// the local set, so the caller can rebuild the override index; it may
// be nil.
func NewSyncer(remote Remote, reports *store.ReportStore, interval time.Duration, maxRetries int, onApply func(), logger *slog.Logger) *Syncer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Syncer{
		remote:     remote,
		reports:    reports,
		interval:   interval,
		maxRetries: maxRetries,
		onApply:    onApply,
		logger:     logger.With("component", "report_syncer"),
		state:      StateIdle,
	}
}

// Run performs an initial pull and then reconciles on a fixed
// interval until the context is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	if err := s.SyncOnce(ctx); err != nil {
		s.logger.Error("initial report sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.Error("report sync failed", "error", err)
			}
		}
	}
}

// SyncOnce runs a single reconciliation cycle: a pull when the local
// set is clean, a push (with conflict retries) when it is dirty.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	s.setState(StateSyncing)

	var err error
	if s.dirty() {
		err = s.push(ctx)
	} else {
		err = s.pull(ctx)
	}

	s.mu.Lock()
	if err != nil {
		s.state = StateOffline
		s.lastErr = err.Error()
	} else {
		s.state = StateIdle
		s.lastErr = ""
		s.lastSyncAt = time.Now()
	}
	s.mu.Unlock()
	return err
}

func (s *Syncer) pull(ctx context.Context) error {
	reports, version, err := s.remote.Fetch(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	known := s.remoteVersion
	s.mu.Unlock()

	if version == known {
		return nil
	}

	s.reports.Merge(reports)
	s.applied()

	s.mu.Lock()
	s.remoteVersion = version
	// The local set was clean before the merge, so everything in it
	// now matches the remote.
	s.lastPushed = s.reports.Version()
	s.mu.Unlock()

	s.logger.Info("pulled remote reports", "version", version, "reports", len(reports))
	return nil
}

func (s *Syncer) push(ctx context.Context) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		localVersion := s.reports.Version()

		s.mu.Lock()
		expected := s.remoteVersion
		s.mu.Unlock()

		newVersion, err := s.remote.Store(ctx, s.reports.List(), expected)
		if err == nil {
			s.mu.Lock()
			s.remoteVersion = newVersion
			s.lastPushed = localVersion
			s.mu.Unlock()
			s.logger.Info("pushed local reports", "version", newVersion, "attempt", attempt+1)
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}

		s.setState(StateConflictRetry)
		s.logger.Warn("report push conflicted, refetching", "expected", expected, "attempt", attempt+1)

		remote, version, err := s.remote.Fetch(ctx)
		if err != nil {
			return err
		}
		s.reports.Merge(remote)
		s.applied()

		s.mu.Lock()
		s.remoteVersion = version
		s.mu.Unlock()
	}
	return errors.New("report push abandoned after repeated conflicts")
}

func (s *Syncer) dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports.Version() != s.lastPushed
}

func (s *Syncer) applied() {
	if s.onApply != nil {
		s.onApply()
	}
}

func (s *Syncer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Status returns the current sync status.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:         s.state,
		RemoteVersion: s.remoteVersion,
		LastSyncAt:    s.lastSyncAt,
		LastError:     s.lastErr,
	}
}
