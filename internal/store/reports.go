package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
)

var ErrReportNotFound = errors.New("report not found")

// ReportStore is the in-memory collection of community sign reports.
// Every mutation bumps a version counter so the syncer can detect
// local changes that have not reached the remote yet.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]*domain.Report
	version uint64
}

func NewReportStore() *ReportStore {
	return &ReportStore{reports: make(map[string]*domain.Report)}
}

// Get returns one report by ID.
func (s *ReportStore) Get(id string) (*domain.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	return r, ok
}

// List returns all reports ordered by submission time, oldest first.
// Ties fall back to ID so the order is stable.
func (s *ReportStore) List() []*domain.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Put inserts or replaces a report and bumps the version.
func (s *ReportStore) Put(r *domain.Report) {
	s.mu.Lock()
	s.reports[r.ID] = r
	s.version++
	s.mu.Unlock()
}

// UpdateStatus transitions a report's moderation status, attaching the
// decoded payload when the new status is decoded.
func (s *ReportStore) UpdateStatus(id string, status domain.ReportStatus, decoded *domain.DecodedSchedule) (*domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	updated := *r
	updated.Status = status
	if status == domain.ReportDecoded {
		updated.Decoded = decoded
	}
	updated.UpdatedAt = time.Now()
	s.reports[id] = &updated
	s.version++
	return &updated, nil
}

// Delete removes a report. Deleting an unknown ID is a no-op.
func (s *ReportStore) Delete(id string) {
	s.mu.Lock()
	if _, ok := s.reports[id]; ok {
		delete(s.reports, id)
		s.version++
	}
	s.mu.Unlock()
}

// Replace swaps in a full report set, as received from the remote
// store, without bumping the version past the given value.
func (s *ReportStore) Replace(reports []*domain.Report, version uint64) {
	byID := make(map[string]*domain.Report, len(reports))
	for _, r := range reports {
		byID[r.ID] = r
	}
	s.mu.Lock()
	s.reports = byID
	s.version = version
	s.mu.Unlock()
}

// Merge folds remote reports into the local set. A remote report wins
// when its UpdatedAt is newer than the local copy's; otherwise the
// local edit is kept for the next push.
func (s *ReportStore) Merge(remote []*domain.Report) {
	s.mu.Lock()
	for _, r := range remote {
		local, ok := s.reports[r.ID]
		if !ok || r.UpdatedAt.After(local.UpdatedAt) {
			s.reports[r.ID] = r
		}
	}
	s.version++
	s.mu.Unlock()
}

// Version returns the current mutation counter.
func (s *ReportStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Overrides returns the override set implied by the decoded reports,
// ordered by submission time.
func (s *ReportStore) Overrides() []*domain.Report {
	return s.List()
}

// Count returns the number of stored reports.
func (s *ReportStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
