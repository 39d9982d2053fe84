// Package override derives the crowdsourced override lookup from the
// community report set. The index is rebuilt in full whenever the
// report set changes; it is never patched incrementally, which keeps
// the derived maps free of stale pointers into the report list.
package override

import (
	"sort"
	"sync"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/names"
)

// Index resolves the override for a segment: by segment ID first
// (precise), then by street name (legacy, covers every segment of the
// street). Later submissions overwrite earlier ones for the same key.
type Index struct {
	mu        sync.RWMutex
	bySegment map[string]*domain.Override
	byStreet  map[string]*domain.Override
	aliases   *names.AliasTable
}

// NewIndex creates an empty index. Rebuild must be called before the
// index resolves anything.
func NewIndex(aliases *names.AliasTable) *Index {
	return &Index{
		bySegment: make(map[string]*domain.Override),
		byStreet:  make(map[string]*domain.Override),
		aliases:   aliases,
	}
}

// Rebuild replaces the derived maps from scratch. Only decoded reports
// with a schedule payload contribute; they are folded in ascending
// submission order so the most recent submission wins per key.
func (ix *Index) Rebuild(reports []*domain.Report) {
	overrides := make([]*domain.Override, 0, len(reports))
	for _, r := range reports {
		if ov := r.ToOverride(); ov != nil {
			overrides = append(overrides, ov)
		}
	}
	sort.SliceStable(overrides, func(i, j int) bool {
		return overrides[i].SubmittedAt.Before(overrides[j].SubmittedAt)
	})

	bySegment := make(map[string]*domain.Override)
	byStreet := make(map[string]*domain.Override)
	for _, ov := range overrides {
		if len(ov.SegmentIDs) > 0 {
			for _, id := range ov.SegmentIDs {
				bySegment[id] = ov
			}
			continue
		}
		if street := names.Normalize(ov.Street); street != "" {
			byStreet[street] = ov
		}
	}

	ix.mu.Lock()
	ix.bySegment = bySegment
	ix.byStreet = byStreet
	ix.mu.Unlock()
}

// ForSegment implements schedule.OverrideProvider.
func (ix *Index) ForSegment(seg *domain.RoadSegment) *domain.Override {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ov, ok := ix.bySegment[seg.ID]; ok {
		return ov
	}

	street := names.Normalize(seg.Street)
	if street == "" {
		return nil
	}
	if ov, ok := ix.byStreet[street]; ok {
		return ov
	}
	for key, ov := range ix.byStreet {
		if names.Normalize(key) == street {
			return ov
		}
	}

	alias := ix.aliases.Resolve(street)
	if alias != street {
		if ov, ok := ix.byStreet[alias]; ok {
			return ov
		}
	}
	return nil
}

// Counts returns the number of segment-keyed and street-keyed
// overrides currently indexed.
func (ix *Index) Counts() (bySegment, byStreet int) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.bySegment), len(ix.byStreet)
}
