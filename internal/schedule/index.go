// Package schedule holds the static operating-hours table, the fuzzy
// street matcher that picks the best schedule entry for a road
// segment, and the time-window evaluator that turns a matched entry
// into a lane status.
package schedule

import (
	"strings"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/names"
)

// Score weights. Empirically tuned; preserved verbatim for behavioral
// compatibility with the deployed disambiguation heuristic.
const (
	scoreExactName     = 1.0
	scoreContainedName = 0.3
	scoreJunction      = 3.0
	scoreDirectionCue  = 2.0
	scoreDefaultCap    = 0.5
)

// Directional phrasings looked for in a schedule entry's section text,
// per cardinal direction: the explicit "toward X" form and the
// suffixed form.
var directionCues = map[domain.CompassDir][]string{
	domain.DirNorth: {"לכיוון צפון", "צפונה"},
	domain.DirSouth: {"לכיוון דרום", "דרומה"},
	domain.DirEast:  {"לכיוון מזרח", "מזרחה"},
	domain.DirWest:  {"לכיוון מערב", "מערבה"},
}

// Index is the schedule table grouped by normalized street name.
// A street maps to one entry per geographically distinct section.
// The index is built once and read-only afterwards.
type Index struct {
	byStreet map[string][]*domain.ScheduleEntry
	keys     []string
	aliases  *names.AliasTable
}

// NewIndex groups entries by normalized street name. Key order is
// first-appearance order, which makes tie-breaking deterministic.
func NewIndex(entries []*domain.ScheduleEntry, aliases *names.AliasTable) *Index {
	idx := &Index{
		byStreet: make(map[string][]*domain.ScheduleEntry),
		aliases:  aliases,
	}
	for _, e := range entries {
		key := names.Normalize(e.Street)
		if key == "" {
			continue
		}
		if _, seen := idx.byStreet[key]; !seen {
			idx.keys = append(idx.keys, key)
		}
		idx.byStreet[key] = append(idx.byStreet[key], e)
	}
	return idx
}

// Len returns the number of schedule entries in the index.
func (idx *Index) Len() int {
	n := 0
	for _, es := range idx.byStreet {
		n += len(es)
	}
	return n
}

// Match finds the best schedule entry for a segment, or nil when the
// street matches nothing in the table. A single candidate is returned
// without scoring; multiple candidates are scored and the strict
// maximum wins, first-seen on ties.
func (idx *Index) Match(seg *domain.RoadSegment) *domain.ScheduleEntry {
	name := names.Normalize(seg.Street)
	if name == "" {
		return nil
	}
	alias := idx.aliases.Resolve(name)

	candidates := idx.collectCandidates(name, alias)
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		// Single-candidate sections are assumed correct.
		return candidates[0].entry
	}

	best := -1
	bestScore := 0.0
	for i, c := range candidates {
		score := idx.scoreCandidate(c, seg)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		// Any match beats none: fall back to the first raw candidate.
		return candidates[0].entry
	}
	return candidates[best].entry
}

type candidate struct {
	key   string
	entry *domain.ScheduleEntry
	exact bool
}

// collectCandidates gathers every index key equal to, containing, or
// contained by the normalized name or its alias, in stable key order.
func (idx *Index) collectCandidates(name, alias string) []candidate {
	var out []candidate
	for _, key := range idx.keys {
		exact := key == name || key == alias
		related := exact ||
			strings.Contains(key, name) || strings.Contains(name, key) ||
			strings.Contains(key, alias) || strings.Contains(alias, key)
		if !related {
			continue
		}
		for _, e := range idx.byStreet[key] {
			out = append(out, candidate{key: key, entry: e, exact: exact})
		}
	}
	return out
}

func (idx *Index) scoreCandidate(c candidate, seg *domain.RoadSegment) float64 {
	score := scoreContainedName
	if c.exact {
		score = scoreExactName
	}

	if from := names.Normalize(seg.FromJunction); from != "" && strings.Contains(c.entry.Section, from) {
		score += scoreJunction
	}
	if to := names.Normalize(seg.ToJunction); to != "" && strings.Contains(c.entry.Section, to) {
		score += scoreJunction
	}

	for _, cue := range directionCues[seg.Direction] {
		if strings.Contains(c.entry.Section, cue) {
			score += scoreDirectionCue
			break
		}
	}

	if c.entry.Section == domain.SectionDefault && score > scoreDefaultCap {
		score = scoreDefaultCap
	}
	return score
}
