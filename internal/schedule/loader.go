package schedule

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
)

// Table is the versioned static schedule file, loaded once at startup
// and treated as read-only reference data for the process lifetime.
type Table struct {
	Version string                  `yaml:"version"`
	Entries []*domain.ScheduleEntry `yaml:"entries"`
}

// LoadTable reads and validates the schedule table. A missing or empty
// table is a fatal initialization failure, not a runtime condition.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schedule table: %w", err)
	}

	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing schedule table: %w", err)
	}

	if len(table.Entries) == 0 {
		return nil, fmt.Errorf("schedule table %s contains no entries", path)
	}

	for i, e := range table.Entries {
		if e.Street == "" {
			return nil, fmt.Errorf("schedule table entry %d has no street name", i)
		}
		for _, iv := range append(append(append([]domain.Interval{}, e.SunThu...), e.Friday...), e.Saturday...) {
			if iv.Start < 0 || iv.Start >= 24 || iv.End < 0 || iv.End > 24 {
				return nil, fmt.Errorf("schedule entry %q has out-of-range interval %v", e.Street, iv)
			}
		}
	}

	return &table, nil
}
