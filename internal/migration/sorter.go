package migration

import (
	"fmt"
	"sort"
)

// Sort returns a new slice of migrations sorted by Version.
// The sort is stable to preserve insertion order for equal versions.
func Sort(migrations []Migration) []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	return sorted
}

// Validate checks the registry invariants: versions are contiguous from 0 in
// slice order, and every migration past the bootstrap declares a marker.
func Validate(migrations []Migration) error {
	if len(migrations) == 0 {
		return ErrEmptyRegistry
	}

	for i := range migrations {
		m := &migrations[i]

		if m.Version != uint32(i) { //nolint:gosec // registry sizes are tiny
			return fmt.Errorf("%w: position %d holds version %d (%s)", ErrNonSequentialVersion, i, m.Version, m.Name)
		}

		if m.Version > 0 && m.Marker.IsZero() {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, ErrMarkerMissing)
		}
	}

	return nil
}

// Latest returns the highest version in a validated registry.
func Latest(migrations []Migration) uint32 {
	if len(migrations) == 0 {
		return 0
	}

	return migrations[len(migrations)-1].Version
}
