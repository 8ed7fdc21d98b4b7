// Package detector infers which registry version an untracked database already
// satisfies by probing the structural marker each migration leaves behind.
//
// Detection is a heuristic. It is only as reliable as the markers: each one
// must be introduced by exactly one migration and never dropped or renamed
// afterwards. The analyzer's legacy-marker rule enforces that for the
// compiled-in registry.
package detector

import (
	"context"
	"fmt"

	"github.com/aqasim81/journal-migrate/internal/database"
	"github.com/aqasim81/journal-migrate/internal/migration"
)

// Detection is the outcome of probing a legacy schema.
type Detection struct {
	Version uint32           // highest version whose marker is present; 0 when none
	Marker  migration.Marker // the marker that matched; zero when Version is 0
	Probed  int              // number of markers checked before a match
}

// Detect probes markers from the newest migration down and returns the first
// match. A database without any marker, including an empty one, is version 0.
func Detect(ctx context.Context, q database.Querier, migrations []migration.Migration) (Detection, error) {
	var d Detection

	for i := len(migrations) - 1; i >= 0; i-- {
		m := &migrations[i]
		if m.Marker.IsZero() {
			continue
		}

		d.Probed++

		present, err := probe(ctx, q, m.Marker)
		if err != nil {
			return Detection{}, fmt.Errorf("probing marker %s of migration %d: %w", m.Marker, m.Version, err)
		}

		if present {
			d.Version = m.Version
			d.Marker = m.Marker

			return d, nil
		}
	}

	return d, nil
}

// DetectLegacyVersion returns only the detected version.
func DetectLegacyVersion(ctx context.Context, q database.Querier, migrations []migration.Migration) (uint32, error) {
	d, err := Detect(ctx, q, migrations)
	if err != nil {
		return 0, err
	}

	return d.Version, nil
}

func probe(ctx context.Context, q database.Querier, mk migration.Marker) (bool, error) {
	if mk.Column == "" {
		return database.TableExists(ctx, q, mk.Table)
	}

	return database.ColumnExists(ctx, q, mk.Table, mk.Column)
}
