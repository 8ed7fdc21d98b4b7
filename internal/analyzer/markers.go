package analyzer

import (
	"fmt"

	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/parser"
)

// MarkerRuleID is the rule identifier of legacy marker findings.
const MarkerRuleID = "legacy-marker"

// MarkerIndex maps each legacy detection marker to the version that owns it.
type MarkerIndex map[migration.Marker]uint32

// NewMarkerIndex indexes the markers of the given migrations.
func NewMarkerIndex(ms []migration.Migration) MarkerIndex {
	idx := make(MarkerIndex, len(ms))

	for i := range ms {
		if !ms[i].Marker.IsZero() {
			idx[ms[i].Marker] = ms[i].Version
		}
	}

	return idx
}

// Owner returns the version whose marker is table (or table.column).
func (idx MarkerIndex) Owner(table, column string) (uint32, bool) {
	v, ok := idx[migration.Marker{Table: table, Column: column}]

	return v, ok
}

// Touches reports whether table or table.column is, or contains, a marker.
// Dropping a table takes its column markers with it.
func (idx MarkerIndex) Touches(table, column string) (migration.Marker, bool) {
	for mk := range idx {
		if mk.Table != table {
			continue
		}

		if column == "" || mk.Column == column {
			return mk, true
		}
	}

	return migration.Marker{}, false
}

// checkMarker enforces that a migration introduces its own marker and no other
// migration's marker. Legacy detection relies on markers being unique and
// permanent.
func checkMarker(m *migration.Migration, result *parser.ParseResult, markers MarkerIndex) []Finding {
	if m.Version == 0 {
		return nil
	}

	var (
		findings []Finding
		own      bool
	)

	for _, obj := range result.Introduced() {
		if obj.Table == m.Marker.Table && obj.Column == m.Marker.Column {
			own = true

			continue
		}

		if owner, ok := markers.Owner(obj.Table, obj.Column); ok && owner != m.Version {
			findings = append(findings, Finding{
				Rule:       MarkerRuleID,
				Severity:   Critical,
				Table:      obj.Table,
				Message:    fmt.Sprintf("introduces %s, the legacy marker of migration %d", obj, owner),
				Suggestion: "Markers must be introduced by exactly one migration; pick a different name",
				StmtIndex:  -1,
			})
		}
	}

	if !own {
		findings = append(findings, Finding{
			Rule:       MarkerRuleID,
			Severity:   Critical,
			Table:      m.Marker.Table,
			Message:    fmt.Sprintf("marker %q is not created by this migration", m.Marker.String()),
			Suggestion: "Point the marker header at a table or column this migration creates",
			StmtIndex:  -1,
		})
	}

	return findings
}
