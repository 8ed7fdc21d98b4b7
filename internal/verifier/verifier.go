// Package verifier compares recorded migration checksums against the scripts
// compiled into the binary.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aqasim81/journal-migrate/internal/database"
	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/tracker"
)

// ErrChecksumMismatch indicates an applied migration's script was changed
// after it ran.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// MismatchError reports the first migration whose stored checksum differs
// from the registry. It matches ErrChecksumMismatch.
type MismatchError struct {
	Version  uint32
	Name     string
	Expected string // from the registry
	Actual   string // stored in schema_migrations
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("migration %d (%s): %s: stored=%s computed=%s",
		e.Version, e.Name, ErrChecksumMismatch, e.Actual, e.Expected)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// Report summarises one verification pass.
type Report struct {
	Checked int      // rows whose checksum was compared
	Legacy  int      // rows without a checksum, skipped
	Unknown []uint32 // recorded versions the registry does not contain
}

// Verifier checks applied migrations against a registry.
type Verifier struct {
	byVersion map[uint32]*migration.Migration
	logger    *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// New creates a Verifier for the given registry.
func New(migrations []migration.Migration, opts ...Option) *Verifier {
	v := &Verifier{
		byVersion: make(map[uint32]*migration.Migration, len(migrations)),
		logger:    slog.Default(),
	}

	for i := range migrations {
		v.byVersion[migrations[i].Version] = &migrations[i]
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Verify reads every recorded migration and recomputes the checksum of the
// registry script with the same version. Rows without a checksum are skipped.
// It stops at the first mismatch and returns a *MismatchError.
//
// Versions recorded in the database but absent from the registry are listed
// in the report and left for the caller to judge.
func (v *Verifier) Verify(ctx context.Context, q database.Querier) (Report, error) {
	var report Report

	applied, err := tracker.New(q).GetApplied(ctx)
	if err != nil {
		return report, err
	}

	for i := range applied {
		row := &applied[i]

		m, ok := v.byVersion[row.Version]
		if !ok {
			report.Unknown = append(report.Unknown, row.Version)

			continue
		}

		if !row.Verifiable() {
			report.Legacy++

			continue
		}

		report.Checked++

		if expected := m.Checksum(); expected != row.Checksum.V {
			return report, &MismatchError{
				Version:  row.Version,
				Name:     m.Name,
				Expected: expected,
				Actual:   row.Checksum.V,
			}
		}
	}

	if len(report.Unknown) > 0 {
		v.logger.Warn("database records versions unknown to this build", "versions", report.Unknown)
	}

	v.logger.Debug("checksums verified",
		"checked", report.Checked, "legacy", report.Legacy, "unknown", len(report.Unknown))

	return report, nil
}
