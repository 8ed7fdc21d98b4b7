package analyzer

import (
	"fmt"

	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/parser"
)

// Option configures the Analyzer.
type Option func(*Analyzer)

// Analyzer runs registered rules against parsed migrations.
type Analyzer struct {
	registry *Registry
	parseFn  func(string) (*parser.ParseResult, error)
	markers  MarkerIndex
}

// New creates a new Analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry: NewRegistry(),
		parseFn:  parser.Parse,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithRegistry sets a custom rule registry.
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// WithMarkers sets the legacy markers rules check against. AnalyzeAll
// derives them from its input when none are set.
func WithMarkers(ms []migration.Migration) Option {
	return func(a *Analyzer) { a.markers = NewMarkerIndex(ms) }
}

// WithParser overrides the SQL parser function (useful for testing).
func WithParser(fn func(string) (*parser.ParseResult, error)) Option {
	return func(a *Analyzer) { a.parseFn = fn }
}

// Analyze parses and analyzes a single migration, returning all findings.
func (a *Analyzer) Analyze(m *migration.Migration) (*AnalysisResult, error) {
	return a.analyze(m, a.markers)
}

// AnalyzeAll analyzes multiple migrations and returns results for each.
func (a *Analyzer) AnalyzeAll(migrations []migration.Migration) ([]AnalysisResult, error) {
	markers := a.markers
	if markers == nil {
		markers = NewMarkerIndex(migrations)
	}

	results := make([]AnalysisResult, 0, len(migrations))

	for i := range migrations {
		r, err := a.analyze(&migrations[i], markers)
		if err != nil {
			return nil, err
		}

		results = append(results, *r)
	}

	return results, nil
}

func (a *Analyzer) analyze(m *migration.Migration, markers MarkerIndex) (*AnalysisResult, error) {
	result, err := a.parseFn(m.SQL)
	if err != nil {
		return nil, fmt.Errorf("parsing migration %d (%s): %w", m.Version, m.Name, err)
	}

	var findings []Finding

	for i, stmt := range result.Stmts {
		ctx := &RuleContext{
			Migration: m,
			Markers:   markers,
			StmtIndex: i,
			SQL:       m.SQL,
		}

		for _, rule := range a.registry.Rules() {
			fs := rule.Check(stmt, ctx)
			for j := range fs {
				if fs[j].Statement == "" {
					fs[j].Statement = ExtractStmtSQL(result.Stmts, i, m.SQL)
				}
			}

			findings = append(findings, fs...)
		}
	}

	if markers != nil {
		findings = append(findings, checkMarker(m, result, markers)...)
	}

	maxSeverity := Safe

	for i := range findings {
		if findings[i].Severity > maxSeverity {
			maxSeverity = findings[i].Severity
		}
	}

	return &AnalysisResult{
		Migration:   m,
		Findings:    findings,
		MaxSeverity: maxSeverity,
	}, nil
}
