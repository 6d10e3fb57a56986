// Package codegen implements C3: rendering a Candidate into a complete
// backtest program text, via a deterministic template path or an LLM
// fallback, followed by a single shared post-processing pass.
//
// Grounded on original_source/research_system/codegen/engine.py and
// filters.py; text/template stands in for the original's Jinja2
// environment, and the PascalCase/snake_case helpers below are ports of
// filters.py's CUSTOM_FILTERS.
package codegen

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/extremevalue/quantvalid/internal/domain"
)

// templateKind is one of the closed set of template identifiers.
type templateKind string

const (
	templateMomentum       templateKind = "momentum"
	templateMeanReversion  templateKind = "mean-reversion"
	templateRegimeAdaptive templateKind = "regime-adaptive"
	templateOptionsIncome  templateKind = "options-income"
	templateGenericBase    templateKind = "generic-base"
)

// context is the data handed to every template: one flat, nested view of
// the candidate plus a render timestamp, mirroring engine.py's
// _build_context.
type context struct {
	ClassName      string
	CandidateID    string
	GeneratedAt    string
	Universe       domain.Universe
	Entry          domain.Entry
	Exit           domain.Exit
	Position       domain.Position
	Parameters     map[string]any
	DataReqs       domain.DataRequirements
	Symbols          string // Python list literal, e.g. ["SPY", "TLT"]
	SymbolSet        string // Python set literal
	DefensiveSymbols string // Python list literal
	BenchmarkSymbol  string
}

func buildContext(c domain.Candidate, now time.Time) context {
	benchmark := "SPY"
	if len(c.Universe.Symbols) > 0 {
		benchmark = c.Universe.Symbols[0]
	}
	return context{
		ClassName:       generateClassName(c.ID),
		CandidateID:     c.ID,
		GeneratedAt:     now.UTC().Format(time.RFC3339),
		Universe:        c.Universe,
		Entry:           c.Entry,
		Exit:            c.Exit,
		Position:        c.Position,
		Parameters:      c.Parameters,
		DataReqs:        c.DataReqs,
		Symbols:          formatSymbols(c.Universe.Symbols),
		SymbolSet:        formatSymbolSet(c.Universe.Symbols),
		DefensiveSymbols: formatSymbols(c.Universe.DefensiveSymbols),
		BenchmarkSymbol:  benchmark,
	}
}

// generateClassName ports _generate_class_name: candidate id -> PascalCase,
// with a trailing "Algorithm" suffix and a leading-digit guard.
func generateClassName(id string) string {
	name := pascalCase(id) + "Algorithm"
	if name == "" {
		return "GeneratedAlgorithm"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "Strategy" + name
	}
	return name
}

// pascalCase ports filters.py's pascal_case: split on non-alphanumeric
// runs, title-case each part, join.
func pascalCase(s string) string {
	parts := splitIdentifierParts(s)
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(strings.ToLower(p[1:]))
	}
	return b.String()
}

// snakeCase ports filters.py's snake_case.
func snakeCase(s string) string {
	parts := splitIdentifierParts(s)
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, "_")
}

func splitIdentifierParts(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// safeIdentifier ports filters.py's safe_identifier: snake_case plus a
// leading-digit guard, for use as a Python-legal variable name.
func safeIdentifier(s string) string {
	id := snakeCase(s)
	if id == "" {
		return "_"
	}
	if unicode.IsDigit(rune(id[0])) {
		id = "_" + id
	}
	return id
}

// formatSymbols ports filters.py's format_symbols: a Python list literal
// of quoted, uppercased symbols.
func formatSymbols(symbols []string) string {
	quoted := make([]string, len(symbols))
	for i, s := range symbols {
		quoted[i] = `"` + strings.ToUpper(s) + `"`
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// formatSymbolSet ports filters.py's format_symbol_set: the set-literal
// variant, falling back to an empty-set call since Python has no `{}`
// empty-set literal.
func formatSymbolSet(symbols []string) string {
	if len(symbols) == 0 {
		return "set()"
	}
	quoted := make([]string, len(symbols))
	for i, s := range symbols {
		quoted[i] = `"` + strings.ToUpper(s) + `"`
	}
	return "{" + strings.Join(quoted, ", ") + "}"
}

// defaultIfNone ports filters.py's default_if_none.
func defaultIfNone(v any, fallback string) string {
	if v == nil {
		return fallback
	}
	if s, ok := v.(string); ok && s == "" {
		return fallback
	}
	return toTemplateString(v)
}

func toTemplateString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
