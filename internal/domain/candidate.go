// Package domain holds the data model shared across the validation pipeline:
// candidates, the artifacts produced while validating them, and the
// lifecycle states a candidate moves through.
package domain

// Status is the lifecycle bucket a Candidate lives in, both logically and
// as a directory under the workspace (strategies/<status>/<id>.yaml).
type Status string

const (
	StatusPending     Status = "pending"
	StatusValidated   Status = "validated"
	StatusInvalidated Status = "invalidated"
	StatusBlocked     Status = "blocked"
)

// Universe describes the tradable instrument set a Candidate operates over.
type Universe struct {
	Type             string   `yaml:"type" json:"type"`
	Symbols          []string `yaml:"symbols,omitempty" json:"symbols,omitempty"`
	Instruments      []string `yaml:"instruments,omitempty" json:"instruments,omitempty"`
	DefensiveSymbols []string `yaml:"defensive_symbols,omitempty" json:"defensive_symbols,omitempty"`
	Index            string   `yaml:"index,omitempty" json:"index,omitempty"`
	Sector           string   `yaml:"sector,omitempty" json:"sector,omitempty"`
	Filters          []string `yaml:"filters,omitempty" json:"filters,omitempty"`
}

// Entry is the entry-condition descriptor: a type plus whichever of
// signals/technical/fundamental configs apply.
type Entry struct {
	Type        string         `yaml:"type,omitempty" json:"type,omitempty"`
	Signals     map[string]any `yaml:"signals,omitempty" json:"signals,omitempty"`
	Technical   map[string]any `yaml:"technical,omitempty" json:"technical,omitempty"`
	Fundamental map[string]any `yaml:"fundamental,omitempty" json:"fundamental,omitempty"`
}

// Exit is the exit-condition descriptor: an ordered list of exit paths.
type Exit struct {
	Paths []string `yaml:"paths,omitempty" json:"paths,omitempty"`
}

// PositionSizing names the sizing method and its parameters.
type PositionSizing struct {
	Method string  `yaml:"method,omitempty" json:"method,omitempty"`
	Size   float64 `yaml:"size,omitempty" json:"size,omitempty"`
}

// Position wraps the sizing descriptor the way candidate documents nest it.
type Position struct {
	Sizing     PositionSizing `yaml:"sizing,omitempty" json:"sizing,omitempty"`
	Size       float64        `yaml:"size,omitempty" json:"size,omitempty"`
	Allocation float64        `yaml:"allocation,omitempty" json:"allocation,omitempty"`
}

// DataRequirements is the declared list of logical data-source identifiers a
// candidate needs, grouped by priority the way candidate documents do.
type DataRequirements struct {
	Primary []string `yaml:"primary,omitempty" json:"primary,omitempty"`
}

// Hypothesis carries the human-authored rationale for a candidate.
type Hypothesis struct {
	Summary string `yaml:"summary,omitempty" json:"summary,omitempty"`
	Edge    struct {
		WhyExists string `yaml:"why_exists,omitempty" json:"why_exists,omitempty"`
	} `yaml:"edge,omitempty" json:"edge,omitempty"`
}

// Tags carries the free-form classification fields a candidate document
// may declare; HypothesisType is the one the core reads.
type Tags struct {
	HypothesisType []string `yaml:"hypothesis_type,omitempty" json:"hypothesis_type,omitempty"`
}

// Candidate is the structured trading-strategy document the core validates.
// Status and its location in the persistence layout must always agree; only
// the persistence adapter (C9, package persist) is allowed to change Status.
type Candidate struct {
	ID           string         `yaml:"id" json:"id"`
	Name         string         `yaml:"name" json:"name"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	StrategyType string         `yaml:"strategy_type" json:"strategy_type"`
	SignalType   string         `yaml:"signal_type,omitempty" json:"signal_type,omitempty"`
	Status       Status         `yaml:"status" json:"status"`
	Tags         Tags           `yaml:"tags,omitempty" json:"tags,omitempty"`
	Universe     Universe       `yaml:"universe" json:"universe"`
	Entry        Entry          `yaml:"entry" json:"entry"`
	Exit         Exit           `yaml:"exit" json:"exit"`
	Position     Position       `yaml:"position,omitempty" json:"position,omitempty"`
	Parameters   map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	DataReqs     DataRequirements `yaml:"data_requirements,omitempty" json:"data_requirements,omitempty"`
	Hypothesis   Hypothesis     `yaml:"hypothesis,omitempty" json:"hypothesis,omitempty"`
}
