// Package dataavail implements C1, the data-availability resolver: it
// decides whether a candidate's declared data requirements are satisfiable,
// consulting an explicit registry first and falling back to pattern
// recognition for the well-known <ticker>_<suffix> shape.
//
// Ported from original_source/research_system/core/data_registry.py, kept
// in the teacher's config-loading idiom (JSON document, defaults applied
// after unmarshal) rather than the Python's in-memory dataclasses.
package dataavail

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// hierarchyOrder ranks tiers highest-priority first; best_source in the
// original returns the first of these that is marked available.
var hierarchyOrder = []string{
	"qc_native",
	"qc_object_store",
	"internal_purchased",
	"internal_curated",
	"internal_experimental",
}

// qcStandardDataSuffixes is the closed suffix set the pattern recognizer
// accepts, verbatim from data_registry.py's QC_STANDARD_DATA_SUFFIXES.
var qcStandardDataSuffixes = []string{"_prices", "_data", "_ohlcv"}

// qcNativeSpecial is the closed set of special logical names treated as
// native regardless of suffix, verbatim from QC_NATIVE_SPECIAL.
var qcNativeSpecial = map[string]bool{
	"risk_free_rate": true,
	"treasury_yields": true,
	"options_data":   true,
	"futures_data":   true,
	"forex_data":     true,
	"crypto_data":    true,
}

var tickerOK = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// TierAvailability is one tier's availability entry for a DataSource, e.g.
// {"available": true, "symbol": "SPY", "resolution": ["daily"]}.
type TierAvailability struct {
	Available  bool     `json:"available"`
	Symbol     string   `json:"symbol,omitempty"`
	Resolution []string `json:"resolution,omitempty"`
	Key        string   `json:"key,omitempty"`
}

// DataSource is one registry entry. Availability maps tier name to its
// TierAvailability; a tier absent from the map means unavailable.
type DataSource struct {
	ID             string                      `json:"id"`
	Name           string                      `json:"name,omitempty"`
	DataType       string                      `json:"data_type,omitempty"`
	Description    string                      `json:"description,omitempty"`
	Availability   map[string]TierAvailability `json:"availability"`
	Coverage       string                      `json:"coverage,omitempty"`
	Columns        []string                    `json:"columns,omitempty"`
	UsageNotes     string                      `json:"usage_notes,omitempty"`
	IsAutoRecognized bool                      `json:"is_auto_recognized,omitempty"`
}

// BestSource returns the highest-ranked available tier and provenance, or
// ok=false if no tier is available.
func (d DataSource) BestSource() (tier string, key string, ok bool) {
	for _, t := range hierarchyOrder {
		if avail, present := d.Availability[t]; present && avail.Available {
			return t, avail.Key, true
		}
	}
	return "", "", false
}

// Registry is the flat list of DataSource records persisted as
// registry.json under the workspace.
type Registry struct {
	LastUpdated time.Time              `json:"last_updated"`
	Sources     map[string]*DataSource `json:"sources"`
}

// NewRegistry returns an empty registry ready for Add/Load.
func NewRegistry() *Registry {
	return &Registry{Sources: make(map[string]*DataSource)}
}

// LoadRegistry reads registry.json from path. A missing file is not an
// error: it returns an empty registry, since the pattern recognizer alone
// can satisfy a great many requirements.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}
	var r Registry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}
	if r.Sources == nil {
		r.Sources = make(map[string]*DataSource)
	}
	return &r, nil
}

// Save writes the registry back to path as pretty JSON, stamping
// LastUpdated.
func (r *Registry) Save(path string) error {
	r.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Add inserts or replaces a DataSource by id.
func (r *Registry) Add(src *DataSource) {
	r.Sources[normalize(src.ID)] = src
}

// normalize mirrors data_registry.py's normalization: lowercase, hyphens
// and spaces become underscores.
func normalize(id string) string {
	id = strings.ToLower(id)
	id = strings.ReplaceAll(id, "-", "_")
	id = strings.ReplaceAll(id, " ", "_")
	return id
}

// IsQCNativePattern reports whether sourceID matches the native pattern:
// either it's one of the special names, or it has the shape
// <ticker>_<suffix> with a short alphanumeric ticker and a closed suffix.
func IsQCNativePattern(sourceID string) (ticker string, ok bool) {
	id := normalize(sourceID)
	if qcNativeSpecial[id] {
		return "", true
	}
	for _, suffix := range qcStandardDataSuffixes {
		if strings.HasSuffix(id, suffix) {
			t := strings.TrimSuffix(id, suffix)
			if t != "" && len(t) <= 6 && tickerOK.MatchString(t) {
				return strings.ToUpper(t), true
			}
		}
	}
	return "", false
}

// createQCNativeSource synthesizes a DataSource for a pattern-recognized id,
// mirroring data_registry.py's create_qc_native_source.
func createQCNativeSource(id string, ticker string) *DataSource {
	return &DataSource{
		ID:               id,
		Name:             id,
		IsAutoRecognized: true,
		Availability: map[string]TierAvailability{
			"qc_native": {Available: true, Symbol: ticker, Resolution: []string{"daily", "minute"}},
		},
	}
}

// Get returns the registry entry for id if present, else falls back to the
// pattern recognizer and synthesizes a source, else returns ok=false.
func (r *Registry) Get(id string) (*DataSource, bool) {
	norm := normalize(id)
	if src, ok := r.Sources[norm]; ok {
		return src, true
	}
	if ticker, ok := IsQCNativePattern(norm); ok {
		return createQCNativeSource(norm, ticker), true
	}
	return nil, false
}
