// Package persist implements C9: the file-tree persistence adapter
// translating "load candidate by id", "list pending", "move to new
// status", and "write per-window/aggregate/determination artifact"
// into manipulations under a workspace root (§4.9, §6).
//
// Grounded on the teacher's internal/persistence package for the
// small-typed-repository shape (one method per logical operation,
// context.Context on every call), adapted from a Postgres-backed
// repository to a plain file tree since the catalog of record here is
// the file system, not a database (§4.9, §6 — the optional Postgres
// catalog-index cache lives in internal/catalogindex instead).
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/extremevalue/quantvalid/internal/domain"
	"github.com/extremevalue/quantvalid/internal/errs"
)

// Store is the file-tree persistence adapter rooted at one workspace
// directory (§6's file-system layout).
type Store struct {
	root string
}

// New builds a Store rooted at dir. The directory tree is created
// lazily on first write, not here.
func New(dir string) *Store {
	return &Store{root: dir}
}

var statusDirs = []domain.Status{
	domain.StatusPending,
	domain.StatusValidated,
	domain.StatusInvalidated,
	domain.StatusBlocked,
}

func (s *Store) strategyPath(status domain.Status, id string) string {
	return filepath.Join(s.root, "strategies", string(status), id+".yaml")
}

func (s *Store) validationDir(id string) string {
	return filepath.Join(s.root, "validations", id)
}

// LoadCandidate finds a candidate by id across all status directories
// and returns its decoded document.
func (s *Store) LoadCandidate(_ context.Context, id string) (domain.Candidate, error) {
	for _, status := range statusDirs {
		path := s.strategyPath(status, id)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return domain.Candidate{}, errs.Wrap(errs.ErrConfiguration, "reading candidate "+id+": "+err.Error())
		}
		var c domain.Candidate
		if err := yaml.Unmarshal(data, &c); err != nil {
			return domain.Candidate{}, errs.Wrap(errs.ErrConfiguration, "parsing candidate "+id+": "+err.Error())
		}
		return c, nil
	}
	return domain.Candidate{}, errs.Wrap(errs.ErrConfiguration, "no candidate found with id "+id)
}

// ListPending returns every candidate currently under strategies/pending,
// in directory order.
func (s *Store) ListPending(_ context.Context) ([]domain.Candidate, error) {
	dir := filepath.Join(s.root, "strategies", string(domain.StatusPending))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.ErrConfiguration, "listing pending candidates: "+err.Error())
	}

	var out []domain.Candidate
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errs.Wrap(errs.ErrConfiguration, "reading "+e.Name()+": "+err.Error())
		}
		var c domain.Candidate
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, errs.Wrap(errs.ErrConfiguration, "parsing "+e.Name()+": "+err.Error())
		}
		out = append(out, c)
	}
	return out, nil
}

// SaveCandidate writes c's document under its current Status directory,
// creating directories as needed. Idempotent: identical content is not
// rewritten.
func (s *Store) SaveCandidate(_ context.Context, c domain.Candidate) error {
	return writeIfChanged(s.strategyPath(c.Status, c.ID), marshalYAML(c))
}

// MoveStatus moves a candidate's document from its current status
// directory to newStatus, rewriting the embedded status field, and
// returns the updated candidate. Moving to the same status the
// candidate is already in is a no-op beyond rewriting in place.
func (s *Store) MoveStatus(ctx context.Context, id string, newStatus domain.Status) (domain.Candidate, error) {
	c, err := s.LoadCandidate(ctx, id)
	if err != nil {
		return domain.Candidate{}, err
	}
	oldStatus := c.Status
	oldPath := s.strategyPath(oldStatus, id)
	c.Status = newStatus
	newPath := s.strategyPath(newStatus, id)

	if err := writeIfChanged(newPath, marshalYAML(c)); err != nil {
		return domain.Candidate{}, err
	}
	if oldStatus != newStatus {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return domain.Candidate{}, errs.Wrap(errs.ErrConfiguration, "removing old candidate document: "+err.Error())
		}
	}
	return c, nil
}

// WriteGeneratedProgram persists the generated backtest source for a
// candidate's current attempt.
func (s *Store) WriteGeneratedProgram(_ context.Context, id, code string) error {
	return writeIfChanged(filepath.Join(s.validationDir(id), "backtest.py"), []byte(code))
}

// WriteLastOutput persists the raw engine output of the most recent run.
func (s *Store) WriteLastOutput(_ context.Context, id, output string) error {
	return writeIfChanged(filepath.Join(s.validationDir(id), "last_output.txt"), []byte(output))
}

// WriteRunResult persists the serialized WalkForward plus determination
// as JSON (run_result.json), and the same per-window results again as
// human-readable YAML (backtest_results.yaml) per §6's layout.
func (s *Store) WriteRunResult(_ context.Context, id string, wf domain.WalkForward) error {
	if err := writeIfChanged(filepath.Join(s.validationDir(id), "run_result.json"), marshalJSON(wf)); err != nil {
		return err
	}
	return writeIfChanged(filepath.Join(s.validationDir(id), "backtest_results.yaml"), marshalYAML(wf.Windows))
}

// determinationSummary is the compact JSON shape written alongside the
// full run_result.json (§6: determination.json).
type determinationSummary struct {
	CandidateID string             `json:"candidate_id"`
	State       domain.State       `json:"state"`
	Determination domain.Determination `json:"determination"`
	Reason      string             `json:"reason"`
}

// WriteDetermination persists the compact determination summary.
func (s *Store) WriteDetermination(_ context.Context, rec *domain.StateRecord) error {
	summary := determinationSummary{
		CandidateID:   rec.CandidateID,
		State:         rec.CurrentState,
		Determination: rec.Determination,
		Reason:        rec.DeterminationReason,
	}
	return writeIfChanged(filepath.Join(s.validationDir(rec.CandidateID), "determination.json"), marshalJSON(summary))
}

// writeIfChanged implements §4.9's idempotence requirement (identical
// content is a no-op; different content overwrites) via a
// write-temp-then-rename so a crash mid-write never leaves a partial
// file (§4.8's "Persistence... rewritten atomically" applies equally
// here).
func writeIfChanged(path string, content []byte) error {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, content) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.ErrConfiguration, "creating directory for "+path+": "+err.Error())
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return errs.Wrap(errs.ErrConfiguration, "writing "+tmp+": "+err.Error())
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Wrap(errs.ErrConfiguration, "renaming "+tmp+" to "+path+": "+err.Error())
	}
	return nil
}

func marshalYAML(v any) []byte {
	data, err := yaml.Marshal(v)
	if err != nil {
		// Marshaling our own domain structs never fails in practice; a
		// panic here would indicate a programming error, not bad input.
		panic(fmt.Sprintf("persist: marshal yaml: %v", err))
	}
	return data
}

func marshalJSON(v any) []byte {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("persist: marshal json: %v", err))
	}
	return data
}
