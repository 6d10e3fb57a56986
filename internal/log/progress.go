// Package log wraps zerolog with the stage-by-stage progress reporter
// §7 asks for: a line per event (code gen, each window with elapsed
// wall-clock, the aggregate line, the gate table, the final
// determination).
//
// Grounded on the teacher's internal/log/progress.go StepLogger: a
// named sequence of steps, start/complete/fail per step, a running
// total duration summary at the end. Adapted from the teacher's
// generic N-step pipeline (with a terminal spinner/progress-bar) to
// this module's fixed, named validation stages, and simplified to
// plain structured log lines — a spinner serves a long uncertain-length
// scan loop well; it adds nothing to a short, fixed 9-stage run whose
// whole point is a readable line-per-event audit trail.
package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// New builds a zerolog.Logger whose writer is a TTY-aware console
// writer when stderr is a terminal, and plain structured JSON
// otherwise — following the teacher's main.go choice of
// ConsoleWriter-for-humans vs. JSON-for-pipes.
func New() zerolog.Logger {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// StepLogger reports stage-by-stage progress for one candidate's run
// through the §4.8 pipeline, with per-step elapsed time.
type StepLogger struct {
	log       zerolog.Logger
	candidate string
	steps     []string
	current   int
	startedAt time.Time
	stepStart time.Time
}

// NewStepLogger builds a StepLogger for one candidate's run through the
// named stage sequence.
func NewStepLogger(l zerolog.Logger, candidateID string, steps []string) *StepLogger {
	now := time.Now()
	return &StepLogger{
		log:       l.With().Str("candidate_id", candidateID).Logger(),
		candidate: candidateID,
		steps:     steps,
		current:   -1,
		startedAt: now,
		stepStart: now,
	}
}

// StartStep begins a new named stage.
func (sl *StepLogger) StartStep(name string) {
	sl.current++
	for i, s := range sl.steps {
		if s == name {
			sl.current = i
			break
		}
	}
	sl.stepStart = time.Now()
	sl.log.Info().
		Str("stage", name).
		Int("stage_number", sl.current+1).
		Int("total_stages", len(sl.steps)).
		Msg("stage started")
}

// CompleteStep marks the current stage complete, logging its elapsed
// wall-clock time.
func (sl *StepLogger) CompleteStep(name string) {
	sl.log.Info().
		Str("stage", name).
		Dur("elapsed", time.Since(sl.stepStart)).
		Msg("stage completed")
}

// Window logs one walk-forward window's outcome with its elapsed
// wall-clock time (§7's "per-window line with elapsed wall-clock").
func (sl *StepLogger) Window(windowID int, success bool, elapsed time.Duration, reason string) {
	ev := sl.log.Info()
	if !success {
		ev = sl.log.Warn()
	}
	ev.Int("window_id", windowID).
		Bool("success", success).
		Dur("elapsed", elapsed).
		Str("reason", reason).
		Msg("window finished")
}

// Aggregate logs the walk-forward aggregate line.
func (sl *StepLogger) Aggregate(meanCAGR, aggregateSharpe, aggregateCAGR, worstDrawdown, consistency float64) {
	sl.log.Info().
		Float64("mean_cagr", meanCAGR).
		Float64("aggregate_sharpe", aggregateSharpe).
		Float64("aggregate_cagr", aggregateCAGR).
		Float64("worst_drawdown", worstDrawdown).
		Float64("consistency", consistency).
		Msg("walk-forward aggregate")
}

// GateRow logs one gate's result, contributing one row of the §7 gate
// table.
func (sl *StepLogger) GateRow(name string, threshold, actual float64, present, passed bool) {
	sl.log.Info().
		Str("gate", name).
		Float64("threshold", threshold).
		Float64("actual", actual).
		Bool("present", present).
		Bool("passed", passed).
		Msg("gate evaluated")
}

// Determination logs the final verdict and total run duration.
func (sl *StepLogger) Determination(determination, reason string) {
	sl.log.Info().
		Str("determination", determination).
		Str("reason", reason).
		Dur("total_elapsed", time.Since(sl.startedAt)).
		Msg("determination")
}

// Fail logs an unrecoverable failure for the current stage.
func (sl *StepLogger) Fail(reason string) {
	name := "unknown"
	if sl.current >= 0 && sl.current < len(sl.steps) {
		name = sl.steps[sl.current]
	}
	sl.log.Error().
		Str("stage", name).
		Str("reason", reason).
		Dur("total_elapsed", time.Since(sl.startedAt)).
		Msg("run failed")
}
