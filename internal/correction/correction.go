// Package correction implements C5: deciding whether a failed,
// non-transient WindowOutcome's error is correctable, and if so driving
// a bounded loop of (ask generator to correct, re-run window) attempts.
package correction

import (
	"context"
	"regexp"
	"strings"

	"github.com/extremevalue/quantvalid/internal/domain"
)

// correctablePatterns is the closed list of regexes identifying errors
// the generator has a real chance of fixing, verbatim from the original's
// CORRECTABLE_ERROR_PATTERNS.
var correctablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`AttributeError: .* has no attribute`),
	regexp.MustCompile(`NameError: name '.*' is not defined`),
	regexp.MustCompile(`TypeError: .* argument`),
	regexp.MustCompile(`invalid syntax`),
	regexp.MustCompile(`unexpected keyword argument`),
	regexp.MustCompile(`Resolution\.`),
	regexp.MustCompile(`DataNormalizationMode`),
	regexp.MustCompile(`is_ready`),
	regexp.MustCompile(`zero trades executed`),
}

// IsCorrectable reports whether an error message matches the closed
// correctable-pattern set.
func IsCorrectable(errorText string) bool {
	for _, p := range correctablePatterns {
		if p.MatchString(errorText) {
			return true
		}
	}
	return false
}

// Generator is the capability correction needs from C3: a distinct
// correction entry point from plain generation.
type Generator interface {
	Correct(ctx context.Context, c domain.Candidate, failingCode, errorText string) (domain.GeneratedProgram, error)
}

// WindowRunner is the capability correction needs from C4: run one
// window against a (possibly corrected) program.
type WindowRunner interface {
	Run(ctx context.Context, program string, w domain.WindowSpec) (domain.WindowOutcome, error)
}

// DateRewriter is called before each re-run, mirroring how C6 always
// rewrites dates before handing a program to the driver.
type DateRewriter func(program string, w domain.WindowSpec) string

// Result is the outcome of running the first window through the
// correction loop: the final WindowOutcome, the (possibly corrected)
// program later windows should reuse unmodified, and how many attempts
// were made in total (1 if no correction was needed).
type Result struct {
	Outcome            domain.WindowOutcome
	Program            string
	CorrectionAttempts int
}

// Run executes window w, and on a correctable failure asks gen to
// correct the program and retries, up to maxAttempts total attempts
// (default 3). Transient outcomes (rate-limited, engine-crash) are
// never corrected; they're returned immediately so the walk-forward
// aggregator's short-circuit logic can see them.
func Run(ctx context.Context, runner WindowRunner, gen Generator, rewrite DateRewriter, c domain.Candidate, program string, w domain.WindowSpec, maxAttempts int) (Result, error) {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	current := program
	attempts := 0

	for {
		attempts++
		rewritten := rewrite(current, w)
		outcome, err := runner.Run(ctx, rewritten, w)
		if err != nil {
			return Result{}, err
		}

		if outcome.Success || outcome.RateLimited || outcome.EngineCrash {
			return Result{Outcome: outcome, Program: current, CorrectionAttempts: attempts}, nil
		}
		if attempts >= maxAttempts || !IsCorrectable(outcome.Error) {
			return Result{Outcome: outcome, Program: current, CorrectionAttempts: attempts}, nil
		}

		corrected, err := gen.Correct(ctx, c, current, errorContext(outcome))
		if err != nil {
			return Result{Outcome: outcome, Program: current, CorrectionAttempts: attempts}, nil
		}
		current = corrected.Code
	}
}

func errorContext(o domain.WindowOutcome) string {
	if strings.TrimSpace(o.Error) != "" {
		return o.Error
	}
	return o.RawOutput
}
