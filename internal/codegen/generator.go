package codegen

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/extremevalue/quantvalid/internal/domain"
	"github.com/extremevalue/quantvalid/internal/errs"
)

// dateSetterRe matches the engine's date-setting method calls in either
// PascalCase or snake_case form; property 2 of §8 requires zero matches
// in any template-path output.
var dateSetterRe = regexp.MustCompile(`(?i)\b(set_start_date|setstartdate|set_end_date|setenddate)\s*\(\s*\d`)

// Generator renders candidates into GeneratedPrograms via the template
// path, falling back to an LLM Client when no template matches or the
// caller forces it.
type Generator struct {
	client Client
	now    func() time.Time
}

// NewGenerator builds a Generator; client may be nil if only the
// template path will ever be exercised (forcing LLM with a nil client
// is a CodeGenFailure, not a panic).
func NewGenerator(client Client) *Generator {
	return &Generator{client: client, now: time.Now}
}

// Generate renders a Candidate into a program. forceLLM skips the
// template path even when one would match, per the CLI's --force-llm flag.
func (g *Generator) Generate(ctx context.Context, c domain.Candidate, forceLLM bool) (domain.GeneratedProgram, error) {
	if !forceLLM {
		if kind, ok := selectTemplate(c.StrategyType, c.SignalType); ok {
			return g.renderTemplate(c, kind)
		}
	}
	return g.renderLLM(ctx, c)
}

func (g *Generator) renderTemplate(c domain.Candidate, kind templateKind) (domain.GeneratedProgram, error) {
	tpl, err := parseTemplate(kind)
	if err != nil {
		return domain.GeneratedProgram{}, errs.Wrap(errs.ErrCodeGenFailure, "parsing template "+string(kind))
	}
	ctx := buildContext(c, g.now())
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, ctx); err != nil {
		return domain.GeneratedProgram{}, errs.Wrap(errs.ErrCodeGenFailure, "rendering template "+string(kind))
	}
	code, warnings := PostProcess(buf.String())
	return domain.GeneratedProgram{
		Code: code,
		Provenance: domain.ProgramProvenance{
			Source:   "template",
			Template: string(kind),
			Warnings: warnings,
		},
	}, nil
}

func (g *Generator) renderLLM(ctx context.Context, c domain.Candidate) (domain.GeneratedProgram, error) {
	if g.client == nil {
		return domain.GeneratedProgram{}, errs.Wrap(errs.ErrCodeGenFailure, "no LLM client configured and no template matched")
	}
	system := generationSystemPrompt()
	user := generationUserPrompt(c)

	reply, err := completeWithRetry(ctx, g.client, system, user, 3)
	if err != nil {
		return domain.GeneratedProgram{}, errs.Wrap(errs.ErrCodeGenFailure, "LLM completion failed: "+err.Error())
	}
	code, ok := extractProgram(reply)
	if !ok {
		return domain.GeneratedProgram{}, errs.Wrap(errs.ErrCodeGenFailure, "could not extract a program from LLM reply")
	}
	code, warnings := PostProcess(code)
	return domain.GeneratedProgram{
		Code: code,
		Provenance: domain.ProgramProvenance{
			Source:   "llm",
			Warnings: warnings,
		},
	}, nil
}

// Correct implements C5's distinct correction entry point: a different
// prompt shape carrying the failing program, the error text, and the
// post-processor's own checklist, still passing the result through
// PostProcess.
func (g *Generator) Correct(ctx context.Context, c domain.Candidate, failingCode, errorText string) (domain.GeneratedProgram, error) {
	if g.client == nil {
		return domain.GeneratedProgram{}, errs.Wrap(errs.ErrCodeGenFailure, "no LLM client configured for correction")
	}
	system := correctionSystemPrompt()
	user := correctionUserPrompt(c, failingCode, errorText)

	reply, err := completeWithRetry(ctx, g.client, system, user, 3)
	if err != nil {
		return domain.GeneratedProgram{}, errs.Wrap(errs.ErrCodeGenFailure, "LLM correction failed: "+err.Error())
	}
	code, ok := extractProgram(reply)
	if !ok {
		return domain.GeneratedProgram{}, errs.Wrap(errs.ErrCodeGenFailure, "could not extract a corrected program from LLM reply")
	}
	code, warnings := PostProcess(code)
	return domain.GeneratedProgram{
		Code: code,
		Provenance: domain.ProgramProvenance{
			Source:   "llm",
			Warnings: warnings,
		},
	}, nil
}

// HasHardcodedDate reports whether code contains a literal-dated call to
// the engine's date-setting methods; used by the test suite against
// every shipped template (§8 property 2) and available to callers that
// want to assert it against arbitrary generated code.
func HasHardcodedDate(code string) bool {
	return dateSetterRe.MatchString(code)
}

func generationSystemPrompt() string {
	return strings.TrimSpace(`
You generate a single self-contained backtest algorithm for a third-party
engine. Respond with one fenced python code block containing a complete
program: a class inheriting QCAlgorithm, an initialize method that sets
cash, warmup, benchmark, and registers symbols, and an on_data handler.
Never hard-code start or end dates; the harness injects them.
`)
}

func generationUserPrompt(c domain.Candidate) string {
	return fmt.Sprintf(
		"candidate id: %s\nstrategy_type: %s\nsignal_type: %s\nuniverse: %+v\nentry: %+v\nexit: %+v\nposition: %+v\nparameters: %+v\n",
		c.ID, c.StrategyType, c.SignalType, c.Universe, c.Entry, c.Exit, c.Position, c.Parameters,
	)
}

func correctionSystemPrompt() string {
	return strings.TrimSpace(`
You fix a failing backtest algorithm. Respond with one fenced python code
block containing the complete corrected program. Common gotchas: host API
methods are snake_case except option-chain filter methods (IncludeWeeklys,
Strikes, Expiration) which stay PascalCase; Resolution enum cases are
uppercase; options strategies need raw data-normalization mode on the
underlying; never hard-code start or end dates.
`)
}

func correctionUserPrompt(c domain.Candidate, failingCode, errorText string) string {
	return fmt.Sprintf(
		"candidate id: %s\nfailing program:\n```python\n%s\n```\nerror:\n%s\n",
		c.ID, failingCode, errorText,
	)
}
