// Package verify implements C2: cheap, pre-flight structural and
// keyword-based checks on a Candidate, run before any backtest resources
// are spent.
//
// Ported from original_source/research_system/validation/verifier.py; the
// seven checks and their keyword lists are kept verbatim.
package verify

import (
	"fmt"
	"strings"
	"time"

	"github.com/extremevalue/quantvalid/internal/domain"
)

// lookAheadKeywords is LOOK_AHEAD_KEYWORDS, verbatim.
var lookAheadKeywords = []string{
	"tomorrow", "next_day", "future", "will_be", "forward",
	"t+1", "t+2", "next_bar", "next_close", "tomorrow_open",
}

// survivorshipKeywords is SURVIVORSHIP_KEYWORDS, verbatim.
var survivorshipKeywords = []string{
	"sp500", "s&p500", "index_constituents", "current_members",
	"top_", "largest_", "market_cap_rank",
}

// Verifier runs the fixed check suite against a Candidate.
type Verifier struct {
	now func() time.Time
}

// New returns a Verifier using the real clock.
func New() *Verifier {
	return &Verifier{now: time.Now}
}

// Verify runs every check, in the order the original Verifier.verify does,
// and folds them into an overall status (fail > warn > pass).
func (v *Verifier) Verify(c domain.Candidate) domain.Verification {
	result := domain.Verification{
		CandidateID: c.ID,
		Timestamp:   v.now(),
	}

	result.Tests = append(result.Tests,
		v.checkLookAheadBias(c),
		v.checkSurvivorshipBias(c),
		v.checkPositionSizing(c),
		v.checkDataRequirements(c),
		v.checkEntryDefined(c),
		v.checkExitDefined(c),
		v.checkUniverseDefined(c),
	)

	result.OverallStatus = domain.VerifyPass
	for _, test := range result.Tests {
		if test.Status == domain.VerifyFail {
			result.OverallStatus = domain.VerifyFail
			break
		}
		if test.Status == domain.VerifyWarn {
			result.OverallStatus = domain.VerifyWarn
		}
	}
	return result
}

func containsAny(haystack string, keywords []string) []string {
	haystack = strings.ToLower(haystack)
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

func (v *Verifier) checkLookAheadBias(c domain.Candidate) domain.VerificationTest {
	var issues []string
	issues = append(issues, prefixEach("Entry contains", containsAny(fieldString(c.Entry), lookAheadKeywords), "- possible look-ahead bias")...)
	issues = append(issues, prefixEach("Exit contains", containsAny(fieldString(c.Exit), lookAheadKeywords), "- possible look-ahead bias")...)
	if c.Entry.Technical != nil {
		cond, _ := c.Entry.Technical["condition"].(string)
		issues = append(issues, prefixEach("Technical condition contains", containsAny(cond, lookAheadKeywords), "")...)
	}

	if len(issues) > 0 {
		return domain.VerificationTest{
			Name:    "look_ahead_bias",
			Status:  domain.VerifyWarn,
			Message: "found potential look-ahead bias issue(s)",
			Details: map[string]any{"issues": issues},
		}
	}
	return domain.VerificationTest{
		Name:    "look_ahead_bias",
		Status:  domain.VerifyPass,
		Message: "no obvious look-ahead bias detected",
	}
}

func (v *Verifier) checkSurvivorshipBias(c domain.Candidate) domain.VerificationTest {
	var issues []string
	issues = append(issues, prefixEach("Universe contains", containsAny(fieldString(c.Universe), survivorshipKeywords), "- may have survivorship bias")...)

	if c.Universe.Type == "dynamic" {
		hasPIT := false
		for _, f := range c.Universe.Filters {
			if strings.Contains(strings.ToLower(f), "point_in_time") {
				hasPIT = true
				break
			}
		}
		if !hasPIT {
			issues = append(issues, "Dynamic universe without point-in-time flag")
		}
	}

	if len(issues) > 0 {
		return domain.VerificationTest{
			Name:    "survivorship_bias",
			Status:  domain.VerifyWarn,
			Message: "found potential survivorship bias issue(s)",
			Details: map[string]any{"issues": issues},
		}
	}
	return domain.VerificationTest{
		Name:    "survivorship_bias",
		Status:  domain.VerifyPass,
		Message: "no obvious survivorship bias detected",
	}
}

func (v *Verifier) checkPositionSizing(c domain.Candidate) domain.VerificationTest {
	if c.Position.Sizing.Method == "" {
		if c.Position.Size != 0 || c.Position.Allocation != 0 {
			return domain.VerificationTest{Name: "position_sizing", Status: domain.VerifyPass, Message: "position sizing defined"}
		}
		return domain.VerificationTest{Name: "position_sizing", Status: domain.VerifyWarn, Message: "position sizing method not specified"}
	}
	return domain.VerificationTest{Name: "position_sizing", Status: domain.VerifyPass, Message: "position sizing defined: " + c.Position.Sizing.Method}
}

func (v *Verifier) checkDataRequirements(c domain.Candidate) domain.VerificationTest {
	if len(c.DataReqs.Primary) == 0 {
		return domain.VerificationTest{Name: "data_requirements", Status: domain.VerifyWarn, Message: "no primary data requirements listed"}
	}
	return domain.VerificationTest{Name: "data_requirements", Status: domain.VerifyPass, Message: "primary data requirement(s) specified"}
}

func (v *Verifier) checkEntryDefined(c domain.Candidate) domain.VerificationTest {
	if c.Entry.Type == "" && len(c.Entry.Signals) == 0 && len(c.Entry.Technical) == 0 && len(c.Entry.Fundamental) == 0 {
		return domain.VerificationTest{Name: "entry_defined", Status: domain.VerifyFail, Message: "no entry conditions defined"}
	}
	if c.Entry.Type == "" {
		return domain.VerificationTest{Name: "entry_defined", Status: domain.VerifyWarn, Message: "entry type not specified"}
	}
	if len(c.Entry.Signals) == 0 && len(c.Entry.Technical) == 0 && len(c.Entry.Fundamental) == 0 {
		return domain.VerificationTest{Name: "entry_defined", Status: domain.VerifyWarn, Message: "entry has type but no signal/technical/fundamental config"}
	}
	return domain.VerificationTest{Name: "entry_defined", Status: domain.VerifyPass, Message: "entry defined with type: " + c.Entry.Type}
}

func (v *Verifier) checkExitDefined(c domain.Candidate) domain.VerificationTest {
	if len(c.Exit.Paths) == 0 {
		return domain.VerificationTest{Name: "exit_defined", Status: domain.VerifyFail, Message: "no exit conditions defined"}
	}
	hasStop := false
	for _, p := range c.Exit.Paths {
		if strings.Contains(strings.ToLower(p), "stop") {
			hasStop = true
			break
		}
	}
	if !hasStop {
		return domain.VerificationTest{Name: "exit_defined", Status: domain.VerifyWarn, Message: "exit path(s) defined but no stop loss"}
	}
	return domain.VerificationTest{Name: "exit_defined", Status: domain.VerifyPass, Message: "exit path(s) defined including stop loss"}
}

func (v *Verifier) checkUniverseDefined(c domain.Candidate) domain.VerificationTest {
	if c.Universe.Type == "" && len(c.Universe.Symbols) == 0 && len(c.Universe.Instruments) == 0 {
		return domain.VerificationTest{Name: "universe_defined", Status: domain.VerifyFail, Message: "no universe defined"}
	}
	if c.Universe.Type == "" {
		return domain.VerificationTest{Name: "universe_defined", Status: domain.VerifyWarn, Message: "universe type not specified"}
	}
	if c.Universe.Type == "static" {
		if len(c.Universe.Symbols) == 0 && len(c.Universe.Instruments) == 0 {
			return domain.VerificationTest{Name: "universe_defined", Status: domain.VerifyWarn, Message: "static universe with no symbols defined"}
		}
		return domain.VerificationTest{Name: "universe_defined", Status: domain.VerifyPass, Message: "static universe with symbol(s)"}
	}
	return domain.VerificationTest{Name: "universe_defined", Status: domain.VerifyPass, Message: "universe type: " + c.Universe.Type}
}

func prefixEach(prefix string, hits []string, suffix string) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		msg := prefix + " '" + h + "' " + suffix
		out = append(out, strings.TrimSpace(msg))
	}
	return out
}

func fieldString(v any) string {
	return strings.ToLower(fmt.Sprintf("%+v", v))
}
