package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extremevalue/quantvalid/internal/domain"
)

func validCandidate() domain.Candidate {
	return domain.Candidate{
		ID:           "strat-001",
		Name:         "simple momentum",
		StrategyType: "momentum",
		Universe: domain.Universe{
			Type:    "static",
			Symbols: []string{"SPY", "QQQ"},
		},
		Entry: domain.Entry{
			Type:    "technical",
			Signals: map[string]any{"ma_cross": true},
		},
		Exit: domain.Exit{
			Paths: []string{"stop_loss_5pct", "take_profit_10pct"},
		},
		Position: domain.Position{
			Sizing: domain.PositionSizing{Method: "fixed_fractional", Size: 0.1},
		},
		DataReqs: domain.DataRequirements{Primary: []string{"spy_prices"}},
	}
}

func TestVerify_AllPass(t *testing.T) {
	v := New()
	result := v.Verify(validCandidate())

	require.Len(t, result.Tests, 7)
	assert.Equal(t, domain.VerifyPass, result.OverallStatus)
	assert.Equal(t, 0, result.Failed())
}

func TestVerify_LookAheadBiasDetected(t *testing.T) {
	c := validCandidate()
	c.Entry.Technical = map[string]any{"condition": "enter when tomorrow_open > today_close"}

	result := New().Verify(c)
	test := findTest(result, "look_ahead_bias")
	require.NotNil(t, test)
	assert.Equal(t, domain.VerifyWarn, test.Status)
	assert.Equal(t, domain.VerifyWarn, result.OverallStatus)
}

func TestVerify_SurvivorshipBiasOnStaticKeyword(t *testing.T) {
	c := validCandidate()
	c.Universe.Index = "sp500"

	result := New().Verify(c)
	test := findTest(result, "survivorship_bias")
	require.NotNil(t, test)
	assert.Equal(t, domain.VerifyWarn, test.Status)
}

func TestVerify_DynamicUniverseWithoutPointInTimeWarns(t *testing.T) {
	c := validCandidate()
	c.Universe.Type = "dynamic"
	c.Universe.Filters = []string{"top_100_by_market_cap"}

	result := New().Verify(c)
	test := findTest(result, "survivorship_bias")
	require.NotNil(t, test)
	assert.Equal(t, domain.VerifyWarn, test.Status)
}

func TestVerify_DynamicUniverseWithPointInTimePasses(t *testing.T) {
	c := validCandidate()
	c.Universe.Type = "dynamic"
	c.Universe.Filters = []string{"point_in_time_constituents"}

	result := New().Verify(c)
	test := findTest(result, "survivorship_bias")
	require.NotNil(t, test)
	assert.Equal(t, domain.VerifyPass, test.Status)
}

func TestVerify_NoEntryFails(t *testing.T) {
	c := validCandidate()
	c.Entry = domain.Entry{}

	result := New().Verify(c)
	test := findTest(result, "entry_defined")
	require.NotNil(t, test)
	assert.Equal(t, domain.VerifyFail, test.Status)
	assert.Equal(t, domain.VerifyFail, result.OverallStatus)
}

func TestVerify_NoExitFails(t *testing.T) {
	c := validCandidate()
	c.Exit = domain.Exit{}

	result := New().Verify(c)
	test := findTest(result, "exit_defined")
	require.NotNil(t, test)
	assert.Equal(t, domain.VerifyFail, test.Status)
}

func TestVerify_ExitWithoutStopLossWarns(t *testing.T) {
	c := validCandidate()
	c.Exit.Paths = []string{"take_profit_10pct"}

	result := New().Verify(c)
	test := findTest(result, "exit_defined")
	require.NotNil(t, test)
	assert.Equal(t, domain.VerifyWarn, test.Status)
}

func TestVerify_NoUniverseFails(t *testing.T) {
	c := validCandidate()
	c.Universe = domain.Universe{}

	result := New().Verify(c)
	test := findTest(result, "universe_defined")
	require.NotNil(t, test)
	assert.Equal(t, domain.VerifyFail, test.Status)
}

func TestVerify_NoDataRequirementsWarns(t *testing.T) {
	c := validCandidate()
	c.DataReqs = domain.DataRequirements{}

	result := New().Verify(c)
	test := findTest(result, "data_requirements")
	require.NotNil(t, test)
	assert.Equal(t, domain.VerifyWarn, test.Status)
}

func TestVerify_NoPositionSizingMethodWarns(t *testing.T) {
	c := validCandidate()
	c.Position = domain.Position{}

	result := New().Verify(c)
	test := findTest(result, "position_sizing")
	require.NotNil(t, test)
	assert.Equal(t, domain.VerifyWarn, test.Status)
}

func TestVerify_OverallStatusIsWorstOfAllTests(t *testing.T) {
	c := validCandidate()
	c.Exit = domain.Exit{}                                          // fail
	c.Universe.Index = "sp500"                                      // warn

	result := New().Verify(c)
	assert.Equal(t, domain.VerifyFail, result.OverallStatus)
}

func findTest(r domain.Verification, name string) *domain.VerificationTest {
	for i := range r.Tests {
		if r.Tests[i].Name == name {
			return &r.Tests[i]
		}
	}
	return nil
}
