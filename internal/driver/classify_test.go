package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_EngineCrashTakesPriority(t *testing.T) {
	c := classify("some output\ncore dumped\nrate limit exceeded too", 1)
	assert.True(t, c.engineCrash)
	assert.False(t, c.rateLimited)
}

func TestClassify_RateLimitOnNonZeroExit(t *testing.T) {
	c := classify("error: too many requests", 1)
	assert.True(t, c.rateLimited)
	assert.False(t, c.engineCrash)
}

func TestClassify_RateLimitPatternIgnoredOnZeroExit(t *testing.T) {
	c := classify("log message mentions rate limit but run actually finished\nTotal Orders: 5", 0)
	assert.False(t, c.rateLimited)
}

func TestClassify_NonZeroExitWithoutKnownPattern(t *testing.T) {
	c := classify("boom, unexpected failure", 1)
	assert.False(t, c.success)
	assert.False(t, c.rateLimited)
	assert.False(t, c.engineCrash)
	assert.Contains(t, c.reason, "boom")
}

func TestClassify_ErrorOccurredMarker(t *testing.T) {
	c := classify("An error occurred during this backtest: division by zero\nmore noise", 0)
	assert.False(t, c.success)
	assert.Equal(t, "division by zero", c.reason)
}

func TestClassify_ZeroTradesOverridesSuccess(t *testing.T) {
	c := classify("Sharpe Ratio: 1.2\nTotal Orders: 0\n", 0)
	assert.False(t, c.success)
	assert.Equal(t, "zero trades executed", c.reason)
}

func TestClassify_SuccessWithTrades(t *testing.T) {
	c := classify("Sharpe Ratio: 1.2\nCompounding Annual Return: 12.3%\nDrawdown: 14.0%\nTotal Orders: 42\n", 0)
	assert.True(t, c.success)
	assert.Equal(t, 1.2, c.stats["Sharpe Ratio"])
	assert.Equal(t, 12.3, c.stats["Compounding Annual Return"])
	assert.Equal(t, 42.0, c.stats["Total Orders"])
}

func TestParseLenientNumber(t *testing.T) {
	cases := map[string]float64{
		"12.3%":    12.3,
		"$1,234.56": 1234.56,
		"42":       42,
	}
	for raw, want := range cases {
		v, ok := parseLenientNumber(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, v, raw)
	}
}
