package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/extremevalue/quantvalid/internal/domain"
)

const sampleProgram = `from AlgorithmImports import *


class FooAlgorithm(QCAlgorithm):
    def initialize(self):
        self.set_cash(100000)
        self.set_start_date(2000, 1, 1)
        self.set_end_date(2000, 12, 31)
        self.set_benchmark("SPY")
`

const noDatesProgram = `from AlgorithmImports import *


class FooAlgorithm(QCAlgorithm):
    def initialize(self):
        self.set_cash(100000)
        self.set_benchmark("SPY")
`

func window() domain.WindowSpec {
	return domain.WindowSpec{
		ID:    1,
		Start: time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestRewriteDates_ReplacesExistingCalls(t *testing.T) {
	out := RewriteDates(sampleProgram, window())
	assert.Contains(t, out, "self.set_start_date(2012, 1, 1)")
	assert.Contains(t, out, "self.set_end_date(2023, 12, 31)")
	assert.NotContains(t, out, "2000, 1, 1")
}

func TestRewriteDates_InsertsMissingCalls(t *testing.T) {
	out := RewriteDates(noDatesProgram, window())
	assert.Contains(t, out, "self.set_start_date(2012, 1, 1)")
	assert.Contains(t, out, "self.set_end_date(2023, 12, 31)")
}

func TestRewriteDates_IsFixedPoint(t *testing.T) {
	w := window()
	once := RewriteDates(sampleProgram, w)
	twice := RewriteDates(once, w)
	assert.Equal(t, once, twice)
}
