package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const rawLLMSample = `class FooAlgorithm(QCAlgorithm):
    def Initialize(self):
        self.SetCash(100000)
        self.AddOption("SPY", Resolution.minute)
        self.SetHoldings("SPY", 1.0)

    def OnData(self, data):
        pass
`

func TestPostProcess_PrependsMissingImport(t *testing.T) {
	code, warnings := PostProcess(rawLLMSample)
	assert.Contains(t, code, requiredImport)
	assert.Contains(t, warnings, "prepended missing AlgorithmImports import")
}

func TestPostProcess_NormalizesPascalCaseMethodsToSnakeCase(t *testing.T) {
	code, _ := PostProcess(rawLLMSample)
	assert.Contains(t, code, "set_cash(")
	assert.Contains(t, code, "set_holdings(")
	assert.NotContains(t, code, "SetCash(")
	assert.NotContains(t, code, "SetHoldings(")
}

func TestPostProcess_UppercasesResolutionEnum(t *testing.T) {
	code, _ := PostProcess(rawLLMSample)
	assert.Contains(t, code, "Resolution.MINUTE")
}

func TestPostProcess_InsertsRawNormalizationForOptions(t *testing.T) {
	code, warnings := PostProcess(rawLLMSample)
	assert.Contains(t, code, "DataNormalizationMode.RAW")
	assert.Contains(t, warnings, "inserted raw data-normalization mode for options underlying")
}

func TestPostProcess_InjectsMissingBenchmarkAfterCash(t *testing.T) {
	code, warnings := PostProcess(rawLLMSample)
	assert.Contains(t, code, `set_benchmark("SPY")`)
	assert.Contains(t, warnings, "injected missing benchmark call after cash is set")
}

func TestPostProcess_IsFixedPoint(t *testing.T) {
	once, _ := PostProcess(rawLLMSample)
	twice, _ := PostProcess(once)
	assert.Equal(t, once, twice)
}

func TestPostProcess_NeverFailsOnEmptyInput(t *testing.T) {
	code, _ := PostProcess("")
	assert.Contains(t, code, requiredImport)
}
