package codegen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extremevalue/quantvalid/internal/domain"
)

func momentumCandidate() domain.Candidate {
	return domain.Candidate{
		ID:           "STRAT-001",
		StrategyType: "momentum_rotation",
		SignalType:   "relative_momentum",
		Universe: domain.Universe{
			Type:    "static",
			Symbols: []string{"spy", "tlt", "gld"},
		},
		Parameters: map[string]any{"lookback": 126},
	}
}

var allTemplateKinds = []templateKind{
	templateMomentum, templateMeanReversion, templateRegimeAdaptive,
	templateOptionsIncome, templateGenericBase,
}

func TestGenerate_TemplateDeterminism(t *testing.T) {
	c := momentumCandidate()
	g := NewGenerator(nil)

	p1, err := g.Generate(context.Background(), c, false)
	require.NoError(t, err)
	p2, err := g.Generate(context.Background(), c, false)
	require.NoError(t, err)

	assert.Equal(t, p1.Code, p2.Code, "template path must be byte-identical across invocations")
	assert.Equal(t, "template", p1.Provenance.Source)
	assert.Equal(t, "momentum", p1.Provenance.Template)
}

func TestGenerate_NoTemplateMatchFallsBackToLLM(t *testing.T) {
	c := momentumCandidate()
	c.StrategyType = ""
	g := NewGenerator(nil)

	_, err := g.Generate(context.Background(), c, false)
	require.Error(t, err)
}

func TestGenerate_ForceLLMSkipsTemplateEvenWhenOneMatches(t *testing.T) {
	c := momentumCandidate()
	stub := &stubClient{reply: "```python\nclass FooAlgorithm(QCAlgorithm):\n    def Initialize(self):\n        pass\n```"}
	g := NewGenerator(stub)

	p, err := g.Generate(context.Background(), c, true)
	require.NoError(t, err)
	assert.Equal(t, "llm", p.Provenance.Source)
}

func TestAllTemplates_NoHardcodedDates(t *testing.T) {
	c := momentumCandidate()
	g := NewGenerator(nil)
	for _, kind := range allTemplateKinds {
		p, err := g.renderTemplate(c, kind)
		require.NoError(t, err, "kind=%s", kind)
		assert.False(t, HasHardcodedDate(p.Code), "kind=%s produced a hard-coded date", kind)
	}
}

func TestGenerateClassName(t *testing.T) {
	assert.Equal(t, "Strat001Algorithm", generateClassName("STRAT-001"))
	assert.Equal(t, "MyStrategyAlgorithm", generateClassName("my_strategy"))
}

func TestFormatSymbols(t *testing.T) {
	assert.Equal(t, `["SPY", "TLT"]`, formatSymbols([]string{"spy", "tlt"}))
	assert.Equal(t, `[]`, formatSymbols(nil))
}

func TestFormatSymbolSet(t *testing.T) {
	assert.Equal(t, `{"SPY"}`, formatSymbolSet([]string{"spy"}))
	assert.Equal(t, "set()", formatSymbolSet(nil))
}

type stubClient struct {
	reply string
	err   error
}

func (s *stubClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.reply, s.err
}
