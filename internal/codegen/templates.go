package codegen

import "text/template"

// selectTemplate ports engine.py's _select_template: a static map from
// normalized strategy_type (signal_type narrows behavior within a
// template, not which template is chosen) to a template identifier. An
// unrecognized strategy_type routes to the LLM path.
func selectTemplate(strategyType, signalType string) (templateKind, bool) {
	switch snakeCase(strategyType) {
	case "momentum", "momentum_rotation", "relative_momentum":
		return templateMomentum, true
	case "mean_reversion", "reversion":
		return templateMeanReversion, true
	case "regime_adaptive", "regime":
		return templateRegimeAdaptive, true
	case "options_income", "covered_call", "put_write":
		return templateOptionsIncome, true
	default:
		return "", false
	}
}

// header is shared by every template: imports, class declaration, and the
// Initialize method common scaffolding. No date literal ever appears here;
// dates are set by the engine-framework override the driver rewrites
// before each run (see internal/driver).
const header = `from AlgorithmImports import *


class {{.ClassName}}(QCAlgorithm):
    """Generated for candidate {{.CandidateID}} at {{.GeneratedAt}}."""

    def Initialize(self):
        self.set_cash(100000)
        self.set_warm_up(timedelta(days=30))
        self.set_benchmark("{{.BenchmarkSymbol}}")
        self.symbols = {{.Symbols}}
        self.securities_by_symbol = {}
        for ticker in self.symbols:
            equity = self.add_equity(ticker, Resolution.Daily)
            self.securities_by_symbol[ticker] = equity.symbol
`

const momentumBody = `
        self.lookback = {{defaultIfNone (index .Parameters "lookback") "126"}}
        self.rebalance_days = {{defaultIfNone (index .Parameters "rebalance_days") "21"}}
        self.schedule.on(
            self.date_rules.every_day(),
            self.time_rules.after_market_open(self.symbols[0], 15),
            self.rebalance,
        )

    def rebalance(self):
        momentum_scores = {}
        for ticker, symbol in self.securities_by_symbol.items():
            history = self.history(symbol, self.lookback, Resolution.Daily)
            if history.empty:
                continue
            closes = history["close"]
            momentum_scores[ticker] = (closes.iloc[-1] / closes.iloc[0]) - 1.0

        if not momentum_scores:
            return
        ranked = sorted(momentum_scores.items(), key=lambda kv: kv[1], reverse=True)
        top = [ticker for ticker, _ in ranked[: max(1, len(ranked) // 2)]]
        weight = 1.0 / len(top) if top else 0.0
        for ticker in self.symbols:
            target = weight if ticker in top else 0.0
            self.set_holdings(self.securities_by_symbol[ticker], target)

    def on_data(self, data: Slice):
        pass
`

const meanReversionBody = `
        self.lookback = {{defaultIfNone (index .Parameters "lookback") "20"}}
        self.entry_z = {{defaultIfNone (index .Parameters "entry_z") "-2.0"}}
        self.exit_z = {{defaultIfNone (index .Parameters "exit_z") "0.0"}}

    def on_data(self, data: Slice):
        for ticker, symbol in self.securities_by_symbol.items():
            if not data.contains_key(symbol):
                continue
            history = self.history(symbol, self.lookback, Resolution.Daily)
            if history.empty:
                continue
            closes = history["close"]
            mean = closes.mean()
            std = closes.std()
            if std == 0:
                continue
            z = (closes.iloc[-1] - mean) / std
            invested = self.portfolio[symbol].invested
            if z <= self.entry_z and not invested:
                self.set_holdings(symbol, 1.0 / len(self.symbols))
            elif z >= self.exit_z and invested:
                self.liquidate(symbol)
`

const regimeAdaptiveBody = `
        self.defensive_symbols = {{.DefensiveSymbols}}
        self.lookback = {{defaultIfNone (index .Parameters "lookback") "63"}}

    def on_data(self, data: Slice):
        spy = self.securities_by_symbol.get("SPY")
        if spy is None:
            return
        history = self.history(spy, self.lookback, Resolution.Daily)
        if history.empty:
            return
        closes = history["close"]
        trend_up = closes.iloc[-1] > closes.mean()
        if trend_up:
            for ticker, symbol in self.securities_by_symbol.items():
                self.set_holdings(symbol, 1.0 / len(self.symbols))
        else:
            for ticker in self.defensive_symbols:
                if ticker in self.securities_by_symbol:
                    self.set_holdings(self.securities_by_symbol[ticker], 1.0 / max(1, len(self.defensive_symbols)))
`

const optionsIncomeBody = `
        option = self.add_option(self.symbols[0], Resolution.Minute)
        option.SetFilter(lambda u: u.IncludeWeeklys().Strikes(-2, 2).Expiration(0, 30))
        self.option_symbol = option.symbol
        self.underlying_symbol = option.underlying

    def on_data(self, data: Slice):
        chain = data.option_chains.get(self.option_symbol)
        if chain is None:
            return
        calls = [c for c in chain if c.right == OptionRight.Call]
        if not calls:
            return
        contract = sorted(calls, key=lambda c: c.strike)[-1]
        if not self.portfolio[self.underlying_symbol].invested:
            self.market_order(contract.symbol, -1)
`

const genericBaseBody = `
    def on_data(self, data: Slice):
        pass
`

var bodyByKind = map[templateKind]string{
	templateMomentum:       momentumBody,
	templateMeanReversion:  meanReversionBody,
	templateRegimeAdaptive: regimeAdaptiveBody,
	templateOptionsIncome:  optionsIncomeBody,
	templateGenericBase:    genericBaseBody,
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"defaultIfNone": defaultIfNone,
	}
}

func parseTemplate(kind templateKind) (*template.Template, error) {
	body, ok := bodyByKind[kind]
	if !ok {
		body = genericBaseBody
	}
	return template.New(string(kind)).Funcs(templateFuncs()).Parse(header + body)
}
