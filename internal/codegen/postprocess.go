package codegen

import (
	"regexp"
	"strings"
)

const requiredImport = "from AlgorithmImports import *"

// pascalToSnakeMethods is the fixed table of known host-API methods the
// post-processor normalizes from PascalCase to snake_case, ported from
// engine.py's POST_PROCESS_METHOD_MAP.
var pascalToSnakeMethods = map[string]string{
	"SetCash":       "set_cash",
	"SetStartDate":  "set_start_date",
	"SetEndDate":    "set_end_date",
	"SetWarmUp":     "set_warm_up",
	"SetBenchmark":  "set_benchmark",
	"AddEquity":     "add_equity",
	"AddOption":     "add_option",
	"SetHoldings":   "set_holdings",
	"MarketOrder":   "market_order",
	"Liquidate":     "liquidate",
	"History":       "history",
	"Schedule":      "schedule",
	"Portfolio":     "portfolio",
	"OnData":        "on_data",
	"Initialize":    "initialize",
}

// snakeToPascalOptionFilters is the option-chain filter exception: these
// stay (or are restored to) PascalCase even though everything else is
// normalized to snake_case.
var snakeToPascalOptionFilters = map[string]string{
	"include_weeklys": "IncludeWeeklys",
	"strikes":         "Strikes",
	"expiration":      "Expiration",
	"set_filter":      "SetFilter",
}

var resolutionEnumRe = regexp.MustCompile(`Resolution\.([A-Za-z]+)`)

var benchmarkCallRe = regexp.MustCompile(`self\.set_benchmark\(`)
var cashCallRe = regexp.MustCompile(`(self\.set_cash\([^)]*\)\s*\n)`)
var optionsAPIRe = regexp.MustCompile(`add_option\(|AddOption\(`)
var rawNormalizationRe = regexp.MustCompile(`data_normalization_mode\s*(?:=\s*|\()DataNormalizationMode\.RAW`)

// PostProcess applies the single shared normalization pass both the
// template and LLM paths go through. It never fails; every corrective
// action it takes is recorded as a warning string.
func PostProcess(code string) (result string, warnings []string) {
	result = code

	if !strings.Contains(result, requiredImport) {
		result = requiredImport + "\n\n" + result
		warnings = append(warnings, "prepended missing AlgorithmImports import")
	}

	for pascal, snake := range pascalToSnakeMethods {
		before := result
		result = replaceMethodCall(result, pascal, snake)
		if result != before {
			warnings = append(warnings, "normalized "+pascal+" to "+snake)
		}
	}

	before := result
	result = resolutionEnumRe.ReplaceAllStringFunc(result, func(m string) string {
		groups := resolutionEnumRe.FindStringSubmatch(m)
		return "Resolution." + strings.ToUpper(groups[1])
	})
	if result != before {
		warnings = append(warnings, "uppercased Resolution enum case(s)")
	}

	for snake, pascal := range snakeToPascalOptionFilters {
		before := result
		result = replaceMethodCall(result, snake, pascal)
		if result != before {
			warnings = append(warnings, "restored option-filter method "+pascal+" to PascalCase")
		}
	}

	if optionsAPIRe.MatchString(result) && !rawNormalizationRe.MatchString(result) {
		result = insertAfterAddOption(result)
		warnings = append(warnings, "inserted raw data-normalization mode for options underlying")
	}

	if !benchmarkCallRe.MatchString(result) {
		if cashCallRe.MatchString(result) {
			result = cashCallRe.ReplaceAllString(result, `${1}        self.set_benchmark("SPY")`+"\n")
			warnings = append(warnings, "injected missing benchmark call after cash is set")
		}
	}

	return result, warnings
}

// replaceMethodCall renames `<word> (` occurrences of from to to, only
// where from is immediately followed by "(" (a call site), so normal
// English words inside comments or strings aren't touched by accident
// for the common case of short identifiers appearing standalone.
func replaceMethodCall(code, from, to string) string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(from) + `\s*\(`)
	return re.ReplaceAllString(code, to+"(")
}

func insertAfterAddOption(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if strings.Contains(line, "add_option(") || strings.Contains(line, "AddOption(") {
			indent := leadingWhitespace(line)
			insertion := indent + "self.securities[self.symbols[0]].set_data_normalization_mode(DataNormalizationMode.RAW)"
			lines = append(lines[:i+1], append([]string{insertion}, lines[i+1:]...)...)
			break
		}
	}
	return strings.Join(lines, "\n")
}

func leadingWhitespace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}
