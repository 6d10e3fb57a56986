package codegen

import (
	"regexp"
	"strings"
)

var fencedCodeBlockRe = regexp.MustCompile("(?s)```(?:python)?\\s*\\n(.*?)```")
var classDefRe = regexp.MustCompile(`(?m)^class\s+\w+\s*\(`)
var defInitRe = regexp.MustCompile(`(?i)def\s+initialize\s*\(\s*self\s*\)`)

// extractProgram pulls a program out of an LLM reply: prefer a fenced
// code block; otherwise accept the whole reply if it "looks like code"
// (contains both a class definition and an Initialize method), mirroring
// engine.py's extraction tolerance.
func extractProgram(reply string) (string, bool) {
	if m := fencedCodeBlockRe.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if classDefRe.MatchString(reply) && defInitRe.MatchString(reply) {
		return strings.TrimSpace(reply), true
	}
	return "", false
}
