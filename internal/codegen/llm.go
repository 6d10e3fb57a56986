package codegen

import "context"

// Client is the capability interface C3 depends on for its LLM fallback
// and correction paths. internal/engine provides the concrete
// implementation; tests substitute a stub.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// retryablePatterns/nonRetryablePatterns classify a Client error by
// substring, the same style the reviewer-llm.go example (theRebelliousNerd)
// uses for its completion retry loop: a non-retryable match fails fast,
// every other error (retryable match or no match) gets exponential
// backoff.
var retryablePatterns = []string{
	"timeout", "connection", "network", "temporary", "rate limit",
	"503", "502", "429", "context deadline exceeded",
}

var nonRetryablePatterns = []string{
	"unauthorized", "forbidden", "invalid api key", "401", "403",
}
