package codegen

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// completeWithRetry ports the exponential-backoff/substring-classification
// retry loop from theRebelliousNerd/codenerd's reviewer.go
// llmCompleteWithRetry: a non-retryable error fails fast; retryable and
// unmatched errors (an unmatched error defaults to retryable) back off
// exponentially and retry, up to maxRetries attempts in all.
func completeWithRetry(ctx context.Context, client Client, systemPrompt, userPrompt string, maxRetries int) (string, error) {
	const baseDelay = 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		reply, err := client.Complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
		if attempt < maxRetries-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(baseDelay * (1 << attempt)):
			}
		}
	}
	return "", fmt.Errorf("exhausted %d attempts: %w", maxRetries, lastErr)
}

func isRetryableError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, p := range nonRetryablePatterns {
		if strings.Contains(msg, p) {
			return false
		}
	}
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return true
}
