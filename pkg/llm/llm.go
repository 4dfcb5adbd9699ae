// Package llm is the gateway to the external text-completion service.
// The gateway does no retries and no parsing: it hands back whatever text the
// model produced, and the callers tolerate arbitrarily malformed output.
package llm

import "context"

// Client sends a structured prompt to a text-completion service and returns
// the raw response text.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
