// Package llm abstracts the completion backend: one prompt in, generated
// text out.
package llm

import "context"

// Request describes a single completion call.
type Request struct {
	Model       string
	MaxTokens   int
	Temperature float32
	Prompt      string
}

// Completer executes a single request/response exchange with an LLM service.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
