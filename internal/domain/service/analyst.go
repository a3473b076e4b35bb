package service

import "context"

// Prompt is a system instruction plus the user message.
type Prompt struct {
	System string
	User   string
}

// Analyst streams a natural-language analysis from a language model.
//
// Stream returns a fragment channel and an error channel. Both are closed
// when the model finishes, fails or ctx is cancelled; at most one error is
// delivered, after the last fragment.
type Analyst interface {
	Stream(ctx context.Context, p Prompt) (<-chan string, <-chan error)
	Ping(ctx context.Context) error
	Provider() string
	Model() string
}
