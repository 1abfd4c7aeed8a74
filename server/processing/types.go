// Package processing implements the chat pipeline between a validated request
// and its reply: text normalization, trigger classification and dispatch to
// the generation adapter.
package processing

import "context"

// Request is a validated chat message ready for processing.
type Request struct {
	Message string `json:"message"`
}

// Response is the outcome of processing one message.
type Response struct {
	// Content is the reply sent back to the client
	Content string `json:"response"`

	// Normalized is the text that was classified and, when not triggered,
	// handed to the generator
	Normalized string `json:"-"`

	// Triggered reports whether the keyword short-circuited generation
	Triggered bool `json:"-"`
}

// Generator produces a reply for normalized text. Implementations contain
// their own failures, so Reply always returns a string.
type Generator interface {
	Reply(ctx context.Context, normalized string) string
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, normalized string) string

// Reply calls f(ctx, normalized).
func (f GeneratorFunc) Reply(ctx context.Context, normalized string) string {
	return f(ctx, normalized)
}
