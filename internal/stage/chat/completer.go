// Package chat implements the text stages (OCR correction, translation,
// summary, character extraction) on top of a chat-completion model.
package chat

import "context"

// Request is one system+user prompt exchange.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	JSON        bool // ask the model for a JSON object
}

// Completer returns the model's reply to a single request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Backend is a named Completer that can be registered.
type Backend interface {
	Completer
	Name() string
}
