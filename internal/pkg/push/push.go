// Package push delivers notifications to device endpoints.
package push

import (
	"context"
)

// MaxBatchSize is the largest token list accepted by one multicast call
const MaxBatchSize = 500

// Message is the payload shown on the device
type Message struct {
	Title string
	Body  string
	URL   string
	Data  map[string]string
}

// Result is the delivery outcome for one token
type Result struct {
	Token string
	Err   error
	// Unregistered means the token will never work again and should be forgotten
	Unregistered bool
}

// Sender is the push transport
type Sender interface {
	// SendMulticast delivers msg to at most MaxBatchSize tokens and reports per-token results
	SendMulticast(ctx context.Context, tokens []string, msg Message) ([]Result, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) ([]Result, error)
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) ([]Result, error)
}

// Chunk splits tokens into batches of at most size entries
func Chunk(tokens []string, size int) [][]string {
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	var batches [][]string
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		batches = append(batches, tokens[start:end])
	}
	return batches
}
