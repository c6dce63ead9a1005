package push

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender only logs what would have been sent. It is used when no push credentials are configured.
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender creates a new LogSender
func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

// SendMulticast implements Sender
func (s *LogSender) SendMulticast(ctx context.Context, tokens []string, msg Message) ([]Result, error) {
	s.log.Debug().Int("tokens", len(tokens)).Str("title", msg.Title).Str("url", msg.URL).Msg("Push multicast (log only)")
	return okResults(tokens), nil
}

// SubscribeToTopic implements Sender
func (s *LogSender) SubscribeToTopic(ctx context.Context, tokens []string, topic string) ([]Result, error) {
	s.log.Debug().Int("tokens", len(tokens)).Str("topic", topic).Msg("Topic subscribe (log only)")
	return okResults(tokens), nil
}

// UnsubscribeFromTopic implements Sender
func (s *LogSender) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) ([]Result, error) {
	s.log.Debug().Int("tokens", len(tokens)).Str("topic", topic).Msg("Topic unsubscribe (log only)")
	return okResults(tokens), nil
}

func okResults(tokens []string) []Result {
	results := make([]Result, len(tokens))
	for i, token := range tokens {
		results[i] = Result{Token: token}
	}
	return results
}
