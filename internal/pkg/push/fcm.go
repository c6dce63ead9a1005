package push

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSender sends through Firebase Cloud Messaging
type FCMSender struct {
	client   *messaging.Client
	linkBase *url.URL
}

// FCMConfig holds the service account settings
type FCMConfig struct {
	CredentialsFile string
	ProjectID       string
	// LinkBase resolves relative message URLs into web push click links
	LinkBase string
}

var errMissingResponse = errors.New("no response for token")

// NewFCMSender creates a sender from a service account file
func NewFCMSender(ctx context.Context, cfg FCMConfig) (*FCMSender, error) {
	if cfg.CredentialsFile == "" {
		return nil, errors.New("push credentials file is required")
	}

	var appConfig *firebase.Config
	var linkBase *url.URL
	if cfg.LinkBase != "" {
		base, err := url.Parse(cfg.LinkBase)
		if err != nil {
			return nil, fmt.Errorf("invalid push link base %q: %w", cfg.LinkBase, err)
		}
		linkBase = base
	}

	if cfg.ProjectID != "" {
		appConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging client: %w", err)
	}
	return &FCMSender{client: client, linkBase: linkBase}, nil
}

// SendMulticast implements Sender
func (s *FCMSender) SendMulticast(ctx context.Context, tokens []string, msg Message) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d tokens exceeds %d", len(tokens), MaxBatchSize)
	}

	data := map[string]string{}
	for k, v := range msg.Data {
		data[k] = v
	}
	if msg.URL != "" {
		data["url"] = msg.URL
	}

	multicast := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: data,
	}
	if link := webLink(s.linkBase, msg.URL); link != "" {
		multicast.Webpush = &messaging.WebpushConfig{
			FCMOptions: &messaging.WebpushFCMOptions{Link: link},
		}
	}

	resp, err := s.client.SendEachForMulticast(ctx, multicast)
	if err != nil {
		return nil, fmt.Errorf("multicast send failed: %w", err)
	}
	return multicastResults(tokens, resp), nil
}

// webLink returns the absolute https click link for raw, or "" when there is none.
// FCM rejects web push links that are not https.
func webLink(base *url.URL, raw string) string {
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "https" || ref.Host == "" {
		return ""
	}
	return ref.String()
}

// multicastResults pairs every token with its response by index
func multicastResults(tokens []string, resp *messaging.BatchResponse) []Result {
	results := make([]Result, len(tokens))
	for i, token := range tokens {
		results[i] = Result{Token: token}
		if resp == nil || i >= len(resp.Responses) || resp.Responses[i] == nil {
			results[i].Err = errMissingResponse
			continue
		}
		r := resp.Responses[i]
		if r.Success {
			continue
		}
		results[i].Err = r.Error
		results[i].Unregistered = isDeadToken(r.Error)
	}
	return results
}

// isDeadToken reports errors that condemn the token itself. Other invalid
// argument errors are about the message and say nothing about the token.
func isDeadToken(err error) bool {
	if err == nil {
		return false
	}
	if messaging.IsUnregistered(err) {
		return true
	}
	return messaging.IsInvalidArgument(err) &&
		strings.Contains(strings.ToLower(err.Error()), "registration token")
}

// SubscribeToTopic implements Sender
func (s *FCMSender) SubscribeToTopic(ctx context.Context, tokens []string, topic string) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	resp, err := s.client.SubscribeToTopic(ctx, tokens, topic)
	if err != nil {
		return nil, fmt.Errorf("topic subscribe failed: %w", err)
	}
	return topicResults(tokens, resp), nil
}

// UnsubscribeFromTopic implements Sender
func (s *FCMSender) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	resp, err := s.client.UnsubscribeFromTopic(ctx, tokens, topic)
	if err != nil {
		return nil, fmt.Errorf("topic unsubscribe failed: %w", err)
	}
	return topicResults(tokens, resp), nil
}

func topicResults(tokens []string, resp *messaging.TopicManagementResponse) []Result {
	results := make([]Result, len(tokens))
	for i, token := range tokens {
		results[i] = Result{Token: token}
	}
	for _, e := range resp.Errors {
		if e == nil || e.Index < 0 || e.Index >= len(tokens) {
			continue
		}
		results[e.Index].Err = errors.New(e.Reason)
		results[e.Index].Unregistered = e.Reason == "registration-token-not-registered"
	}
	return results
}
