package push

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokens(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("tok-%d", i)
	}
	return out
}

func TestChunk(t *testing.T) {
	t.Run("splits at the batch size", func(t *testing.T) {
		batches := Chunk(tokens(1001), MaxBatchSize)
		require.Len(t, batches, 3)
		assert.Len(t, batches[0], 500)
		assert.Len(t, batches[1], 500)
		assert.Len(t, batches[2], 1)
	})

	t.Run("caps oversized batch sizes", func(t *testing.T) {
		batches := Chunk(tokens(700), 2000)
		require.Len(t, batches, 2)
		assert.Len(t, batches[0], MaxBatchSize)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Chunk(nil, 10))
	})
}

func TestLogSenderReportsSuccess(t *testing.T) {
	sender := NewLogSender(zerolog.Nop())
	results, err := sender.SendMulticast(context.Background(), []string{"a", "b"}, Message{Title: "hi"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.False(t, r.Unregistered)
	}
}

func TestWebLink(t *testing.T) {
	mustParse := func(raw string) *url.URL {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		return u
	}

	tests := []struct {
		name string
		base *url.URL
		raw  string
		want string
	}{
		{"relative against https base", mustParse("https://moim.example.com"), "/rooms/abc", "https://moim.example.com/rooms/abc"},
		{"relative without base", nil, "/rooms/abc", ""},
		{"relative against http base", mustParse("http://localhost:3000"), "/rooms/abc", ""},
		{"absolute https", nil, "https://moim.example.com/rooms/abc", "https://moim.example.com/rooms/abc"},
		{"empty", mustParse("https://moim.example.com"), "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, webLink(tt.base, tt.raw))
		})
	}
}

func TestMulticastResults(t *testing.T) {
	t.Run("short response list", func(t *testing.T) {
		results := multicastResults([]string{"a", "b", "c"}, &messaging.BatchResponse{
			Responses: []*messaging.SendResponse{{Success: true}},
		})
		require.Len(t, results, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{results[0].Token, results[1].Token, results[2].Token})
		assert.NoError(t, results[0].Err)
		assert.ErrorIs(t, results[1].Err, errMissingResponse)
		assert.ErrorIs(t, results[2].Err, errMissingResponse)
		assert.False(t, results[1].Unregistered)
	})

	t.Run("failures keep the token", func(t *testing.T) {
		results := multicastResults([]string{"a", "b"}, &messaging.BatchResponse{
			Responses: []*messaging.SendResponse{
				{Success: false, Error: errors.New("webpush link must be https")},
				{Success: true},
			},
		})
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].Token)
		assert.Error(t, results[0].Err)
		assert.False(t, results[0].Unregistered)
		assert.NoError(t, results[1].Err)
	})
}

func TestIsDeadToken(t *testing.T) {
	assert.False(t, isDeadToken(nil))
	assert.False(t, isDeadToken(errors.New("registration token is not valid")))
}
