package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/moim/internal/pkg/apperrors"
)

func newService(secret string, exp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{SecretKey: secret, AccessTokenExp: exp, TokenIssuer: "moim.test"})
}

func TestJWTService(t *testing.T) {
	svc := newService("secret", time.Hour)

	t.Run("round trip", func(t *testing.T) {
		token, err := svc.IssueToken("alice", "Alice")
		require.NoError(t, err)

		identity, err := svc.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, &Identity{UID: "alice", Name: "Alice"}, identity)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := newService("secret", -time.Minute).IssueToken("alice", "")
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("foreign signature", func(t *testing.T) {
		token, err := newService("other", time.Hour).IssueToken("alice", "")
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		other := NewJWTService(JWTConfig{SecretKey: "secret", AccessTokenExp: time.Hour, TokenIssuer: "elsewhere"})
		token, err := other.IssueToken("alice", "")
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := svc.Verify("")
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer  abc ", want: "abc"},
		{header: "Basic abc", wantErr: true},
		{header: "Bearer", wantErr: true},
		{header: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ExtractBearerToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCronSecretVerifier(t *testing.T) {
	hash, err := HashCronSecret("tick")
	require.NoError(t, err)

	verifier := NewCronSecretVerifier(hash)
	assert.True(t, verifier.Verify("tick"))
	assert.False(t, verifier.Verify("tock"))
	assert.False(t, verifier.Verify(""))
	assert.False(t, NewCronSecretVerifier("").Verify("tick"))
}
