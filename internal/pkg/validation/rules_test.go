package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title   string `validate:"notblank"`
	StartAt string `validate:"rfc3339"`
	EndAt   string `validate:"omitempty,rfc3339"`
}

func TestRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	tests := []struct {
		name  string
		input sample
		valid bool
	}{
		{"valid", sample{Title: "Chess", StartAt: "2026-05-01T18:00:00Z"}, true},
		{"offset timestamp", sample{Title: "Chess", StartAt: "2026-05-01T18:00:00+09:00", EndAt: "2026-05-01T20:00:00+09:00"}, true},
		{"blank title", sample{Title: "   ", StartAt: "2026-05-01T18:00:00Z"}, false},
		{"date only", sample{Title: "Chess", StartAt: "2026-05-01"}, false},
		{"bad optional end", sample{Title: "Chess", StartAt: "2026-05-01T18:00:00Z", EndAt: "tomorrow"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRegisterRulesIsIdempotent(t *testing.T) {
	require.NoError(t, RegisterRules())
	require.NoError(t, RegisterRules())
}
