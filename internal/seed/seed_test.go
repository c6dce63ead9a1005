package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/yigit/moim/internal/app/repositories/memstore"
)

type failingRegistry struct{ calls int }

func (r *failingRegistry) AddAdmin(ctx context.Context, uid string) error {
	r.calls++
	return errors.New("registry unavailable")
}

func TestCreateDefaultAdmins(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	err := CreateDefaultAdmins(ctx, store, []string{"alice", " ", "bob", "alice"}, zerolog.Nop())
	assert.NoError(t, err)

	for _, uid := range []string{"alice", "bob"} {
		ok, err := store.IsAdmin(ctx, uid)
		assert.NoError(t, err)
		assert.True(t, ok, uid)
	}
	ok, _ := store.IsAdmin(ctx, "carol")
	assert.False(t, ok)
}

func TestCreateDefaultAdminsCollectsErrors(t *testing.T) {
	registry := &failingRegistry{}
	err := CreateDefaultAdmins(context.Background(), registry, []string{"a", "b"}, zerolog.Nop())
	assert.Error(t, err)
	assert.Equal(t, 2, registry.calls)
}
