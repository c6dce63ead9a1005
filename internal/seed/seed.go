package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// AdminRegistry is where seeded admins are written
type AdminRegistry interface {
	AddAdmin(ctx context.Context, uid string) error
}

// CreateDefaultAdmins registers the configured admin uids. Existing entries are left untouched.
func CreateDefaultAdmins(ctx context.Context, registry AdminRegistry, uids []string, lgr zerolog.Logger) error {
	lgr.Info().Int("count", len(uids)).Msg("Checking/Creating default admins...")

	var finalErr error // collect errors without stopping the loop
	seeded := 0
	for _, uid := range uids {
		uid = strings.TrimSpace(uid)
		if uid == "" {
			continue
		}
		if err := registry.AddAdmin(ctx, uid); err != nil {
			lgr.Error().Err(err).Str("uid", uid).Msg("Error registering admin")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		seeded++
	}

	lgr.Info().Int("seeded", seeded).Msg("Default admins ensured")
	return finalErr
}
