package main

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-api/internal/config"
	"github.com/tbourn/go-product-api/internal/repo"
	"github.com/tbourn/go-product-api/internal/services"
)

// adminRole is granted to the bootstrap administrator.
const adminRole = "admin"

// purgeInterval is how often expired tokens and idempotency records are removed.
const purgeInterval = time.Hour

// openDatabase opens the SQLite file, attaches tracing and migrates the schema.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open sqlite %q", cfg.DBPath)
	}
	if err := repo.Instrument(db); err != nil {
		return nil, pkgerrors.Wrap(err, "instrument db")
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, pkgerrors.Wrap(err, "migrate")
	}
	return db, nil
}

// seed installs the default roles and, when an admin email is configured,
// makes sure that account exists and holds the admin role. It is safe to run
// on every start.
func seed(ctx context.Context, db *gorm.DB, auth *services.AuthService, sc config.SeedConfig) error {
	if sc.Roles {
		if err := repo.SeedRoles(ctx, db, repo.DefaultRoles()); err != nil {
			return pkgerrors.Wrap(err, "seed roles")
		}
	}
	if sc.AdminEmail == "" {
		return nil
	}

	email := services.NormalizeEmail(sc.AdminEmail)
	u, err := repo.GetUserByEmail(ctx, db, email)
	switch {
	case err == nil:
	case pkgerrors.Is(err, repo.ErrNotFound):
		u, err = auth.Register(ctx, services.RegisterInput{
			Name:     sc.AdminName,
			Email:    email,
			Password: sc.AdminPassword,
		})
		if err != nil {
			return pkgerrors.Wrap(err, "create admin")
		}
		log.Info().Str("user_id", u.ID).Msg("admin account created")
	default:
		return pkgerrors.Wrap(err, "load admin")
	}

	if err := repo.AssignRole(ctx, db, u.ID, adminRole); err != nil {
		return pkgerrors.Wrap(err, "grant admin role")
	}
	return nil
}

// purgeExpired deletes expired access tokens and idempotency records.
func purgeExpired(ctx context.Context, db *gorm.DB, now time.Time) (tokens, keys int64, err error) {
	if tokens, err = repo.PurgeExpiredTokens(ctx, db, now); err != nil {
		return 0, 0, pkgerrors.Wrap(err, "purge tokens")
	}
	if keys, err = repo.PurgeExpiredIdempotency(ctx, db, now); err != nil {
		return tokens, 0, pkgerrors.Wrap(err, "purge idempotency keys")
	}
	return tokens, keys, nil
}

// runPurger calls purgeExpired every interval until ctx is done.
func runPurger(ctx context.Context, db *gorm.DB, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			tokens, keys, err := purgeExpired(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("purge expired records")
				continue
			}
			if tokens+keys > 0 {
				log.Debug().Int64("tokens", tokens).Int64("idempotency_keys", keys).Msg("purged expired records")
			}
		}
	}
}
