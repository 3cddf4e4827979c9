package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"

	"github.com/rs/zerolog"
)

// BootstrapAdmin creates an initial superuser when none exists.
// It is idempotent: if a superuser already exists, it does nothing.
func BootstrapAdmin(ctx context.Context, repo UserRepository, hasher *PasswordHasher, cfg Config, log zerolog.Logger) error {
	if !cfg.BootstrapAdminEnabled {
		return nil
	}

	has, err := repo.HasSuperuser(ctx)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	username := "admin"
	password, err := generatePassword(32)
	if err != nil {
		return err
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}

	if _, err := repo.Create(ctx, NewUser{
		Username:     username,
		Email:        "admin@example.com",
		PasswordHash: hash,
		FullName:     "Administrator",
		IsActive:     true,
		IsSuperuser:  true,
	}); err != nil {
		return err
	}

	if cfg.InitialAdminPasswordPath != "" {
		if err := os.WriteFile(cfg.InitialAdminPasswordPath, []byte(password+"\n"), 0o600); err != nil {
			return err
		}
		log.Info().Str("path", cfg.InitialAdminPasswordPath).Msg("initial admin created; credentials written to file")
	} else {
		log.Info().Str("username", username).Str("password", password).Msg("initial admin created")
	}

	return nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	// base64 encoding: need 3/4 overhead; ensure enough bytes
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
