package core

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

func TestBootstrapAdmin_CreatesSuperuser(t *testing.T) {
	repo := newFakeUserRepo()
	hasher := NewPasswordHasher(bcrypt.MinCost)
	passwordPath := filepath.Join(t.TempDir(), "admin-password")
	cfg := Config{
		BootstrapAdminEnabled:    true,
		InitialAdminPasswordPath: passwordPath,
	}

	if err := BootstrapAdmin(context.Background(), repo, hasher, cfg, zerolog.New(io.Discard)); err != nil {
		t.Fatalf("bootstrap error: %v", err)
	}

	admin, err := repo.FindByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if !admin.IsSuperuser || !admin.IsActive {
		t.Fatalf("unexpected flags: %+v", admin)
	}

	data, err := os.ReadFile(passwordPath)
	if err != nil {
		t.Fatalf("password file: %v", err)
	}
	password := strings.TrimSpace(string(data))
	if len(password) != 32 {
		t.Fatalf("password length = %d, want 32", len(password))
	}
	if !hasher.Verify(password, admin.PasswordHash) {
		t.Fatal("stored digest does not match written password")
	}

	info, err := os.Stat(passwordPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("password file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestBootstrapAdmin_Idempotent(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(UserRecord{Username: "root", IsActive: true, IsSuperuser: true})
	cfg := Config{BootstrapAdminEnabled: true}

	if err := BootstrapAdmin(context.Background(), repo, NewPasswordHasher(bcrypt.MinCost), cfg, zerolog.New(io.Discard)); err != nil {
		t.Fatalf("bootstrap error: %v", err)
	}
	if _, err := repo.FindByUsername(context.Background(), "admin"); err == nil {
		t.Fatal("second admin must not be created when a superuser exists")
	}
}

func TestBootstrapAdmin_Disabled(t *testing.T) {
	repo := newFakeUserRepo()
	cfg := Config{BootstrapAdminEnabled: false}

	if err := BootstrapAdmin(context.Background(), repo, NewPasswordHasher(bcrypt.MinCost), cfg, zerolog.New(io.Discard)); err != nil {
		t.Fatalf("bootstrap error: %v", err)
	}
	if len(repo.byName) != 0 {
		t.Fatal("disabled bootstrap must not create users")
	}
}
