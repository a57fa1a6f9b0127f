package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nuggetsync/nuggetauth"
	"github.com/nuggetsync/nuggetauth/internal/profile"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("NUGGETAUTH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("NUGGETAUTH_TEST_DATABASE_URL not set")
	}
	if err := Migrate(dsn, "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := NewPool(ctx, dsn, 4, 0)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func TestMigrateArguments(t *testing.T) {
	if err := Migrate("", "up"); err == nil {
		t.Fatal("expected error for empty dsn")
	}
	for _, dir := range []string{"", "UP", "sideways"} {
		if err := Migrate("postgres://localhost/x", dir); err == nil {
			t.Fatalf("expected error for direction %q", dir)
		}
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries)%2 != 0 || len(entries) == 0 {
		t.Fatalf("expected paired up/down migrations, got %d files", len(entries))
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatal("expected 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) || isUniqueViolation(errors.New("x")) {
		t.Fatal("unexpected unique violation match")
	}
}

func TestUserRepository(t *testing.T) {
	pool := testPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()
	name := uniqueName("alice")

	created, err := repo.CreateUser(ctx, nuggetauth.CreateUserInput{Username: name, PasswordHash: "$argon2id$stub"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.UserID == 0 || created.CreatedAt.IsZero() {
		t.Fatalf("unexpected record %+v", created)
	}

	if _, err := repo.CreateUser(ctx, nuggetauth.CreateUserInput{Username: name, PasswordHash: "x"}); !errors.Is(err, nuggetauth.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	got, err := repo.GetUserByUsername(ctx, name)
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.UserID != created.UserID || got.PasswordHash != "$argon2id$stub" {
		t.Fatalf("unexpected record %+v", got)
	}

	if err := repo.UpdatePasswordHash(ctx, created.UserID, "$argon2id$new"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, _ = repo.GetUserByUsername(ctx, name)
	if got.PasswordHash != "$argon2id$new" {
		t.Fatalf("hash not updated: %q", got.PasswordHash)
	}

	if _, err := repo.GetUserByUsername(ctx, uniqueName("nobody")); !errors.Is(err, nuggetauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := repo.UpdatePasswordHash(ctx, -1, "x"); !errors.Is(err, nuggetauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestProfileRepository(t *testing.T) {
	pool := testPool(t)
	users := NewUserRepository(pool)
	profiles := NewProfileRepository(pool)
	ctx := context.Background()

	u, err := users.CreateUser(ctx, nuggetauth.CreateUserInput{Username: uniqueName("bob"), PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	empty, err := profiles.ListByUser(ctx, u.UserID)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", empty, err)
	}

	in := profile.CreateInput{Name: "laptop", Hash: "ciphertext", EncryptionType: profile.EncryptionXChaCha20Poly1305}
	p, err := profiles.Create(ctx, u.UserID, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.UserID != u.UserID || p.Name != "laptop" {
		t.Fatalf("unexpected profile %+v", p)
	}

	list, err := profiles.ListByUser(ctx, u.UserID)
	if err != nil || len(list) != 1 || list[0].ID != p.ID {
		t.Fatalf("unexpected list %v %v", list, err)
	}
}
