package nuggetauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nuggetsync/nuggetauth/password"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// testConfig keeps Argon2 cheap enough for unit tests.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.UpgradeOnLogin = false
	return cfg
}

func newTestHasher(t testing.TB) *password.Argon2 {
	t.Helper()

	cfg := testConfig().Password
	h, err := password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

type mockUserProvider struct {
	mu      sync.Mutex
	nextID  int64
	users   map[string]UserRecord
	failGet error
	failNew error
	updates map[int64]string
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		nextID:  1,
		users:   map[string]UserRecord{},
		updates: map[int64]string{},
	}
}

func (m *mockUserProvider) seed(t testing.TB, id int64, username, pass string) {
	t.Helper()

	hash, err := newTestHasher(t).Hash(pass)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[username] = UserRecord{
		UserID:       id,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if id >= m.nextID {
		m.nextID = id + 1
	}
}

func (m *mockUserProvider) GetUserByUsername(_ context.Context, username string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failGet != nil {
		return UserRecord{}, m.failGet
	}
	u, ok := m.users[username]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserProvider) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNew != nil {
		return UserRecord{}, m.failNew
	}
	if _, ok := m.users[input.Username]; ok {
		return UserRecord{}, ErrAccountExists
	}
	now := time.Now().UTC()
	u := UserRecord{
		UserID:       m.nextID,
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.nextID++
	m.users[input.Username] = u
	return u, nil
}

func (m *mockUserProvider) UpdatePasswordHash(_ context.Context, userID int64, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, u := range m.users {
		if u.UserID == userID {
			u.PasswordHash = newHash
			m.users[name] = u
			m.updates[userID] = newHash
			return nil
		}
	}
	return errors.New("no such user")
}

func (m *mockUserProvider) updated(userID int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.updates[userID]
	return h, ok
}
