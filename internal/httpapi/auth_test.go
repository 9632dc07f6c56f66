package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"latiafanny/backend/internal/cache"
	"latiafanny/backend/internal/domain"
)

const testSecret = "test-secret-key-that-is-32-chars-long"

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func (s *userStoreStub) remove(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
}

func hashedUser(t *testing.T, username, password, role string, active bool) domain.UserAccount {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return domain.UserAccount{Username: username, Name: strings.ToUpper(username), Password: string(hash), Role: role, Active: active}
}

func newManager(t *testing.T, store UserStore) *AuthManager {
	t.Helper()
	manager, err := NewAuthManager(testSecret, time.Hour, store, cache.NewMemoryTokenDenylist())
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}
	return manager
}

func TestNewAuthManagerRequiresSecret(t *testing.T) {
	if _, err := NewAuthManager("  ", time.Hour, &userStoreStub{}, nil); err == nil {
		t.Fatalf("expected an empty secret to be rejected")
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {Username: "admin", Password: "admin123", Role: domain.RoleAdmin, Active: true},
		},
	}

	manager := newManager(t, store)
	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, _ := store.ListUsers(context.Background())
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
	if store.updates == 0 {
		t.Fatalf("expected the upgraded hash to be written back")
	}
}

func TestLoginAcceptsPasswordHashField(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{
		"cashier": hashedUser(t, "cashier", "cashier123", domain.RoleCashier, true),
	}}
	manager := newManager(t, store)

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "Cashier", PasswordHash: "cashier123"})
	if err != nil {
		t.Fatalf("login with password_hash failed: %v", err)
	}
	if resp.Role != domain.RoleCashier {
		t.Fatalf("expected cashier role, got %s", resp.Role)
	}

	session, err := manager.ParseToken(context.Background(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if session.Actor.Username != "cashier" || session.TokenID == "" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestLoginRejectsInactiveAndRemovedAccounts(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{
		"ghost": hashedUser(t, "ghost", "ghost123", domain.RoleCashier, false),
		"temp":  hashedUser(t, "temp", "temp1234", domain.RoleCashier, true),
	}}
	manager := newManager(t, store)

	_, err := manager.Login(context.Background(), domain.LoginRequest{Username: "ghost", Password: "ghost123"})
	if !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected inactive account error, got %v", err)
	}

	store.remove("temp")
	_, err = manager.Login(context.Background(), domain.LoginRequest{Username: "temp", Password: "temp1234"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected removed user to be rejected, got %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{
		"admin": hashedUser(t, "admin", "admin123", domain.RoleAdmin, true),
	}}
	manager := newManager(t, store)
	ctx := context.Background()

	resp, err := manager.Login(ctx, domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	session, err := manager.ParseToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if err := manager.Logout(ctx, session); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := manager.ParseToken(ctx, resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{
		"admin": hashedUser(t, "admin", "admin123", domain.RoleAdmin, true),
	}}
	other, err := NewAuthManager("another-secret-key-that-is-32-chars", time.Hour, store, nil)
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}
	resp, err := other.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := newManager(t, store).ParseToken(context.Background(), resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}
