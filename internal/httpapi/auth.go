package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"latiafanny/backend/internal/cache"
	"latiafanny/backend/internal/domain"
)

const (
	tokenIssuer      = "latiafanny"
	userRefreshLimit = 3 * time.Second
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type AuthManager struct {
	mu        sync.RWMutex
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
	denylist  cache.TokenDenylist
	users     map[string]credential
	now       func() time.Time
}

type UserStore interface {
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type credential struct {
	name     string
	password string
	role     string
	active   bool
}

// Session is a verified access token.
type Session struct {
	Actor     domain.Actor
	TokenID   string
	ExpiresAt time.Time
}

type posCustomClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore, denylist cache.TokenDenylist) (*AuthManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret is required")
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	if denylist == nil {
		denylist = cache.NewMemoryTokenDenylist()
	}

	manager := &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
		denylist:  denylist,
		users:     make(map[string]credential),
		now:       func() time.Time { return time.Now().UTC() },
	}
	ctx, cancel := context.WithTimeout(context.Background(), userRefreshLimit)
	defer cancel()
	manager.bootstrapUsers(ctx)
	return manager, nil
}

// Login checks the password against the stored bcrypt hash. The admin
// frontend posts the plain password as password_hash, so either field works.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	refreshCtx, cancel := context.WithTimeout(ctx, userRefreshLimit)
	a.bootstrapUsers(refreshCtx)
	cancel()

	username := strings.ToLower(strings.TrimSpace(req.Username))
	password := req.Password
	if password == "" {
		password = req.PasswordHash
	}

	a.mu.RLock()
	cred, ok := a.users[username]
	a.mu.RUnlock()
	if !ok || !verifyPassword(cred.password, password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if !cred.active {
		return domain.LoginResponse{}, ErrInactiveAccount
	}

	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(username, cred.role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Str("username", username).Str("role", cred.role).Msg("login")

	return domain.LoginResponse{
		AccessToken: token,
		Role:        cred.role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(ctx context.Context, tokenStr string) (Session, error) {
	claims := &posCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return Session{}, ErrInvalidToken
	}

	revoked, err := a.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("token denylist lookup failed")
		return Session{}, ErrInvalidToken
	}
	if revoked {
		return Session{}, ErrInvalidToken
	}

	return Session{
		Actor:     domain.Actor{Username: sub, Role: claims.Role},
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the token until it would have expired anyway.
func (a *AuthManager) Logout(ctx context.Context, session Session) error {
	return a.denylist.Revoke(ctx, session.TokenID, session.ExpiresAt)
}

// Profile returns the cached account behind an actor.
func (a *AuthManager) Profile(actor domain.Actor) map[string]any {
	a.mu.RLock()
	cred, ok := a.users[actor.Username]
	a.mu.RUnlock()

	name := actor.Username
	if ok && cred.name != "" {
		name = cred.name
	}
	return map[string]any{
		"username": actor.Username,
		"name":     name,
		"role":     actor.Role,
	}
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(a.now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// bootstrapUsers replaces the credential cache with the store's accounts so
// users removed through the API stop being able to log in. Legacy plain-text
// passwords are upgraded to bcrypt in the store on the way.
func (a *AuthManager) bootstrapUsers(ctx context.Context) {
	if a.userStore == nil {
		return
	}

	users, err := a.userStore.ListUsers(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("refresh user credentials")
		return
	}

	fresh := make(map[string]credential, len(users))
	for _, user := range users {
		username := strings.ToLower(strings.TrimSpace(user.Username))
		if username == "" {
			continue
		}
		password := user.Password
		if password != "" && !isPasswordHash(password) {
			hashed, err := hashPassword(password)
			if err == nil {
				password = hashed
				if err := a.userStore.UpdateUserPassword(ctx, username, hashed); err != nil {
					zerolog.Ctx(ctx).Warn().Err(err).Str("username", username).Msg("upgrade legacy password")
				}
			}
		}
		fresh[username] = credential{
			name:     user.Name,
			password: password,
			role:     user.Role,
			active:   user.Active,
		}
	}

	a.mu.Lock()
	a.users = fresh
	a.mu.Unlock()
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
