package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/mandi-market/mandi/internal/config"
	"github.com/mandi-market/mandi/internal/identity"
	"github.com/mandi-market/mandi/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:     "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func seedUser(t *testing.T, users identity.Repository, active bool) identity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("orchard-gate-7"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := identity.User{
		ID:           uuid.New().String(),
		Name:         "Asha Devi",
		Email:        "asha@example.com",
		Phone:        "+919900112233",
		PasswordHash: hash,
		Role:         identity.RoleSeller,
		Active:       active,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestLoginIssuesTokenPair(t *testing.T) {
	users := identity.NewMemoryRepository()
	svc := NewService(testConfig(), users, NewMemoryRevocationStore(), logging.Discard())
	ctx := context.Background()
	user := seedUser(t, users, true)

	pair, got, err := svc.Login(ctx, "asha@example.com", "", "orchard-gate-7")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected seeded user, got %s", got.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens issued")
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expires_in %d", pair.ExpiresIn)
	}

	claims, err := svc.VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != user.ID || claims.Role != identity.RoleSeller {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// The refresh token is not an access token.
	if _, err := svc.VerifyAccess(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected refresh token rejected as access, got %v", err)
	}

	// Login by phone works too.
	if _, _, err := svc.Login(ctx, "", "+91 99001 12233", "orchard-gate-7"); err != nil {
		t.Fatalf("login by phone: %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	users := identity.NewMemoryRepository()
	svc := NewService(testConfig(), users, NewMemoryRevocationStore(), logging.Discard())
	ctx := context.Background()
	seedUser(t, users, true)

	if _, _, err := svc.Login(ctx, "asha@example.com", "", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "", "orchard-gate-7"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	users := identity.NewMemoryRepository()
	svc := NewService(testConfig(), users, NewMemoryRevocationStore(), logging.Discard())
	ctx := context.Background()
	seedUser(t, users, false)

	if _, _, err := svc.Login(ctx, "asha@example.com", "", "orchard-gate-7"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	users := identity.NewMemoryRepository()
	svc := NewService(testConfig(), users, NewMemoryRevocationStore(), logging.Discard())
	ctx := context.Background()
	user := seedUser(t, users, true)

	pair, _, err := svc.Login(ctx, "asha@example.com", "", "orchard-gate-7")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, expiresIn, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if expiresIn <= 0 {
		t.Fatalf("expected positive expires_in, got %d", expiresIn)
	}
	claims, err := svc.VerifyAccess(ctx, access)
	if err != nil {
		t.Fatalf("verify refreshed access: %v", err)
	}
	if claims.Subject != user.ID {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}

	// An access token cannot be used to refresh.
	if _, _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid refreshing with access token, got %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	users := identity.NewMemoryRepository()
	svc := NewService(testConfig(), users, NewMemoryRevocationStore(), logging.Discard())
	ctx := context.Background()
	seedUser(t, users, true)

	pair, _, err := svc.Login(ctx, "asha@example.com", "", "orchard-gate-7")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.VerifyAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("verify before logout: %v", err)
	}

	if err := svc.Logout(ctx, pair.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected revoked token rejected, got %v", err)
	}

	// A second logout of the same token fails because it is already revoked.
	if err := svc.Logout(ctx, pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on double logout, got %v", err)
	}
}

func TestVerifyRejectsForgedToken(t *testing.T) {
	users := identity.NewMemoryRepository()
	svc := NewService(testConfig(), users, NewMemoryRevocationStore(), logging.Discard())
	ctx := context.Background()
	seedUser(t, users, true)

	forged := NewService(config.Config{
		JWTSecret:     "different-secret",
		RefreshSecret: "different-refresh",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, users, NewMemoryRevocationStore(), logging.Discard())

	pair, _, err := forged.Login(ctx, "asha@example.com", "", "orchard-gate-7")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := svc.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected forged token rejected, got %v", err)
	}
	if _, err := svc.VerifyAccess(ctx, "not-even-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected garbage token rejected, got %v", err)
	}
}

func TestRedisRevocationStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisRevocationStore(client)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "token-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatalf("expected fresh token not revoked")
	}

	if err := store.Revoke(ctx, "token-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err = store.IsRevoked(ctx, "token-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatalf("expected token revoked")
	}

	// The entry lapses with the token's own expiry.
	mr.FastForward(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "token-1")
	if err != nil {
		t.Fatalf("is revoked after expiry: %v", err)
	}
	if revoked {
		t.Fatalf("expected revocation entry expired")
	}

	// Revoking an already-expired token is a no-op rather than an
	// unbounded key.
	if err := store.Revoke(ctx, "token-2", -time.Second); err != nil {
		t.Fatalf("revoke expired token: %v", err)
	}
	if mr.Exists(revokedPrefix + "token-2") {
		t.Fatalf("expected no key written for expired token")
	}
}
