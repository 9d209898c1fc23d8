package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mandi-market/mandi/internal/config"
	"github.com/mandi-market/mandi/internal/identity"
)

// Errors of the authentication flow.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrTokenInvalid       = errors.New("invalid token")
)

// Claims are the JWT claims carried by access and refresh tokens.
type Claims struct {
	Role      string `json:"role"`
	TokenKind string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service issues and verifies bearer tokens. Logout writes the token id to
// the shared revocation store so revocation survives restarts and spans
// instances.
type Service struct {
	cfg     config.Config
	users   identity.Repository
	revoked RevocationStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds an auth service.
func NewService(cfg config.Config, users identity.Repository, revoked RevocationStore, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, users: users, revoked: revoked, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Login validates credentials and issues an access/refresh token pair.
// Signup deliberately does not call this; a fresh login is an explicit step.
func (s *Service) Login(ctx context.Context, email, phone, password string) (TokenPair, identity.User, error) {
	email = identity.NormalizeEmail(email)
	phone = identity.NormalizePhone(phone)

	user, err := s.users.FindByEmailOrPhone(ctx, email, phone)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return TokenPair{}, identity.User{}, ErrInvalidCredentials
		}
		return TokenPair{}, identity.User{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return TokenPair{}, identity.User{}, ErrInvalidCredentials
	}
	if !user.Active {
		return TokenPair{}, identity.User{}, ErrAccountDisabled
	}

	access, err := s.sign(user, "access", s.cfg.JWTSecret, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, identity.User{}, err
	}
	refresh, err := s.sign(user, "refresh", s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, identity.User{}, err
	}

	s.logger.Info("login succeeded", slog.String("user_id", user.ID), slog.String("role", user.Role))
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
	}, user, nil
}

// Refresh verifies a refresh token and issues a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := s.Verify(ctx, refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	if claims.TokenKind != "refresh" {
		return "", 0, ErrTokenInvalid
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", 0, ErrTokenInvalid
	}
	if !user.Active {
		return "", 0, ErrAccountDisabled
	}

	access, err := s.sign(user, "access", s.cfg.JWTSecret, s.cfg.AccessTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTTL.Seconds()), nil
}

// Logout revokes the presented access token for its remaining lifetime.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.Verify(ctx, accessToken, s.cfg.JWTSecret)
	if err != nil {
		return err
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if err := s.revoked.Revoke(ctx, claims.ID, remaining); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("logout", slog.String("user_id", claims.Subject))
	return nil
}

// Verify parses and validates a token against the given secret, including a
// revocation-store check. A store failure rejects the token.
func (s *Service) Verify(ctx context.Context, tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("revocation check: %w", err)
	}
	if revoked {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyAccess validates an access token with the access secret.
func (s *Service) VerifyAccess(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := s.Verify(ctx, tokenStr, s.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenKind != "access" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *Service) sign(user identity.User, kind, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Role:      user.Role,
		TokenKind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}
