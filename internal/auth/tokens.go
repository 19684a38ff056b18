package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tubestream/backend/internal/models"
)

// ErrUnauthenticated is returned for every token failure: forged, expired,
// unknown account or superseded refresh token. The cases are deliberately
// indistinguishable to callers.
var ErrUnauthenticated = errors.New("unauthenticated")

// AccountSource resolves accounts and persists the single live refresh token
// per account. SetRefreshToken must touch only the token column so it cannot
// be blocked by validation on unrelated fields.
type AccountSource interface {
	FindByID(ctx context.Context, id string) (models.Account, error)
	SetRefreshToken(ctx context.Context, accountID, token string) error
}

// AccessClaims are the self-contained claims carried by an access token so
// identity can be verified without a database read.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// AccountID returns the subject claim.
func (c AccessClaims) AccountID() string { return c.Subject }

// Service issues, verifies and rotates the bearer credentials for accounts.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	accounts AccountSource

	// NowFunc overrides the time source in tests.
	NowFunc func() time.Time
}

// NewService constructs a token service backed by the provided account source.
func NewService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, accounts AccountSource) *Service {
	if accounts == nil {
		panic("auth: account source must not be nil")
	}
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		accounts:      accounts,
	}
}

// Issue mints a new access/refresh pair for the account and stores the
// refresh token as the account's single current value, superseding any
// previously issued refresh token.
func (s *Service) Issue(ctx context.Context, account models.Account) (models.TokenPair, error) {
	if account.ID == "" {
		return models.TokenPair{}, errors.New("auth: account id must be provided")
	}

	now := s.now()

	accessExpiry := now.Add(s.accessTTL)
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Username: account.Username,
		Email:    account.Email,
		FullName: account.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
	})
	accessToken, err := access.SignedString(s.accessSecret)
	if err != nil {
		return models.TokenPair{}, err
	}

	refreshExpiry := now.Add(s.refreshTTL)
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   account.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(refreshExpiry),
	})
	refreshToken, err := refresh.SignedString(s.refreshSecret)
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := s.accounts.SetRefreshToken(ctx, account.ID, refreshToken); err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// VerifyAccess checks signature and expiry of an access token. No database
// read is involved; callers materialise the account separately.
func (s *Service) VerifyAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthenticated
		}
		return s.accessSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return AccessClaims{}, ErrUnauthenticated
	}
	return claims, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token must
// byte-for-byte equal the value currently stored on the account; a
// superseded token is treated the same as a forged one.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	if refreshToken == "" {
		return models.TokenPair{}, ErrUnauthenticated
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(refreshToken, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthenticated
		}
		return s.refreshSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return models.TokenPair{}, ErrUnauthenticated
	}

	account, err := s.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		return models.TokenPair{}, ErrUnauthenticated
	}

	if subtle.ConstantTimeCompare([]byte(account.RefreshToken), []byte(refreshToken)) != 1 {
		return models.TokenPair{}, ErrUnauthenticated
	}

	return s.Issue(ctx, account)
}

// Revoke clears the stored refresh token for the account. Idempotent.
func (s *Service) Revoke(ctx context.Context, accountID string) error {
	if accountID == "" {
		return nil
	}
	return s.accounts.SetRefreshToken(ctx, accountID, "")
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
