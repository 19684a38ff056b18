package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/tubestream/backend/internal/apperr"
	"github.com/tubestream/backend/internal/models"
)

type ctxKey string

const accountKey ctxKey = "account"

// AuthMiddleware resolves the caller's identity from the access token in the
// request cookie or Authorization header.
type AuthMiddleware struct {
	Tokens   TokenService
	Accounts AccountStore
}

// Require rejects unauthenticated requests with a 401 envelope. The resolved
// account is materialised from the store so deleted accounts fail closed.
func (m AuthMiddleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := m.resolve(r)
		if err != nil {
			respondError(r.Context(), w, apperr.New(apperr.Unauthenticated, "invalid access token"))
			return
		}
		next(w, r.WithContext(withAccount(r.Context(), account)))
	}
}

// Optional resolves a viewer when a valid access token is present and serves
// the request anonymously otherwise.
func (m AuthMiddleware) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if account, err := m.resolve(r); err == nil {
			r = r.WithContext(withAccount(r.Context(), account))
		}
		next(w, r)
	}
}

func (m AuthMiddleware) resolve(r *http.Request) (models.Account, error) {
	token := bearerToken(r)
	if token == "" {
		return models.Account{}, apperr.New(apperr.Unauthenticated, "missing access token")
	}

	claims, err := m.Tokens.VerifyAccess(token)
	if err != nil {
		return models.Account{}, err
	}

	return m.Accounts.FindByID(r.Context(), claims.AccountID())
}

func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func withAccount(ctx context.Context, account models.Account) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

// accountFrom returns the authenticated account stored on the context.
func accountFrom(ctx context.Context) (models.Account, bool) {
	account, ok := ctx.Value(accountKey).(models.Account)
	return account, ok
}

// viewerID returns the authenticated account id or "" for anonymous callers.
func viewerID(ctx context.Context) string {
	if account, ok := accountFrom(ctx); ok {
		return account.ID
	}
	return ""
}
