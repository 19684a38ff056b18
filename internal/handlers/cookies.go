package handlers

import (
	"net/http"
	"time"

	"github.com/tubestream/backend/internal/models"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// CookieSettings configures the transport attributes of the auth cookies.
type CookieSettings struct {
	Domain string
	Secure bool
}

func setAuthCookies(w http.ResponseWriter, cfg CookieSettings, pair models.TokenPair) {
	http.SetCookie(w, authCookie(cfg, accessTokenCookie, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, authCookie(cfg, refreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

func clearAuthCookies(w http.ResponseWriter, cfg CookieSettings) {
	expired := time.Unix(0, 0)
	http.SetCookie(w, authCookie(cfg, accessTokenCookie, "", expired))
	http.SetCookie(w, authCookie(cfg, refreshTokenCookie, "", expired))
}

func authCookie(cfg CookieSettings, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
