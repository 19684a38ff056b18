package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tubestream/backend/internal/apperr"
	"github.com/tubestream/backend/internal/logging"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
)

// AccountHandler implements registration, login and profile endpoints.
type AccountHandler struct {
	Accounts AccountStore
	Tokens   TokenService
	Views    ViewComposer
	Blobs    BlobStore
	Limiter  RateLimiter
	Cookies  CookieSettings

	MaxUploadBytes int64
	NowFunc        func() time.Time
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	Account models.PublicAccount `json:"account"`
	Tokens  models.TokenPair     `json:"tokens"`
}

// Register handles POST /api/v1/users/register (multipart).
func (h AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "register") {
		respondTooManyRequests(ctx, w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())

	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	fullName := strings.TrimSpace(r.FormValue("fullName"))
	password := r.FormValue("password")

	if username == "" || email == "" || fullName == "" || password == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "username, email, fullName and password are required"))
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "invalid email address"))
		return
	}
	if len(password) < 8 {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "password must be at least 8 characters"))
		return
	}

	if _, err := h.Accounts.FindByEmail(ctx, email); err == nil {
		respondError(ctx, w, apperr.New(apperr.Conflict, "account already exists"))
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		respondError(ctx, w, err)
		return
	}
	if _, err := h.Accounts.FindByUsername(ctx, username); err == nil {
		respondError(ctx, w, apperr.New(apperr.Conflict, "username already taken"))
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		respondError(ctx, w, err)
		return
	}

	avatar, err := storeUpload(ctx, h.Blobs, r, "avatar", "avatars", true)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	coverImage, err := storeUpload(ctx, h.Blobs, r, "coverImage", "covers", false)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		respondError(ctx, w, apperr.Wrap(err, apperr.Upstream, "failed to secure password"))
		return
	}

	now := h.now()
	account := models.Account{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Password:   string(hashed),
		Avatar:     avatar,
		CoverImage: coverImage,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.Accounts.Create(ctx, account); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusCreated, account.Public(), "account registered")
}

// Login handles POST /api/v1/users/login.
func (h AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "login") {
		respondTooManyRequests(ctx, w)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "invalid request body"))
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if (req.Email == "" && req.Username == "") || req.Password == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "username or email and password are required"))
		return
	}

	var (
		account models.Account
		err     error
	)
	if req.Email != "" {
		account, err = h.Accounts.FindByEmail(ctx, req.Email)
	} else {
		account, err = h.Accounts.FindByUsername(ctx, req.Username)
	}
	if err != nil {
		respondError(ctx, w, apperr.New(apperr.Unauthenticated, "invalid credentials"))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)) != nil {
		respondError(ctx, w, apperr.New(apperr.Unauthenticated, "invalid credentials"))
		return
	}

	tokens, err := h.Tokens.Issue(ctx, account)
	if err != nil {
		respondError(ctx, w, apperr.Wrap(err, apperr.Upstream, "failed to create session"))
		return
	}

	setAuthCookies(w, h.Cookies, tokens)
	respondData(ctx, w, http.StatusOK, sessionResponse{Account: account.Public(), Tokens: tokens}, "logged in")
}

// Logout handles POST /api/v1/users/logout.
func (h AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	if err := h.Tokens.Revoke(ctx, account.ID); err != nil {
		respondError(ctx, w, apperr.Wrap(err, apperr.Upstream, "failed to end session"))
		return
	}

	clearAuthCookies(w, h.Cookies)
	respondData(ctx, w, http.StatusOK, nil, "logged out")
}

// Refresh handles POST /api/v1/users/refresh-token. The refresh token is
// taken from the cookie when present, the JSON body otherwise.
func (h AccountHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "refresh") {
		respondTooManyRequests(ctx, w)
		return
	}

	token := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = strings.TrimSpace(req.RefreshToken)
		}
	}
	if token == "" {
		respondError(ctx, w, apperr.New(apperr.Unauthenticated, "refresh token is required"))
		return
	}

	tokens, err := h.Tokens.Rotate(ctx, token)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	setAuthCookies(w, h.Cookies, tokens)
	respondData(ctx, w, http.StatusOK, tokens, "session refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "invalid request body"))
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "old and new passwords are required"))
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "password must be at least 8 characters"))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.OldPassword)) != nil {
		respondError(ctx, w, apperr.New(apperr.Unauthenticated, "invalid credentials"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(ctx, w, apperr.Wrap(err, apperr.Upstream, "failed to secure password"))
		return
	}

	if err := h.Accounts.UpdatePassword(ctx, account.ID, string(hashed)); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "password changed")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h AccountHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)
	respondData(ctx, w, http.StatusOK, account.Public(), "current user")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "invalid request body"))
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" || req.Email == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "fullName and email are required"))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "invalid email address"))
		return
	}

	if err := h.Accounts.UpdateProfile(ctx, account.ID, req.FullName, req.Email); err != nil {
		respondError(ctx, w, err)
		return
	}

	account.FullName = req.FullName
	account.Email = req.Email
	respondData(ctx, w, http.StatusOK, account.Public(), "account updated")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar (multipart).
func (h AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", "avatars", h.Accounts.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image (multipart).
func (h AccountHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", "covers", h.Accounts.UpdateCoverImage)
}

func (h AccountHandler) updateImage(w http.ResponseWriter, r *http.Request, field, prefix string, update func(ctx context.Context, accountID string, ref models.FileRef) (models.FileRef, error)) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())

	ref, err := storeUpload(ctx, h.Blobs, r, field, prefix, true)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	old, err := update(ctx, account.ID, ref)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if old.StorageID != "" {
		if err := h.Blobs.Delete(ctx, old.StorageID); err != nil {
			logging.FromContext(ctx).Warn("delete replaced image", "storageId", old.StorageID, "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, ref, field+" updated")
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h AccountHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "username is required"))
		return
	}

	profile, err := h.Views.ChannelProfile(ctx, username, viewerID(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, profile, "channel profile fetched")
}

// WatchHistory handles GET /api/v1/users/history.
func (h AccountHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	page, limit := pageParams(r)
	history, err := h.Views.WatchHistory(ctx, account.ID, page, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, history, "watch history fetched")
}

func (h AccountHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func (h AccountHandler) maxUploadBytes() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return 512 << 20
}

func respondTooManyRequests(ctx context.Context, w http.ResponseWriter) {
	writeJSON(ctx, w, http.StatusTooManyRequests, apiErrorResponse{
		StatusCode: http.StatusTooManyRequests,
		Message:    "too many requests",
		Errors:     []string{"too many requests"},
	})
}
