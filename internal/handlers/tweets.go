package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tubestream/backend/internal/apperr"
	"github.com/tubestream/backend/internal/models"
)

const maxTweetLength = 500

// TweetHandler implements the short-post endpoints.
type TweetHandler struct {
	Tweets TweetStore
	Views  ViewComposer

	NowFunc func() time.Time
}

type tweetRequest struct {
	Content string `json:"content"`
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	content, err := decodeTweetContent(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	now := h.now()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   account.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Tweets.Create(ctx, tweet); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusCreated, tweet, "tweet created")
}

// ListByUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := r.PathValue("userId")
	if ownerID == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "user id is required"))
		return
	}

	page, limit := pageParams(r)
	tweets, err := h.Views.ListTweets(ctx, ownerID, viewerID(ctx), page, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, tweets, "tweets fetched")
}

// Update handles PATCH /api/v1/tweets/{id}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	tweet, err := h.ownedTweet(ctx, r.PathValue("id"), account.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	content, err := decodeTweetContent(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Tweets.Update(ctx, tweet.ID, content); err != nil {
		respondError(ctx, w, err)
		return
	}

	tweet.Content = content
	tweet.UpdatedAt = h.now()
	respondData(ctx, w, http.StatusOK, tweet, "tweet updated")
}

// Delete handles DELETE /api/v1/tweets/{id}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	tweet, err := h.ownedTweet(ctx, r.PathValue("id"), account.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Tweets.Delete(ctx, tweet.ID); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "tweet deleted")
}

func (h TweetHandler) ownedTweet(ctx context.Context, id, ownerID string) (models.Tweet, error) {
	if id == "" {
		return models.Tweet{}, apperr.New(apperr.InvalidInput, "tweet id is required")
	}
	tweet, err := h.Tweets.FindByID(ctx, id)
	if err != nil {
		return models.Tweet{}, err
	}
	if tweet.OwnerID != ownerID {
		return models.Tweet{}, apperr.New(apperr.Forbidden, "only the author can modify this tweet")
	}
	return tweet, nil
}

func decodeTweetContent(r *http.Request) (string, error) {
	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", apperr.New(apperr.InvalidInput, "invalid request body")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return "", apperr.New(apperr.InvalidInput, "content is required")
	}
	if len(content) > maxTweetLength {
		return "", apperr.New(apperr.InvalidInput, "content exceeds the maximum length")
	}
	return content, nil
}

func (h TweetHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
