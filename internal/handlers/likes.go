package handlers

import (
	"context"
	"net/http"

	"github.com/tubestream/backend/internal/apperr"
	"github.com/tubestream/backend/internal/models"
)

// LikeHandler implements the like toggle and liked-video endpoints.
type LikeHandler struct {
	Likes    LikeStore
	Videos   VideoStore
	Comments CommentStore
	Tweets   TweetStore
	Views    ViewComposer
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeVideo, r.PathValue("videoId"), func(ctx context.Context, id string) error {
		_, err := h.Videos.FindByID(ctx, id)
		return err
	})
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeComment, r.PathValue("commentId"), func(ctx context.Context, id string) error {
		_, err := h.Comments.FindByID(ctx, id)
		return err
	})
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTweet, r.PathValue("tweetId"), func(ctx context.Context, id string) error {
		_, err := h.Tweets.FindByID(ctx, id)
		return err
	})
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	page, limit := pageParams(r)
	videos, err := h.Views.LikedVideos(ctx, account.ID, page, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, videos, "liked videos fetched")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, subject models.LikeSubject, subjectID string, exists func(context.Context, string) error) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	if subjectID == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "id is required"))
		return
	}
	if err := exists(ctx, subjectID); err != nil {
		respondError(ctx, w, err)
		return
	}

	liked, err := h.Likes.Toggle(ctx, subject, subjectID, account.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	message := "like removed"
	if liked {
		message = "like added"
	}
	respondData(ctx, w, http.StatusOK, map[string]bool{"isLiked": liked}, message)
}
