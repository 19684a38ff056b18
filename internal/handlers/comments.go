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

const maxCommentLength = 2000

// CommentHandler implements the comment endpoints for a video.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	Views    ViewComposer

	NowFunc func() time.Time
}

type commentRequest struct {
	Content string `json:"content"`
}

// List handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := r.PathValue("videoId")
	if videoID == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "video id is required"))
		return
	}

	page, limit := pageParams(r)
	comments, err := h.Views.ListComments(ctx, videoID, viewerID(ctx), page, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, comments, "comments fetched")
}

// Create handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	videoID := r.PathValue("videoId")
	content, err := decodeCommentContent(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	// The video must exist before a comment can attach to it.
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		respondError(ctx, w, err)
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   account.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusCreated, comment, "comment added")
}

// Update handles PATCH /api/v1/comments/c/{id}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	comment, err := h.ownedComment(ctx, r.PathValue("id"), account.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	content, err := decodeCommentContent(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Comments.Update(ctx, comment.ID, content); err != nil {
		respondError(ctx, w, err)
		return
	}

	comment.Content = content
	comment.UpdatedAt = h.now()
	respondData(ctx, w, http.StatusOK, comment, "comment updated")
}

// Delete handles DELETE /api/v1/comments/c/{id}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	comment, err := h.ownedComment(ctx, r.PathValue("id"), account.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "comment deleted")
}

func (h CommentHandler) ownedComment(ctx context.Context, id, ownerID string) (models.Comment, error) {
	if id == "" {
		return models.Comment{}, apperr.New(apperr.InvalidInput, "comment id is required")
	}
	comment, err := h.Comments.FindByID(ctx, id)
	if err != nil {
		return models.Comment{}, err
	}
	if comment.OwnerID != ownerID {
		return models.Comment{}, apperr.New(apperr.Forbidden, "only the author can modify this comment")
	}
	return comment, nil
}

func decodeCommentContent(r *http.Request) (string, error) {
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", apperr.New(apperr.InvalidInput, "invalid request body")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return "", apperr.New(apperr.InvalidInput, "content is required")
	}
	if len(content) > maxCommentLength {
		return "", apperr.New(apperr.InvalidInput, "content exceeds the maximum length")
	}
	return content, nil
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
