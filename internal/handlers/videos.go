package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tubestream/backend/internal/apperr"
	"github.com/tubestream/backend/internal/logging"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/views"
)

// VideoHandler implements the video publishing and browsing endpoints.
type VideoHandler struct {
	Videos   VideoStore
	Views    ViewComposer
	Blobs    BlobStore
	Recorder PlaybackRecorder

	MaxUploadBytes int64
	NowFunc        func() time.Time
}

type updateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, limit := pageParams(r)
	filter := views.VideoFilter{
		Page:     page,
		Limit:    limit,
		SortBy:   r.URL.Query().Get("sortBy"),
		SortType: r.URL.Query().Get("sortType"),
		Query:    strings.TrimSpace(r.URL.Query().Get("query")),
		OwnerID:  strings.TrimSpace(r.URL.Query().Get("userId")),
		Viewer:   viewerID(ctx),
	}

	result, err := h.Views.ListVideos(ctx, filter)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, result, "videos fetched")
}

// Publish handles POST /api/v1/videos (multipart).
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "title is required"))
		return
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("duration")), 64)
	if err != nil || duration < 0 {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "duration must be a non-negative number of seconds"))
		return
	}

	videoFile, err := storeUpload(ctx, h.Blobs, r, "videoFile", "videos", true)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	thumbnail, err := storeUpload(ctx, h.Blobs, r, "thumbnail", "thumbnails", true)
	if err != nil {
		h.discardBlob(ctx, videoFile)
		respondError(ctx, w, err)
		return
	}

	now := h.now()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     account.ID,
		Title:       title,
		Description: description,
		File:        videoFile,
		Thumbnail:   thumbnail,
		Duration:    duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		h.discardBlob(ctx, videoFile)
		h.discardBlob(ctx, thumbnail)
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusCreated, video, "video published")
}

// Get handles GET /api/v1/videos/{id}. Fetching a video also dispatches the
// play count increment and watch history append off the request path.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := r.PathValue("id")
	viewer := viewerID(ctx)

	video, err := h.Views.GetVideo(ctx, id, viewer)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if !video.IsPublished && video.Owner.ID != viewer {
		respondError(ctx, w, apperr.New(apperr.NotFound, "video not found"))
		return
	}

	if h.Recorder != nil {
		h.Recorder.Record(video.ID, viewer)
	}

	respondData(ctx, w, http.StatusOK, video, "video fetched")
}

// Update handles PATCH /api/v1/videos/{id}. Title and description arrive as
// form fields; a replacement thumbnail is optional.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	video, err := h.ownedVideo(ctx, r.PathValue("id"), account.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var oldThumbnail models.FileRef
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())

		if title := strings.TrimSpace(r.FormValue("title")); title != "" {
			video.Title = title
		}
		if description := strings.TrimSpace(r.FormValue("description")); description != "" {
			video.Description = description
		}

		thumbnail, err := storeUpload(ctx, h.Blobs, r, "thumbnail", "thumbnails", false)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		if thumbnail.StorageID != "" {
			oldThumbnail = video.Thumbnail
			video.Thumbnail = thumbnail
		}
	} else {
		var req updateVideoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(ctx, w, apperr.New(apperr.InvalidInput, "invalid request body"))
			return
		}
		if title := strings.TrimSpace(req.Title); title != "" {
			video.Title = title
		}
		if description := strings.TrimSpace(req.Description); description != "" {
			video.Description = description
		}
	}

	video.UpdatedAt = h.now()
	if err := h.Videos.Update(ctx, video); err != nil {
		respondError(ctx, w, err)
		return
	}

	h.discardBlob(ctx, oldThumbnail)
	respondData(ctx, w, http.StatusOK, video, "video updated")
}

// Delete handles DELETE /api/v1/videos/{id}. The database rows go first,
// inside one transaction; the stored media is removed best-effort afterwards.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	video, err := h.ownedVideo(ctx, r.PathValue("id"), account.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		respondError(ctx, w, err)
		return
	}

	h.discardBlob(ctx, video.File)
	h.discardBlob(ctx, video.Thumbnail)

	respondData(ctx, w, http.StatusOK, nil, "video deleted")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{id}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	video, err := h.ownedVideo(ctx, r.PathValue("id"), account.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	published, err := h.Videos.TogglePublish(ctx, video.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]bool{"isPublished": published}, "publish state toggled")
}

func (h VideoHandler) ownedVideo(ctx context.Context, id, ownerID string) (models.Video, error) {
	if id == "" {
		return models.Video{}, apperr.New(apperr.InvalidInput, "video id is required")
	}
	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		return models.Video{}, err
	}
	if video.OwnerID != ownerID {
		return models.Video{}, apperr.New(apperr.Forbidden, "only the owner can modify this video")
	}
	return video, nil
}

func (h VideoHandler) discardBlob(ctx context.Context, ref models.FileRef) {
	if ref.StorageID == "" {
		return
	}
	if err := h.Blobs.Delete(ctx, ref.StorageID); err != nil {
		logging.FromContext(ctx).Warn("delete stored media", "storageId", ref.StorageID, "error", err)
	}
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func (h VideoHandler) maxUploadBytes() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return 512 << 20
}
