package handlers

import (
	"net/http"

	"github.com/tubestream/backend/internal/views"
)

// DashboardHandler serves the channel owner's own statistics and uploads.
type DashboardHandler struct {
	Views ViewComposer
}

// Stats handles GET /api/v1/dashboard/stats.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	stats, err := h.Views.ChannelStats(ctx, account.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, stats, "channel stats fetched")
}

// Videos handles GET /api/v1/dashboard/videos. Unlike the public listing it
// includes the owner's unpublished uploads.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	page, limit := pageParams(r)
	result, err := h.Views.ListVideos(ctx, views.VideoFilter{
		Page:               page,
		Limit:              limit,
		OwnerID:            account.ID,
		Viewer:             account.ID,
		IncludeUnpublished: true,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, result, "channel videos fetched")
}
