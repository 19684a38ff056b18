package handlers

import (
	"net/http"
	"testing"

	"github.com/tubestream/backend/internal/views"
)

func TestToggleVideoLikeFlipsOnEachCall(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "acc-1", "ada", "correct-horse")
	seedVideo(t, env, "vid-1", "owner-1")
	cookie := env.authenticate(t, account)

	req := jsonRequest(t, http.MethodPost, "/api/v1/likes/toggle/v/vid-1", nil)
	req.AddCookie(cookie)
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if data := decodeEnvelope(t, rec)["data"].(map[string]any); data["isLiked"] != true {
		t.Fatalf("expected first toggle to like, got %v", data)
	}

	req = jsonRequest(t, http.MethodPost, "/api/v1/likes/toggle/v/vid-1", nil)
	req.AddCookie(cookie)
	rec = env.do(req)
	if data := decodeEnvelope(t, rec)["data"].(map[string]any); data["isLiked"] != false {
		t.Fatalf("expected second toggle to unlike, got %v", data)
	}
}

func TestToggleLikeRejectsMissingSubject(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "acc-1", "ada", "correct-horse")

	req := jsonRequest(t, http.MethodPost, "/api/v1/likes/toggle/c/missing-comment", nil)
	req.AddCookie(env.authenticate(t, account))

	if rec := env.do(req); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing comment, got %d", rec.Code)
	}
}

func TestSubscriptionToggleRejectsSelfSubscribe(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "acc-1", "ada", "correct-horse")

	req := jsonRequest(t, http.MethodPost, "/api/v1/subscriptions/c/acc-1", nil)
	req.AddCookie(env.authenticate(t, account))

	if rec := env.do(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 subscribing to own channel, got %d", rec.Code)
	}
}

func TestSubscriptionTogglePair(t *testing.T) {
	env := newTestEnv(t)
	subscriber := env.createAccount(t, "acc-1", "ada", "correct-horse")
	env.createAccount(t, "acc-2", "grace", "correct-horse")
	cookie := env.authenticate(t, subscriber)

	req := jsonRequest(t, http.MethodPost, "/api/v1/subscriptions/c/acc-2", nil)
	req.AddCookie(cookie)
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if data := decodeEnvelope(t, rec)["data"].(map[string]any); data["isSubscribed"] != true {
		t.Fatalf("expected subscribe on first toggle, got %v", data)
	}

	req = jsonRequest(t, http.MethodPost, "/api/v1/subscriptions/c/acc-2", nil)
	req.AddCookie(cookie)
	rec = env.do(req)
	if data := decodeEnvelope(t, rec)["data"].(map[string]any); data["isSubscribed"] != false {
		t.Fatalf("expected unsubscribe on second toggle, got %v", data)
	}
}

func TestDashboardVideosIncludeUnpublishedOwnUploads(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "acc-1", "ada", "correct-horse")

	var got views.VideoFilter
	env.views.listVideos = func(f views.VideoFilter) (views.Page[views.Video], error) {
		got = f
		return views.Page[views.Video]{}, nil
	}

	req := jsonRequest(t, http.MethodGet, "/api/v1/dashboard/videos", nil)
	req.AddCookie(env.authenticate(t, account))
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !got.IncludeUnpublished || got.OwnerID != "acc-1" || got.Viewer != "acc-1" {
		t.Fatalf("dashboard filter must scope to the owner including drafts, got %+v", got)
	}
}

func TestDashboardStatsRequireAuthentication(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(jsonRequest(t, http.MethodGet, "/api/v1/dashboard/stats", nil)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	account := env.createAccount(t, "acc-1", "ada", "correct-horse")
	env.views.channelStats = func(channelID string) (views.ChannelStats, error) {
		return views.ChannelStats{TotalVideos: 2, TotalViews: 54, TotalLikes: 7, TotalSubscribers: 3}, nil
	}

	req := jsonRequest(t, http.MethodGet, "/api/v1/dashboard/stats", nil)
	req.AddCookie(env.authenticate(t, account))
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["totalViews"] != float64(54) {
		t.Fatalf("unexpected stats payload: %v", data)
	}
}
