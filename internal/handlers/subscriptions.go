package handlers

import (
	"net/http"

	"github.com/tubestream/backend/internal/apperr"
)

// SubscriptionHandler implements the channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Accounts      AccountStore
	Views         ViewComposer
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := accountFrom(ctx)

	channelID := r.PathValue("channelId")
	if channelID == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "channel id is required"))
		return
	}
	if channelID == account.ID {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "cannot subscribe to your own channel"))
		return
	}
	if _, err := h.Accounts.FindByID(ctx, channelID); err != nil {
		respondError(ctx, w, err)
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, account.ID, channelID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	message := "unsubscribed"
	if subscribed {
		message = "subscribed"
	}
	respondData(ctx, w, http.StatusOK, map[string]bool{"isSubscribed": subscribed}, message)
}

// Subscribers handles GET /api/v1/subscriptions/u/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID := r.PathValue("channelId")
	if channelID == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "channel id is required"))
		return
	}

	page, limit := pageParams(r)
	subscribers, err := h.Views.Subscribers(ctx, channelID, page, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, subscribers, "subscribers fetched")
}

// SubscribedChannels handles GET /api/v1/subscriptions/c/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscriberID := r.PathValue("subscriberId")
	if subscriberID == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidInput, "subscriber id is required"))
		return
	}

	page, limit := pageParams(r)
	channels, err := h.Views.SubscribedChannels(ctx, subscriberID, page, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, channels, "subscribed channels fetched")
}
