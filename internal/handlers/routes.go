package handlers

import "net/http"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts      AccountStore
	Tokens        TokenService
	Videos        VideoStore
	Comments      CommentStore
	Tweets        TweetStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Views         ViewComposer
	Blobs         BlobStore
	Recorder      PlaybackRecorder
	AuthLimiter   RateLimiter

	Cookies        CookieSettings
	MaxUploadBytes int64
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	accounts := AccountHandler{
		Accounts:       deps.Accounts,
		Tokens:         deps.Tokens,
		Views:          deps.Views,
		Blobs:          deps.Blobs,
		Limiter:        deps.AuthLimiter,
		Cookies:        deps.Cookies,
		MaxUploadBytes: deps.MaxUploadBytes,
	}
	videos := VideoHandler{
		Videos:         deps.Videos,
		Views:          deps.Views,
		Blobs:          deps.Blobs,
		Recorder:       deps.Recorder,
		MaxUploadBytes: deps.MaxUploadBytes,
	}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, Views: deps.Views}
	tweets := TweetHandler{Tweets: deps.Tweets, Views: deps.Views}
	likes := LikeHandler{
		Likes:    deps.Likes,
		Videos:   deps.Videos,
		Comments: deps.Comments,
		Tweets:   deps.Tweets,
		Views:    deps.Views,
	}
	subscriptions := SubscriptionHandler{
		Subscriptions: deps.Subscriptions,
		Accounts:      deps.Accounts,
		Views:         deps.Views,
	}
	dashboard := DashboardHandler{Views: deps.Views}

	authn := AuthMiddleware{Tokens: deps.Tokens, Accounts: deps.Accounts}
	private := authn.Require
	public := authn.Optional

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", accounts.Register)
	mux.HandleFunc("POST /api/v1/users/login", accounts.Login)
	mux.HandleFunc("POST /api/v1/users/refresh-token", accounts.Refresh)
	mux.Handle("POST /api/v1/users/logout", private(accounts.Logout))
	mux.Handle("POST /api/v1/users/change-password", private(accounts.ChangePassword))
	mux.Handle("GET /api/v1/users/current-user", private(accounts.CurrentUser))
	mux.Handle("PATCH /api/v1/users/update-account", private(accounts.UpdateAccount))
	mux.Handle("PATCH /api/v1/users/avatar", private(accounts.UpdateAvatar))
	mux.Handle("PATCH /api/v1/users/cover-image", private(accounts.UpdateCoverImage))
	mux.Handle("GET /api/v1/users/c/{username}", public(accounts.ChannelProfile))
	mux.Handle("GET /api/v1/users/history", private(accounts.WatchHistory))

	mux.Handle("GET /api/v1/videos", public(videos.List))
	mux.Handle("POST /api/v1/videos", private(videos.Publish))
	mux.Handle("GET /api/v1/videos/{id}", public(videos.Get))
	mux.Handle("PATCH /api/v1/videos/{id}", private(videos.Update))
	mux.Handle("DELETE /api/v1/videos/{id}", private(videos.Delete))
	mux.Handle("PATCH /api/v1/videos/toggle/publish/{id}", private(videos.TogglePublish))

	mux.Handle("GET /api/v1/comments/{videoId}", public(comments.List))
	mux.Handle("POST /api/v1/comments/{videoId}", private(comments.Create))
	mux.Handle("PATCH /api/v1/comments/c/{id}", private(comments.Update))
	mux.Handle("DELETE /api/v1/comments/c/{id}", private(comments.Delete))

	mux.Handle("POST /api/v1/tweets", private(tweets.Create))
	mux.Handle("GET /api/v1/tweets/user/{userId}", public(tweets.ListByUser))
	mux.Handle("PATCH /api/v1/tweets/{id}", private(tweets.Update))
	mux.Handle("DELETE /api/v1/tweets/{id}", private(tweets.Delete))

	mux.Handle("POST /api/v1/likes/toggle/v/{videoId}", private(likes.ToggleVideo))
	mux.Handle("POST /api/v1/likes/toggle/c/{commentId}", private(likes.ToggleComment))
	mux.Handle("POST /api/v1/likes/toggle/t/{tweetId}", private(likes.ToggleTweet))
	mux.Handle("GET /api/v1/likes/videos", private(likes.LikedVideos))

	mux.Handle("POST /api/v1/subscriptions/c/{channelId}", private(subscriptions.Toggle))
	mux.Handle("GET /api/v1/subscriptions/u/{channelId}", public(subscriptions.Subscribers))
	mux.Handle("GET /api/v1/subscriptions/c/{subscriberId}", public(subscriptions.SubscribedChannels))

	mux.Handle("GET /api/v1/dashboard/stats", private(dashboard.Stats))
	mux.Handle("GET /api/v1/dashboard/videos", private(dashboard.Videos))
}
