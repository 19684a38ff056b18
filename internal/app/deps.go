package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/tubestream/backend/internal/auth"
	"github.com/tubestream/backend/internal/config"
	"github.com/tubestream/backend/internal/db"
	"github.com/tubestream/backend/internal/handlers"
	"github.com/tubestream/backend/internal/history"
	"github.com/tubestream/backend/internal/middleware"
	"github.com/tubestream/backend/internal/repositories"
	"github.com/tubestream/backend/internal/storage"
	"github.com/tubestream/backend/internal/views"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned recorder must be shut down after the server stops so
// queued playback effects drain before the pool closes.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *history.Recorder, error) {
	accounts := repositories.NewPostgresAccountRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)

	blobs, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	recorder := history.NewRecorder(videos, accounts, history.Config{
		QueueSize: cfg.HistoryQueueSize,
		Workers:   cfg.HistoryWorkers,
	}, logger)

	deps := handlers.Dependencies{
		Accounts:      accounts,
		Tokens:        auth.NewService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, accounts),
		Videos:        videos,
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Tweets:        repositories.NewPostgresTweetRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Views:         views.NewComposer(pool, cfg.MaxPageSize),
		Blobs:         blobs,
		Recorder:      recorder,
		AuthLimiter:   middleware.NewIPRateLimiter(cfg.AuthRateRequests, cfg.AuthRateWindow, cfg.AuthRateRequests, 10*time.Minute),
		Cookies: handlers.CookieSettings{
			Domain: cfg.CookieDomain,
			Secure: cfg.CookieSecure,
		},
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	return deps, recorder, nil
}
