package handlers

import (
	"context"
	"io"

	"github.com/tubestream/backend/internal/auth"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/views"
)

// AccountStore captures the persistence operations required by the account handlers.
type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	FindByID(ctx context.Context, id string) (models.Account, error)
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	FindByUsername(ctx context.Context, username string) (models.Account, error)
	UpdateProfile(ctx context.Context, accountID, fullName, email string) error
	UpdatePassword(ctx context.Context, accountID, passwordHash string) error
	UpdateAvatar(ctx context.Context, accountID string, ref models.FileRef) (models.FileRef, error)
	UpdateCoverImage(ctx context.Context, accountID string, ref models.FileRef) (models.FileRef, error)
}

// TokenService manages the proof-of-identity lifecycle for accounts.
type TokenService interface {
	Issue(ctx context.Context, account models.Account) (models.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Revoke(ctx context.Context, accountID string) error
	VerifyAccess(token string) (auth.AccessClaims, error)
}

// VideoStore captures persistence for video publishing workflows.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	TogglePublish(ctx context.Context, id string) (bool, error)
}

// CommentStore captures persistence for comment workflows.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	Update(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

// TweetStore captures persistence for tweet workflows.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	Update(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

// LikeStore toggles the like join record for a subject.
type LikeStore interface {
	Toggle(ctx context.Context, subject models.LikeSubject, subjectID, ownerID string) (bool, error)
}

// SubscriptionStore toggles the subscription join record for a channel.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// ViewComposer produces the viewer-relative read models served by GET endpoints.
type ViewComposer interface {
	ListVideos(ctx context.Context, f views.VideoFilter) (views.Page[views.Video], error)
	GetVideo(ctx context.Context, id, viewer string) (views.Video, error)
	ListComments(ctx context.Context, videoID, viewer string, page, limit int) (views.Page[views.Comment], error)
	ListTweets(ctx context.Context, ownerID, viewer string, page, limit int) (views.Page[views.Tweet], error)
	ChannelProfile(ctx context.Context, username, viewer string) (views.ChannelProfile, error)
	WatchHistory(ctx context.Context, accountID string, page, limit int) (views.Page[views.Video], error)
	LikedVideos(ctx context.Context, accountID string, page, limit int) (views.Page[views.Video], error)
	Subscribers(ctx context.Context, channelID string, page, limit int) (views.Page[views.Subscriber], error)
	SubscribedChannels(ctx context.Context, subscriberID string, page, limit int) (views.Page[views.Subscriber], error)
	ChannelStats(ctx context.Context, channelID string) (views.ChannelStats, error)
}

// BlobStore persists uploaded media objects.
type BlobStore interface {
	Store(ctx context.Context, key string, r io.Reader) (models.FileRef, error)
	Delete(ctx context.Context, storageID string) error
}

// PlaybackRecorder dispatches the best-effort side effects of a video read.
type PlaybackRecorder interface {
	Record(videoID, viewerID string)
}
