// Package views produces the read-model projections served by the HTTP
// layer. Each view combines a primary entity with counts and viewer-relative
// flags derived per request from the related collections; nothing here is
// denormalised into stored fields.
package views

import (
	"errors"
	"math"
	"time"

	"github.com/tubestream/backend/internal/models"
)

// ErrNotFound indicates the requested detail document does not exist.
var ErrNotFound = errors.New("view not found")

// Owner is the restricted projection of an account inlined into read models.
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Video is a video enriched with its derived fields.
type Video struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	File        models.FileRef `json:"videoFile"`
	Thumbnail   models.FileRef `json:"thumbnail"`
	Duration    float64        `json:"duration"`
	Views       int64          `json:"views"`
	IsPublished bool           `json:"isPublished"`
	CreatedAt   time.Time      `json:"createdAt"`
	Owner       Owner          `json:"owner"`
	LikesCount  int64          `json:"likesCount"`
	IsLiked     bool           `json:"isLiked"`

	// Populated on detail views only.
	OwnerSubscribers  int64 `json:"ownerSubscribers,omitempty"`
	IsSubscribedOwner bool  `json:"isSubscribedToOwner,omitempty"`
}

// Comment is a comment enriched with its derived fields.
type Comment struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	VideoID    string    `json:"videoId"`
	CreatedAt  time.Time `json:"createdAt"`
	Owner      Owner     `json:"owner"`
	LikesCount int64     `json:"likesCount"`
	IsLiked    bool      `json:"isLiked"`
}

// Tweet is a tweet enriched with its derived fields.
type Tweet struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Owner      Owner     `json:"owner"`
	LikesCount int64     `json:"likesCount"`
	IsLiked    bool      `json:"isLiked"`
}

// ChannelProfile is the public face of an account together with its
// subscription-derived fields.
type ChannelProfile struct {
	ID                string         `json:"id"`
	Username          string         `json:"username"`
	FullName          string         `json:"fullName"`
	Email             string         `json:"email"`
	Avatar            models.FileRef `json:"avatar"`
	CoverImage        models.FileRef `json:"coverImage"`
	CreatedAt         time.Time      `json:"createdAt"`
	SubscribersCount  int64          `json:"subscribersCount"`
	SubscribedToCount int64          `json:"subscribedToCount"`
	IsSubscribed      bool           `json:"isSubscribed"`
}

// Subscriber is one entry in a channel's subscriber (or subscribed-to) list.
type Subscriber struct {
	Owner        Owner     `json:"account"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// ChannelStats aggregates a channel's dashboard counters.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalLikes       int64 `json:"totalLikes"`
}

// Page is one bounded slice of a query's result set.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

func newPage[T any](items []T, page, size int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = int(math.Ceil(float64(total) / float64(size)))
	}
	return Page[T]{Items: items, Page: page, Size: size, TotalItems: total, TotalPages: pages}
}
