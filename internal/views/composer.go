package views

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tubestream/backend/internal/db"
	"github.com/tubestream/backend/internal/logging"
	"github.com/tubestream/backend/internal/query"
)

// videoSortFields maps request sort names onto columns. Anything else falls
// back to newest-first.
var videoSortFields = map[string]string{
	"views":     "v.views",
	"createdAt": "v.created_at",
	"duration":  "v.duration",
}

var videoProjection = query.Project{Columns: []string{
	"v.id", "v.title", "v.description", "v.file_url", "v.file_storage_id",
	"v.thumbnail_url", "v.thumbnail_storage_id", "v.duration", "v.views",
	"v.is_published", "v.created_at",
	"o.id", "o.username", "o.full_name", "o.avatar_url",
}}

// Composer builds viewer-relative read models by executing typed pipelines
// against the shared connection pool.
type Composer struct {
	pool        db.Pool
	maxPageSize int
}

// NewComposer constructs a Composer. maxPageSize bounds every Paginate stage.
func NewComposer(pool db.Pool, maxPageSize int) *Composer {
	return &Composer{pool: pool, maxPageSize: maxPageSize}
}

// VideoFilter selects and orders the videos returned by ListVideos.
type VideoFilter struct {
	Page     int
	Limit    int
	SortBy   string
	SortType string
	Query    string
	OwnerID  string
	Viewer   string

	// IncludeUnpublished lifts the public-listing filter for dashboard views.
	IncludeUnpublished bool
}

// ListVideos returns one page of videos matching the filter, each enriched
// with its like count, owner projection and viewer-relative like flag.
func (c *Composer) ListVideos(ctx context.Context, f VideoFilter) (Page[Video], error) {
	paginate := query.Paginate{Page: f.Page, Size: f.Limit, Max: c.maxPageSize}

	p := query.From("videos v").Append(
		videoProjection,
		query.CountField{Alias: "likes_count", Table: "likes", ForeignKey: "likes.video_id", LocalKey: "v.id"},
		query.ExistsField{Alias: "is_liked", Table: "likes", ForeignKey: "likes.video_id", LocalKey: "v.id", OwnerKey: "likes.owner_id", Viewer: f.Viewer},
		query.Lookup{Table: "accounts", Alias: "o", LocalKey: "v.owner_id"},
	)
	if !f.IncludeUnpublished {
		p.Append(query.Match{Expr: "v.is_published"})
	}
	if f.OwnerID != "" {
		p.Append(query.Match{Expr: "v.owner_id = ?", Args: []any{f.OwnerID}})
	}
	p.Append(
		query.Search{Columns: []string{"v.title", "v.description"}, Term: f.Query},
		query.Sort{
			Field:      f.SortBy,
			Descending: f.SortType != "asc",
			Allowed:    videoSortFields,
			Default:    "v.created_at",
			TieBreak:   "v.id",
		},
		paginate,
	)

	return runPaged(ctx, c.pool, p, paginate, scanVideo)
}

// GetVideo returns a single video enriched with like and owner-subscription
// derived fields. A missing id fails with ErrNotFound.
func (c *Composer) GetVideo(ctx context.Context, id, viewer string) (Video, error) {
	ctx, span := logging.StartSpan(ctx, "views.GetVideo")
	defer span.End()

	p := query.From("videos v").Append(
		videoProjection,
		query.CountField{Alias: "likes_count", Table: "likes", ForeignKey: "likes.video_id", LocalKey: "v.id"},
		query.ExistsField{Alias: "is_liked", Table: "likes", ForeignKey: "likes.video_id", LocalKey: "v.id", OwnerKey: "likes.owner_id", Viewer: viewer},
		query.CountField{Alias: "owner_subscribers", Table: "subscriptions", ForeignKey: "subscriptions.channel_id", LocalKey: "o.id"},
		query.ExistsField{Alias: "is_subscribed", Table: "subscriptions", ForeignKey: "subscriptions.channel_id", LocalKey: "o.id", OwnerKey: "subscriptions.subscriber_id", Viewer: viewer},
		query.Lookup{Table: "accounts", Alias: "o", LocalKey: "v.owner_id"},
		query.Match{Expr: "v.id = ?", Args: []any{id}},
	)

	sql, args := p.Build()

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, sql, args...)

	var v Video
	if err := row.Scan(
		&v.ID, &v.Title, &v.Description, &v.File.URL, &v.File.StorageID,
		&v.Thumbnail.URL, &v.Thumbnail.StorageID, &v.Duration, &v.Views,
		&v.IsPublished, &v.CreatedAt,
		&v.Owner.ID, &v.Owner.Username, &v.Owner.FullName, &v.Owner.Avatar,
		&v.LikesCount, &v.IsLiked, &v.OwnerSubscribers, &v.IsSubscribedOwner,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Video{}, ErrNotFound
		}
		return Video{}, fmt.Errorf("select video view: %w", err)
	}

	return v, nil
}

// ListComments returns one page of a video's comments, newest first.
func (c *Composer) ListComments(ctx context.Context, videoID, viewer string, page, limit int) (Page[Comment], error) {
	paginate := query.Paginate{Page: page, Size: limit, Max: c.maxPageSize}

	p := query.From("comments c").Append(
		query.Project{Columns: []string{
			"c.id", "c.content", "c.video_id", "c.created_at",
			"o.id", "o.username", "o.full_name", "o.avatar_url",
		}},
		query.CountField{Alias: "likes_count", Table: "likes", ForeignKey: "likes.comment_id", LocalKey: "c.id"},
		query.ExistsField{Alias: "is_liked", Table: "likes", ForeignKey: "likes.comment_id", LocalKey: "c.id", OwnerKey: "likes.owner_id", Viewer: viewer},
		query.Lookup{Table: "accounts", Alias: "o", LocalKey: "c.owner_id"},
		query.Match{Expr: "c.video_id = ?", Args: []any{videoID}},
		query.Sort{Allowed: nil, Default: "c.created_at", TieBreak: "c.id"},
		paginate,
	)

	return runPaged(ctx, c.pool, p, paginate, scanComment)
}

// ListTweets returns one page of an account's tweets, newest first.
func (c *Composer) ListTweets(ctx context.Context, ownerID, viewer string, page, limit int) (Page[Tweet], error) {
	paginate := query.Paginate{Page: page, Size: limit, Max: c.maxPageSize}

	p := query.From("tweets t").Append(
		query.Project{Columns: []string{
			"t.id", "t.content", "t.created_at",
			"o.id", "o.username", "o.full_name", "o.avatar_url",
		}},
		query.CountField{Alias: "likes_count", Table: "likes", ForeignKey: "likes.tweet_id", LocalKey: "t.id"},
		query.ExistsField{Alias: "is_liked", Table: "likes", ForeignKey: "likes.tweet_id", LocalKey: "t.id", OwnerKey: "likes.owner_id", Viewer: viewer},
		query.Lookup{Table: "accounts", Alias: "o", LocalKey: "t.owner_id"},
		query.Match{Expr: "t.owner_id = ?", Args: []any{ownerID}},
		query.Sort{Allowed: nil, Default: "t.created_at", TieBreak: "t.id"},
		paginate,
	)

	return runPaged(ctx, c.pool, p, paginate, scanTweet)
}

// ChannelProfile resolves an account's public profile by username, folding
// in subscriber counts and the viewer's subscription flag.
func (c *Composer) ChannelProfile(ctx context.Context, username, viewer string) (ChannelProfile, error) {
	p := query.From("accounts a").Append(
		query.Project{Columns: []string{
			"a.id", "a.username", "a.full_name", "a.email",
			"a.avatar_url", "a.avatar_storage_id",
			"a.cover_image_url", "a.cover_image_storage_id", "a.created_at",
		}},
		query.CountField{Alias: "subscribers_count", Table: "subscriptions", ForeignKey: "subscriptions.channel_id", LocalKey: "a.id"},
		query.CountField{Alias: "subscribed_to_count", Table: "subscriptions", ForeignKey: "subscriptions.subscriber_id", LocalKey: "a.id"},
		query.ExistsField{Alias: "is_subscribed", Table: "subscriptions", ForeignKey: "subscriptions.channel_id", LocalKey: "a.id", OwnerKey: "subscriptions.subscriber_id", Viewer: viewer},
		query.Match{Expr: "a.username = ?", Args: []any{username}},
	)

	sql, args := p.Build()

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, sql, args...)

	var profile ChannelProfile
	if err := row.Scan(
		&profile.ID, &profile.Username, &profile.FullName, &profile.Email,
		&profile.Avatar.URL, &profile.Avatar.StorageID,
		&profile.CoverImage.URL, &profile.CoverImage.StorageID, &profile.CreatedAt,
		&profile.SubscribersCount, &profile.SubscribedToCount, &profile.IsSubscribed,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChannelProfile{}, ErrNotFound
		}
		return ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// WatchHistory returns one page of the videos the account has watched, in
// most-recently-recorded order.
func (c *Composer) WatchHistory(ctx context.Context, accountID string, page, limit int) (Page[Video], error) {
	paginate := query.Paginate{Page: page, Size: limit, Max: c.maxPageSize}

	p := query.From("watch_history h").Append(
		videoProjection,
		query.CountField{Alias: "likes_count", Table: "likes", ForeignKey: "likes.video_id", LocalKey: "v.id"},
		query.ExistsField{Alias: "is_liked", Table: "likes", ForeignKey: "likes.video_id", LocalKey: "v.id", OwnerKey: "likes.owner_id", Viewer: accountID},
		query.Lookup{Table: "videos", Alias: "v", LocalKey: "h.video_id"},
		query.Lookup{Table: "accounts", Alias: "o", LocalKey: "v.owner_id"},
		query.Match{Expr: "h.account_id = ?", Args: []any{accountID}},
		query.Sort{Allowed: nil, Default: "h.created_at", TieBreak: "v.id"},
		paginate,
	)

	return runPaged(ctx, c.pool, p, paginate, scanVideo)
}

// LikedVideos returns one page of the videos the account has liked.
func (c *Composer) LikedVideos(ctx context.Context, accountID string, page, limit int) (Page[Video], error) {
	paginate := query.Paginate{Page: page, Size: limit, Max: c.maxPageSize}

	p := query.From("likes l").Append(
		videoProjection,
		query.CountField{Alias: "likes_count", Table: "likes", ForeignKey: "likes.video_id", LocalKey: "v.id"},
		query.ExistsField{Alias: "is_liked", Table: "likes", ForeignKey: "likes.video_id", LocalKey: "v.id", OwnerKey: "likes.owner_id", Viewer: accountID},
		query.Lookup{Table: "videos", Alias: "v", LocalKey: "l.video_id"},
		query.Lookup{Table: "accounts", Alias: "o", LocalKey: "v.owner_id"},
		query.Match{Expr: "l.owner_id = ?", Args: []any{accountID}},
		query.Match{Expr: "l.video_id IS NOT NULL"},
		query.Sort{Allowed: nil, Default: "l.created_at", TieBreak: "v.id"},
		paginate,
	)

	return runPaged(ctx, c.pool, p, paginate, scanVideo)
}

// Subscribers lists the accounts subscribed to the channel.
func (c *Composer) Subscribers(ctx context.Context, channelID string, page, limit int) (Page[Subscriber], error) {
	paginate := query.Paginate{Page: page, Size: limit, Max: c.maxPageSize}

	p := query.From("subscriptions s").Append(
		query.Project{Columns: []string{
			"o.id", "o.username", "o.full_name", "o.avatar_url", "s.created_at",
		}},
		query.Lookup{Table: "accounts", Alias: "o", LocalKey: "s.subscriber_id"},
		query.Match{Expr: "s.channel_id = ?", Args: []any{channelID}},
		query.Sort{Allowed: nil, Default: "s.created_at", TieBreak: "s.id"},
		paginate,
	)

	return runPaged(ctx, c.pool, p, paginate, scanSubscriber)
}

// SubscribedChannels lists the channels the account subscribes to.
func (c *Composer) SubscribedChannels(ctx context.Context, subscriberID string, page, limit int) (Page[Subscriber], error) {
	paginate := query.Paginate{Page: page, Size: limit, Max: c.maxPageSize}

	p := query.From("subscriptions s").Append(
		query.Project{Columns: []string{
			"o.id", "o.username", "o.full_name", "o.avatar_url", "s.created_at",
		}},
		query.Lookup{Table: "accounts", Alias: "o", LocalKey: "s.channel_id"},
		query.Match{Expr: "s.subscriber_id = ?", Args: []any{subscriberID}},
		query.Sort{Allowed: nil, Default: "s.created_at", TieBreak: "s.id"},
		paginate,
	)

	return runPaged(ctx, c.pool, p, paginate, scanSubscriber)
}

// ChannelStats aggregates the dashboard counters for a channel.
func (c *Composer) ChannelStats(ctx context.Context, channelID string) (ChannelStats, error) {
	p := query.From("accounts a").Append(
		query.CountField{Alias: "total_videos", Table: "videos", ForeignKey: "videos.owner_id", LocalKey: "a.id"},
		query.Derived{Alias: "total_views", Expr: "(SELECT COALESCE(SUM(views), 0) FROM videos WHERE videos.owner_id = a.id)"},
		query.CountField{Alias: "total_subscribers", Table: "subscriptions", ForeignKey: "subscriptions.channel_id", LocalKey: "a.id"},
		query.Derived{Alias: "total_likes", Expr: "(SELECT COUNT(*) FROM likes JOIN videos ON videos.id = likes.video_id WHERE videos.owner_id = a.id)"},
		query.Match{Expr: "a.id = ?", Args: []any{channelID}},
	)

	sql, args := p.Build()

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, sql, args...)

	var stats ChannelStats
	if err := row.Scan(&stats.TotalVideos, &stats.TotalViews, &stats.TotalSubscribers, &stats.TotalLikes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChannelStats{}, ErrNotFound
		}
		return ChannelStats{}, fmt.Errorf("select channel stats: %w", err)
	}

	return stats, nil
}

func scanVideo(rows pgx.Rows) (Video, error) {
	var v Video
	err := rows.Scan(
		&v.ID, &v.Title, &v.Description, &v.File.URL, &v.File.StorageID,
		&v.Thumbnail.URL, &v.Thumbnail.StorageID, &v.Duration, &v.Views,
		&v.IsPublished, &v.CreatedAt,
		&v.Owner.ID, &v.Owner.Username, &v.Owner.FullName, &v.Owner.Avatar,
		&v.LikesCount, &v.IsLiked,
	)
	return v, err
}

func scanComment(rows pgx.Rows) (Comment, error) {
	var cm Comment
	err := rows.Scan(
		&cm.ID, &cm.Content, &cm.VideoID, &cm.CreatedAt,
		&cm.Owner.ID, &cm.Owner.Username, &cm.Owner.FullName, &cm.Owner.Avatar,
		&cm.LikesCount, &cm.IsLiked,
	)
	return cm, err
}

func scanTweet(rows pgx.Rows) (Tweet, error) {
	var t Tweet
	err := rows.Scan(
		&t.ID, &t.Content, &t.CreatedAt,
		&t.Owner.ID, &t.Owner.Username, &t.Owner.FullName, &t.Owner.Avatar,
		&t.LikesCount, &t.IsLiked,
	)
	return t, err
}

func scanSubscriber(rows pgx.Rows) (Subscriber, error) {
	var s Subscriber
	err := rows.Scan(&s.Owner.ID, &s.Owner.Username, &s.Owner.FullName, &s.Owner.Avatar, &s.SubscribedAt)
	return s, err
}

// runPaged executes the pipeline plus its count variant and assembles a Page.
func runPaged[T any](ctx context.Context, pool db.Pool, p *query.Pipeline, paginate query.Paginate, scan func(pgx.Rows) (T, error)) (Page[T], error) {
	ctx, span := logging.StartSpan(ctx, "views.runPaged")
	defer span.End()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return Page[T]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	sql, args := p.Build()
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return Page[T]{}, fmt.Errorf("query view page: %w", err)
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return Page[T]{}, fmt.Errorf("scan view row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return Page[T]{}, fmt.Errorf("iterate view rows: %w", err)
	}

	countSQL, countArgs := p.BuildCount()
	var total int64
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return Page[T]{}, fmt.Errorf("count view rows: %w", err)
	}

	page, size := paginate.Bounds()
	return newPage(items, page, size, total), nil
}
