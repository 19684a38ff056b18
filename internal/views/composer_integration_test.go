package views

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestListVideosHidesUnpublishedAndOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	env := newViewFixture(t)

	owner := env.account("grace")
	older := env.video(owner.ID, "older upload", true, time.Now().UTC().Add(-2*time.Hour))
	newer := env.video(owner.ID, "newer upload", true, time.Now().UTC().Add(-1*time.Hour))
	env.video(owner.ID, "draft", false, time.Now().UTC())

	page, err := env.composer.ListVideos(ctx, VideoFilter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}

	if page.TotalItems != 2 || len(page.Items) != 2 {
		t.Fatalf("expected the two published videos, got total=%d items=%d", page.TotalItems, len(page.Items))
	}
	if page.Items[0].ID != newer.ID || page.Items[1].ID != older.ID {
		t.Fatalf("expected newest-first ordering, got %s then %s", page.Items[0].ID, page.Items[1].ID)
	}

	got := page.Items[0]
	if got.Owner.ID != owner.ID || got.Owner.Username != owner.Username || got.Owner.FullName != owner.FullName {
		t.Fatalf("unexpected owner projection: %+v", got.Owner)
	}
	if got.File != newer.File || got.Thumbnail != newer.Thumbnail || got.Duration != newer.Duration {
		t.Fatalf("unexpected media fields: %+v", got)
	}
	if got.LikesCount != 0 || got.IsLiked {
		t.Fatalf("unliked video must report zero likes and false flag, got %+v", got)
	}
}

func TestListVideosViewerRelativeLikeFields(t *testing.T) {
	ctx := context.Background()
	env := newViewFixture(t)

	owner := env.account("owner")
	viewer := env.account("viewer")
	other := env.account("other")
	liked := env.video(owner.ID, "liked one", true, time.Now().UTC().Add(-time.Hour))
	plain := env.video(owner.ID, "plain one", true, time.Now().UTC())

	env.like(models.LikeVideo, liked.ID, viewer.ID)
	env.like(models.LikeVideo, liked.ID, other.ID)

	page, err := env.composer.ListVideos(ctx, VideoFilter{Page: 1, Limit: 10, Viewer: viewer.ID})
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	byID := map[string]Video{}
	for _, v := range page.Items {
		byID[v.ID] = v
	}

	if got := byID[liked.ID]; got.LikesCount != 2 || !got.IsLiked {
		t.Fatalf("expected 2 likes and isLiked for the viewer, got %+v", got)
	}
	if got := byID[plain.ID]; got.LikesCount != 0 || got.IsLiked {
		t.Fatalf("expected no likes on the untouched video, got %+v", got)
	}

	// The same listing for the other viewer still counts both likes but the
	// flag follows the viewer.
	anon, err := env.composer.ListVideos(ctx, VideoFilter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("anonymous list: %v", err)
	}
	for _, v := range anon.Items {
		if v.IsLiked {
			t.Fatalf("anonymous listing must never set isLiked, got %+v", v)
		}
	}
}

func TestListVideosPageTiling(t *testing.T) {
	ctx := context.Background()
	env := newViewFixture(t)

	owner := env.account("prolific")
	for i := 0; i < 5; i++ {
		env.video(owner.ID, fmt.Sprintf("upload %d", i), true, time.Now().UTC().Add(time.Duration(-i)*time.Minute))
	}

	seen := map[string]bool{}
	for pageNum := 1; pageNum <= 3; pageNum++ {
		page, err := env.composer.ListVideos(ctx, VideoFilter{Page: pageNum, Limit: 2})
		if err != nil {
			t.Fatalf("list page %d: %v", pageNum, err)
		}
		if page.TotalItems != 5 || page.TotalPages != 3 {
			t.Fatalf("page %d: expected totals 5/3, got %d/%d", pageNum, page.TotalItems, page.TotalPages)
		}
		want := 2
		if pageNum == 3 {
			want = 1
		}
		if len(page.Items) != want {
			t.Fatalf("page %d: expected %d items, got %d", pageNum, want, len(page.Items))
		}
		for _, v := range page.Items {
			if seen[v.ID] {
				t.Fatalf("video %s appeared on two pages", v.ID)
			}
			seen[v.ID] = true
		}
	}
	if len(seen) != 5 {
		t.Fatalf("paging must cover every video exactly once, saw %d", len(seen))
	}
}

func TestGetVideoDetailDerivedFields(t *testing.T) {
	ctx := context.Background()
	env := newViewFixture(t)

	owner := env.account("channel")
	viewer := env.account("fan")
	video := env.video(owner.ID, "feature", true, time.Now().UTC())

	env.like(models.LikeVideo, video.ID, viewer.ID)
	env.subscribe(viewer.ID, owner.ID)

	got, err := env.composer.GetVideo(ctx, video.ID, viewer.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if got.LikesCount != 1 || !got.IsLiked {
		t.Fatalf("expected the viewer's like reflected, got %+v", got)
	}
	if got.OwnerSubscribers != 1 || !got.IsSubscribedOwner {
		t.Fatalf("expected owner subscription fields, got %+v", got)
	}

	if _, err := env.composer.GetVideo(ctx, uuid.NewString(), viewer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown id, got %v", err)
	}
}

func TestListCommentsNewestFirstWithOwners(t *testing.T) {
	ctx := context.Background()
	env := newViewFixture(t)

	owner := env.account("uploader")
	commenter := env.account("commenter")
	video := env.video(owner.ID, "discussed", true, time.Now().UTC())

	first := env.comment(video.ID, commenter.ID, "first", time.Now().UTC().Add(-time.Minute))
	second := env.comment(video.ID, commenter.ID, "second", time.Now().UTC())
	env.like(models.LikeComment, second.ID, owner.ID)

	page, err := env.composer.ListComments(ctx, video.ID, owner.ID, 1, 10)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if page.TotalItems != 2 {
		t.Fatalf("expected both comments, got %d", page.TotalItems)
	}
	if page.Items[0].ID != second.ID || page.Items[1].ID != first.ID {
		t.Fatalf("expected newest-first comments, got %s then %s", page.Items[0].ID, page.Items[1].ID)
	}
	if got := page.Items[0]; got.LikesCount != 1 || !got.IsLiked || got.Owner.Username != commenter.Username {
		t.Fatalf("unexpected derived comment fields: %+v", got)
	}
}

func TestChannelStatsAggregates(t *testing.T) {
	ctx := context.Background()
	env := newViewFixture(t)

	owner := env.account("dashboard")
	fan := env.account("audience")
	videos := repositories.NewPostgresVideoRepository(testPool)

	a := env.video(owner.ID, "clip a", true, time.Now().UTC())
	b := env.video(owner.ID, "clip b", false, time.Now().UTC())
	for i := 0; i < 3; i++ {
		if err := videos.IncrementViews(ctx, a.ID); err != nil {
			t.Fatalf("increment views: %v", err)
		}
	}
	env.like(models.LikeVideo, a.ID, fan.ID)
	env.like(models.LikeVideo, b.ID, fan.ID)
	env.subscribe(fan.ID, owner.ID)

	stats, err := env.composer.ChannelStats(ctx, owner.ID)
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if stats.TotalVideos != 2 || stats.TotalViews != 3 || stats.TotalSubscribers != 1 || stats.TotalLikes != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if _, err := env.composer.ChannelStats(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown channel, got %v", err)
	}
}

// viewFixture seeds fixtures through the real repositories so composer tests
// read exactly what the write path persists.
type viewFixture struct {
	t             *testing.T
	composer      *Composer
	accounts      *repositories.PostgresAccountRepository
	videos        *repositories.PostgresVideoRepository
	comments      *repositories.PostgresCommentRepository
	likes         *repositories.PostgresLikeRepository
	subscriptions *repositories.PostgresSubscriptionRepository
}

func newViewFixture(t *testing.T) *viewFixture {
	t.Helper()
	resetDatabase(t)
	return &viewFixture{
		t:             t,
		composer:      NewComposer(testPool, 50),
		accounts:      repositories.NewPostgresAccountRepository(testPool),
		videos:        repositories.NewPostgresVideoRepository(testPool),
		comments:      repositories.NewPostgresCommentRepository(testPool),
		likes:         repositories.NewPostgresLikeRepository(testPool),
		subscriptions: repositories.NewPostgresSubscriptionRepository(testPool),
	}
}

func (f *viewFixture) account(name string) models.Account {
	f.t.Helper()
	account := models.Account{
		ID:        uuid.NewString(),
		Username:  name,
		Email:     name + "@example.com",
		FullName:  name,
		Password:  "password-hash",
		Avatar:    models.FileRef{URL: "https://cdn.example.com/" + name + ".png", StorageID: "avatars/" + name + ".png"},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := f.accounts.Create(context.Background(), account); err != nil {
		f.t.Fatalf("create account %s: %v", name, err)
	}
	return account
}

func (f *viewFixture) video(ownerID, title string, published bool, createdAt time.Time) models.Video {
	f.t.Helper()
	video := models.Video{
		ID:          uuid.NewString(),
		Title:       title,
		Description: "about " + title,
		File:        models.FileRef{URL: "https://cdn.example.com/v.mp4", StorageID: "videos/" + uuid.NewString()},
		Thumbnail:   models.FileRef{URL: "https://cdn.example.com/t.png", StorageID: "thumbnails/" + uuid.NewString()},
		Duration:    42.5,
		OwnerID:     ownerID,
		IsPublished: published,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := f.videos.Create(context.Background(), video); err != nil {
		f.t.Fatalf("create video %s: %v", title, err)
	}
	return video
}

func (f *viewFixture) comment(videoID, ownerID, content string, createdAt time.Time) models.Comment {
	f.t.Helper()
	comment := models.Comment{
		ID:        uuid.NewString(),
		Content:   content,
		VideoID:   videoID,
		OwnerID:   ownerID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := f.comments.Create(context.Background(), comment); err != nil {
		f.t.Fatalf("create comment: %v", err)
	}
	return comment
}

func (f *viewFixture) like(subject models.LikeSubject, subjectID, ownerID string) {
	f.t.Helper()
	added, err := f.likes.Toggle(context.Background(), subject, subjectID, ownerID)
	if err != nil {
		f.t.Fatalf("toggle like: %v", err)
	}
	if !added {
		f.t.Fatalf("expected the toggle to add a like")
	}
}

func (f *viewFixture) subscribe(subscriberID, channelID string) {
	f.t.Helper()
	added, err := f.subscriptions.Toggle(context.Background(), subscriberID, channelID)
	if err != nil {
		f.t.Fatalf("toggle subscription: %v", err)
	}
	if !added {
		f.t.Fatalf("expected the toggle to add a subscription")
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	if _, err := testPool.Exec(context.Background(), "TRUNCATE TABLE watch_history, subscriptions, likes, comments, tweets, videos, accounts CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
