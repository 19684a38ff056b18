package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tubestream/backend/internal/auth"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
	"github.com/tubestream/backend/internal/views"
)

// memAccountStore is an in-memory AccountStore used by handler tests.
type memAccountStore struct {
	mu   sync.Mutex
	byID map[string]models.Account
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{byID: make(map[string]models.Account)}
}

func (s *memAccountStore) Create(_ context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Email == account.Email || existing.Username == account.Username {
			return repositories.ErrConflict
		}
	}
	s.byID[account.ID] = account
	return nil
}

func (s *memAccountStore) FindByID(_ context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byID[id]
	if !ok {
		return models.Account{}, repositories.ErrNotFound
	}
	return account, nil
}

func (s *memAccountStore) FindByEmail(_ context.Context, email string) (models.Account, error) {
	return s.findBy(func(a models.Account) bool { return a.Email == email })
}

func (s *memAccountStore) FindByUsername(_ context.Context, username string) (models.Account, error) {
	return s.findBy(func(a models.Account) bool { return a.Username == username })
}

func (s *memAccountStore) findBy(match func(models.Account) bool) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.byID {
		if match(account) {
			return account, nil
		}
	}
	return models.Account{}, repositories.ErrNotFound
}

func (s *memAccountStore) SetRefreshToken(_ context.Context, accountID, token string) error {
	return s.mutate(accountID, func(a *models.Account) { a.RefreshToken = token })
}

func (s *memAccountStore) UpdateProfile(_ context.Context, accountID, fullName, email string) error {
	return s.mutate(accountID, func(a *models.Account) {
		a.FullName = fullName
		a.Email = email
	})
}

func (s *memAccountStore) UpdatePassword(_ context.Context, accountID, passwordHash string) error {
	return s.mutate(accountID, func(a *models.Account) { a.Password = passwordHash })
}

func (s *memAccountStore) UpdateAvatar(_ context.Context, accountID string, ref models.FileRef) (models.FileRef, error) {
	var old models.FileRef
	err := s.mutate(accountID, func(a *models.Account) {
		old = a.Avatar
		a.Avatar = ref
	})
	return old, err
}

func (s *memAccountStore) UpdateCoverImage(_ context.Context, accountID string, ref models.FileRef) (models.FileRef, error) {
	var old models.FileRef
	err := s.mutate(accountID, func(a *models.Account) {
		old = a.CoverImage
		a.CoverImage = ref
	})
	return old, err
}

func (s *memAccountStore) mutate(id string, fn func(*models.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(&account)
	s.byID[id] = account
	return nil
}

// memVideoStore is an in-memory VideoStore.
type memVideoStore struct {
	mu   sync.Mutex
	byID map[string]models.Video
}

func newMemVideoStore() *memVideoStore {
	return &memVideoStore{byID: make(map[string]models.Video)}
}

func (s *memVideoStore) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[video.ID] = video
	return nil
}

func (s *memVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.byID[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *memVideoStore) Update(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[video.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.byID[video.ID] = video
	return nil
}

func (s *memVideoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memVideoStore) TogglePublish(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.byID[id]
	if !ok {
		return false, repositories.ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	s.byID[id] = video
	return video.IsPublished, nil
}

// memCommentStore is an in-memory CommentStore.
type memCommentStore struct {
	mu   sync.Mutex
	byID map[string]models.Comment
}

func newMemCommentStore() *memCommentStore {
	return &memCommentStore{byID: make(map[string]models.Comment)}
}

func (s *memCommentStore) Create(_ context.Context, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[comment.ID] = comment
	return nil
}

func (s *memCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.byID[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *memCommentStore) Update(_ context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	comment.Content = content
	s.byID[id] = comment
	return nil
}

func (s *memCommentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// memTweetStore is an in-memory TweetStore.
type memTweetStore struct {
	mu   sync.Mutex
	byID map[string]models.Tweet
}

func newMemTweetStore() *memTweetStore {
	return &memTweetStore{byID: make(map[string]models.Tweet)}
}

func (s *memTweetStore) Create(_ context.Context, tweet models.Tweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[tweet.ID] = tweet
	return nil
}

func (s *memTweetStore) FindByID(_ context.Context, id string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tweet, ok := s.byID[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return tweet, nil
}

func (s *memTweetStore) Update(_ context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tweet, ok := s.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	tweet.Content = content
	s.byID[id] = tweet
	return nil
}

func (s *memTweetStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// memLikeStore toggles membership in an in-memory set.
type memLikeStore struct {
	mu    sync.Mutex
	liked map[string]bool
}

func newMemLikeStore() *memLikeStore {
	return &memLikeStore{liked: make(map[string]bool)}
}

func (s *memLikeStore) Toggle(_ context.Context, subject models.LikeSubject, subjectID, ownerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s/%s/%s", subject, subjectID, ownerID)
	if s.liked[key] {
		delete(s.liked, key)
		return false, nil
	}
	s.liked[key] = true
	return true, nil
}

// memSubscriptionStore toggles subscriber/channel pairs.
type memSubscriptionStore struct {
	mu    sync.Mutex
	pairs map[string]bool
}

func newMemSubscriptionStore() *memSubscriptionStore {
	return &memSubscriptionStore{pairs: make(map[string]bool)}
}

func (s *memSubscriptionStore) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subscriberID + "/" + channelID
	if s.pairs[key] {
		delete(s.pairs, key)
		return false, nil
	}
	s.pairs[key] = true
	return true, nil
}

// fakeBlobStore records stored and deleted objects without touching S3.
type fakeBlobStore struct {
	mu      sync.Mutex
	stored  []string
	deleted []string
}

func (s *fakeBlobStore) Store(_ context.Context, key string, r io.Reader) (models.FileRef, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return models.FileRef{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, key)
	return models.FileRef{URL: "https://cdn.test/" + key, StorageID: key}, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, storageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, storageID)
	return nil
}

// fakeRecorder captures playback dispatches.
type fakeRecorder struct {
	mu      sync.Mutex
	records [][2]string
}

func (r *fakeRecorder) Record(videoID, viewerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, [2]string{videoID, viewerID})
}

// fakeViews is a ViewComposer whose behaviour is set per test. Unset methods
// return zero values.
type fakeViews struct {
	listVideos         func(views.VideoFilter) (views.Page[views.Video], error)
	getVideo           func(id, viewer string) (views.Video, error)
	listComments       func(videoID, viewer string, page, limit int) (views.Page[views.Comment], error)
	listTweets         func(ownerID, viewer string, page, limit int) (views.Page[views.Tweet], error)
	channelProfile     func(username, viewer string) (views.ChannelProfile, error)
	watchHistory       func(accountID string, page, limit int) (views.Page[views.Video], error)
	likedVideos        func(accountID string, page, limit int) (views.Page[views.Video], error)
	subscribers        func(channelID string, page, limit int) (views.Page[views.Subscriber], error)
	subscribedChannels func(subscriberID string, page, limit int) (views.Page[views.Subscriber], error)
	channelStats       func(channelID string) (views.ChannelStats, error)
}

func (f *fakeViews) ListVideos(_ context.Context, filter views.VideoFilter) (views.Page[views.Video], error) {
	if f.listVideos == nil {
		return views.Page[views.Video]{}, nil
	}
	return f.listVideos(filter)
}

func (f *fakeViews) GetVideo(_ context.Context, id, viewer string) (views.Video, error) {
	if f.getVideo == nil {
		return views.Video{}, views.ErrNotFound
	}
	return f.getVideo(id, viewer)
}

func (f *fakeViews) ListComments(_ context.Context, videoID, viewer string, page, limit int) (views.Page[views.Comment], error) {
	if f.listComments == nil {
		return views.Page[views.Comment]{}, nil
	}
	return f.listComments(videoID, viewer, page, limit)
}

func (f *fakeViews) ListTweets(_ context.Context, ownerID, viewer string, page, limit int) (views.Page[views.Tweet], error) {
	if f.listTweets == nil {
		return views.Page[views.Tweet]{}, nil
	}
	return f.listTweets(ownerID, viewer, page, limit)
}

func (f *fakeViews) ChannelProfile(_ context.Context, username, viewer string) (views.ChannelProfile, error) {
	if f.channelProfile == nil {
		return views.ChannelProfile{}, views.ErrNotFound
	}
	return f.channelProfile(username, viewer)
}

func (f *fakeViews) WatchHistory(_ context.Context, accountID string, page, limit int) (views.Page[views.Video], error) {
	if f.watchHistory == nil {
		return views.Page[views.Video]{}, nil
	}
	return f.watchHistory(accountID, page, limit)
}

func (f *fakeViews) LikedVideos(_ context.Context, accountID string, page, limit int) (views.Page[views.Video], error) {
	if f.likedVideos == nil {
		return views.Page[views.Video]{}, nil
	}
	return f.likedVideos(accountID, page, limit)
}

func (f *fakeViews) Subscribers(_ context.Context, channelID string, page, limit int) (views.Page[views.Subscriber], error) {
	if f.subscribers == nil {
		return views.Page[views.Subscriber]{}, nil
	}
	return f.subscribers(channelID, page, limit)
}

func (f *fakeViews) SubscribedChannels(_ context.Context, subscriberID string, page, limit int) (views.Page[views.Subscriber], error) {
	if f.subscribedChannels == nil {
		return views.Page[views.Subscriber]{}, nil
	}
	return f.subscribedChannels(subscriberID, page, limit)
}

func (f *fakeViews) ChannelStats(_ context.Context, channelID string) (views.ChannelStats, error) {
	if f.channelStats == nil {
		return views.ChannelStats{}, nil
	}
	return f.channelStats(channelID)
}

// testEnv wires the full route table over in-memory fakes.
type testEnv struct {
	mux           *http.ServeMux
	accounts      *memAccountStore
	videos        *memVideoStore
	comments      *memCommentStore
	tweets        *memTweetStore
	likes         *memLikeStore
	subscriptions *memSubscriptionStore
	views         *fakeViews
	blobs         *fakeBlobStore
	recorder      *fakeRecorder
	tokens        TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		mux:           http.NewServeMux(),
		accounts:      newMemAccountStore(),
		videos:        newMemVideoStore(),
		comments:      newMemCommentStore(),
		tweets:        newMemTweetStore(),
		likes:         newMemLikeStore(),
		subscriptions: newMemSubscriptionStore(),
		views:         &fakeViews{},
		blobs:         &fakeBlobStore{},
		recorder:      &fakeRecorder{},
	}
	env.tokens = auth.NewService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour, env.accounts)

	RegisterRoutes(env.mux, Dependencies{
		Accounts:      env.accounts,
		Tokens:        env.tokens,
		Videos:        env.videos,
		Comments:      env.comments,
		Tweets:        env.tweets,
		Likes:         env.likes,
		Subscriptions: env.subscriptions,
		Views:         env.views,
		Blobs:         env.blobs,
		Recorder:      env.recorder,
		Cookies:       CookieSettings{Secure: false},
	})

	return env
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

// createAccount seeds an account whose password is the provided plaintext.
func (env *testEnv) createAccount(t *testing.T, id, username, password string) models.Account {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	account := models.Account{
		ID:        id,
		Username:  username,
		Email:     username + "@example.com",
		FullName:  username,
		Password:  string(hashed),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := env.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

// authenticate issues tokens for the account and returns the access cookie.
func (env *testEnv) authenticate(t *testing.T, account models.Account) *http.Cookie {
	t.Helper()
	pair, err := env.tokens.Issue(context.Background(), account)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	return &http.Cookie{Name: "accessToken", Value: pair.AccessToken}
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest assembles a multipart body from text fields and file parts.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for name, filename := range files {
		part, err := writer.CreateFormFile(name, filename)
		if err != nil {
			t.Fatalf("create file part %s: %v", name, err)
		}
		if _, err := part.Write([]byte("file-contents")); err != nil {
			t.Fatalf("write file part %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// decodeEnvelope unpacks the uniform response envelope.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response envelope: %v (body %s)", err, rec.Body.String())
	}
	return envelope
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
