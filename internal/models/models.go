package models

import "time"

// Account represents a registered channel owner within the platform.
type Account struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Password     string
	Avatar       FileRef
	CoverImage   FileRef
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FileRef points at an object persisted in the blob store.
type FileRef struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
}

// Video stores an uploaded video together with its playback metadata.
type Video struct {
	ID          string
	Title       string
	Description string
	File        FileRef
	Thumbnail   FileRef
	Duration    float64
	OwnerID     string
	Views       int64
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is a viewer remark attached to a video.
type Comment struct {
	ID        string
	Content   string
	VideoID   string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tweet is a short standalone post published by an account.
type Tweet struct {
	ID        string
	Content   string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LikeSubject identifies which entity collection a like targets.
type LikeSubject string

const (
	LikeVideo   LikeSubject = "video"
	LikeComment LikeSubject = "comment"
	LikeTweet   LikeSubject = "tweet"
)

// Like joins an account to the single entity it has liked. At most one
// like exists per (subject, account) pair.
type Like struct {
	ID        string
	Subject   LikeSubject
	SubjectID string
	OwnerID   string
	CreatedAt time.Time
}

// Subscription records that a subscriber follows a channel. The relation
// is directional.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// TokenPair groups the bearer credentials issued to authenticated accounts.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// PublicAccount is the projection of an account safe to expose on any read
// path. Password and refresh token are deliberately absent.
type PublicAccount struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     FileRef   `json:"avatar"`
	CoverImage FileRef   `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Public strips the credential fields from an account.
func (a Account) Public() PublicAccount {
	return PublicAccount{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		FullName:   a.FullName,
		Avatar:     a.Avatar,
		CoverImage: a.CoverImage,
		CreatedAt:  a.CreatedAt,
	}
}
