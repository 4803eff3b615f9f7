// Package authority is a local stand-in for the remote authority. It serves
// the post, like and download endpoints the client consumes, backed by GORM.
package authority

import (
	"time"

	"wallfeed/internal/models"
)

// PostRecord is the stored form of a post.
type PostRecord struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Title      string    `gorm:"size:300;not null" json:"title"`
	ImageURL   string    `gorm:"not null" json:"image_url"`
	Author     string    `gorm:"size:100" json:"author"`
	AuthorID   string    `gorm:"index;size:64" json:"author_id"`
	Genre      string    `gorm:"index;size:32" json:"genre"`
	LikesCount int       `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (PostRecord) TableName() string { return "posts" }

// ToModel converts the record to the wire representation.
func (r PostRecord) ToModel() models.Post {
	return models.Post{
		ID:         r.ID,
		Title:      r.Title,
		ImageURL:   r.ImageURL,
		Author:     r.Author,
		Genre:      r.Genre,
		LikesCount: r.LikesCount,
		CreatedAt:  r.CreatedAt,
	}
}

// LikeRecord marks that a user likes a post. One row per (user, post).
type LikeRecord struct {
	UserID    string `gorm:"primaryKey;size:64"`
	PostID    string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

func (LikeRecord) TableName() string { return "likes" }

// DownloadRecord logs one download of a post.
type DownloadRecord struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"index;size:64"`
	PostID    string `gorm:"index;size:36"`
	CreatedAt time.Time
}

func (DownloadRecord) TableName() string { return "downloads" }

func toModels(records []PostRecord) []models.Post {
	out := make([]models.Post, len(records))
	for i, r := range records {
		out[i] = r.ToModel()
	}
	return out
}
