// Package models contains data structures for the application's domain models.
package models

import (
	"slices"
	"time"
)

// Display height bounds, in layout units, assigned to posts on fetch.
const (
	MinDisplayHeight = 200
	MaxDisplayHeight = 320
)

// Genres accepted for uploaded posts.
var Genres = []string{"nature", "motivation", "dark", "mountains", "cityscape", "minimal"}

// IsGenre reports whether g is one of the known genres.
func IsGenre(g string) bool {
	return slices.Contains(Genres, g)
}

// Post represents an image post as served by the remote authority.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	ImageURL   string    `json:"image_url"`
	Author     string    `json:"author"`
	Genre      string    `json:"genre,omitempty"`
	LikesCount int       `json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
	// DisplayHeight is assigned client-side once per fetch and kept for the
	// lifetime of the working set.
	DisplayHeight int `json:"display_height,omitempty"`
}

// HasDisplayHeight reports whether the post already carries an in-range height.
func (p Post) HasDisplayHeight() bool {
	return p.DisplayHeight >= MinDisplayHeight && p.DisplayHeight <= MaxDisplayHeight
}

// PostList is the envelope used by list endpoints.
type PostList struct {
	Posts []Post `json:"posts"`
}

// LikeStatus is the single response contract for both the like-status and the
// toggle-like endpoints.
type LikeStatus struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// PostRef is the request body for per-post engagement endpoints.
type PostRef struct {
	PostID string `json:"postId"`
}

// Ack is the response body for fire-and-forget endpoints.
type Ack struct {
	OK bool `json:"ok"`
}
