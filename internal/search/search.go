// Package search narrows a working set without reordering it.
package search

import (
	"slices"
	"strings"

	"wallfeed/internal/models"

	"github.com/samber/lo"
)

// Apply keeps the posts whose title contains query, ignoring case. An empty
// query keeps everything. The input is never modified.
func Apply(posts []models.Post, query string) []models.Post {
	if query == "" {
		return slices.Clone(posts)
	}
	needle := strings.ToLower(query)
	return lo.Filter(posts, func(p models.Post, _ int) bool {
		return strings.Contains(strings.ToLower(p.Title), needle)
	})
}

// ByGenre keeps the posts of genre. An empty genre keeps everything.
func ByGenre(posts []models.Post, genre string) []models.Post {
	if genre == "" {
		return slices.Clone(posts)
	}
	return lo.Filter(posts, func(p models.Post, _ int) bool {
		return strings.EqualFold(p.Genre, genre)
	})
}
