package search

import (
	"testing"

	"wallfeed/internal/models"

	"github.com/stretchr/testify/assert"
)

func titled(titles ...string) []models.Post {
	posts := make([]models.Post, len(titles))
	for i, title := range titles {
		posts[i] = models.Post{ID: title, Title: title}
	}
	return posts
}

func titles(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestApply(t *testing.T) {
	set := titled("Nature View", "City Lights", "Forest", "Mountain", "Lake")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"prefix of a title", "mount", []string{"Mountain"}},
		{"upper case query", "LIGHTS", []string{"City Lights"}},
		{"matches inside words", "e", []string{"Nature View", "Forest", "Lake"}},
		{"no match", "ocean", []string{}},
		{"empty query", "", []string{"Nature View", "City Lights", "Forest", "Mountain", "Lake"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titles(Apply(set, tt.query)))
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	set := titled("Nature View", "City Lights", "Forest", "Mountain", "Lake")
	for _, q := range []string{"", "a", "mount", "ZZZ", "t"} {
		once := Apply(set, q)
		assert.Equal(t, once, Apply(once, q), "query %q", q)
	}
}

func TestApply_EmptyQueryReturnsCopy(t *testing.T) {
	set := titled("A", "B")
	out := Apply(set, "")
	assert.Equal(t, set, out)

	out[0].Title = "changed"
	assert.Equal(t, "A", set[0].Title)
}

func TestByGenre(t *testing.T) {
	set := []models.Post{
		{ID: "1", Title: "Peak", Genre: "mountains"},
		{ID: "2", Title: "Skyline", Genre: "cityscape"},
		{ID: "3", Title: "Ridge", Genre: "mountains"},
		{ID: "4", Title: "Untagged"},
	}

	assert.Equal(t, []string{"Peak", "Ridge"}, titles(ByGenre(set, "mountains")))
	assert.Equal(t, []string{"Peak", "Ridge"}, titles(ByGenre(set, "Mountains")))
	assert.Len(t, ByGenre(set, ""), 4)
	assert.Empty(t, ByGenre(set, "dark"))

	assert.Equal(t, []string{"Ridge"}, titles(Apply(ByGenre(set, "mountains"), "rid")))
}
