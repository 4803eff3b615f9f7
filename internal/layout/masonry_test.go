package layout

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"wallfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHeights(heights ...int) []models.Post {
	posts := make([]models.Post, len(heights))
	for i, h := range heights {
		posts[i] = models.Post{ID: strconv.Itoa(i + 1), DisplayHeight: h}
	}
	return posts
}

func columnIDs(c Column) []string {
	out := []string{}
	for _, p := range c.Posts() {
		out = append(out, p.ID)
	}
	return out
}

func tops(c Column) []float64 {
	out := []float64{}
	for _, t := range c.Tiles {
		out = append(out, t.Top)
	}
	return out
}

func TestLayout_GreedyTrace(t *testing.T) {
	cols, err := Layout(withHeights(250, 200, 300, 220, 260, 240, 210), 2, 10)
	require.NoError(t, err)
	require.Len(t, cols, 2)

	assert.Equal(t, []string{"1", "4", "5", "7"}, columnIDs(cols[0]))
	assert.Equal(t, []float64{0, 260, 490, 760}, tops(cols[0]))
	assert.Equal(t, float64(980), cols[0].Height)

	assert.Equal(t, []string{"2", "3", "6"}, columnIDs(cols[1]))
	assert.Equal(t, []float64{0, 210, 520}, tops(cols[1]))
	assert.Equal(t, float64(770), cols[1].Height)
}

func TestLayout_TiesGoLeft(t *testing.T) {
	cols, err := Layout(withHeights(200, 200, 200, 200), 3, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4"}, columnIDs(cols[0]))
	assert.Equal(t, []string{"2"}, columnIDs(cols[1]))
	assert.Equal(t, []string{"3"}, columnIDs(cols[2]))
}

func TestLayout_EdgeCases(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		cols, err := Layout(nil, 3, 10)
		require.NoError(t, err)
		require.Len(t, cols, 3)
		for _, c := range cols {
			assert.Empty(t, c.Tiles)
			assert.Zero(t, c.Height)
		}
	})

	t.Run("single column keeps order", func(t *testing.T) {
		cols, err := Layout(withHeights(300, 200, 250), 1, 5)
		require.NoError(t, err)
		require.Len(t, cols, 1)
		assert.Equal(t, []string{"1", "2", "3"}, columnIDs(cols[0]))
		assert.Equal(t, float64(765), cols[0].Height)
	})

	t.Run("zero columns", func(t *testing.T) {
		_, err := Layout(withHeights(200), 0, 10)
		assert.Equal(t, models.CodeValidation, models.CodeOf(err))
	})

	t.Run("negative gap", func(t *testing.T) {
		_, err := Layout(withHeights(200), 2, -1)
		assert.Equal(t, models.CodeValidation, models.CodeOf(err))
	})
}

func randomPosts(r *rand.Rand, n int) []models.Post {
	heights := make([]int, n)
	for i := range heights {
		heights[i] = models.MinDisplayHeight + r.IntN(models.MaxDisplayHeight-models.MinDisplayHeight+1)
	}
	return withHeights(heights...)
}

func TestLayout_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(11, 13))

	for trial := 0; trial < 50; trial++ {
		n := r.IntN(40)
		columns := 1 + r.IntN(4)
		gap := float64(r.IntN(20))
		posts := randomPosts(r, n)

		first, err := Layout(posts, columns, gap)
		require.NoError(t, err)
		second, err := Layout(posts, columns, gap)
		require.NoError(t, err)
		assert.Equal(t, first, second, "deterministic")

		var placed []string
		largest := 0
		for _, c := range first {
			placed = append(placed, columnIDs(c)...)
		}
		for _, p := range posts {
			largest = max(largest, p.DisplayHeight)
		}
		want := make([]string, len(posts))
		for i, p := range posts {
			want[i] = p.ID
		}
		assert.ElementsMatch(t, want, placed, "conservation")
		assert.LessOrEqual(t, Spread(first), float64(largest)+gap, "balance")
	}
}

func TestEngine(t *testing.T) {
	_, err := NewEngine(0, 10)
	assert.Error(t, err)

	e, err := NewEngine(2, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Columns())

	cols := e.Arrange(withHeights(250, 200, 300))
	assert.Equal(t, []string{"1"}, columnIDs(cols[0]))
	assert.Equal(t, []string{"2", "3"}, columnIDs(cols[1]))
}

func TestSpread(t *testing.T) {
	assert.Zero(t, Spread(nil))
	assert.Equal(t, float64(210), Spread([]Column{{Height: 980}, {Height: 770}}))
}
