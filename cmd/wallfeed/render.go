package main

import (
	"fmt"
	"strings"

	"wallfeed/internal/engagement"
	"wallfeed/internal/layout"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

// Rows per layout unit when drawing tiles.
const unitsPerRow = 40

var (
	tileStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	likedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
)

// renderGrid draws each column as a stack of tiles whose heights follow the
// posts' display heights.
func renderGrid(cols []layout.Column, width int) string {
	if len(cols) == 0 {
		return ""
	}
	colWidth := max(width/len(cols)-2, 12)

	rendered := make([]string, len(cols))
	empty := true
	for i, col := range cols {
		tiles := make([]string, 0, len(col.Tiles))
		for _, t := range col.Tiles {
			empty = false
			body := titleStyle.Render(t.Post.Title) + "\n" +
				mutedStyle.Render(fmt.Sprintf("@%s  ♥ %d", t.Post.Author, t.Post.LikesCount)) + "\n" +
				mutedStyle.Render(t.Post.ID)
			tiles = append(tiles, tileStyle.
				Width(colWidth).
				Height(max(t.Post.DisplayHeight/unitsPerRow, 3)).
				Render(body))
		}
		rendered[i] = lipgloss.JoinVertical(lipgloss.Left, tiles...)
	}
	if empty {
		return mutedStyle.Render("no posts")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func renderHeader(title string, parts ...string) string {
	line := title
	if rest := strings.Join(lo.Compact(parts), "  "); rest != "" {
		line += "  " + mutedStyle.Render(rest)
	}
	return headerStyle.Render(line)
}

func renderState(s engagement.State) string {
	heart := "♡"
	if s.Liked {
		heart = likedStyle.Render("♥")
	}
	out := fmt.Sprintf("%s %s  %d likes  [%s]", heart, s.PostID, s.LikesCount, s.Phase)
	if s.Downloaded {
		out += "\n" + mutedStyle.Render("saved to "+s.SavedPath)
	}
	return out
}
