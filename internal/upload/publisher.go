// Package upload validates and publishes new posts.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"wallfeed/internal/models"
	"wallfeed/internal/remote"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

const (
	MaxTitleLength = 300
	MaxImageBytes  = 10 << 20
)

// Creator sends the multipart upload.
type Creator interface {
	CreatePost(ctx context.Context, token string, p remote.NewPost) (models.Post, error)
}

// TokenSource yields the current credential or an AuthError.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Input is what the user picked and typed.
type Input struct {
	FileName string
	Data     []byte
	Title    string
	Genre    string
}

type Publisher struct {
	creator Creator
	tokens  TokenSource
}

func NewPublisher(creator Creator, tokens TokenSource) *Publisher {
	return &Publisher{creator: creator, tokens: tokens}
}

// Publish validates in and uploads it. Validation happens before the
// credential is read, so bad input never reaches the authority.
func (p *Publisher) Publish(ctx context.Context, in Input) (models.Post, error) {
	np, err := Prepare(in)
	if err != nil {
		return models.Post{}, err
	}
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return models.Post{}, err
	}
	return p.creator.CreatePost(ctx, token, np)
}

// Prepare checks in and derives the content type from the image bytes.
func Prepare(in Input) (remote.NewPost, error) {
	title := strings.TrimSpace(in.Title)
	genre := strings.ToLower(strings.TrimSpace(in.Genre))

	if title == "" {
		return remote.NewPost{}, models.NewValidationError("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return remote.NewPost{}, models.NewValidationError(fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if !models.IsGenre(genre) {
		return remote.NewPost{}, models.NewValidationError(fmt.Sprintf("genre must be one of %s", strings.Join(models.Genres, ", ")))
	}
	if len(in.Data) == 0 {
		return remote.NewPost{}, models.NewValidationError("image is required")
	}
	if len(in.Data) > MaxImageBytes {
		return remote.NewPost{}, models.NewValidationError("image must be at most 10MB")
	}

	mtype := mimetype.Detect(in.Data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return remote.NewPost{}, models.NewValidationError(fmt.Sprintf("unsupported file type %s", mtype.String()))
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(in.Data)); err != nil {
		return remote.NewPost{}, models.NewValidationError(fmt.Sprintf("unreadable image: %v", err))
	}

	name := filepath.Base(in.FileName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "upload" + mtype.Extension()
	}

	return remote.NewPost{
		FileName:    name,
		ContentType: mtype.String(),
		Data:        in.Data,
		Title:       title,
		Genre:       genre,
	}, nil
}
