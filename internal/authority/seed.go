package authority

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"wallfeed/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedPost is one entry of a seed file.
type SeedPost struct {
	Title    string `yaml:"title"`
	Genre    string `yaml:"genre"`
	ImageURL string `yaml:"image_url"`
	Likes    *int   `yaml:"likes"`
}

type seedFile struct {
	Posts []SeedPost `yaml:"posts"`
}

// LoadSeed reads seed entries from path, or the built-in wallpaper set when
// path is empty.
func LoadSeed(fsys afero.Fs, path string) ([]SeedPost, error) {
	data := defaultSeed
	if path != "" {
		var err error
		if data, err = afero.ReadFile(fsys, path); err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, p := range f.Posts {
		if p.Title == "" {
			return nil, fmt.Errorf("seed post %d: title is required", i)
		}
		if p.Genre != "" && !models.IsGenre(p.Genre) {
			return nil, fmt.Errorf("seed post %d: unknown genre %q", i, p.Genre)
		}
	}
	return f.Posts, nil
}

// Seed inserts entries into an empty posts table. Authors, dates and like
// counts that the entries leave open are faked. It returns how many posts
// were inserted.
func Seed(ctx context.Context, db *gorm.DB, entries []SeedPost, fakeSeed int64) (int, error) {
	var existing int64
	if err := db.WithContext(ctx).Model(&PostRecord{}).Count(&existing).Error; err != nil {
		return 0, err
	}
	if existing > 0 || len(entries) == 0 {
		return 0, nil
	}

	faker := gofakeit.New(fakeSeed)
	now := time.Now()
	records := make([]PostRecord, 0, len(entries))
	for _, e := range entries {
		id := uuid.NewString()
		rec := PostRecord{
			ID:         id,
			Title:      e.Title,
			Genre:      e.Genre,
			ImageURL:   e.ImageURL,
			Author:     faker.Username(),
			LikesCount: faker.Number(0, 500),
			CreatedAt:  faker.DateRange(now.AddDate(0, 0, -90), now),
		}
		rec.AuthorID = "seed-" + rec.Author
		if rec.ImageURL == "" {
			rec.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/400/600", id)
		}
		if e.Likes != nil {
			rec.LikesCount = *e.Likes
		}
		records = append(records, rec)
	}

	if err := db.WithContext(ctx).CreateInBatches(records, 50).Error; err != nil {
		return 0, fmt.Errorf("seed posts: %w", err)
	}
	return len(records), nil
}
