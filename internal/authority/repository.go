package authority

import (
	"context"
	"errors"

	"wallfeed/internal/cache"
	"wallfeed/internal/models"
	"wallfeed/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the data operations behind the post endpoints.
type PostRepository interface {
	List(ctx context.Context) ([]PostRecord, error)
	ListByAuthor(ctx context.Context, authorID string) ([]PostRecord, error)
	GetByID(ctx context.Context, id string) (*PostRecord, error)
	Create(ctx context.Context, post *PostRecord) error
	IsLiked(ctx context.Context, userID, postID string) (bool, error)
	ToggleLike(ctx context.Context, userID, postID string) (models.LikeStatus, error)
	RecordDownload(ctx context.Context, userID, postID string) error
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) List(ctx context.Context) ([]PostRecord, error) {
	var posts []PostRecord
	err := cache.Aside(ctx, cache.PostsListKey, &posts, cache.PostsListTTL, func() error {
		return r.db.WithContext(ctx).Order("created_at DESC").Find(&posts).Error
	})
	return posts, err
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string) ([]PostRecord, error) {
	var posts []PostRecord
	err := cache.Aside(ctx, cache.UserUploadsKey(authorID), &posts, cache.UserUploadsTTL, func() error {
		return r.db.WithContext(ctx).
			Where("author_id = ?", authorID).
			Order("created_at DESC").
			Find(&posts).Error
	})
	return posts, err
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*PostRecord, error) {
	var post PostRecord
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *PostRecord) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogWrite(ctx, "create", map[string]interface{}{"post_id": post.ID, "author_id": post.AuthorID})
	cache.Invalidate(ctx, cache.PostsListKey)
	cache.Invalidate(ctx, cache.UserUploadsKey(post.AuthorID))
	return nil
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&LikeRecord{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ToggleLike likes the post when the user does not like it yet and unlikes it
// otherwise. The counter and the like row change in one transaction.
func (r *postRepository) ToggleLike(ctx context.Context, userID, postID string) (models.LikeStatus, error) {
	var status models.LikeStatus
	var authorID string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post PostRecord
		if err := tx.First(&post, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", postID)
			}
			return err
		}
		authorID = post.AuthorID

		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&LikeRecord{})
		if res.Error != nil {
			return res.Error
		}

		delta := -1
		if res.RowsAffected == 0 {
			// Insert ... on conflict do nothing keeps concurrent likes from failing
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&LikeRecord{UserID: userID, PostID: postID})
			if ins.Error != nil {
				return ins.Error
			}
			delta = int(ins.RowsAffected)
			status.Liked = true
		}

		if delta != 0 {
			expr := gorm.Expr("likes_count + ?", delta)
			q := tx.Model(&PostRecord{}).Where("id = ?", postID)
			if delta < 0 {
				q = q.Where("likes_count > 0")
			}
			if err := q.UpdateColumn("likes_count", expr).Error; err != nil {
				return err
			}
		}

		if err := tx.First(&post, "id = ?", postID).Error; err != nil {
			return err
		}
		status.LikesCount = post.LikesCount
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "toggle_like")
		return models.LikeStatus{}, err
	}

	r.log.LogWrite(ctx, "toggle_like", map[string]interface{}{"post_id": postID, "liked": status.Liked})
	cache.Invalidate(ctx, cache.PostsListKey)
	cache.Invalidate(ctx, cache.UserUploadsKey(authorID))
	return status, nil
}

func (r *postRepository) RecordDownload(ctx context.Context, userID, postID string) error {
	if err := r.db.WithContext(ctx).Create(&DownloadRecord{UserID: userID, PostID: postID}).Error; err != nil {
		r.log.LogError(ctx, err, "record_download")
		return err
	}
	return nil
}
