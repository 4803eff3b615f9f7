package authority

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"wallfeed/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const maxUploadBytes = 10 << 20

// Handlers serves the post endpoints.
type Handlers struct {
	repo      PostRepository
	fs        afero.Fs
	uploadDir string
	publicURL string
	now       func() time.Time
}

func respondRepoError(c *fiber.Ctx, err error) error {
	if models.CodeOf(err) == models.CodeNotFound {
		return models.RespondWithError(c, fiber.StatusNotFound, err)
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

func parsePostRef(c *fiber.Ctx) (string, *models.AppError) {
	var ref models.PostRef
	if err := c.BodyParser(&ref); err != nil {
		return "", models.NewValidationError("invalid request body")
	}
	if strings.TrimSpace(ref.PostID) == "" {
		return "", models.NewValidationError("postId is required")
	}
	return ref.PostID, nil
}

// ListPosts handles GET /post/all
func (h *Handlers) ListPosts(c *fiber.Ctx) error {
	posts, err := h.repo.List(c.Context())
	if err != nil {
		return respondRepoError(c, err)
	}
	return c.JSON(models.PostList{Posts: toModels(posts)})
}

// MyUploads handles POST /post/getPost
func (h *Handlers) MyUploads(c *fiber.Ctx) error {
	posts, err := h.repo.ListByAuthor(c.Context(), UserID(c))
	if err != nil {
		return respondRepoError(c, err)
	}
	return c.JSON(models.PostList{Posts: toModels(posts)})
}

// LikeStatus handles POST /post/likeStatus
func (h *Handlers) LikeStatus(c *fiber.Ctx) error {
	postID, appErr := parsePostRef(c)
	if appErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
	}
	ctx := c.Context()

	post, err := h.repo.GetByID(ctx, postID)
	if err != nil {
		return respondRepoError(c, err)
	}
	liked, err := h.repo.IsLiked(ctx, UserID(c), postID)
	if err != nil {
		return respondRepoError(c, err)
	}
	return c.JSON(models.LikeStatus{Liked: liked, LikesCount: post.LikesCount})
}

// ToggleLike handles POST /post/toggleLike
func (h *Handlers) ToggleLike(c *fiber.Ctx) error {
	postID, appErr := parsePostRef(c)
	if appErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
	}

	status, err := h.repo.ToggleLike(c.Context(), UserID(c), postID)
	if err != nil {
		return respondRepoError(c, err)
	}
	return c.JSON(status)
}

// RecordDownload handles POST /post/download
func (h *Handlers) RecordDownload(c *fiber.Ctx) error {
	postID, appErr := parsePostRef(c)
	if appErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
	}
	ctx := c.Context()

	if _, err := h.repo.GetByID(ctx, postID); err != nil {
		return respondRepoError(c, err)
	}
	if err := h.repo.RecordDownload(ctx, UserID(c), postID); err != nil {
		return respondRepoError(c, err)
	}
	return c.JSON(models.Ack{OK: true})
}

// CreatePost handles POST /post/create (multipart: imageUrl, title, genre)
func (h *Handlers) CreatePost(c *fiber.Ctx) error {
	title := strings.TrimSpace(c.FormValue("title"))
	genre := strings.ToLower(strings.TrimSpace(c.FormValue("genre")))
	if title == "" || utf8.RuneCountInString(title) > 300 {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("title must be 1 to 300 characters"))
	}
	if !models.IsGenre(genre) {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("unknown genre"))
	}

	fh, err := c.FormFile("imageUrl")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("imageUrl file is required"))
	}
	if fh.Size > maxUploadBytes {
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge, models.NewValidationError("image must be at most 10MB"))
	}

	data, err := readFormFile(fh)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("unreadable upload"))
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return models.RespondWithError(c, fiber.StatusUnsupportedMediaType, models.NewValidationError(fmt.Sprintf("unsupported file type %s", mtype.String())))
	}

	id := uuid.NewString()
	name := id + mtype.Extension()
	if err := h.fs.MkdirAll(h.uploadDir, 0o755); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if err := afero.WriteFile(h.fs, filepath.Join(h.uploadDir, name), data, 0o644); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	base := h.publicURL
	if base == "" {
		base = c.BaseURL()
	}
	userID := UserID(c)
	post := &PostRecord{
		ID:        id,
		Title:     title,
		Genre:     genre,
		ImageURL:  strings.TrimRight(base, "/") + "/media/" + name,
		Author:    userID,
		AuthorID:  userID,
		CreatedAt: h.now(),
	}
	if err := h.repo.Create(c.Context(), post); err != nil {
		return respondRepoError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post.ToModel())
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty upload")
	}
	return data, nil
}
