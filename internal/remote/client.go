// Package remote talks to the remote authority over its HTTP JSON contract.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wallfeed/internal/models"
	"wallfeed/internal/observability"

	"resty.dev/v3"
)

const (
	listPosts      = "/post/all"
	likeStatus     = "/post/likeStatus"
	toggleLike     = "/post/toggleLike"
	recordDownload = "/post/download"
	createPost     = "/post/create"
	myUploads      = "/post/getPost"

	imageEndpoint = "image"
)

// Options tunes the underlying HTTP client.
type Options struct {
	Timeout    time.Duration
	RetryCount int

	TransportSettings *resty.TransportSettings
}

// DefaultOptions mirrors the configuration defaults.
var DefaultOptions = Options{
	Timeout:    10 * time.Second,
	RetryCount: 2,
	TransportSettings: &resty.TransportSettings{
		DialerTimeout:         5 * time.Second,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	},
}

// Client is safe for concurrent use. Only idempotent requests are retried.
type Client struct {
	client *resty.Client
	logger *observability.ClientLogger
}

func NewClient(baseURL string, opts Options) *Client {
	client := resty.NewWithTransportSettings(opts.TransportSettings).
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetHeader("Accept", "application/json")

	return &Client{
		client: client,
		logger: observability.NewClientLogger("remote"),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) r(ctx context.Context, token string) *resty.Request {
	req := c.client.R().WithContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// send executes req and classifies the outcome. On success the raw body is returned.
func (c *Client) send(ctx context.Context, req *resty.Request, method, endpoint string) ([]byte, error) {
	return c.sendTo(ctx, req, method, endpoint, endpoint)
}

// sendTo is send for requests whose URL is not a fixed endpoint. endpoint only
// labels logs, spans and metrics.
func (c *Client) sendTo(ctx context.Context, req *resty.Request, method, url, endpoint string) ([]byte, error) {
	span, ctx := observability.NewClientSpan(ctx, method, endpoint)
	defer span.End()
	req.SetContext(ctx)

	start := time.Now()
	res, err := req.Execute(method, url)
	if err != nil {
		appErr := models.NewNetworkError(method+" "+endpoint, err)
		c.fail(ctx, span, method, endpoint, start, appErr)
		return nil, appErr
	}

	status := res.StatusCode()
	c.logger.LogRequest(ctx, method, endpoint, status, time.Since(start))

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		appErr := models.NewAuthError("the authority rejected the credential", fmt.Errorf("status %d", status))
		c.fail(ctx, span, method, endpoint, start, appErr)
		return nil, appErr
	case !res.IsSuccess():
		appErr := models.NewNetworkError(method+" "+endpoint, fmt.Errorf("unexpected status %d", status))
		c.fail(ctx, span, method, endpoint, start, appErr)
		return nil, appErr
	}

	observability.ObserveRemote(endpoint, "ok", start)
	return res.Bytes(), nil
}

func (c *Client) decode(ctx context.Context, method, endpoint string, body []byte, dest any) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return c.malformed(ctx, method, endpoint, err)
	}
	return nil
}

func (c *Client) malformed(ctx context.Context, method, endpoint string, err error) error {
	appErr := models.NewMalformedResponseError(method+" "+endpoint, err)
	c.logger.LogError(ctx, method, endpoint, appErr.Code, appErr)
	return appErr
}

func (c *Client) fail(ctx context.Context, span *observability.Span, method, endpoint string, start time.Time, err *models.AppError) {
	span.SetError(err)
	observability.ObserveRemote(endpoint, err.Code, start)
	c.logger.LogError(ctx, method, endpoint, err.Code, err)
}

var errMissingField = errors.New("required field missing")

type postListBody struct {
	Posts *[]models.Post `json:"posts"`
}

type likeStatusBody struct {
	Liked      *bool `json:"liked"`
	LikesCount *int  `json:"likes_count"`
}

type ackBody struct {
	OK *bool `json:"ok"`
}

func (c *Client) list(ctx context.Context, method, endpoint, token string) ([]models.Post, error) {
	body, err := c.send(ctx, c.r(ctx, token), method, endpoint)
	if err != nil {
		return nil, err
	}
	var out postListBody
	if err := c.decode(ctx, method, endpoint, body, &out); err != nil {
		return nil, err
	}
	if out.Posts == nil {
		return nil, c.malformed(ctx, method, endpoint, fmt.Errorf("posts: %w", errMissingField))
	}
	return *out.Posts, nil
}

// ListPosts fetches the full post collection.
func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	return c.list(ctx, http.MethodGet, listPosts, "")
}

// MyUploads fetches the posts uploaded by the credential's owner.
func (c *Client) MyUploads(ctx context.Context, token string) ([]models.Post, error) {
	return c.list(ctx, http.MethodPost, myUploads, token)
}

func (c *Client) likeRequest(ctx context.Context, endpoint, token, postID string) (models.LikeStatus, error) {
	req := c.r(ctx, token).SetBody(models.PostRef{PostID: postID})
	body, err := c.send(ctx, req, http.MethodPost, endpoint)
	if err != nil {
		return models.LikeStatus{}, err
	}
	var out likeStatusBody
	if err := c.decode(ctx, http.MethodPost, endpoint, body, &out); err != nil {
		return models.LikeStatus{}, err
	}
	if out.Liked == nil {
		return models.LikeStatus{}, c.malformed(ctx, http.MethodPost, endpoint, fmt.Errorf("liked: %w", errMissingField))
	}
	status := models.LikeStatus{Liked: *out.Liked}
	if out.LikesCount != nil {
		status.LikesCount = *out.LikesCount
	}
	return status, nil
}

// LikeStatus asks whether the credential's owner likes postID.
func (c *Client) LikeStatus(ctx context.Context, token, postID string) (models.LikeStatus, error) {
	return c.likeRequest(ctx, likeStatus, token, postID)
}

// ToggleLike flips the like of postID and returns the authority's resulting state.
func (c *Client) ToggleLike(ctx context.Context, token, postID string) (models.LikeStatus, error) {
	return c.likeRequest(ctx, toggleLike, token, postID)
}

// RecordDownload notifies the authority that postID was downloaded.
func (c *Client) RecordDownload(ctx context.Context, token, postID string) error {
	req := c.r(ctx, token).SetBody(models.PostRef{PostID: postID})
	body, err := c.send(ctx, req, http.MethodPost, recordDownload)
	if err != nil {
		return err
	}
	var out ackBody
	if err := c.decode(ctx, http.MethodPost, recordDownload, body, &out); err != nil {
		return err
	}
	if out.OK == nil || !*out.OK {
		return c.malformed(ctx, http.MethodPost, recordDownload, errors.New("download was not acknowledged"))
	}
	return nil
}

// FetchImage downloads the binary behind an image reference. Relative
// references are resolved against the base URL.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req := c.client.R().WithContext(ctx).SetHeader("Accept", "image/*")
	body, err := c.sendTo(ctx, req, http.MethodGet, imageURL, imageEndpoint)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, c.malformed(ctx, http.MethodGet, imageEndpoint, errors.New("empty image body"))
	}
	return body, nil
}

// NewPost is the multipart payload of an upload.
type NewPost struct {
	FileName    string
	ContentType string
	Data        []byte
	Title       string
	Genre       string
}

// CreatePost uploads a new post and returns it as stored by the authority.
func (c *Client) CreatePost(ctx context.Context, token string, p NewPost) (models.Post, error) {
	req := c.r(ctx, token).
		SetMultipartField("imageUrl", p.FileName, p.ContentType, bytes.NewReader(p.Data)).
		SetMultipartFormData(map[string]string{
			"title": p.Title,
			"genre": p.Genre,
		})

	body, err := c.send(ctx, req, http.MethodPost, createPost)
	if err != nil {
		return models.Post{}, err
	}
	var out models.Post
	if err := c.decode(ctx, http.MethodPost, createPost, body, &out); err != nil {
		return models.Post{}, err
	}
	if out.ID == "" {
		return models.Post{}, c.malformed(ctx, http.MethodPost, createPost, fmt.Errorf("id: %w", errMissingField))
	}
	return out, nil
}
