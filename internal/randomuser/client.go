package randomuser

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/userstream/config"
	"github.com/d60-Lab/userstream/internal/model"
	"github.com/d60-Lab/userstream/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client 每次 Fetch 发起一次同步 GET，不重试
type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	newID   func() uuid.UUID
}

func NewClient(cfg config.APIConfig) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		url:     cfg.URL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		newID:   uuid.New,
	}
}

// Fetch 只在 HTTP 200 时返回记录，其余情况返回 model.ErrFetchFailed
func (c *Client) Fetch(ctx context.Context) (*model.UserRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFetchFailed, err)
	}
	rec, err := c.fetch(ctx)
	if err != nil {
		logger.Error("Failed to fetch user data from API", zap.String("url", c.url), zap.Error(err))
		return nil, err
	}
	if verr := rec.Validate(); verr != nil {
		logger.Warn("fetched user record is incomplete", zap.String("email", rec.Email), zap.Error(verr))
	}
	return rec, nil
}

func (c *Client) fetch(ctx context.Context) (*model.UserRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFetchFailed, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", model.ErrFetchFailed, resp.StatusCode)
	}

	var body model.RandomUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", model.ErrFetchFailed, err)
	}
	if len(body.Results) == 0 {
		return nil, fmt.Errorf("%w: empty results", model.ErrFetchFailed)
	}
	return body.Results[0].ToRecord(c.newID()), nil
}
