// Package savvycal is a client for the SavvyCal REST API.
package savvycal

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"bookproxy/internal/config"
	"bookproxy/internal/domain"
	"bookproxy/internal/models"
	"bookproxy/internal/upstream"

	"github.com/rs/zerolog"
)

const (
	OpGetLink     = "get_link"
	OpCreateEvent = "create_event"
)

// Link is the subset of a scheduling link the proxy needs.
type Link struct {
	ID              string `json:"id"`
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	DefaultDuration int    `json:"default_duration"`
	Durations       []int  `json:"durations"`
}

// CreateEventRequest is the body of POST /v1/links/{id}/events.
type CreateEventRequest struct {
	StartAt     string   `json:"start_at"`
	EndAt       string   `json:"end_at"`
	Duration    int      `json:"duration"`
	TimeZone    string   `json:"time_zone"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Guests      []string `json:"guests,omitempty"`
}

type Client struct {
	api *upstream.Client
}

func NewClient(cfg config.ProviderConfig, cache domain.Cache, cacheTTL time.Duration, logger *zerolog.Logger) *Client {
	return &Client{api: upstream.NewClient(upstream.Options{
		Provider: string(models.ProviderSavvyCal),
		BaseURL:  cfg.BaseURL,
		Token:    cfg.Token,
		Timeout:  cfg.Timeout(),
		Cache:    cache,
		CacheTTL: cacheTTL,
		Logger:   logger,
	})}
}

func (c *Client) Configured() bool {
	return c.api.Configured()
}

// GetLink fetches link metadata. Non-2xx replies yield *upstream.StatusError.
func (c *Client) GetLink(ctx context.Context, linkID string) (*Link, error) {
	var link Link
	path := "/v1/links/" + url.PathEscape(linkID)
	if err := c.api.GetJSON(ctx, OpGetLink, path, "savvycal:link:"+linkID, &link); err != nil {
		return nil, fmt.Errorf("get link %s: %w", linkID, err)
	}
	return &link, nil
}

// CreateEvent submits a booking. The raw response is returned for any
// status; only transport failures are errors.
func (c *Client) CreateEvent(ctx context.Context, linkID string, req CreateEventRequest) (*upstream.Response, error) {
	path := fmt.Sprintf("/v1/links/%s/events", url.PathEscape(linkID))
	return c.api.PostJSON(ctx, OpCreateEvent, path, req)
}
