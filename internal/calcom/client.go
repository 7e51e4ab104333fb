// Package calcom is a client for the Cal.com v2 API.
package calcom

import (
	"context"
	"fmt"
	"time"

	"bookproxy/internal/config"
	"bookproxy/internal/domain"
	"bookproxy/internal/models"
	"bookproxy/internal/upstream"

	"github.com/rs/zerolog"
)

const (
	OpGetMe         = "get_me"
	OpCreateBooking = "create_booking"

	apiVersionHeader = "cal-api-version"
)

// Profile is the authenticated user behind the API token.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"timeZone"`
}

// DisplayName returns the best human-readable name of the profile.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}

type Attendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"timeZone"`
}

// CreateBookingRequest is the body of POST /v2/bookings.
type CreateBookingRequest struct {
	Start                  string            `json:"start"`
	EventTypeSlug          string            `json:"eventTypeSlug"`
	Username               string            `json:"username"`
	Attendee               Attendee          `json:"attendee"`
	Guests                 []string          `json:"guests,omitempty"`
	BookingFieldsResponses map[string]any    `json:"bookingFieldsResponses,omitempty"`
	Metadata               map[string]string `json:"metadata,omitempty"`
}

type Client struct {
	api *upstream.Client
}

func NewClient(cfg config.ProviderConfig, cache domain.Cache, cacheTTL time.Duration, logger *zerolog.Logger) *Client {
	return &Client{api: upstream.NewClient(upstream.Options{
		Provider: string(models.ProviderCalCom),
		BaseURL:  cfg.BaseURL,
		Token:    cfg.Token,
		Timeout:  cfg.Timeout(),
		Headers:  map[string]string{apiVersionHeader: cfg.APIVersion},
		Cache:    cache,
		CacheTTL: cacheTTL,
		Logger:   logger,
	})}
}

func (c *Client) Configured() bool {
	return c.api.Configured()
}

// Me returns the profile of the token owner.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var envelope struct {
		Status string  `json:"status"`
		Data   Profile `json:"data"`
	}
	if err := c.api.GetJSON(ctx, OpGetMe, "/v2/me", "calcom:me", &envelope); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &envelope.Data, nil
}

// CreateBooking submits a booking. The raw response is returned for any
// status; only transport failures are errors.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*upstream.Response, error) {
	return c.api.PostJSON(ctx, OpCreateBooking, "/v2/bookings", req)
}
