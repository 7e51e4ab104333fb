package models

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies the scheduling API a booking is forwarded to.
type Provider string

const (
	ProviderSavvyCal Provider = "savvycal"
	ProviderCalCom   Provider = "calcom"
)

// ParseProvider maps the wire value to a Provider. Empty selects SavvyCal.
func ParseProvider(raw string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "savvycal", "providera":
		return ProviderSavvyCal, nil
	case "calcom", "cal.com", "cal", "providerb":
		return ProviderCalCom, nil
	default:
		return "", fmt.Errorf("unknown provider %q", raw)
	}
}

func (p Provider) String() string {
	return string(p)
}

// BookingRequest is the inbound booking payload shared by the HTTP endpoint
// and the CLI.
//
// Duration is capped at one day.
type BookingRequest struct {
	Provider      string   `json:"provider,omitempty"`
	StartAt       string   `json:"start_at" validate:"required"`
	Duration      int      `json:"duration,omitempty" validate:"gte=0,lte=1440"`
	AttendeeName  string   `json:"attendee_name" validate:"required"`
	AttendeeEmail string   `json:"attendee_email" validate:"required,email"`
	TimeZone      string   `json:"time_zone,omitempty"`
	Guests        []string `json:"guests,omitempty" validate:"omitempty,dive,email"`

	LinkID string `json:"link_id,omitempty"`

	Username  string `json:"username,omitempty"`
	EventSlug string `json:"event_slug,omitempty"`
}

// Normalize trims whitespace from every string field and drops blank guests.
func (r *BookingRequest) Normalize() {
	r.Provider = strings.TrimSpace(r.Provider)
	r.StartAt = strings.TrimSpace(r.StartAt)
	r.AttendeeName = strings.TrimSpace(r.AttendeeName)
	r.AttendeeEmail = strings.TrimSpace(r.AttendeeEmail)
	r.TimeZone = strings.TrimSpace(r.TimeZone)
	r.LinkID = strings.TrimSpace(r.LinkID)
	r.Username = strings.TrimSpace(r.Username)
	r.EventSlug = strings.TrimSpace(r.EventSlug)

	if len(r.Guests) == 0 {
		return
	}
	guests := make([]string, 0, len(r.Guests))
	for _, g := range r.Guests {
		if g = strings.TrimSpace(g); g != "" {
			guests = append(guests, g)
		}
	}
	r.Guests = guests
}

// ProviderRef is the provider-specific address of the bookable schedule.
// The concrete type must match BookingIntent.Provider.
type ProviderRef interface {
	Provider() Provider
}

// LinkRef addresses a SavvyCal scheduling link.
type LinkRef struct {
	LinkID string
}

func (LinkRef) Provider() Provider { return ProviderSavvyCal }

// EventTypeRef addresses a Cal.com event type owned by Username.
type EventTypeRef struct {
	Username  string
	EventSlug string
}

func (EventTypeRef) Provider() Provider { return ProviderCalCom }

// BookingIntent is a validated booking request.
type BookingIntent struct {
	Provider        Provider
	StartAt         time.Time
	DurationMinutes int // zero when the caller did not ask for a duration
	AttendeeName    string
	AttendeeEmail   string
	TimeZone        string
	Guests          []string
	Ref             ProviderRef
}

// BookingResult is the uniform success response.
type BookingResult struct {
	Success  bool      `json:"success"`
	Provider Provider  `json:"provider"`
	EventID  string    `json:"event_id"`
	StartAt  time.Time `json:"start_at"`
	EndAt    time.Time `json:"end_at"`
}

// EndAt returns start plus the given number of minutes.
func EndAt(start time.Time, minutes int) time.Time {
	return start.Add(time.Duration(minutes) * time.Minute)
}
