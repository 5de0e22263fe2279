package models

import (
	"time"
)

// Event represents a community event listed in the directory.
type Event struct {
	ID                 string      `json:"id"`
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	BannerURL          *string     `json:"banner_url,omitempty"`
	Date               time.Time   `json:"date"`
	EndDate            *time.Time  `json:"end_date,omitempty"`
	Venue              string      `json:"venue"`
	VenueID            *string     `json:"venue_id,omitempty"`
	IsOnline           bool        `json:"is_online"`
	EventType          EventType   `json:"event_type"`
	CommunityID        string      `json:"community_id"`
	CommunityName      string      `json:"community_name,omitempty"`
	CityID             string      `json:"city_id"`
	OrganizerName      string      `json:"organizer_name,omitempty"`
	OrganizerEmail     string      `json:"organizer_email,omitempty"`
	OrganizerPhone     string      `json:"organizer_phone,omitempty"`
	RegistrationURL    string      `json:"registration_url,omitempty"`
	RegistrationClicks int         `json:"registration_clicks"`
	Featured           bool        `json:"featured"`
	Status             EventStatus `json:"status"`
	Sponsors           []Sponsor   `json:"sponsors,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// EventStatus represents the moderation state of an event.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"   // Submitted, awaiting review
	EventStatusApproved  EventStatus = "approved"  // Publicly listed
	EventStatusRejected  EventStatus = "rejected"  // Declined by a moderator
	EventStatusCancelled EventStatus = "cancelled" // Withdrawn after approval
)

// EventType classifies the format of an event.
type EventType string

const (
	EventTypeMeetup     EventType = "meetup"
	EventTypeWorkshop   EventType = "workshop"
	EventTypeConference EventType = "conference"
	EventTypeHackathon  EventType = "hackathon"
	EventTypeWebinar    EventType = "webinar"
	EventTypeOther      EventType = "other"
)

// Sponsor represents an event sponsor with an optional uploaded banner.
type Sponsor struct {
	ID         string  `json:"id"`
	EventID    string  `json:"event_id"`
	Name       string  `json:"name"`
	BannerURL  *string `json:"banner_url,omitempty"`
	WebsiteURL *string `json:"website_url,omitempty"`
}

// EndsAt returns the effective end of the event: the end date when set,
// otherwise the start date.
func (e *Event) EndsAt() time.Time {
	if e.EndDate != nil {
		return *e.EndDate
	}
	return e.Date
}

// IsPast reports whether the event has already ended relative to now.
func (e *Event) IsPast(now time.Time) bool {
	return e.EndsAt().Before(now)
}
