package models

import "time"

// ArchivedEvent is the immutable snapshot written when a live event is
// moved to the archive. It keeps the original event ID and denormalizes
// the community name so the archive survives community deletion.
type ArchivedEvent struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Date               time.Time  `json:"date"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	Venue              string     `json:"venue"`
	IsOnline           bool       `json:"is_online"`
	EventType          EventType  `json:"event_type"`
	CommunityID        string     `json:"community_id"`
	CommunityName      string     `json:"community_name"`
	CityID             string     `json:"city_id"`
	BannerURL          *string    `json:"banner_url,omitempty"`
	Featured           bool       `json:"featured"`
	RegistrationClicks int        `json:"registration_clicks"`
	CreatedAt          time.Time  `json:"created_at"`
	ArchivedAt         time.Time  `json:"archived_at"`
}

// ArchivedEventQuery holds filters for listing archived events.
type ArchivedEventQuery struct {
	CityID      *string `json:"city_id,omitempty"`
	CommunityID *string `json:"community_id,omitempty"`
	Featured    *bool   `json:"featured,omitempty"`
	Limit       int     `json:"limit,omitempty"`
}
