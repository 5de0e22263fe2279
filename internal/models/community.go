package models

import "time"

// Community represents an organizer group that hosts events.
type Community struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	LogoURL            *string            `json:"logo_url,omitempty"`
	CityID             string             `json:"city_id"`
	Website            *string            `json:"website,omitempty"`
	Size               *int               `json:"size,omitempty"`
	YearFounded        *int               `json:"year_founded,omitempty"`
	OrganizerEmail     string             `json:"organizer_email,omitempty"`
	OrganizerPhone     string             `json:"organizer_phone,omitempty"`
	SocialLinks        []string           `json:"social_links,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	EventCount         int                `json:"event_count"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// VerificationStatus tracks moderator review of a community or venue.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// City is a supported city in the directory.
type City struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state,omitempty"`
}
