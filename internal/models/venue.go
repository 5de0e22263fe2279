package models

import "time"

// Venue represents a physical location where events are hosted.
// Venue names are unique within a city.
type Venue struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Address            string             `json:"address,omitempty"`
	CityID             string             `json:"city_id"`
	Capacity           *int               `json:"capacity,omitempty"`
	Website            *string            `json:"website,omitempty"`
	ContactEmail       string             `json:"contact_email,omitempty"`
	ContactPhone       string             `json:"contact_phone,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	EventCount         int                `json:"event_count"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}
