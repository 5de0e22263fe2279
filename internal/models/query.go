package models

import (
	"time"
)

// EventQuery represents filters and pagination for listing events.
type EventQuery struct {
	// Text search over title and description
	Search string `json:"search,omitempty"`

	// Entity filters
	Status      *EventStatus `json:"status,omitempty"`
	CommunityID *string      `json:"community_id,omitempty"`
	VenueID     *string      `json:"venue_id,omitempty"`
	CityID      *string      `json:"city_id,omitempty"`
	EventType   *EventType   `json:"event_type,omitempty"`

	// Time filters
	From         *time.Time `json:"from,omitempty"`
	To           *time.Time `json:"to,omitempty"`
	UpcomingOnly bool       `json:"upcoming_only,omitempty"`

	// Pagination
	Page   int `json:"page"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting
	SortBy    EventSortField `json:"sort_by,omitempty"`
	SortOrder SortOrder      `json:"sort_order,omitempty"`
}

// EventSortField specifies which field to sort events by.
type EventSortField string

const (
	SortByDate      EventSortField = "date"
	SortByCreatedAt EventSortField = "created_at"
	SortByUpdatedAt EventSortField = "updated_at"
)

// SortOrder specifies ascending or descending sort direction.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// Validate ensures the query parameters are valid and applies defaults.
func (q *EventQuery) Validate() error {
	if q.Page < 1 {
		q.Page = 1
	}

	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > 1000 {
		q.Limit = 1000
	}

	// Sort fields end up in SQL, so unknown values fall back to defaults
	switch q.SortBy {
	case SortByDate, SortByCreatedAt, SortByUpdatedAt:
	default:
		q.SortBy = SortByDate
	}
	switch q.SortOrder {
	case SortOrderAsc, SortOrderDesc:
	default:
		q.SortOrder = SortOrderAsc
	}

	return nil
}

// GetOffset calculates the database offset for pagination.
func (q *EventQuery) GetOffset() int {
	if q.Offset > 0 {
		return q.Offset
	}
	if q.Limit > 0 {
		return (q.Page - 1) * q.Limit
	}
	return 0
}

// EventResponse represents a paginated list of events with metadata.
type EventResponse struct {
	Events  []Event `json:"events"`
	Page    int     `json:"page"`
	Limit   int     `json:"limit"`
	Total   int     `json:"total"`
	HasMore bool    `json:"has_more"`
}
