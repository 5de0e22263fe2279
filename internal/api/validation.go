package api

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Loopin-city/loopin-city-sub001/internal/models"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validEventTypes = []models.EventType{
	models.EventTypeMeetup,
	models.EventTypeWorkshop,
	models.EventTypeConference,
	models.EventTypeHackathon,
	models.EventTypeWebinar,
	models.EventTypeOther,
}

// ValidateEventSubmission validates a public event submission.
func ValidateEventSubmission(req *CreateEventRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return ValidationError{Field: "title", Message: "Title is required"}
	}
	if req.CommunityID == "" {
		return ValidationError{Field: "community_id", Message: "Community is required"}
	}
	if req.CityID == "" {
		return ValidationError{Field: "city_id", Message: "City is required"}
	}
	if req.Date.IsZero() {
		return ValidationError{Field: "date", Message: "Event date is required"}
	}
	if req.EndDate != nil && req.EndDate.Before(req.Date) {
		return ValidationError{Field: "end_date", Message: "End date cannot be before the start date"}
	}
	if req.Date.Before(time.Now()) {
		return ValidationError{Field: "date", Message: "Event date must be in the future"}
	}

	if !req.IsOnline && strings.TrimSpace(req.Venue) == "" {
		return ValidationError{Field: "venue", Message: "Venue is required for in-person events"}
	}

	typeValid := false
	for _, t := range validEventTypes {
		if req.EventType == t {
			typeValid = true
			break
		}
	}
	if !typeValid {
		return ValidationError{Field: "event_type", Message: "Invalid event type"}
	}

	if req.OrganizerEmail == "" {
		return ValidationError{Field: "organizer_email", Message: "Organizer email is required"}
	}
	if !strings.Contains(req.OrganizerEmail, "@") {
		return ValidationError{Field: "organizer_email", Message: "Invalid email address"}
	}

	if req.RegistrationURL != "" {
		if err := ValidateURL(req.RegistrationURL); err != nil {
			return ValidationError{Field: "registration_url", Message: "Invalid registration URL"}
		}
	}
	if req.BannerURL != nil && *req.BannerURL != "" {
		if err := ValidateURL(*req.BannerURL); err != nil {
			return ValidationError{Field: "banner_url", Message: "Invalid banner URL"}
		}
	}

	return nil
}

// ValidateURL validates a URL string
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return ValidationError{Field: "url", Message: "URL is required"}
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return ValidationError{Field: "url", Message: "Invalid URL format"}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return ValidationError{Field: "url", Message: "URL must have a host"}
	}

	return nil
}
