package models

import "time"

// DuplicateStatus is the review state of a duplicate-community candidate.
type DuplicateStatus string

const (
	DuplicateStatusPending            DuplicateStatus = "pending"
	DuplicateStatusMergeApproved      DuplicateStatus = "merge_approved"
	DuplicateStatusKeepSeparate       DuplicateStatus = "keep_separate"
	DuplicateStatusNeedsInvestigation DuplicateStatus = "needs_investigation"
)

// ScoreBreakdown holds the per-signal components behind a similarity score.
// Scores are produced by the external duplicate detector.
type ScoreBreakdown struct {
	NameScore     float64 `json:"name_score"`
	LocationScore float64 `json:"location_score"`
	WebsiteScore  float64 `json:"website_score"`
	ContactScore  float64 `json:"contact_score"`
	SocialScore   float64 `json:"social_score"`
}

// DuplicateCandidate is a detector-flagged pair of communities awaiting an
// admin decision.
type DuplicateCandidate struct {
	ID                    string          `json:"id"`
	OriginalCommunityID   string          `json:"original_community_id"`
	OriginalCommunityName string          `json:"original_community_name"`
	DuplicateCommunityID  string          `json:"duplicate_community_id"`
	DuplicateCommunityName string         `json:"duplicate_community_name"`
	SimilarityScore       float64         `json:"similarity_score"`
	ScoreBreakdown        ScoreBreakdown  `json:"score_breakdown"`
	WebsiteMatch          bool            `json:"website_match"`
	OrganizerEmailMatch   bool            `json:"organizer_email_match"`
	OrganizerPhoneMatch   bool            `json:"organizer_phone_match"`
	SocialMediaMatch      bool            `json:"social_media_match"`
	AdminStatus           DuplicateStatus `json:"admin_status"`
	AdminNotes            string          `json:"admin_notes,omitempty"`
	ReviewedBy            string          `json:"reviewed_by,omitempty"`
	ReviewedAt            *time.Time      `json:"reviewed_at,omitempty"`
	DetectedAt            time.Time       `json:"detected_at"`
}
