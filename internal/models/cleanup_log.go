package models

import "time"

// CleanupAction tags the kind of maintenance run recorded in a cleanup log.
type CleanupAction string

const (
	CleanupActionDailySweep    CleanupAction = "daily_cleanup"
	CleanupActionManualSweep   CleanupAction = "manual_cleanup"
	CleanupActionSingleArchive CleanupAction = "single_archive"
)

// CleanupLog is one audit record of an archival run. Result carries the
// structured outcome of the run; Error is set when the run failed.
type CleanupLog struct {
	ID         string                 `json:"id"`
	Action     CleanupAction          `json:"action"`
	Result     map[string]interface{} `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	ExecutedAt time.Time              `json:"executed_at"`
}
