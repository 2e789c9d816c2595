package models

import "time"

// Report states.
const (
	ReportStatusPending     = "pending"
	ReportStatusUnderReview = "under_review"
	ReportStatusResolved    = "resolved"
	ReportStatusDismissed   = "dismissed"
)

// Report 用户举报。针对用户或群组，至少填写其中一个。
type Report struct {
	ID              string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ReporterID      string `gorm:"index;not null;type:varchar(64)" json:"reporter_id"`
	ReportedUserID  string `gorm:"index;type:varchar(64)" json:"reported_user_id"`
	ReportedGroupID string `gorm:"index;type:varchar(64)" json:"reported_group_id"`
	Reason          string `gorm:"not null;type:varchar(64)" json:"reason"`
	Description     string `gorm:"not null" json:"description"`
	Status          string `gorm:"not null;default:'pending';type:varchar(16)" json:"status"`
	AdminNotes      string `json:"admin_notes"`

	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

func (Report) TableName() string {
	return "reports"
}
