package model

import (
	"time"
)

// Report lifecycle statuses.
const (
	ReportStatusPending  = "pending"
	ReportStatusAnalyzed = "analyzed"
	ReportStatusFailed   = "failed"
)

// Report sources.
const (
	ReportSourceApp   = "app"
	ReportSourceAdmin = "admin"
	ReportSourceAPI   = "api"
)

// Review statuses set by an adviser.
const (
	ReviewStatusUnreviewed = "unreviewed"
	ReviewStatusApproved   = "approved"
	ReviewStatusRejected   = "rejected"
)

// Report a saved analysis run, kept for adviser review and verification
type Report struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Status      string `gorm:"not null;default:pending;index" json:"status"`
	Source      string `gorm:"not null;default:app;index" json:"source"`
	LLMProvider string `gorm:"column:llm_provider" json:"llm_provider"`
	ShareID     string `gorm:"index" json:"share_id,omitempty"`
	UserEmail   string `json:"user_email,omitempty"`

	TimelineData       string `gorm:"type:jsonb;not null" json:"timeline_data"`
	AnalysisResponse   string `gorm:"type:jsonb" json:"analysis_response,omitempty"`
	VerificationPrompt string `gorm:"type:text" json:"verification_prompt,omitempty"`

	NetCapitalGain *float64 `json:"net_capital_gain,omitempty"`

	ReviewStatus string     `gorm:"not null;default:unreviewed;index" json:"review_status"`
	ReviewNotes  string     `gorm:"type:text" json:"review_notes,omitempty"`
	VerifiedBy   string     `json:"verified_by,omitempty"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`

	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Report) TableName() string {
	return "reports"
}
