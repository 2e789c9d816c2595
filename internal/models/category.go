package models

import "time"

// Category 订阅类别（streaming、ai_tools、software 等）。
type Category struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string `gorm:"uniqueIndex;not null;type:varchar(64)" json:"name"`
	Icon        string `gorm:"type:varchar(64)" json:"icon"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}
