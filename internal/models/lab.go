package models

import (
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// Lab is one collaborative canvas room. Shapes themselves live in each
// client's canvas store and in the commit log; the lab row only carries
// workspace metadata.
//
// KSUID ids sort by creation time and keep the primary key index
// sequential, unlike random UUIDs.
type Lab struct {
	ID          string         `json:"id" gorm:"type:char(27);primaryKey"`
	WorkspaceID string         `json:"workspace_id" gorm:"type:char(27);index;not null"`
	Name        string         `json:"name" gorm:"type:text;not null"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"` // Soft delete support
}

// LabCreate is the request payload for creating a lab.
type LabCreate struct {
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
}

// BeforeCreate hook generates KSUID before inserting
func (l *Lab) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = ksuid.New().String()
	}
	return nil
}
