package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

/*
COMMIT LOG

Relayed shape commits are persisted per lab so that a client joining an
active session can replay the lab's history and converge on the current
canvas before live traffic starts flowing.

Why persist commits?
- New clients sync the full canvas without asking a peer
- Server restart does not lose the drawing
- ShapeIDs column lets us query which commits touched a shape

The hub itself stays a stateless relay; persistence happens off the
broadcast hot path through the persister worker pool.
*/

// CommitRecord stores one relayed shape commit.
type CommitRecord struct {
	ID       string `gorm:"type:char(27);primaryKey" json:"id"`
	LabID    string `gorm:"type:char(27);not null;index:idx_lab_time" json:"lab_id"`
	AuthorID string `gorm:"type:text;not null" json:"author_id"`
	Seq      uint64 `gorm:"not null" json:"seq"`

	// Ops is the commit's operation list, serialized as JSON.
	Ops []byte `gorm:"type:jsonb;not null" json:"-"`

	// ShapeIDs indexes which shapes the commit touched.
	ShapeIDs pq.StringArray `gorm:"type:text[]" json:"shape_ids"`

	CreatedAt time.Time `gorm:"index:idx_lab_time" json:"created_at"`

	Lab *Lab `gorm:"foreignKey:LabID;references:ID" json:"lab,omitempty"`
}

// BeforeCreate generates KSUID
func (c *CommitRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = ksuid.New().String()
	}
	return nil
}

// TableName override
func (CommitRecord) TableName() string {
	return "commit_records"
}
