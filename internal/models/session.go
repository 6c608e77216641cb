package models

import (
	"time"

	"github.com/segmentio/ksuid"
)

// Session represents an active WebSocket connection to a lab.
type Session struct {
	ID           string    `json:"id"`
	LabID        string    `json:"lab_id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// UserInfo represents a connected user as shown to collaborators.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"` // Hex color for cursor/highlight
}

// CursorPosition is a user's last known cursor location in canvas
// coordinates. This is ephemeral presence state, not canvas content.
type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewSession(labID, userID, userName string) *Session {
	return &Session{
		ID:           ksuid.New().String(),
		LabID:        labID,
		UserID:       userID,
		UserName:     userName,
		ConnectedAt:  time.Now(),
		LastActiveAt: time.Now(),
	}
}
