// Package models defines the GORM entities persisted by agentline.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is the per-phone-number conversation state. The phone number is
// the unique key; the Context column carries the serialized flow context
// that survives between webhook calls. Sessions are never deleted — a reset
// returns them to the login state with an empty context.
type Session struct {
	ID           string    `gorm:"primaryKey;size:36"`
	PhoneNumber  string    `gorm:"size:20;uniqueIndex;not null"`
	State        string    `gorm:"size:50;not null;default:AWAITING_LOGIN"`
	Context      string    `gorm:"type:json"`
	AgentID      *int      `gorm:"index"` // weak reference to the backend agent record
	Active       bool      `gorm:"default:true;index"`
	LastActivity time.Time `gorm:"index"`
	CreatedAt    time.Time

	Messages []MessageLog `gorm:"foreignKey:SessionID"`
}

// BeforeCreate assigns a UUID primary key.
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// MessageLog records a single inbound WhatsApp message. The unique index on
// ProviderMessageID is the dedup mechanism: inserting a replayed webhook
// event fails with a duplicate-key error and the event is dropped.
type MessageLog struct {
	ID                string `gorm:"primaryKey;size:36"`
	SessionID         string `gorm:"size:36;not null;index"`
	ProviderMessageID string `gorm:"size:100;uniqueIndex;not null"`
	Direction         string `gorm:"size:10;not null"` // "incoming" or "outgoing"
	MessageType       string `gorm:"size:20"`
	Content           string `gorm:"type:json"`
	CreatedAt         time.Time

	Session Session `gorm:"foreignKey:SessionID"`
}

// BeforeCreate assigns a UUID primary key.
func (m *MessageLog) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
