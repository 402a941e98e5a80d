// Package store persists agentline sessions and inbound message records.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ndomo/agentline/internal/models"
	"gorm.io/gorm"
)

// ErrDuplicateMessage reports that an inbound message with the same provider
// message ID was already recorded. The webhook treats it as a no-op.
var ErrDuplicateMessage = errors.New("store: duplicate message")

// ErrSessionNotFound reports that no session exists for a phone number.
var ErrSessionNotFound = errors.New("store: session not found")

// StateAwaitingLogin is the initial state for new and reset sessions.
// It mirrors engine.StateAwaitingLogin; duplicated here so the store does
// not depend on the engine package.
const StateAwaitingLogin = "AWAITING_LOGIN"

// Store provides session persistence plus per-phone mutual exclusion.
// A session's state and context are not safe for concurrent read-modify-write,
// so callers must hold the phone's lock for the whole handle cycle.
type Store struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex // key: phone number
}

// New creates a Store.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	return &Store{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Lock acquires the per-phone mutex and returns its release func. Messages
// from different phone numbers proceed concurrently; two handlers for the
// same phone number are serialized.
func (s *Store) Lock(phone string) func() {
	s.mu.Lock()
	m, ok := s.locks[phone]
	if !ok {
		m = &sync.Mutex{}
		s.locks[phone] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// FindOrCreate loads the session for a phone number, creating it in the
// initial state on first contact. The session is marked active and its
// last-activity timestamp refreshed.
func (s *Store) FindOrCreate(phone string) (*models.Session, error) {
	var sess models.Session
	err := s.db.Where("phone_number = ?", phone).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sess = models.Session{
			PhoneNumber:  phone,
			State:        StateAwaitingLogin,
			Context:      "{}",
			Active:       true,
			LastActivity: time.Now(),
		}
		if err := s.db.Create(&sess).Error; err != nil {
			// Lost a race with a concurrent first message — reload.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				if err2 := s.db.Where("phone_number = ?", phone).First(&sess).Error; err2 != nil {
					return nil, fmt.Errorf("store: reload session %s: %w", phone, err2)
				}
				return &sess, nil
			}
			return nil, fmt.Errorf("store: create session %s: %w", phone, err)
		}
		return &sess, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find session %s: %w", phone, err)
	}
	return &sess, nil
}

// Save persists the session's state, context and liveness fields, touching
// the last-activity timestamp.
func (s *Store) Save(sess *models.Session) error {
	sess.LastActivity = time.Now()
	sess.Active = true
	if err := s.db.Save(sess).Error; err != nil {
		return fmt.Errorf("store: save session %s: %w", sess.PhoneNumber, err)
	}
	return nil
}

// RecordInbound inserts an inbound message row. The unique constraint on the
// provider message ID makes the insert atomic dedup: a replayed webhook event
// fails with ErrDuplicateMessage and must not be processed again.
func (s *Store) RecordInbound(sessionID, providerMsgID, msgType, content string) error {
	msg := models.MessageLog{
		SessionID:         sessionID,
		ProviderMessageID: providerMsgID,
		Direction:         "incoming",
		MessageType:       msgType,
		Content:           content,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateMessage
		}
		return fmt.Errorf("store: record inbound %s: %w", providerMsgID, err)
	}
	return nil
}

// Reset forces a session back to the login state with an empty context and
// no agent reference. Used for manual recovery and tests, not normal flow.
func (s *Store) Reset(phone string) error {
	result := s.db.Model(&models.Session{}).
		Where("phone_number = ?", phone).
		Updates(map[string]interface{}{
			"state":         StateAwaitingLogin,
			"context":       "{}",
			"agent_id":      nil,
			"active":        true,
			"last_activity": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("store: reset session %s: %w", phone, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Active returns active sessions ordered most-recent-first, capped at limit.
func (s *Store) Active(limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []models.Session
	err := s.db.Where("active = ?", true).
		Order("last_activity DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("store: list active sessions: %w", err)
	}
	return sessions, nil
}

// MarkIdle flips the active flag on sessions whose last activity is older
// than the cutoff. State and context are untouched; an inbound message
// re-activates the session on the next Save.
func (s *Store) MarkIdle(cutoff time.Time) (int64, error) {
	result := s.db.Model(&models.Session{}).
		Where("active = ? AND last_activity < ?", true, cutoff).
		Update("active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("store: mark idle: %w", result.Error)
	}
	return result.RowsAffected, nil
}
