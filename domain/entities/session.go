package entities

import (
	"errors"
	"sync"
	"time"
)

// ConversationHistory is the append-only, ordered log of turns of one session.
// The session's consumption task is the only writer; readers take snapshots.
type ConversationHistory struct {
	mu    sync.RWMutex
	turns []ConversationTurn
}

// NewConversationHistory creates an empty history
func NewConversationHistory() *ConversationHistory {
	return &ConversationHistory{
		turns: make([]ConversationTurn, 0),
	}
}

// Append adds a turn at the end of the history
func (h *ConversationHistory) Append(turn ConversationTurn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
}

// Snapshot returns a copy of the turns in insertion order
func (h *ConversationHistory) Snapshot() []ConversationTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	turns := make([]ConversationTurn, len(h.turns))
	copy(turns, h.turns)
	return turns
}

// Len returns the number of turns recorded so far
func (h *ConversationHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Export builds the log of a finished session
func (h *ConversationHistory) Export(sessionID string, startTime, endTime time.Time) SessionLog {
	return SessionLog{
		SessionID:           sessionID,
		StartTime:           startTime,
		EndTime:             endTime,
		ConversationHistory: h.Snapshot(),
	}
}

// SessionLog is the complete record of a single training session
type SessionLog struct {
	SessionID           string             `json:"session_id"`
	StartTime           time.Time          `json:"start_time"`
	EndTime             time.Time          `json:"end_time"`
	ConversationHistory []ConversationTurn `json:"conversation_history"`
}

// Duration returns how long the session lasted
func (l SessionLog) Duration() time.Duration {
	return l.EndTime.Sub(l.StartTime)
}

// Validate validates the session log data
func (l SessionLog) Validate() error {
	if l.SessionID == "" {
		return errors.New("session_id is required")
	}
	if l.EndTime.Before(l.StartTime) {
		return errors.New("end_time must not be before start_time")
	}
	return nil
}
