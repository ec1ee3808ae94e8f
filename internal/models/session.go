package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the position of a session in the question lifecycle.
type State string

const (
	StateIdle              State = "idle"
	StateAwaitingResponses State = "awaiting_responses"
	StatePresenting        State = "presenting"
	StateAwaitingVote      State = "awaiting_vote"
	StatePersisted         State = "persisted"
)

// Session is the per-user context: history, votes and admin flag live here
// rather than in package state so sessions cannot leak into each other.
// Callers hold Mu while reading or mutating fields. Votes maps question text
// to the chosen model for this process only and is never persisted.
// LastSeen is the last time a request touched the session; Closed is set
// once the manager has dropped it from memory.
type Session struct {
	ID            string
	History       []Turn
	Votes         map[string]string
	AdminGranted  bool
	State         State
	Pending       *Turn
	LastSaveError string
	LastLoadError string
	LastSeen      time.Time
	Closed        bool
	Mu            sync.Mutex
}

// NewSession returns an empty session with a fresh random identifier.
func NewSession() *Session {
	return NewSessionWithID(uuid.New().String(), nil)
}

// NewSessionWithID rebuilds a session context around stored history.
func NewSessionWithID(id string, history []Turn) *Session {
	if history == nil {
		history = []Turn{}
	}
	return &Session{
		ID:      id,
		History: history,
		Votes:   make(map[string]string),
		State:   StateIdle,
	}
}

// Snapshot is a copy of the session fields safe to hand to encoders.
type Snapshot struct {
	ID      string `json:"sessionId"`
	State   State  `json:"state"`
	History []Turn `json:"history"`
	Pending *Turn  `json:"pending,omitempty"`
}

// Snapshot copies the session under its lock. The pending turn is copied
// too because voting later writes through the session's pointer to it.
func (s *Session) Snapshot() Snapshot {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	history := make([]Turn, len(s.History))
	copy(history, s.History)
	snap := Snapshot{ID: s.ID, State: s.State, History: history}
	if s.Pending != nil {
		pending := *s.Pending
		snap.Pending = &pending
	}
	return snap
}
