// Package diagnosis implements the per-user diagnosis attempt: debounced
// photo intake, the survey dialogue, verdict reconciliation, and cleanup.
package diagnosis

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Location is the cultivation location chosen at the end of the survey.
type Location int

const (
	LocationUnset Location = iota
	LocationHydroponic
	LocationSubstrate
)

// Code returns the storage code for a location. Treatment records are keyed
// by these codes.
func (l Location) Code() int {
	switch l {
	case LocationHydroponic:
		return 1
	case LocationSubstrate:
		return 2
	default:
		return 0
	}
}

func (l Location) String() string {
	switch l {
	case LocationHydroponic:
		return "hidroponia"
	case LocationSubstrate:
		return "sustrato"
	default:
		return "sin definir"
	}
}

// SurveyState is the dialogue engine state for one attempt.
type SurveyState int

const (
	// StateIdle means no survey is in progress.
	StateIdle SurveyState = iota
	// StateAwaitingQuestion means the user was asked question Session.Question.
	StateAwaitingQuestion
	// StateAwaitingLocation means all questions are done and the location
	// prompt was sent.
	StateAwaitingLocation
	// StateComplete means the survey finished and the tabular classifier
	// may run.
	StateComplete
)

// ImageVerdict is the cached image-classifier output, consumed exactly once
// by the reconciler.
type ImageVerdict struct {
	RawText      string
	Label        string
	Distribution map[string]float64
	ImagePath    string
}

// Session is the per-user state for one diagnosis attempt. It exists from a
// successful image classification until finalization.
type Session struct {
	UserID      int64
	ChatID      int64
	DisplayName string
	AttemptID   uuid.UUID

	Verdict *ImageVerdict

	State         SurveyState
	Question      int // 1-indexed ordinal of the pending question
	QuestionCount int
	Answers       map[int]string
	QuestionTexts map[int]string
	Location      Location

	// PendingQuestionText is the sanitized text of the question the user is
	// currently answering; it moves into QuestionTexts when answered.
	PendingQuestionText string
	// PendingMessageID is the message carrying the current question's
	// keyboard, edited when the answer arrives.
	PendingMessageID int64

	StartedAt time.Time
}

// Store holds active sessions keyed by user ID. All mutation happens under
// the store lock so a terminal action never races an inbound event for the
// same user.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Create replaces any existing session for the user with a fresh one.
func (s *Store) Create(userID, chatID int64, displayName string, verdict *ImageVerdict) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		UserID:        userID,
		ChatID:        chatID,
		DisplayName:   displayName,
		AttemptID:     uuid.New(),
		Verdict:       verdict,
		State:         StateIdle,
		Answers:       make(map[int]string),
		QuestionTexts: make(map[int]string),
		StartedAt:     time.Now().UTC(),
	}
	s.sessions[userID] = sess
	return sess
}

// Update runs fn with the user's session under the store lock. Returns false
// when no session exists; fn is not called in that case.
func (s *Store) Update(userID int64, fn func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	fn(sess)
	return true
}

// Snapshot returns a copy of the user's session. The maps in the copy are
// shared; callers must not mutate them.
func (s *Store) Snapshot(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Delete removes and returns the user's session. Idempotent: a second call
// returns nil.
func (s *Store) Delete(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[userID]
	delete(s.sessions, userID)
	return sess
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
