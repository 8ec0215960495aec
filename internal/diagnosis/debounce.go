package diagnosis

import (
	"sync"
	"time"

	"lechuga_bot_backend/platform/logger"
)

// Upload is the coalesced result of a debounce window: the most recent photo
// plus how many arrived during the window.
type Upload struct {
	ChatID      int64
	DisplayName string
	FileID      string
	Count       int
}

type pendingUpload struct {
	chatID      int64
	displayName string
	fileID      string
	count       int
	timer       *time.Timer
	running     bool
	lastSeen    time.Time
}

// FireFunc runs a classification attempt for the coalesced upload. It is
// called outside the scheduler lock and may block on network I/O.
type FireFunc func(userID int64, upload Upload)

// Scheduler coalesces bursts of photos from one user into a single attempt.
// Each new photo replaces the pending one and re-arms the quiescence timer;
// at most one timer exists per user.
type Scheduler struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[int64]*pendingUpload
	fire    FireFunc
	log     *logger.Logger
}

// NewScheduler creates a debounce scheduler. A zero window fires immediately
// while keeping the only-latest-photo contract for photos that arrive before
// the fire point.
func NewScheduler(window time.Duration, fire FireFunc, log *logger.Logger) *Scheduler {
	return &Scheduler{
		window:  window,
		pending: make(map[int64]*pendingUpload),
		fire:    fire,
		log:     log,
	}
}

// OnPhoto records fileID as the only candidate for the user's next attempt
// and (re)arms the quiescence timer.
func (s *Scheduler) OnPhoto(userID, chatID int64, displayName, fileID string) {
	s.mu.Lock()
	entry, exists := s.pending[userID]
	if !exists {
		entry = &pendingUpload{}
		s.pending[userID] = entry
	}
	entry.chatID = chatID
	entry.displayName = displayName
	entry.fileID = fileID
	entry.count++
	entry.lastSeen = time.Now().UTC()

	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.timer = time.AfterFunc(s.window, func() {
		s.trigger(userID)
	})

	s.log.Debug("debounce: photo queued",
		"user_id", userID,
		"count", entry.count,
		"running", entry.running,
		"window", s.window.String(),
	)
	s.mu.Unlock()
}

// Cancel drops the user's pending window without firing. An attempt already
// executing is allowed to complete.
func (s *Scheduler) Cancel(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[userID]
	if !ok {
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	if !entry.running {
		delete(s.pending, userID)
	}
}

func (s *Scheduler) trigger(userID int64) {
	s.mu.Lock()
	entry, ok := s.pending[userID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if entry.running {
		s.mu.Unlock()
		return
	}

	// A photo may have slipped in after this timer was armed but before it
	// fired. Wait out the remainder of its quiescence window.
	now := time.Now().UTC()
	if quietFor := now.Sub(entry.lastSeen); quietFor < s.window {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		entry.timer = time.AfterFunc(s.window-quietFor, func() {
			s.trigger(userID)
		})
		s.mu.Unlock()
		return
	}

	entry.running = true
	runStartedAt := now
	upload := Upload{
		ChatID:      entry.chatID,
		DisplayName: entry.displayName,
		FileID:      entry.fileID,
		Count:       entry.count,
	}
	entry.count = 0
	entry.timer = nil
	s.mu.Unlock()

	s.fire(userID, upload)

	s.mu.Lock()
	defer s.mu.Unlock()
	current, stillPresent := s.pending[userID]
	if !stillPresent {
		return
	}

	current.running = false
	if !current.lastSeen.After(runStartedAt) {
		delete(s.pending, userID)
		return
	}

	// New photos arrived while the attempt ran. Re-arm for the remainder of
	// their quiescence window.
	waitFor := s.window - time.Now().UTC().Sub(current.lastSeen)
	if waitFor < 0 {
		waitFor = 0
	}
	if current.timer != nil {
		current.timer.Stop()
	}
	current.timer = time.AfterFunc(waitFor, func() {
		s.trigger(userID)
	})
	s.log.Debug("debounce: re-armed after run", "user_id", userID, "wait", waitFor.String())
}
