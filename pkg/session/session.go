package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/memory"
)

// IDLayout prefixes session ids with their start time. A random suffix
// keeps sessions started in the same second apart.
const IDLayout = "2006-01-02_15-04-05"

// Mode selects how a session's questions are answered.
type Mode string

const (
	// ModePlain answers from conversation memory only.
	ModePlain Mode = "plain"
	// ModeGrounded answers from memory plus documents retrieved from the index.
	ModeGrounded Mode = "grounded"
)

// Session is one conversation: its memory and its answering mode. A session
// starts plain and becomes grounded once documents are ingested for it; it
// never goes back.
type Session struct {
	ID        string
	CreatedAt time.Time
	Memory    *memory.Memory

	mu   sync.RWMutex
	mode Mode
}

func New(window int) *Session {
	id := time.Now().Format(IDLayout) + "-" + uuid.NewString()[:8]
	return NewWithID(id, window)
}

func NewWithID(id string, window int) *Session {
	created := time.Now()
	if len(id) >= len(IDLayout) {
		if t, err := time.ParseInLocation(IDLayout, id[:len(IDLayout)], time.Local); err == nil {
			created = t
		}
	}
	return &Session{
		ID:        id,
		CreatedAt: created,
		Memory:    memory.New(window),
		mode:      ModePlain,
	}
}

func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// EnableGrounded switches the session to grounded mode.
func (s *Session) EnableGrounded() {
	s.mu.Lock()
	s.mode = ModeGrounded
	s.mu.Unlock()
}

// SetMode changes the mode. Leaving grounded mode fails with
// models.ErrModeLocked.
func (s *Session) SetMode(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeGrounded && mode != ModeGrounded {
		return models.ErrModeLocked
	}
	s.mode = mode
	return nil
}
