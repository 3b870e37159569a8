package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"volleysim/internal/game"
	"volleysim/internal/game/volleyball"
)

// Status represents the match lifecycle.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPlaying   Status = "playing"
	StatusFinished  Status = "finished"
	StatusAbandoned Status = "abandoned"
)

// MaxSpectators caps the connections watching one match.
const MaxSpectators = 64

// Spectator is a connected viewer.
type Spectator struct {
	ID   string
	Send chan []byte // outbound messages
}

// SideConfig names a team and the strategies playing it.
type SideConfig struct {
	Team    string `json:"team"`
	Players string `json:"players"`
	Manager string `json:"manager"`
}

// strategy is the form stored in the matches table.
func (c SideConfig) strategy() string { return c.Players + "/" + c.Manager }

// Session is one simulated match and the spectators watching it.
type Session struct {
	mu         sync.RWMutex
	ID         string
	Home       SideConfig
	Away       SideConfig
	Seed       int64
	Status     Status
	CreatedAt  time.Time
	Spectators map[string]*Spectator

	frame   *game.Frame
	summary *volleyball.Summary
	done    chan struct{}
}

// NewSession creates a session in the waiting state.
func NewSession(id string, home, away SideConfig, seed int64) *Session {
	return &Session{
		ID:         id,
		Home:       home,
		Away:       away,
		Seed:       seed,
		Status:     StatusWaiting,
		CreatedAt:  time.Now(),
		Spectators: make(map[string]*Spectator),
		done:       make(chan struct{}),
	}
}

// AddSpectator registers a viewer. Returns error if full or already present.
func (s *Session) AddSpectator(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Spectators) >= MaxSpectators {
		return fmt.Errorf("session is full")
	}
	if _, exists := s.Spectators[id]; exists {
		return fmt.Errorf("spectator %s already watching", id)
	}
	s.Spectators[id] = &Spectator{
		ID:   id,
		Send: make(chan []byte, 64),
	}
	return nil
}

// RemoveSpectator drops a viewer and closes its channel.
func (s *Session) RemoveSpectator(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp, ok := s.Spectators[id]; ok {
		close(sp.Send)
		delete(s.Spectators, id)
	}
}

// GetSpectator returns a viewer, or nil if not found.
func (s *Session) GetSpectator(id string) *Spectator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Spectators[id]
}

// SpectatorIDs returns the viewer ids.
func (s *Session) SpectatorIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spectatorIDsLocked()
}

func (s *Session) spectatorIDsLocked() []string {
	ids := make([]string, 0, len(s.Spectators))
	for id := range s.Spectators {
		ids = append(ids, id)
	}
	return ids
}

// begin transitions the session from waiting to playing.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status != StatusWaiting {
		return fmt.Errorf("session is not in waiting state")
	}
	s.Status = StatusPlaying
	return nil
}

func (s *Session) record(f game.Frame) {
	s.mu.Lock()
	s.frame = &f
	s.mu.Unlock()
}

// Finish marks the session as finished with its final summary.
func (s *Session) Finish(sum volleyball.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusFinished
	s.summary = &sum
	s.closeDone()
}

// Abandon marks a session that can no longer complete. Finished sessions
// are left alone.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status == StatusFinished {
		return
	}
	s.Status = StatusAbandoned
	s.closeDone()
}

func (s *Session) closeDone() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Done is closed once the session is finished or abandoned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Summary returns the final summary once the match is finished.
func (s *Session) Summary() (volleyball.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary == nil {
		return volleyball.Summary{}, false
	}
	return *s.summary, true
}

// Broadcast sends a message to all connected spectators.
func (s *Session) Broadcast(msg []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sp := range s.Spectators {
		select {
		case sp.Send <- msg:
		default:
			// drop message if buffer full
		}
	}
}

// Deliver sends msg to every spectator, waiting up to timeout in total for
// full buffers to drain. Once the time is up the rest is sent like Broadcast.
func (s *Session) Deliver(msg []byte, timeout time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	expired := false
	for _, sp := range s.Spectators {
		if expired {
			select {
			case sp.Send <- msg:
			default:
			}
			continue
		}
		select {
		case sp.Send <- msg:
		case <-timer.C:
			expired = true
		}
	}
}

// Info is the session view returned by the API.
type Info struct {
	ID         string      `json:"id"`
	Home       SideConfig  `json:"home"`
	Away       SideConfig  `json:"away"`
	Seed       int64       `json:"seed"`
	Status     Status      `json:"status"`
	Spectators []string    `json:"spectators"`
	Frame      *game.Frame `json:"frame,omitempty"`
}

func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := Info{
		ID:         s.ID,
		Home:       s.Home,
		Away:       s.Away,
		Seed:       s.Seed,
		Status:     s.Status,
		Spectators: s.spectatorIDsLocked(),
	}
	if s.frame != nil {
		f := *s.frame
		info.Frame = &f
	}
	return info
}

// Message is the JSON envelope pushed to spectators.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps payload in a Message.
func Encode(msgType string, payload any) []byte {
	p, _ := json.Marshal(payload)
	msg, _ := json.Marshal(Message{Type: msgType, Payload: p})
	return msg
}
