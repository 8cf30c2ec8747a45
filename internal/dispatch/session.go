// internal/dispatch/session.go
package dispatch

import (
	"fmt"
	"sync"

	"invoicing-dashboard/internal/view"
)

// Mode is the coarse presentation mode of the dashboard.
type Mode string

const (
	ModeEmpty     Mode = "empty"
	ModeLoading   Mode = "loading"
	ModeDashboard Mode = "dashboard"
)

// AgentStatus drives the status indicator.
type AgentStatus string

const (
	StatusIdle      AgentStatus = "idle"
	StatusListening AgentStatus = "listening"
	StatusThinking  AgentStatus = "thinking"
	StatusLoading   AgentStatus = "loading"
	StatusSuccess   AgentStatus = "success"
	StatusError     AgentStatus = "error"
)

// State is the renderer-visible UI session state. In-memory only, one
// active session, no persistence.
type State struct {
	Mode        Mode        `json:"mode"`
	AgentStatus AgentStatus `json:"agentStatus"`
	ActiveView  view.View   `json:"activeView"`
	DataLoading bool        `json:"dataLoading"`
	DataLoaded  bool        `json:"dataLoaded"`
	Input       string      `json:"input"`
}

func initialState() State {
	return State{
		Mode:        ModeEmpty,
		AgentStatus: StatusIdle,
		ActiveView:  view.ViewNone,
		DataLoading: false,
		DataLoaded:  false,
	}
}

// Valid reports whether the state satisfies the session invariants:
// an empty mode never shows a view, and data loading only happens in
// loading mode.
func (s State) Valid() error {
	if s.Mode == ModeEmpty && s.ActiveView != view.ViewNone {
		return fmt.Errorf("mode=empty with activeView=%s", s.ActiveView)
	}
	if s.DataLoading && s.Mode != ModeLoading {
		return fmt.Errorf("dataLoading=true with mode=%s", s.Mode)
	}
	return nil
}

// Session owns the state. Fields are mutated exclusively through the
// machine's transition function; the renderer only reads snapshots.
type Session struct {
	mu    sync.Mutex
	state State
}

func NewSession() *Session {
	return &Session{state: initialState()}
}

// Snapshot returns a copy of the current state. Multi-field transitions
// happen under the session lock, so a snapshot never observes a state that
// violates the invariants.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetInput records the chat input buffer.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Input = text
}

func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = initialState()
}
