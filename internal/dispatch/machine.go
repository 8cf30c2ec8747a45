// internal/dispatch/machine.go
package dispatch

import (
	"context"
	"strings"
	"time"

	stderrors "invoicing-dashboard/internal/common/errors"
	"invoicing-dashboard/internal/common/logger"
	"invoicing-dashboard/internal/common/metrics"
	"invoicing-dashboard/internal/intent"
	"invoicing-dashboard/internal/intent/resolver"
	"invoicing-dashboard/internal/view"
)

// Resolver is the single resolve step the machine drives; satisfied by
// resolver.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, utterance string) (*resolver.Resolved, error)
}

// Config holds the machine's pacing. Both delays are cosmetic timers,
// decoupled from real data readiness; tests set them to zero.
type Config struct {
	// ThinkingDelay is held after entering the thinking state before the
	// classification result is acted on.
	ThinkingDelay time.Duration
	// LoadingDelay simulates the view's data fetch before the dashboard
	// is shown.
	LoadingDelay time.Duration
}

// Machine sequences the status transitions of one session:
// idle → thinking → loading → dashboard | error, plus reset.
//
// A second Submit while an earlier one is still pacing supersedes it:
// every Submit takes a fresh token and a superseded submit stops writing
// state the moment it observes a newer one (cancel-and-replace,
// last-submit-wins).
type Machine struct {
	config   Config
	session  *Session
	resolver Resolver
	logger   logger.Logger

	seq uint64 // guarded by session.mu
}

func NewMachine(config Config, session *Session, res Resolver, log logger.Logger) *Machine {
	return &Machine{
		config:   config,
		session:  session,
		resolver: res,
		logger: log.WithFields(map[string]interface{}{
			"component": "dispatch",
		}),
	}
}

// Session exposes the machine's session for read-only snapshots.
func (m *Machine) Session() *Session {
	return m.session
}

// Reset returns the session to its initial state atomically, from any
// state. In-flight submits are superseded and abandon their writes.
func (m *Machine) Reset() {
	m.session.mu.Lock()
	m.seq++
	m.session.state = initialState()
	m.session.mu.Unlock()
}

// Submit resolves one utterance and mutates the session through its
// status sequence; all effects are observable via Session snapshots.
// An empty or whitespace-only utterance is rejected before any state
// change. Submit blocks for the configured pacing delays and returns
// once a terminal branch is reached.
func (m *Machine) Submit(ctx context.Context, utterance string) error {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return stderrors.NewInputEmptyError()
	}

	token := m.begin()

	if !m.transition(token, func(s *State) {
		s.AgentStatus = StatusThinking
	}) {
		return nil
	}

	// Perceptual dwell, not a technical wait: proceeds regardless of
	// whether the classification call has already settled.
	m.pause(ctx, m.config.ThinkingDelay)

	resolved, err := m.resolver.Resolve(ctx, trimmed)

	defer m.clearInput(token)

	switch {
	case err != nil:
		m.dispatchFallback(ctx, token, trimmed, err)
	case resolved.Intent == intent.None:
		m.dispatchNone(token, resolved)
	default:
		m.dispatchIntent(ctx, token, resolved)
	}

	return nil
}

// dispatchFallback handles classifier failure: availability over
// correctness. The error is shown transiently, then the regex backstop
// picks a view so the user still lands somewhere useful.
func (m *Machine) dispatchFallback(ctx context.Context, token uint64, utterance string, cause error) {
	m.logger.WithError(cause).Warn("classification failed, using fallback resolver", map[string]interface{}{
		"utterance": utterance,
	})

	if !m.transition(token, func(s *State) {
		s.AgentStatus = StatusError
	}) {
		return
	}

	fallbackView := view.Fallback(utterance)
	metrics.FallbackRoutes.WithLabelValues(string(fallbackView)).Inc()

	m.transition(token, func(s *State) {
		s.ActiveView = fallbackView
		s.Mode = ModeDashboard
		s.DataLoading = false
		s.DataLoaded = true
		s.AgentStatus = StatusSuccess
	})
}

// dispatchNone handles an unmapped utterance: correctness first. The
// session stays on whatever it was showing; the user must rephrase.
func (m *Machine) dispatchNone(token uint64, resolved *resolver.Resolved) {
	m.logger.Info("utterance not mapped to an intent", map[string]interface{}{
		"utterance": resolved.NormalizedUtterance,
	})

	m.transition(token, func(s *State) {
		s.AgentStatus = StatusError
	})
}

func (m *Machine) dispatchIntent(ctx context.Context, token uint64, resolved *resolver.Resolved) {
	activeView := view.RouteFor(resolved.Intent)

	if !m.transition(token, func(s *State) {
		s.AgentStatus = StatusLoading
		s.Mode = ModeLoading
		s.DataLoading = true
		s.ActiveView = activeView
	}) {
		return
	}

	// Simulated data fetch; the views load their own data independently.
	m.pause(ctx, m.config.LoadingDelay)

	m.transition(token, func(s *State) {
		s.Mode = ModeDashboard
		s.DataLoading = false
		s.DataLoaded = true
		s.AgentStatus = StatusSuccess
	})
}

// begin claims a new request token, superseding any in-flight submit.
func (m *Machine) begin() uint64 {
	m.session.mu.Lock()
	defer m.session.mu.Unlock()
	m.seq++
	return m.seq
}

// transition applies fn to the state iff token is still current. Returns
// false when this submit has been superseded and must stop.
func (m *Machine) transition(token uint64, fn func(*State)) bool {
	m.session.mu.Lock()
	defer m.session.mu.Unlock()
	if token != m.seq {
		return false
	}
	fn(&m.session.state)
	return true
}

// clearInput empties the input buffer once a submit completes, on every
// branch.
func (m *Machine) clearInput(token uint64) {
	m.transition(token, func(s *State) {
		s.Input = ""
	})
}

func (m *Machine) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
