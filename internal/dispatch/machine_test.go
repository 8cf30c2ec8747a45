// internal/dispatch/machine_test.go
package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "invoicing-dashboard/internal/common/errors"
	"invoicing-dashboard/internal/common/logger"
	"invoicing-dashboard/internal/intent"
	"invoicing-dashboard/internal/intent/classifier"
	"invoicing-dashboard/internal/intent/resolver"
	"invoicing-dashboard/internal/view"
)

// ==========================
// Test Helpers
// ==========================

// stubResolver returns a fixed result, optionally blocking until released.
type stubResolver struct {
	resolved *resolver.Resolved
	err      error
	block    chan struct{}
}

func (s *stubResolver) Resolve(ctx context.Context, utterance string) (*resolver.Resolved, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
		}
	}
	return s.resolved, s.err
}

func newTestMachine(t *testing.T, res Resolver) *Machine {
	t.Helper()
	return NewMachine(Config{}, NewSession(), res, logger.NewTestLogger(t))
}

func resolvedIntent(name intent.Name, params resolver.Params) *resolver.Resolved {
	return &resolver.Resolved{
		Intent:              name,
		NormalizedUtterance: "normalized",
		Confidence:          0.9,
		Params:              params,
	}
}

// ==========================
// Submit Tests
// ==========================

func TestMachine_Submit_HappyPath(t *testing.T) {
	res := &stubResolver{
		resolved: resolvedIntent(intent.ShowInvoices, resolver.ShowInvoicesParams{PeriodDays: 90}),
	}
	m := newTestMachine(t, res)
	m.Session().SetInput("show me invoices for 90 days")

	err := m.Submit(context.Background(), "show me invoices for 90 days")
	require.NoError(t, err)

	state := m.Session().Snapshot()
	assert.Equal(t, ModeDashboard, state.Mode)
	assert.Equal(t, StatusSuccess, state.AgentStatus)
	assert.Equal(t, view.ViewInvoices, state.ActiveView)
	assert.False(t, state.DataLoading)
	assert.True(t, state.DataLoaded)
	assert.Empty(t, state.Input)
	assert.NoError(t, state.Valid())
}

func TestMachine_Submit_ViewPerIntent(t *testing.T) {
	tests := []struct {
		name     string
		resolved *resolver.Resolved
		want     view.View
	}{
		{
			name:     "show_invoices lands on invoices",
			resolved: resolvedIntent(intent.ShowInvoices, resolver.ShowInvoicesParams{}),
			want:     view.ViewInvoices,
		},
		{
			name:     "open_invoice lands on invoice details",
			resolved: resolvedIntent(intent.OpenInvoice, resolver.OpenInvoiceParams{BusinessID: "INV-1047"}),
			want:     view.ViewInvoiceDetails,
		},
		{
			name:     "top_debtors lands on debtors",
			resolved: resolvedIntent(intent.TopDebtors, resolver.TopDebtorsParams{Limit: 10}),
			want:     view.ViewDebtors,
		},
		{
			name:     "create_invoice lands on wizard",
			resolved: resolvedIntent(intent.CreateInvoice, resolver.CreateInvoiceParams{}),
			want:     view.ViewWizard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, &stubResolver{resolved: tt.resolved})

			require.NoError(t, m.Submit(context.Background(), "do the thing"))

			state := m.Session().Snapshot()
			assert.Equal(t, tt.want, state.ActiveView)
			assert.Equal(t, StatusSuccess, state.AgentStatus)
		})
	}
}

func TestMachine_Submit_EmptyInput(t *testing.T) {
	tests := []string{"", "   ", "\n\t "}

	for _, input := range tests {
		t.Run("input "+input, func(t *testing.T) {
			m := newTestMachine(t, &stubResolver{})

			err := m.Submit(context.Background(), input)

			require.Error(t, err)
			var stdErr *stderrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, stderrors.ErrCodeInputEmpty, stdErr.Code)

			// No state change at all.
			assert.Equal(t, initialState(), m.Session().Snapshot())
		})
	}
}

func TestMachine_Submit_UnmappedUtterance(t *testing.T) {
	res := &stubResolver{
		resolved: &resolver.Resolved{
			Intent:              intent.None,
			NormalizedUtterance: "purple monkey dishwasher",
			Confidence:          0,
			Params:              resolver.NoneParams{},
		},
	}
	m := newTestMachine(t, res)

	require.NoError(t, m.Submit(context.Background(), "purple monkey dishwasher"))

	state := m.Session().Snapshot()
	assert.Equal(t, StatusError, state.AgentStatus)
	assert.Equal(t, ModeEmpty, state.Mode)
	assert.Equal(t, view.ViewNone, state.ActiveView)
	assert.NoError(t, state.Valid())
}

func TestMachine_Submit_UnmappedKeepsCurrentView(t *testing.T) {
	res := &stubResolver{
		resolved: resolvedIntent(intent.TopDebtors, resolver.TopDebtorsParams{Limit: 10}),
	}
	m := newTestMachine(t, res)
	require.NoError(t, m.Submit(context.Background(), "top debtors"))

	res.resolved = &resolver.Resolved{
		Intent:              intent.None,
		NormalizedUtterance: "gibberish",
		Params:              resolver.NoneParams{},
	}
	require.NoError(t, m.Submit(context.Background(), "gibberish"))

	state := m.Session().Snapshot()
	assert.Equal(t, view.ViewDebtors, state.ActiveView)
	assert.Equal(t, ModeDashboard, state.Mode)
	assert.Equal(t, StatusError, state.AgentStatus)
}

func TestMachine_Submit_FallbackOnClassifierFailure(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		cause     error
		wantView  view.View
	}{
		{
			name:      "unavailable routes by keywords",
			utterance: "open inv-1047",
			cause:     classifier.ErrUnavailable,
			wantView:  view.ViewInvoiceDetails,
		},
		{
			name:      "malformed output routes by keywords",
			utterance: "top debtors",
			cause:     &classifier.MalformedError{Raw: "not json"},
			wantView:  view.ViewDebtors,
		},
		{
			name:      "unmatchable text defaults to invoices",
			utterance: "hello there",
			cause:     classifier.ErrUnavailable,
			wantView:  view.ViewInvoices,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, &stubResolver{err: tt.cause})

			require.NoError(t, m.Submit(context.Background(), tt.utterance))

			state := m.Session().Snapshot()
			assert.Equal(t, tt.wantView, state.ActiveView)
			assert.Equal(t, ModeDashboard, state.Mode)
			assert.Equal(t, StatusSuccess, state.AgentStatus)
			assert.True(t, state.DataLoaded)
			assert.NoError(t, state.Valid())
		})
	}
}

func TestMachine_Submit_ClearsInputOnEveryBranch(t *testing.T) {
	tests := []struct {
		name string
		res  *stubResolver
	}{
		{"mapped intent", &stubResolver{resolved: resolvedIntent(intent.ShowInvoices, resolver.ShowInvoicesParams{})}},
		{"unmapped", &stubResolver{resolved: &resolver.Resolved{Intent: intent.None, Params: resolver.NoneParams{}}}},
		{"classifier failure", &stubResolver{err: classifier.ErrUnavailable}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, tt.res)
			m.Session().SetInput("typed text")

			require.NoError(t, m.Submit(context.Background(), "typed text"))

			assert.Empty(t, m.Session().Snapshot().Input)
		})
	}
}

// ==========================
// Supersession Tests
// ==========================

// switchingResolver blocks the first utterance until released and answers
// the second immediately, so two submits can overlap deterministically.
type switchingResolver struct {
	release chan struct{}
}

func (r *switchingResolver) Resolve(ctx context.Context, utterance string) (*resolver.Resolved, error) {
	if utterance == "show invoices" {
		select {
		case <-r.release:
		case <-ctx.Done():
		}
		return resolvedIntent(intent.ShowInvoices, resolver.ShowInvoicesParams{}), nil
	}
	return resolvedIntent(intent.TopDebtors, resolver.TopDebtorsParams{Limit: 10}), nil
}

func TestMachine_Submit_SecondSubmitWins(t *testing.T) {
	release := make(chan struct{})
	session := NewSession()
	m := NewMachine(Config{}, session, &switchingResolver{release: release}, logger.NewTestLogger(t))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.Submit(context.Background(), "show invoices")
	}()

	// Wait for the first submit to claim its token and enter thinking.
	require.Eventually(t, func() bool {
		return session.Snapshot().AgentStatus == StatusThinking
	}, time.Second, time.Millisecond)

	// Second submit against the same machine supersedes the first.
	require.NoError(t, m.Submit(context.Background(), "top debtors"))

	// Release the first; its writes must all be dropped.
	close(release)
	wg.Wait()

	state := session.Snapshot()
	assert.Equal(t, view.ViewDebtors, state.ActiveView)
	assert.Equal(t, StatusSuccess, state.AgentStatus)
	assert.Equal(t, ModeDashboard, state.Mode)
}

func TestMachine_Reset_SupersedesInFlightSubmit(t *testing.T) {
	release := make(chan struct{})
	slow := &stubResolver{
		resolved: resolvedIntent(intent.ShowInvoices, resolver.ShowInvoicesParams{}),
		block:    release,
	}
	session := NewSession()
	m := NewMachine(Config{}, session, slow, logger.NewTestLogger(t))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.Submit(context.Background(), "show invoices")
	}()

	require.Eventually(t, func() bool {
		return session.Snapshot().AgentStatus == StatusThinking
	}, time.Second, time.Millisecond)

	m.Reset()
	close(release)
	wg.Wait()

	assert.Equal(t, initialState(), session.Snapshot())
}

// ==========================
// Pacing Tests
// ==========================

func TestMachine_Submit_HonorsThinkingDelay(t *testing.T) {
	res := &stubResolver{resolved: resolvedIntent(intent.ShowInvoices, resolver.ShowInvoicesParams{})}
	m := NewMachine(Config{ThinkingDelay: 50 * time.Millisecond}, NewSession(), res, logger.NewTestLogger(t))

	start := time.Now()
	require.NoError(t, m.Submit(context.Background(), "show invoices"))

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMachine_Submit_CancelledContextSkipsPacing(t *testing.T) {
	res := &stubResolver{resolved: resolvedIntent(intent.ShowInvoices, resolver.ShowInvoicesParams{})}
	m := NewMachine(Config{ThinkingDelay: time.Hour, LoadingDelay: time.Hour}, NewSession(), res, logger.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		_ = m.Submit(ctx, "show invoices")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submit did not return after context cancellation")
	}
}

// ==========================
// Session Tests
// ==========================

func TestSession_InitialState(t *testing.T) {
	state := NewSession().Snapshot()

	assert.Equal(t, ModeEmpty, state.Mode)
	assert.Equal(t, StatusIdle, state.AgentStatus)
	assert.Equal(t, view.ViewNone, state.ActiveView)
	assert.False(t, state.DataLoading)
	assert.False(t, state.DataLoaded)
	assert.NoError(t, state.Valid())
}

func TestSession_SetInput(t *testing.T) {
	s := NewSession()
	s.SetInput("half-typed comm")

	assert.Equal(t, "half-typed comm", s.Snapshot().Input)
}

func TestState_Valid(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		wantErr bool
	}{
		{
			name:  "initial state is valid",
			state: initialState(),
		},
		{
			name: "dashboard with view is valid",
			state: State{
				Mode:        ModeDashboard,
				AgentStatus: StatusSuccess,
				ActiveView:  view.ViewInvoices,
				DataLoaded:  true,
			},
		},
		{
			name: "empty mode with a view is invalid",
			state: State{
				Mode:        ModeEmpty,
				AgentStatus: StatusIdle,
				ActiveView:  view.ViewInvoices,
			},
			wantErr: true,
		},
		{
			name: "data loading outside loading mode is invalid",
			state: State{
				Mode:        ModeDashboard,
				AgentStatus: StatusSuccess,
				ActiveView:  view.ViewInvoices,
				DataLoading: true,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Valid()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
