package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/04shr/petzy/internal/docstore"
	"github.com/04shr/petzy/internal/identity"
)

// manualTimers hands out timers that only fire when the test says so.
type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (m *manualTimers) AfterFunc(d time.Duration, f func()) identity.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fireLive runs every timer that was not stopped and returns how many fired.
func (m *manualTimers) fireLive() int {
	m.mu.Lock()
	var live []*manualTimer
	for _, t := range m.timers {
		if !t.stopped {
			t.stopped = true
			live = append(live, t)
		}
	}
	m.mu.Unlock()
	for _, t := range live {
		t.f()
	}
	return len(live)
}

// countingAccounts records Exists calls and can hold them until released.
type countingAccounts struct {
	*identity.Directory
	mu     sync.Mutex
	checks []string
	gates  map[string]chan struct{}
}

func (c *countingAccounts) Exists(ctx context.Context, username string) (bool, error) {
	c.mu.Lock()
	c.checks = append(c.checks, username)
	gate := c.gates[username]
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return c.Directory.Exists(ctx, username)
}

func (c *countingAccounts) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.checks...)
}

func newFlow(t *testing.T) (*identity.Session, *manualTimers, *countingAccounts) {
	t.Helper()
	timers := &manualTimers{}
	accounts := &countingAccounts{
		Directory: newDirectory(docstore.NewMemory()),
		gates:     map[string]chan struct{}{},
	}
	s := identity.NewSession(accounts, nil, identity.WithAfterFunc(timers.AfterFunc))
	t.Cleanup(s.Close)
	return s, timers, accounts
}

func TestOnlyLastTypedValueIsLookedUp(t *testing.T) {
	s, timers, accounts := newFlow(t)

	s.Type("a")
	s.Type("as")
	s.Type("ash")
	assert.Equal(t, 1, timers.fireLive())

	assert.Equal(t, []string{"ash"}, accounts.calls())
	assert.Equal(t, identity.StateNewUser, s.State())
}

func TestShortInputNeverLooksUp(t *testing.T) {
	s, timers, accounts := newFlow(t)
	s.Type("  as  ")
	assert.Equal(t, 0, timers.fireLive())
	assert.Empty(t, accounts.calls())
	assert.Equal(t, identity.StateEnteringName, s.State())
}

func TestDebounceUsesConfiguredWindow(t *testing.T) {
	s, timers, _ := newFlow(t)
	s.Type("ash")
	require.Len(t, timers.timers, 1)
	assert.Equal(t, identity.DefaultDebounce, timers.timers[0].d)
}

func TestStaleLookupIsDiscarded(t *testing.T) {
	s, timers, accounts := newFlow(t)
	_, err := accounts.Directory.Create(context.Background(), "ash", "pikachu", "")
	require.NoError(t, err)
	release := make(chan struct{})
	accounts.gates["ash"] = release

	s.Type("ash")
	done := make(chan struct{})
	go func() {
		timers.fireLive()
		close(done)
	}()
	_, err = s.WaitFor(context.Background(), func(st identity.Status) bool { return st.State == identity.StateChecking })
	require.NoError(t, err)

	s.Type("brock")
	timers.fireLive()
	assert.Equal(t, identity.StateNewUser, s.State())

	close(release)
	<-done
	st := s.Status()
	assert.Equal(t, identity.StateNewUser, st.State, "answer for the old input must not win")
	assert.Equal(t, "brock", st.Input)
	assert.Equal(t, []string{"ash", "brock"}, accounts.calls())
}

func TestReturningUserSignsIn(t *testing.T) {
	ctx := context.Background()
	s, timers, accounts := newFlow(t)
	_, err := accounts.Directory.Create(ctx, "Ash", "pikachu", "Rex")
	require.NoError(t, err)

	s.Type("ash")
	timers.fireLive()
	require.Equal(t, identity.StateReturningUser, s.State())
	require.NoError(t, s.Proceed())
	assert.Equal(t, identity.StateAwaitingSecret, s.State())

	_, err = s.Submit(ctx, "raichu", "")
	assert.Equal(t, identity.ReasonWrongPassword, identity.ReasonOf(err))
	st := s.Status()
	assert.Equal(t, identity.StateFailed, st.State)
	assert.Equal(t, identity.ReasonWrongPassword, st.Reason)
	assert.True(t, s.Context().IsAnonymous())

	require.NoError(t, s.Proceed())
	rec, err := s.Submit(ctx, "pikachu", "")
	require.NoError(t, err)
	assert.Equal(t, "Rex", rec.PetName)
	assert.Equal(t, identity.StateAuthenticated, s.State())
	assert.Equal(t, "ash", s.Context().Identifier())
}

func TestNewUserCreatesAccount(t *testing.T) {
	ctx := context.Background()
	s, timers, accounts := newFlow(t)

	s.Type("Misty")
	timers.fireLive()
	require.Equal(t, identity.StateNewUser, s.State())
	require.NoError(t, s.Proceed())
	rec, err := s.Submit(ctx, "starmie", "Togepi")
	require.NoError(t, err)
	assert.Equal(t, "misty", rec.Identifier)

	_, err = accounts.Directory.Verify(ctx, "misty", "starmie")
	assert.NoError(t, err)
}

func TestInvalidTransitions(t *testing.T) {
	s, _, _ := newFlow(t)
	assert.ErrorIs(t, s.Proceed(), identity.ErrInvalidTransition)
	_, err := s.Submit(context.Background(), "x", "")
	assert.ErrorIs(t, err, identity.ErrInvalidTransition)
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "awaiting-secret", identity.StateAwaitingSecret.String())
	assert.Equal(t, "unknown", identity.State(99).String())
}
