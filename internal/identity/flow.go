package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/04shr/petzy/internal/session"
)

const (
	// DefaultDebounce is how long typing must pause before a lookup fires.
	DefaultDebounce = 400 * time.Millisecond
	// MinLookupLength is the shortest trimmed username worth looking up.
	MinLookupLength = 3
)

// ErrInvalidTransition is returned when an action does not apply to the current state.
var ErrInvalidTransition = errors.New("identity: action not valid in current state")

// State is a step of the sign-in flow.
type State int

const (
	StateEnteringName State = iota
	StateChecking
	StateReturningUser
	StateNewUser
	StateAwaitingSecret
	StateAuthenticating
	StateAuthenticated
	StateFailed
)

var stateNames = [...]string{
	StateEnteringName:   "entering-name",
	StateChecking:       "checking",
	StateReturningUser:  "returning-user",
	StateNewUser:        "new-user",
	StateAwaitingSecret: "awaiting-secret",
	StateAuthenticating: "authenticating",
	StateAuthenticated:  "authenticated",
	StateFailed:         "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Accounts is the directory the flow talks to.
type Accounts interface {
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, username, secret, petName string) (Record, error)
	Verify(ctx context.Context, username, secret string) (Record, error)
}

var _ Accounts = (*Directory)(nil)

// Timer is a cancellable single-shot timer. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Status is a snapshot of the flow.
type Status struct {
	State  State
	Input  string
	Reason Reason
	Record Record
}

// Session is the debounced sign-in state machine:
//
//	entering-name -> checking -> returning-user | new-user -> awaiting-secret
//	-> authenticating -> authenticated | failed
//
// Only the last value typed within the debounce window is looked up, and a lookup answer
// that arrives after the input changed is dropped.
type Session struct {
	accounts  Accounts
	log       *zap.Logger
	debounce  time.Duration
	afterFunc AfterFunc

	mu        sync.Mutex
	state     State
	input     string
	returning bool
	seq       uint64
	timer     Timer
	reason    Reason
	record    Record
	changed   chan struct{}
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) SessionOption {
	return func(s *Session) { s.debounce = d }
}

// WithAfterFunc replaces time.AfterFunc, for tests.
func WithAfterFunc(f AfterFunc) SessionOption {
	return func(s *Session) { s.afterFunc = f }
}

// NewSession starts a flow in the entering-name state.
func NewSession(accounts Accounts, log *zap.Logger, opts ...SessionOption) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		accounts:  accounts,
		log:       log,
		debounce:  DefaultDebounce,
		afterFunc: realAfterFunc,
		changed:   make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Type records the current username input. Any pending lookup is cancelled; a new one is
// armed when the trimmed input is long enough.
func (s *Session) Type(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.input = raw
	s.reason = ""
	s.record = Record{}
	s.setState(StateEnteringName)

	name := strings.TrimSpace(raw)
	if len(name) < MinLookupLength {
		return
	}
	seq := s.seq
	s.timer = s.afterFunc(s.debounce, func() { s.lookup(seq, name) })
}

func (s *Session) lookup(seq uint64, name string) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.setState(StateChecking)
	s.wg.Add(1)
	ctx := s.ctx
	s.mu.Unlock()
	defer s.wg.Done()

	exists, err := s.accounts.Exists(ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		s.log.Debug("dropping stale identity lookup", zap.String("name", name))
		return
	}
	if err != nil {
		s.log.Warn("identity lookup failed", zap.String("name", name), zap.Error(err))
		s.reason = ReasonOf(err)
		s.setState(StateFailed)
		return
	}
	s.returning = exists
	if exists {
		s.setState(StateReturningUser)
	} else {
		s.setState(StateNewUser)
	}
}

// Proceed moves from returning-user or new-user (or a failed secret attempt) to
// awaiting-secret.
func (s *Session) Proceed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateReturningUser, s.state == StateNewUser:
	case s.state == StateFailed && s.reason == ReasonWrongPassword:
	default:
		return ErrInvalidTransition
	}
	s.reason = ""
	s.setState(StateAwaitingSecret)
	return nil
}

// Submit verifies the secret of a returning user or creates the account of a new one.
// petName is only used for new accounts. It blocks until the directory answers.
func (s *Session) Submit(ctx context.Context, secret, petName string) (Record, error) {
	s.mu.Lock()
	if s.state != StateAwaitingSecret {
		s.mu.Unlock()
		return Record{}, ErrInvalidTransition
	}
	seq, name, returning := s.seq, strings.TrimSpace(s.input), s.returning
	s.setState(StateAuthenticating)
	s.mu.Unlock()

	var (
		rec Record
		err error
	)
	if name == "" {
		err = fail(ReasonUsernameRequired, nil)
	} else if returning {
		rec, err = s.accounts.Verify(ctx, name, secret)
	} else {
		rec, err = s.accounts.Create(ctx, name, secret, petName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return Record{}, ErrInvalidTransition
	}
	if err != nil {
		s.reason = ReasonOf(err)
		s.setState(StateFailed)
		s.log.Info("sign-in failed", zap.String("name", name), zap.String("reason", string(s.reason)))
		return Record{}, err
	}
	s.record = rec
	s.setState(StateAuthenticated)
	s.log.Info("signed in", zap.String("user", rec.Identifier), zap.Bool("new", !returning))
	return rec, nil
}

// Status returns the current snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status()
}

func (s *Session) status() Status {
	return Status{State: s.state, Input: s.input, Reason: s.reason, Record: s.record}
}

// State returns the current state.
func (s *Session) State() State { return s.Status().State }

// Context returns the signed-in user's session context, or an anonymous one.
func (s *Session) Context() session.Context {
	st := s.Status()
	if st.State != StateAuthenticated {
		return session.Anonymous()
	}
	return st.Record.Session()
}

// WaitFor blocks until pred holds for the current status or ctx ends.
func (s *Session) WaitFor(ctx context.Context, pred func(Status) bool) (Status, error) {
	for {
		s.mu.Lock()
		st, ch := s.status(), s.changed
		s.mu.Unlock()
		if pred(st) {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Close cancels any pending lookup and waits for in-flight ones to return.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// setState must be called with mu held.
func (s *Session) setState(st State) {
	s.state = st
	close(s.changed)
	s.changed = make(chan struct{})
}
