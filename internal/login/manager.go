// Package login runs the phone → one-time code → optional second-factor
// challenge that turns a user's account into a stored session credential.
package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/telefetch/telefetch/internal/session"
	"github.com/telefetch/telefetch/internal/telegram"
	"github.com/telefetch/telefetch/internal/tgerr"
)

// State identifies the step a pending login is waiting on.
type State int

const (
	StateAwaitPhone State = iota
	StateAwaitOTP
	StateAwait2FA
)

func (s State) String() string {
	switch s {
	case StateAwaitPhone:
		return "await_phone"
	case StateAwaitOTP:
		return "await_otp"
	case StateAwait2FA:
		return "await_2fa"
	default:
		return "unknown"
	}
}

var (
	// ErrNoPending indicates the user has no login flow in progress.
	ErrNoPending = errors.New("no login in progress")

	// ErrStepInFlight indicates another transition for the same user is
	// still running; concurrent steps are rejected, never merged.
	ErrStepInFlight = errors.New("another login step is in flight")
)

// Dialer opens fresh connections for login flows.
type Dialer interface {
	DialFresh(ctx context.Context) (*telegram.Lease, error)
}

// Reply is the user-visible outcome of one transition.
type Reply struct {
	Text     string
	Terminal bool   // the flow left the state machine
	LoggedIn bool   // a credential was persisted
	Phone    string // set on LoggedIn, for audit notifications
}

// pendingLogin is the ephemeral per-conversation state. It exclusively owns
// its connection lease until the flow's terminal transition.
type pendingLogin struct {
	state          State
	phone          string
	challengeToken string
	lease          *telegram.Lease
	updatedAt      time.Time
	busy           bool
}

// Manager is the authentication state machine. One pending login per user at
// most; starting a new flow supersedes the old one.
type Manager struct {
	mu      sync.Mutex
	pending map[int64]*pendingLogin

	dialer   Dialer
	sessions *session.Service
	throttle *Throttle
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewManager builds the login manager. throttle may be nil.
func NewManager(dialer Dialer, sessions *session.Service, throttle *Throttle, timeout time.Duration, logger *slog.Logger) *Manager {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Manager{
		pending:  make(map[int64]*pendingLogin),
		dialer:   dialer,
		sessions: sessions,
		throttle: throttle,
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Begin starts (or supersedes) a login flow for the user. A user with a
// stored session short-circuits to a no-op success without entering the
// state machine.
func (m *Manager) Begin(ctx context.Context, userID int64) (Reply, error) {
	exists, err := m.sessions.Exists(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	if exists {
		return Reply{
			Text:     "You are already logged in. Send a message link to fetch it, or /logout first.",
			Terminal: true,
		}, nil
	}

	if err := m.throttle.Allow(ctx, userID); err != nil {
		var rl *tgerr.RateLimitError
		if errors.As(err, &rl) {
			return Reply{
				Text:     fmt.Sprintf("Too many login attempts. Try again in %s.", rl.Wait.Round(time.Second)),
				Terminal: true,
			}, nil
		}
		return Reply{}, err
	}

	m.mu.Lock()
	superseded := m.pending[userID]
	if superseded != nil && superseded.busy {
		m.mu.Unlock()
		return Reply{}, ErrStepInFlight
	}
	m.pending[userID] = &pendingLogin{state: StateAwaitPhone, updatedAt: m.now()}
	m.mu.Unlock()

	if superseded != nil {
		m.releasePending(ctx, userID, superseded, "superseded")
	}

	return Reply{Text: "Send your phone number in international format, e.g. +15550001234. Use /cancel to abort."}, nil
}

// Active reports whether the user has a live login flow. Expired flows are
// discarded (and their connection released) on the way.
func (m *Manager) Active(ctx context.Context, userID int64) bool {
	m.mu.Lock()
	p, ok := m.pending[userID]
	expired := ok && !p.busy && m.now().Sub(p.updatedAt) >= m.timeout
	if expired {
		delete(m.pending, userID)
	}
	m.mu.Unlock()

	if expired {
		m.releasePending(ctx, userID, p, "timeout")
		return false
	}
	return ok
}

// Submit feeds one line of user input to the flow and runs the transition for
// the current state.
func (m *Manager) Submit(ctx context.Context, userID int64, text string) (Reply, error) {
	p, err := m.acquire(ctx, userID)
	if err != nil {
		if errors.Is(err, errExpired) {
			return Reply{
				Text:     "Your login attempt expired. Use /start to begin again.",
				Terminal: true,
			}, nil
		}
		return Reply{}, err
	}

	input := strings.TrimSpace(text)

	var reply Reply
	switch p.state {
	case StateAwaitPhone:
		reply, err = m.submitPhone(ctx, userID, p, input)
	case StateAwaitOTP:
		reply, err = m.submitCode(ctx, userID, p, input)
	case StateAwait2FA:
		reply, err = m.submitPassword(ctx, userID, p, input)
	default:
		err = fmt.Errorf("unexpected login state %v", p.state)
	}

	m.settle(userID, p, reply, err)
	return reply, err
}

// Cancel aborts the flow and releases any held connection.
func (m *Manager) Cancel(ctx context.Context, userID int64) (Reply, error) {
	m.mu.Lock()
	p, ok := m.pending[userID]
	if ok && p.busy {
		m.mu.Unlock()
		return Reply{}, ErrStepInFlight
	}
	if ok {
		delete(m.pending, userID)
	}
	m.mu.Unlock()

	if !ok {
		return Reply{}, ErrNoPending
	}

	m.releasePending(ctx, userID, p, "cancelled")
	return Reply{Text: "Login cancelled. Use /start whenever you want to try again.", Terminal: true}, nil
}

// Run sweeps expired flows until the context ends, so abandoned logins cannot
// hold connections indefinitely.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep discards every pending login idle for at least the timeout.
func (m *Manager) Sweep(ctx context.Context) {
	now := m.now()

	m.mu.Lock()
	var stale []struct {
		userID int64
		p      *pendingLogin
	}
	for userID, p := range m.pending {
		if !p.busy && now.Sub(p.updatedAt) >= m.timeout {
			delete(m.pending, userID)
			stale = append(stale, struct {
				userID int64
				p      *pendingLogin
			}{userID, p})
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		m.releasePending(ctx, s.userID, s.p, "timeout")
	}
}

var errExpired = errors.New("login expired")

// acquire claims the pending login for one transition. It enforces per-user
// serialization and applies the idle timeout on the way in.
func (m *Manager) acquire(ctx context.Context, userID int64) (*pendingLogin, error) {
	m.mu.Lock()
	p, ok := m.pending[userID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNoPending
	}
	if p.busy {
		m.mu.Unlock()
		return nil, ErrStepInFlight
	}
	if m.now().Sub(p.updatedAt) >= m.timeout {
		delete(m.pending, userID)
		m.mu.Unlock()
		m.releasePending(ctx, userID, p, "timeout")
		return nil, errExpired
	}
	p.busy = true
	m.mu.Unlock()
	return p, nil
}

// settle finishes one transition: terminal outcomes drop the pending login,
// non-terminal ones refresh the idle clock and clear the in-flight mark.
func (m *Manager) settle(userID int64, p *pendingLogin, reply Reply, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil || reply.Terminal {
		// Only remove our own entry; Begin may have superseded it already.
		if m.pending[userID] == p {
			delete(m.pending, userID)
		}
		return
	}
	p.busy = false
	p.updatedAt = m.now()
}

func (m *Manager) submitPhone(ctx context.Context, userID int64, p *pendingLogin, phone string) (Reply, error) {
	if !strings.HasPrefix(phone, "+") || len(phone) < 8 {
		return Reply{Text: "That does not look like a phone number. Use international format starting with +, e.g. +15550001234."}, nil
	}

	lease, err := m.dialer.DialFresh(ctx)
	if err != nil {
		return m.terminalReply(ctx, userID, nil, tgerr.Classify(err), "connect")
	}

	token, err := lease.Client().SendCode(ctx, phone)
	if err != nil {
		classified := tgerr.Classify(err)
		if errors.Is(classified, tgerr.ErrPhoneInvalid) {
			lease.Release(ctx)
			return Reply{Text: "The platform rejected that phone number. Check the country code and try again."}, nil
		}
		return m.terminalReply(ctx, userID, lease, classified, "send code")
	}

	p.phone = phone
	p.challengeToken = token
	p.lease = lease
	p.state = StateAwaitOTP
	m.logger.Info("otp requested", "user_id", userID, "lease_id", lease.ID())
	return Reply{Text: "Code sent. Check your app or SMS and send me the code. Use /cancel to abort."}, nil
}

func (m *Manager) submitCode(ctx context.Context, userID int64, p *pendingLogin, code string) (Reply, error) {
	err := p.lease.Client().SignIn(ctx, p.phone, p.challengeToken, code)
	if err == nil {
		return m.finish(ctx, userID, p)
	}

	classified := tgerr.Classify(err)
	var ch *tgerr.ChallengeError
	if errors.As(classified, &ch) {
		switch ch.Kind {
		case tgerr.ChallengeTwoFactor:
			p.state = StateAwait2FA
			m.logger.Info("second factor required", "user_id", userID)
			return Reply{Text: "Your account has two-step verification. Send your password to finish logging in."}, nil
		case tgerr.ChallengeCodeInvalid:
			return Reply{Text: "That code is not correct. Check it and try again."}, nil
		case tgerr.ChallengeCodeExpired:
			return m.terminalReply(ctx, userID, p.lease, classified, "sign in")
		}
	}
	return m.terminalReply(ctx, userID, p.lease, classified, "sign in")
}

func (m *Manager) submitPassword(ctx context.Context, userID int64, p *pendingLogin, password string) (Reply, error) {
	err := p.lease.Client().CheckPassword(ctx, password)
	if err == nil {
		return m.finish(ctx, userID, p)
	}

	classified := tgerr.Classify(err)
	var ch *tgerr.ChallengeError
	if errors.As(classified, &ch) && ch.Kind == tgerr.ChallengePasswordInvalid {
		return Reply{Text: "Wrong password. Try again."}, nil
	}
	return m.terminalReply(ctx, userID, p.lease, classified, "check password")
}

// finish exports and persists the credential, then releases the connection.
// The session is written if and only if this function returns a success reply.
func (m *Manager) finish(ctx context.Context, userID int64, p *pendingLogin) (Reply, error) {
	credential, err := p.lease.Client().ExportCredential(ctx)
	if err != nil {
		return m.terminalReply(ctx, userID, p.lease, tgerr.Classify(err), "export credential")
	}
	if err := m.sessions.Save(ctx, userID, credential); err != nil {
		return m.terminalReply(ctx, userID, p.lease, err, "persist session")
	}

	p.lease.Release(ctx)
	m.logger.Info("login succeeded", "user_id", userID, "state", p.state.String())
	return Reply{
		Text:     "Login successful. Send any message link and I will fetch it for you.",
		Terminal: true,
		LoggedIn: true,
		Phone:    p.phone,
	}, nil
}

// terminalReply releases the held connection (when present), logs the failure
// and converts the classified error into a user-facing terminal reply.
func (m *Manager) terminalReply(ctx context.Context, userID int64, lease *telegram.Lease, err error, op string) (Reply, error) {
	if lease != nil {
		lease.Release(ctx)
	}
	m.logger.Warn("login failed", "user_id", userID, "op", op, "error", err)

	var rl *tgerr.RateLimitError
	if errors.As(err, &rl) {
		return Reply{
			Text:     fmt.Sprintf("Rate limited by the platform. Wait %s and then use /start again.", rl.Wait.Round(time.Second)),
			Terminal: true,
		}, nil
	}

	var ch *tgerr.ChallengeError
	if errors.As(err, &ch) && ch.Kind == tgerr.ChallengeCodeExpired {
		return Reply{Text: "The code expired. Use /start to request a new one.", Terminal: true}, nil
	}

	return Reply{
		Text:     fmt.Sprintf("Login failed: %v. Use /start to try again.", err),
		Terminal: true,
	}, nil
}

// releasePending drops a flow's connection on supersede, cancel or timeout.
func (m *Manager) releasePending(ctx context.Context, userID int64, p *pendingLogin, reason string) {
	if p.lease != nil {
		p.lease.Release(ctx)
	}
	m.logger.Info("pending login discarded", "user_id", userID, "state", p.state.String(), "reason", reason)
}
