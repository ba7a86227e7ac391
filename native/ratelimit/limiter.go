package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"agrichain/native/common"
)

// DefaultWindowSeconds is the rolling window length. The window is anchored at
// each actor's first action after the previous reset, not at a calendar
// boundary, so two actors roll over at independent times.
const DefaultWindowSeconds int64 = 86_400

var (
	// ErrLimitExceeded is the sentinel matched by errors.Is for any quota
	// rejection. The concrete error is always a *LimitExceededError carrying
	// the window reset time.
	ErrLimitExceeded = errors.New("rate limit exceeded")

	errNilState = errors.New("ratelimit: state not configured")
)

// LimitExceededError reports a rejected call together with when the actor's
// window rolls over, so the caller can schedule a retry instead of polling.
type LimitExceededError struct {
	Kind    string
	Limit   uint32
	ResetAt int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: limit %d, window resets at %d", e.Kind, e.Limit, e.ResetAt)
}

func (e *LimitExceededError) Unwrap() error { return ErrLimitExceeded }

// Window captures one actor's usage of one action kind.
type Window struct {
	Count       uint32
	WindowStart int64
}

// State is the persistence surface the limiter needs. Windows are created
// lazily on first use and never deleted; WindowStart must survive a process
// restart so a reboot cannot reset anyone's quota.
type State interface {
	RateWindowGet(actor [20]byte, kind string) (Window, bool, error)
	RateWindowPut(actor [20]byte, kind string, w Window) error
}

// Limiter is a pure counting gate shared by the registry and payment engines.
// It holds no limits of its own; each call site passes the daily limit for its
// action kind.
type Limiter struct {
	state         State
	windowSeconds int64
	nowFn         func() int64
}

func NewLimiter(state State) *Limiter {
	return &Limiter{
		state:         state,
		windowSeconds: DefaultWindowSeconds,
		nowFn:         func() int64 { return time.Now().Unix() },
	}
}

// SetWindowSeconds overrides the rolling window length. Values below one
// second are ignored.
func (l *Limiter) SetWindowSeconds(seconds int64) {
	if seconds > 0 {
		l.windowSeconds = seconds
	}
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (l *Limiter) SetNowFunc(now func() int64) {
	if now == nil {
		l.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	l.nowFn = now
}

// Consume records one action of the given kind by the actor. If the actor's
// window has expired (or was never started) a fresh one is anchored at the
// current time. When the counter already sits at the limit the call fails with
// a *LimitExceededError and the counter is left untouched.
func (l *Limiter) Consume(actor [20]byte, kind string, dailyLimit uint32) (uint32, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	now := l.nowFn()
	window, ok, err := l.state.RateWindowGet(actor, kind)
	if err != nil {
		return 0, common.WrapPersist(err)
	}
	if !ok || now-window.WindowStart >= l.windowSeconds {
		window = Window{Count: 0, WindowStart: now}
	}
	if window.Count >= dailyLimit {
		return window.Count, &LimitExceededError{
			Kind:    kind,
			Limit:   dailyLimit,
			ResetAt: window.WindowStart + l.windowSeconds,
		}
	}
	window.Count++
	if err := l.state.RateWindowPut(actor, kind, window); err != nil {
		return 0, common.WrapPersist(err)
	}
	return window.Count, nil
}
