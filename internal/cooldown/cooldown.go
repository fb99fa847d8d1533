package cooldown

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// LastSubmitKey holds the epoch-millisecond timestamp of the last accepted submission.
const LastSubmitKey = "gb:last"

const DefaultWindow = 60 * time.Second

var ErrCooldown = errors.New("submission cooldown active")

// WaitError carries the time left before the next submission is allowed.
type WaitError struct {
	Remaining time.Duration
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("wait %ds", e.Seconds())
}

func (e *WaitError) Is(target error) bool { return target == ErrCooldown }

// Seconds rounds the remaining time up to whole seconds.
func (e *WaitError) Seconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

// State is the local persistent key/value storage the cooldown lives in.
type State interface {
	GetInt(key string) (int64, bool, error)
	SetInt(key string, value int64) error
}

// Cooldown enforces a minimum interval between submissions from one client.
// It is a convenience only: clearing the local state bypasses it.
type Cooldown struct {
	state  State
	window time.Duration
	now    func() time.Time
}

func New(state State, window time.Duration) *Cooldown {
	return &Cooldown{state: state, window: window, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (c *Cooldown) WithClock(now func() time.Time) *Cooldown {
	c.now = now
	return c
}

// Remaining returns how long the caller still has to wait, zero when allowed.
func (c *Cooldown) Remaining() (time.Duration, error) {
	lastMs, ok, err := c.state.GetInt(LastSubmitKey)
	if err != nil {
		return 0, fmt.Errorf("read cooldown state: %w", err)
	}
	if !ok {
		return 0, nil
	}

	elapsed := c.now().Sub(time.UnixMilli(lastMs))
	if elapsed >= c.window {
		return 0, nil
	}
	return c.window - elapsed, nil
}

// Check returns a *WaitError while the cooldown is active.
func (c *Cooldown) Check() error {
	remaining, err := c.Remaining()
	if err != nil {
		return err
	}
	if remaining > 0 {
		return &WaitError{Remaining: remaining}
	}
	return nil
}

// Mark records a successful submission at the current time.
func (c *Cooldown) Mark() error {
	if err := c.state.SetInt(LastSubmitKey, c.now().UnixMilli()); err != nil {
		return fmt.Errorf("write cooldown state: %w", err)
	}
	return nil
}
