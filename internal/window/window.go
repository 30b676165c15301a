// Package window implements the logical countdown used by the trading state
// machines. A window is just a start timestamp and a duration; expiry is only
// observed when the caller supplies a later timestamp. There are deliberately
// no timers here: with a sparse tick stream a window stays open until the next
// event arrives, and replayed streams behave identically to live ones.
package window

// Countdown is a lazy timed window measured in Unix milliseconds.
type Countdown struct {
	StartTs    int64
	DurationMs int64
	active     bool
}

// Start (re)arms the countdown from now for the given duration.
func (c *Countdown) Start(now, durationMs int64) {
	c.StartTs = now
	c.DurationMs = durationMs
	c.active = true
}

// Clear disarms the countdown.
func (c *Countdown) Clear() {
	c.StartTs = 0
	c.DurationMs = 0
	c.active = false
}

// Active reports whether the countdown has been started and not cleared.
func (c *Countdown) Active() bool { return c.active }

// Remaining returns the milliseconds left at now, floored at zero. It returns
// -1 when the countdown is not armed so callers can tell "no window" from
// "expired window".
func (c *Countdown) Remaining(now int64) int64 {
	if !c.active {
		return -1
	}
	remaining := c.DurationMs - (now - c.StartTs)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether an armed countdown has fully elapsed at now.
func (c *Countdown) Expired(now int64) bool {
	return c.active && c.Remaining(now) == 0
}

// EndTs returns the absolute expiry timestamp of an armed countdown.
func (c *Countdown) EndTs() int64 {
	return c.StartTs + c.DurationMs
}
