package harness

import "time"

// Timer is a cancelable one-shot timer whose callback fires on the harness's
// event queue, never on a background goroutine. Cancel is idempotent; a timer
// that has already fired or been canceled stays inert.
type Timer struct {
	timer    *time.Timer
	canceled bool
}

// Schedule arranges for f to run on the event queue after delay. The returned
// Timer can be canceled up until the callback actually runs. The harness
// tracks every live timer so teardown can cancel whatever is still pending.
func (h *Harness) Schedule(delay time.Duration, f func()) *Timer {
	t := &Timer{}
	t.timer = time.AfterFunc(delay, func() {
		h.queue.push(func() {
			if t.canceled {
				return
			}
			t.canceled = true
			f()
		})
	})
	h.timers = append(h.timers, t)
	return t
}

// Cancel stops the timer if it has not fired yet. Safe to call more than
// once, and safe on a nil Timer.
func (t *Timer) Cancel() {
	if t == nil || t.canceled {
		return
	}
	t.canceled = true
	t.timer.Stop()
}
