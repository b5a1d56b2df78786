package io

// Timer is an 8-bit counter that counts down to zero once per tick.
type Timer struct {
	Count uint8
}

// Set loads the counter.
func (tm *Timer) Set(value uint8) {
	tm.Count = value
}

// Value returns the current count.
func (tm *Timer) Value() uint8 {
	return tm.Count
}

// Active is true while the counter is non-zero.
func (tm *Timer) Active() bool {
	return tm.Count != 0
}

// Tick decrements a non-zero counter by one.
func (tm *Timer) Tick() {
	if tm.Count > 0 {
		tm.Count--
	}
}

// Reset stops the timer.
func (tm *Timer) Reset() {
	tm.Count = 0
}
