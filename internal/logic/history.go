package logic

import "time"

// UnlockHistory is a fixed-capacity circular buffer of unlock times.
// Never-recorded slots read as zero.
type UnlockHistory struct {
	buf   []time.Duration
	head  int // next write position
	count int
}

// NewUnlockHistory allocates a history holding the last capacity unlocks.
// A capacity below one is raised to one.
func NewUnlockHistory(capacity int) *UnlockHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &UnlockHistory{buf: make([]time.Duration, capacity)}
}

// Record stores t as the most recent unlock, overwriting the oldest entry
// once the buffer is full.
func (h *UnlockHistory) Record(t time.Duration) {
	h.buf[h.head] = t
	h.head = (h.head + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// At returns the unlock time offset entries back from the most recent
// (0 = most recent). Offsets outside the recorded range return zero.
func (h *UnlockHistory) At(offset int) time.Duration {
	if offset < 0 || offset >= h.count || offset >= len(h.buf) {
		return 0
	}
	idx := (h.head - 1 - offset + len(h.buf)) % len(h.buf)
	return h.buf[idx]
}

// Len returns the number of recorded entries, at most Cap.
func (h *UnlockHistory) Len() int {
	return h.count
}

// Cap returns the fixed capacity.
func (h *UnlockHistory) Cap() int {
	return len(h.buf)
}

// Snapshot returns the recorded entries, most recent first.
func (h *UnlockHistory) Snapshot() []time.Duration {
	out := make([]time.Duration, h.count)
	for i := range out {
		out[i] = h.At(i)
	}
	return out
}
