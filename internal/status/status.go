// Package status provides a thread-safe status tracker for the lock
// controller daemon. It is written by the run loop and read by the HTTP
// handlers and the MQTT lifecycle events.
package status

import (
	"io"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/sweeney/lock-controller/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	SettleMs    int64
	UnlockMs    int64
	HeartbeatMs int64
	Broker      string
	TopicPrefix string
	HTTPAddr    string
}

// Counts are the lifetime event counters.
type Counts struct {
	Unlocks       uint64 // LOCKED to UNLOCKED or OVERRIDDEN
	Relocks       uint64 // back to LOCKED
	Rejected      uint64 // unlock requests that left the lock closed
	SecretUpdates uint64
	BriefLogs     uint64
	FullLogs      uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Lock          logic.State
	Override      bool
	History       []time.Time // unlock times, most recent first
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. Counters live in a
// private metrics set so several trackers can coexist.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot

	// Only touched by the run loop.
	prev          logic.State
	unlockedSince time.Duration

	set           *metrics.Set
	unlocks       *metrics.Counter
	relocks       *metrics.Counter
	rejected      *metrics.Counter
	secretUpdates *metrics.Counter
	briefLogs     *metrics.Counter
	fullLogs      *metrics.Counter
	openSeconds   *metrics.Summary
}

// NewTracker creates a Tracker for a locked lock. startTime is the wall
// time matching elapsed zero on the lock's clock.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	set := metrics.NewSet()
	t := &Tracker{
		snap: Snapshot{
			Lock:      logic.State{Base: logic.BaseLocked},
			StartTime: startTime,
			Config:    cfg,
		},
		prev:          logic.State{Base: logic.BaseLocked},
		set:           set,
		unlocks:       set.NewCounter("lock_unlocks_total"),
		relocks:       set.NewCounter("lock_relocks_total"),
		rejected:      set.NewCounter("lock_unlock_rejected_total"),
		secretUpdates: set.NewCounter("lock_secret_updates_total"),
		briefLogs:     set.NewCounter(`lock_log_requests_total{kind="brief"}`),
		fullLogs:      set.NewCounter(`lock_log_requests_total{kind="full"}`),
		openSeconds:   set.NewSummary("lock_unlocked_duration_seconds"),
	}
	set.NewGauge("lock_locked", func() float64 {
		return t.flag(func(s *Snapshot) bool { return s.Lock.IsLocked() })
	})
	set.NewGauge("lock_override_active", func() float64 {
		return t.flag(func(s *Snapshot) bool { return s.Override })
	})
	set.NewGauge("lock_mqtt_connected", func() float64 {
		return t.flag(func(s *Snapshot) bool { return s.MQTTConnected })
	})
	return t
}

func (t *Tracker) flag(get func(*Snapshot) bool) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if get(&t.snap) {
		return 1
	}
	return 0
}

// ObserveState counts the transition from the previously observed state to
// s, which happened at elapsed time at.
func (t *Tracker) ObserveState(s logic.State, at time.Duration) {
	prev := t.prev
	t.prev = s

	switch {
	case prev.IsLocked() && !s.IsLocked():
		t.unlocks.Inc()
		t.unlockedSince = at
	case !prev.IsLocked() && s.IsLocked():
		t.relocks.Inc()
		t.openSeconds.Update((at - t.unlockedSince).Seconds())
	}
	if prev.UpdatingSecret && !s.UpdatingSecret {
		t.secretUpdates.Inc()
	}

	t.mu.Lock()
	t.snap.Lock = s
	t.mu.Unlock()
}

// ObserveLogRequest counts a brief or full log request.
func (t *Tracker) ObserveLogRequest(full bool) {
	if full {
		t.fullLogs.Inc()
		return
	}
	t.briefLogs.Inc()
}

// ObserveRejected counts an unlock request that left the lock closed.
func (t *Tracker) ObserveRejected() {
	t.rejected.Inc()
}

// Update sets the lock view. Called from runLoop on every tick.
// history holds elapsed unlock times, most recent first.
func (t *Tracker) Update(s logic.State, override bool, history []time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Lock = s
	t.snap.Override = override
	t.snap.History = t.snap.History[:0]
	for _, at := range history {
		t.snap.History = append(t.snap.History, t.snap.StartTime.Add(at))
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.History = append([]time.Time(nil), t.snap.History...)
	t.mu.RUnlock()

	s.Counts = Counts{
		Unlocks:       t.unlocks.Get(),
		Relocks:       t.relocks.Get(),
		Rejected:      t.rejected.Get(),
		SecretUpdates: t.secretUpdates.Get(),
		BriefLogs:     t.briefLogs.Get(),
		FullLogs:      t.fullLogs.Get(),
	}
	s.Now = time.Now()
	return s
}

// WriteMetrics writes the tracker's metrics in Prometheus text format.
func (t *Tracker) WriteMetrics(w io.Writer) {
	t.set.WritePrometheus(w)
}
