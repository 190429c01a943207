package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Lock          LockJSON     `json:"lock"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// LockJSON is the JSON representation of the lock view.
type LockJSON struct {
	State          string   `json:"state"`
	Base           string   `json:"base"`
	UpdatingSecret bool     `json:"updating_secret"`
	Override       bool     `json:"override"`
	UnlockHistory  []string `json:"unlock_history"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Unlocks       uint64 `json:"unlocks"`
	Relocks       uint64 `json:"relocks"`
	Rejected      uint64 `json:"rejected"`
	SecretUpdates uint64 `json:"secret_updates"`
	BriefLogs     uint64 `json:"brief_logs"`
	FullLogs      uint64 `json:"full_logs"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	SettleMs    int64  `json:"settle_ms"`
	UnlockMs    int64  `json:"unlock_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	base := string(snap.Lock.Base)
	if base == "" {
		base = "UNKNOWN"
	}
	history := make([]string, len(snap.History))
	for i, at := range snap.History {
		history[i] = at.UTC().Format(time.RFC3339)
	}

	inner := StatusInner{
		Lock: LockJSON{
			State:          snap.Lock.String(),
			Base:           base,
			UpdatingSecret: snap.Lock.UpdatingSecret,
			Override:       snap.Override,
			UnlockHistory:  history,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Unlocks:       snap.Counts.Unlocks,
			Relocks:       snap.Counts.Relocks,
			Rejected:      snap.Counts.Rejected,
			SecretUpdates: snap.Counts.SecretUpdates,
			BriefLogs:     snap.Counts.BriefLogs,
			FullLogs:      snap.Counts.FullLogs,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			SettleMs:    snap.Config.SettleMs,
			UnlockMs:    snap.Config.UnlockMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if n := snap.Network; n != nil {
		inner.Network = &NetworkJSON{
			Type:       n.Type,
			IP:         n.IP,
			Status:     n.Status,
			Gateway:    n.Gateway,
			WifiStatus: n.WifiStatus,
			SSID:       n.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
