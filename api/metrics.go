package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of failure spike detected.
type AlertType string

const (
	AlertRefreshFailureSpike AlertType = "refresh_failure_spike"
	AlertStorageFailureSpike AlertType = "storage_failure_spike"
)

// AlertEvent describes a spike that crossed its threshold.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is called when a spike is detected.
type AlertFunc func(AlertEvent)

const (
	defaultRefreshFailureWindow    = 5 * time.Minute
	defaultRefreshFailureThreshold = 10
	defaultStorageFailureWindow    = 1 * time.Minute
	defaultStorageFailureThreshold = 5
)

// window is a sliding count of event times.
type window struct {
	times     []time.Time
	span      time.Duration
	threshold int
}

// add records now and reports the count when the threshold is reached,
// resetting so one spike alerts once.
func (w *window) add(now time.Time) (int, bool) {
	w.times = append(w.times, now)
	cutoff := now.Add(-w.span)
	start := 0
	for start < len(w.times) && w.times[start].Before(cutoff) {
		start++
	}
	w.times = w.times[start:]
	if len(w.times) < w.threshold {
		return 0, false
	}
	n := len(w.times)
	w.times = w.times[:0]
	return n, true
}

// metricsCollector watches activity events for bursts of failures: the
// remote profile API going away, or the session store refusing writes.
type metricsCollector struct {
	mu      sync.Mutex
	now     func() time.Time
	refresh window
	storage window
	alertFn AlertFunc
}

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		now:     time.Now,
		refresh: window{span: defaultRefreshFailureWindow, threshold: defaultRefreshFailureThreshold},
		storage: window{span: defaultStorageFailureWindow, threshold: defaultStorageFailureThreshold},
		alertFn: alertFn,
	}
}

func (m *metricsCollector) recordEvent(event ActivityEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case ActivityProfileRefreshError:
		m.record(&m.refresh, AlertRefreshFailureSpike, "profile refresh failures exceed threshold")
	case ActivitySaveFailed, ActivityLogoutIncomplete:
		m.record(&m.storage, AlertStorageFailureSpike, "session store failures exceed threshold")
	}
}

func (m *metricsCollector) record(w *window, typ AlertType, msg string) {
	m.mu.Lock()
	now := m.now()
	n, fire := w.add(now)
	threshold := w.threshold
	m.mu.Unlock()
	if fire {
		m.alertFn(AlertEvent{Type: typ, Message: msg, Count: n, Threshold: threshold, Timestamp: now})
	}
}
