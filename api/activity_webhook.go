package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// webhookQueueSize bounds the number of undelivered activity events.
const webhookQueueSize = 256

// webhookEvent is the JSON body POSTed for each activity event.
type webhookEvent struct {
	Event     string            `json:"event"`
	RequestID string            `json:"request_id,omitempty"`
	Timestamp string            `json:"timestamp"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// activityWebhook delivers activity events to an external endpoint from a
// single background goroutine. Events that do not fit in the queue are
// dropped, and each event gets one delivery attempt.
type activityWebhook struct {
	url        string
	authHeader string
	client     *http.Client
	events     chan webhookEvent
	wg         sync.WaitGroup
}

func newActivityWebhook(url, authHeader string) *activityWebhook {
	w := &activityWebhook{
		url:        url,
		authHeader: authHeader,
		client:     &http.Client{Timeout: 5 * time.Second},
		events:     make(chan webhookEvent, webhookQueueSize),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// enqueue never blocks.
func (w *activityWebhook) enqueue(evt webhookEvent) {
	select {
	case w.events <- evt:
	default:
		slog.Warn("activity webhook: queue full, dropping event", "event", evt.Event)
	}
}

// close stops accepting events and waits for the queue to drain.
func (w *activityWebhook) close() {
	close(w.events)
	w.wg.Wait()
}

func (w *activityWebhook) loop() {
	defer w.wg.Done()
	for evt := range w.events {
		w.send(evt)
	}
}

func (w *activityWebhook) send(evt webhookEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		slog.Warn("activity webhook: marshal failed", "error", err)
		return
	}
	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		slog.Warn("activity webhook: request creation failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "carepoint-activity/1.0")
	if name, value, ok := strings.Cut(w.authHeader, ":"); ok {
		req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		slog.Warn("activity webhook: delivery failed", "event", evt.Event, "error", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("activity webhook: rejected", "event", evt.Event, "status", resp.StatusCode)
	}
}
