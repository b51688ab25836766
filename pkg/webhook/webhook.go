// Package webhook delivers collection mutation events to registered HTTP
// endpoints. Delivery is best-effort and fire-and-forget: failures are
// logged, never surfaced to the originating request, never retried.
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Config is one registered webhook.
type Config struct {
	// Event is an exact "collection.verb" name or a "collection.*" wildcard.
	Event   string            `json:"event"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

type configFile struct {
	Webhooks []Config `json:"webhooks"`
}

// payload is the JSON envelope delivered to webhook endpoints.
type payload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// Dispatcher fans mutation events out to matching webhooks.
type Dispatcher struct {
	webhooks []Config
	client   *http.Client
	log      *slog.Logger

	// wg tracks in-flight deliveries so tests can wait for them.
	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with the given delivery timeout.
func NewDispatcher(timeout time.Duration, log *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Count reports the number of registered webhooks.
func (d *Dispatcher) Count() int {
	return len(d.webhooks)
}

// Register adds a webhook.
func (d *Dispatcher) Register(cfg Config) {
	d.webhooks = append(d.webhooks, cfg)
}

// LoadFromFile reads a {webhooks: [...]} JSON file.
func (d *Dispatcher) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("webhook config file not found: %s: %w", path, err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse webhook config file %s: %w", path, err)
	}

	d.webhooks = append(d.webhooks, file.Webhooks...)
	return nil
}

// Fire delivers the event to every matching webhook, each on its own
// goroutine. It returns immediately; the request path never waits for
// delivery.
func (d *Dispatcher) Fire(event string, data any) {
	var matched []Config
	for _, w := range d.webhooks {
		if matchesEvent(w.Event, event) {
			matched = append(matched, w)
		}
	}
	if len(matched) == 0 {
		return
	}

	body, err := json.Marshal(payload{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		d.log.Error("failed to encode webhook payload", "event", event, "error", err)
		return
	}

	for _, w := range matched {
		d.wg.Add(1)
		go func(w Config) {
			defer d.wg.Done()
			d.send(w, event, body)
		}(w)
	}
}

// Wait blocks until all in-flight deliveries finish. Intended for tests
// and graceful shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(w Config, event string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		d.log.Error("webhook request build failed", "event", event, "url", w.URL, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn("webhook delivery failed", "event", event, "url", w.URL, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		d.log.Warn("webhook delivery rejected", "event", event, "url", w.URL, "status", resp.StatusCode)
		return
	}
	d.log.Debug("webhook delivered", "event", event, "url", w.URL, "status", resp.StatusCode)
}

// matchesEvent matches exactly, or by "prefix.*" wildcard against
// "prefix.<anything>".
func matchesEvent(pattern, event string) bool {
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return strings.HasPrefix(strings.ToLower(event), strings.ToLower(prefix)+".")
	}
	return strings.EqualFold(pattern, event)
}
