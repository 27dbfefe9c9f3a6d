// Package notify delivers task events to external integrations such as chat webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ankittk/taskzone/internal/otel"
	"github.com/ankittk/taskzone/pkg/models"
	"github.com/sony/gobreaker"
)

// Message is one notification about a task.
type Message struct {
	Event string      `json:"event"`
	Text  string      `json:"text"`
	Task  models.Task `json:"task"`
}

// Notifier is an integration that can receive messages.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// Registry holds notifiers by name and fans messages out to all of them.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Notifier
	Logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{byName: make(map[string]Notifier), Logger: logger}
}

func (r *Registry) Register(n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[n.Name()] = n
}

func (r *Registry) Get(name string) Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// Names returns the registered notifier names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Broadcast sends msg to every notifier. Failures are logged, not returned.
func (r *Registry) Broadcast(ctx context.Context, msg Message) {
	for _, name := range r.Names() {
		n := r.Get(name)
		if err := n.Notify(ctx, msg); err != nil && r.Logger != nil {
			r.Logger.Warn("notify failed", "notifier", name, "event", msg.Event, "err", err)
		}
	}
}

// Webhook POSTs the message as JSON. The "text" field makes the body acceptable to
// Slack-style incoming webhooks.
type Webhook struct {
	URL    string
	Client *http.Client
}

func (w Webhook) Name() string { return "webhook" }

func (w Webhook) Notify(ctx context.Context, msg Message) error {
	if w.URL == "" {
		return fmt.Errorf("webhook URL not set")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// Breaker wraps a Notifier in a circuit breaker so a dead endpoint is skipped instead
// of being called on every event.
type Breaker struct {
	Next Notifier
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker opens after more than three consecutive failures and probes again after timeout.
func NewBreaker(next Notifier, timeout time.Duration, logger *slog.Logger) *Breaker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name() + "-cb",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Info("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return &Breaker{Next: next, cb: cb}
}

func (b *Breaker) Name() string { return b.Next.Name() }

func (b *Breaker) Notify(ctx context.Context, msg Message) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.Next.Notify(ctx, msg)
	})
	switch {
	case err == nil:
		otel.RecordWebhook(ctx, "ok")
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
		otel.RecordWebhook(ctx, "open")
	default:
		otel.RecordWebhook(ctx, "error")
	}
	return err
}

// State reports the breaker state ("closed", "half-open", "open").
func (b *Breaker) State() string { return b.cb.State().String() }
