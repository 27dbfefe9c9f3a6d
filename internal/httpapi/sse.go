package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ankittk/taskzone/internal/otel"
	"github.com/ankittk/taskzone/pkg/models"
)

// SSEHub fans task updates out to board subscribers. A subscriber may filter on one
// department; an empty filter receives everything.
type SSEHub struct {
	mu   sync.RWMutex
	subs map[chan []byte]models.Department
}

func NewSSEHub() *SSEHub {
	return &SSEHub{subs: make(map[chan []byte]models.Department)}
}

// Subscribe registers a subscriber for dept ("" for all departments).
func (h *SSEHub) Subscribe(dept models.Department) chan []byte {
	ch := make(chan []byte, models.DefaultSSEChannelBuffer)
	h.mu.Lock()
	h.subs[ch] = dept
	h.mu.Unlock()
	otel.AddSSEConnection()
	return ch
}

func (h *SSEHub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
		otel.RemoveSSEConnection()
	}
	h.mu.Unlock()
}

// PublishJSON sends v to every subscriber.
func (h *SSEHub) PublishJSON(v any) { h.Publish("", v) }

// Publish sends v to subscribers watching dept and to unfiltered subscribers. An empty
// dept reaches every subscriber.
func (h *SSEHub) Publish(dept models.Department, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	otel.RecordSSEEvent(context.Background())
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch, filter := range h.subs {
		if dept != "" && filter != "" && filter != dept {
			continue
		}
		select {
		case ch <- b:
		default:
			// Slow subscriber; drop.
		}
	}
}

// Subscribers returns the number of open streams.
func (h *SSEHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Handler streams events as text/event-stream. ?department=LAB restricts the stream to
// one board.
func (h *SSEHub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		var dept models.Department
		if d := r.URL.Query().Get("department"); d != "" {
			parsed, err := models.ParseDepartment(d)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, models.ErrorKindValidation, err.Error())
				return
			}
			dept = parsed
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		ch := h.Subscribe(dept)
		defer h.Unsubscribe(ch)

		_, _ = fmt.Fprintf(w, "data: %s\n\n", `{"type":"connected"}`)
		flusher.Flush()

		keepalive := time.NewTicker(30 * time.Second)
		defer keepalive.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepalive.C:
				_, _ = fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case msg, ok := <-ch:
				if !ok {
					return
				}
				_, _ = fmt.Fprintf(w, "data: %s\n\n", string(msg))
				flusher.Flush()
			}
		}
	}
}
