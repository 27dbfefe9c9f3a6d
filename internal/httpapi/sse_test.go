package httpapi

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ankittk/taskzone/pkg/models"
)

func TestSSEHub_Subscribe_Publish_Unsubscribe(t *testing.T) {
	hub := NewSSEHub()
	ch := hub.Subscribe("")
	hub.PublishJSON(map[string]string{"type": "task_update"})
	msg := <-ch
	if !strings.Contains(string(msg), "task_update") {
		t.Errorf("PublishJSON: got %s", msg)
	}
	hub.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("expected channel closed after Unsubscribe")
	}
	if n := hub.Subscribers(); n != 0 {
		t.Errorf("Subscribers = %d, want 0", n)
	}
}

func TestSSEHub_departmentFilter(t *testing.T) {
	hub := NewSSEHub()
	lab := hub.Subscribe(models.DeptLab)
	studio := hub.Subscribe(models.DeptStudio)
	all := hub.Subscribe("")
	defer hub.Unsubscribe(lab)
	defer hub.Unsubscribe(studio)
	defer hub.Unsubscribe(all)

	hub.Publish(models.DeptLab, map[string]string{"type": "task_update"})

	if len(lab) != 1 {
		t.Errorf("lab subscriber got %d events, want 1", len(lab))
	}
	if len(studio) != 0 {
		t.Errorf("studio subscriber got %d events, want 0", len(studio))
	}
	if len(all) != 1 {
		t.Errorf("unfiltered subscriber got %d events, want 1", len(all))
	}
}

func TestSSEHub_Handler(t *testing.T) {
	hub := NewSSEHub()
	handler := hub.Handler()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		handler(rec, req)
		close(done)
	}()
	// Let the handler write "connected" before cancelling; reading rec.Body concurrently would race.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	sc := bufio.NewScanner(rec.Body)
	var found bool
	for sc.Scan() {
		if strings.Contains(sc.Text(), "connected") {
			found = true
			break
		}
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !found {
		t.Error("expected response to contain \"connected\"")
	}
}

func TestSSEHub_Handler_badDepartment(t *testing.T) {
	hub := NewSSEHub()
	req := httptest.NewRequest(http.MethodGet, "/stream?department=NOPE", nil)
	rec := httptest.NewRecorder()
	hub.Handler()(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
