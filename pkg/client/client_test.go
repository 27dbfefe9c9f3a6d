package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ankittk/taskzone/pkg/models"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:3550", "")
	if c.BaseURL != "http://localhost:3550" || c.APIKey != "" {
		t.Errorf("New: %+v", c)
	}
	c2 := New("http://localhost:3550", "secret")
	if c2.APIKey != "secret" {
		t.Errorf("New with key: %+v", c2)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	ok, err := New(srv.URL, "").Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !ok {
		t.Fatal("Health: expected ok true")
	}
}

func TestClient_setsAPIKeyHeader(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	_, _ = New(srv.URL, "mykey").Health(context.Background())
	if gotKey != "mykey" {
		t.Errorf("X-API-Key: got %q", gotKey)
	}
}

func TestMoveTask_sendsBodyAndDecodesTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks/t1/zone" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		var body models.MoveRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Zone != models.ZoneActive || body.EmployeeID != "e1" {
			t.Errorf("body: %+v", body)
		}
		_, _ = w.Write([]byte(`{"id":"t1","zone":"ACTIVE","assignee_id":"e1","priority":"HIGH"}`))
	}))
	defer srv.Close()

	task, err := New(srv.URL, "").MoveTask(context.Background(), "t1", models.ZoneActive, "e1")
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if task.Zone != models.ZoneActive || task.AssigneeID == nil || *task.AssigneeID != "e1" || task.Priority != models.PriorityHigh {
		t.Fatalf("task: %+v", task)
	}
}

func TestErrorCarriesKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"an employee may hold only one ACTIVE task","kind":"constraint_violation"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").AssignTask(context.Background(), "t1", "e1")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Kind != models.ErrorKindConstraintViolation {
		t.Fatalf("error: %+v", apiErr)
	}
}
