package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ankittk/taskzone/internal/notify"
	"github.com/ankittk/taskzone/internal/store"
	"github.com/ankittk/taskzone/internal/store/driver"
	"github.com/ankittk/taskzone/internal/workflow"
	"github.com/ankittk/taskzone/pkg/models"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// notifyTimeout bounds one background webhook fan-out.
const notifyTimeout = 10 * time.Second

// limitBody wraps r.Body with http.MaxBytesReader so handlers cannot read more than maxBytes.
func limitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// bodyLimitMiddleware limits request body size for POST, PUT, PATCH to prevent OOM.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			limitBody(w, r, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets CORS headers for a board UI served from another origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServerOptions configures the HTTP server (home dir, listen addr, API key, DB, metrics).
type ServerOptions struct {
	Home           string
	Addr           string
	Dev            bool
	APIKey         string       // if set, require X-API-Key header or query api_key
	DBDriver       string       // "sqlite" (default), "postgres", or "memory"
	DBURL          string       // sqlite file or postgres connection string (or DATABASE_URL env)
	Store          store.Store  // if set, used instead of opening DBDriver
	Seed           bool         // insert demo data into an empty store
	MetricsHandler http.Handler // if set, used for /metrics (e.g. OTel Prometheus handler)
	UseOtelHTTP    bool         // if true, wrap handler with otelhttp for request metrics
	MaxBodyBytes   int64
	Notifiers      *notify.Registry // receives task_active messages; may be nil
	Logger         *slog.Logger
}

// App holds the HTTP server, SSE hub, store, engine, and notifiers.
type App struct {
	Server    *http.Server
	Hub       *SSEHub
	Store     store.Store
	Engine    *workflow.Engine
	Notifiers *notify.Registry
	Home      string
	logger    *slog.Logger
}

// NewApp opens the store, builds the engine, and registers all routes.
func NewApp(opts ServerOptions) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	st := opts.Store
	if st == nil {
		var err error
		st, err = driver.Open(store.OpenOptions{Driver: opts.DBDriver, Home: opts.Home, DSN: opts.DBURL})
		if err != nil {
			return nil, err
		}
	}
	if opts.Seed {
		if err := st.SeedDemo(context.Background()); err != nil {
			logger.Warn("seed demo data", "err", err)
		}
	}
	notifiers := opts.Notifiers
	if notifiers == nil {
		notifiers = notify.NewRegistry(logger)
	}
	app := &App{
		Hub:       NewSSEHub(),
		Store:     st,
		Engine:    workflow.New(st, logger),
		Notifiers: notifiers,
		Home:      opts.Home,
		logger:    logger,
	}
	app.Engine.OnChange = app.onTaskChange

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	}).Methods(http.MethodGet)
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	} else {
		r.HandleFunc("/metrics", app.plainMetrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/stream", app.Hub.Handler()).Methods(http.MethodGet)
	app.routes(r)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, models.ErrorKindNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, models.ErrorKindValidation, "method not allowed")
	})

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = models.DefaultMaxRequestBodyBytes
	}
	var handler http.Handler = r
	handler = bodyLimitMiddleware(maxBody, handler)
	if opts.Dev {
		handler = corsMiddleware(handler)
	}
	if opts.APIKey != "" {
		handler = apiKeyMiddleware(opts.APIKey, handler)
	}
	handler = requestLogMiddleware(logger, handler)
	if opts.UseOtelHTTP {
		handler = otelhttp.NewHandler(handler, "taskzone")
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(func() {
		_ = st.Close()
	})
	app.Server = srv
	return app, nil
}

// onTaskChange publishes every committed change to SSE subscribers and tells the
// notifiers when a task becomes ACTIVE.
func (a *App) onTaskChange(ctx context.Context, ev workflow.Event) {
	task := ev.Task.Model()
	dept := task.Department
	if ev.Op == workflow.OpTriage {
		// the task may have left another board
		dept = ""
	}
	a.Hub.Publish(dept, map[string]any{"type": "task_update", "op": ev.Op, "task": task})
	if task.Zone != models.ZoneActive || ev.Op != workflow.OpMove {
		return
	}
	who := "someone"
	if task.AssigneeName != nil {
		who = *task.AssigneeName
	}
	msg := notify.Message{
		Event: "task_active",
		Text:  fmt.Sprintf("%s started %q (%s)", who, task.Title, task.Department),
		Task:  task,
	}
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		a.Notifiers.Broadcast(nctx, msg)
	}()
}

// plainMetrics is the /metrics fallback when OTel is disabled.
func (a *App) plainMetrics(w http.ResponseWriter, r *http.Request) {
	counts, err := a.Store.CountTasksByZone(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, models.ErrorKindStoreFailure, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "# TYPE taskzone_tasks gauge\n")
	for _, z := range models.Zones {
		_, _ = fmt.Fprintf(w, "taskzone_tasks{zone=%q} %d\n", z, counts[z])
	}
}

// responseRecorder captures status code for logging and forwards Flusher if supported.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func apiKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != apiKey {
			writeJSONError(w, http.StatusUnauthorized, models.ErrorKindValidation, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		logger.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeJSONError sends a JSON body {"error": message, "kind": kind} with the given status code.
func writeJSONError(w http.ResponseWriter, code int, kind, message string) {
	writeJSONStatus(w, code, models.APIError{Error: message, Kind: kind})
}

// statusForKind maps an engine error kind to an HTTP status.
func statusForKind(k workflow.Kind) int {
	switch k {
	case workflow.KindNotFound:
		return http.StatusNotFound
	case workflow.KindValidation:
		return http.StatusBadRequest
	case workflow.KindConstraintViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	kind := workflow.KindOf(err)
	msg := err.Error()
	var we *workflow.Error
	if errors.As(err, &we) && kind != workflow.KindStoreFailure {
		msg = we.Reason.Error()
	}
	writeJSONError(w, statusForKind(kind), string(kind), msg)
}
