package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskhive/api/internal/domain"
	"github.com/taskhive/api/internal/service/auth"
	"github.com/taskhive/api/internal/service/task"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	auth        auth.Service
	tasks       task.Service
	limiter     RateLimiter
	development bool
	dbHealth    func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateLimitRegister  = 5
	rateLimitLogin     = 12
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, taskSvc task.Service, limiter RateLimiter, development bool, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:         http.NewServeMux(),
		logger:      logger,
		auth:        authSvc,
		tasks:       taskSvc,
		limiter:     limiter,
		development: development,
		dbHealth:    dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/api/users/register", r.audit("users_register", r.withRateLimit("users_register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/api/users/login", r.audit("users_login", r.withRateLimit("users_login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/api/users/me", r.audit("users_me", r.requireAuth(r.handleMe)))
	r.mux.HandleFunc("/api/tasks", r.audit("tasks", r.requireAuth(r.handleTasks)))
	r.mux.HandleFunc("/api/tasks/", r.audit("tasks_by_id", r.requireAuth(r.handleTaskSubroutes)))
	r.mux.HandleFunc("/", r.audit("not_found", func(w http.ResponseWriter, req *http.Request) {
		r.notFound(w)
	}))
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := r.auth.Register(req.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Token: token,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	createdAt := user.CreatedAt
	writeJSON(w, http.StatusOK, userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: &createdAt,
		Token:     token,
	})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for profile", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	user, err := r.auth.Profile(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	createdAt := user.CreatedAt
	writeJSON(w, http.StatusOK, userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: &createdAt,
	})
}

func (r *Router) handleTasks(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for tasks", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodPost:
		r.handleCreateTask(w, req, info.UserID)
	case http.MethodGet:
		r.handleListTasks(w, req, info.UserID)
	default:
		r.methodNotAllowed(w)
	}
}

type taskPayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Priority    *string `json:"priority"`
}

func (r *Router) handleCreateTask(w http.ResponseWriter, req *http.Request, userID string) {
	var payload taskPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	input := task.CreateInput{}
	if payload.Title != nil {
		input.Title = *payload.Title
	}
	if payload.Description != nil {
		input.Description = *payload.Description
	}
	if payload.Priority != nil {
		input.Priority = domain.Priority(*payload.Priority)
	}
	if payload.DueDate != nil {
		due, err := parseDueDate(*payload.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid due date")
			return
		}
		input.DueDate = due
	}
	created, err := r.tasks.Create(req.Context(), userID, input)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, taskView(created))
}

func (r *Router) handleListTasks(w http.ResponseWriter, req *http.Request, userID string) {
	query := req.URL.Query()
	filter := task.ListFilter{
		Priority: query.Get("priority"),
		DueDate:  query.Get("dueDate"),
		Search:   query.Get("search"),
	}
	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be a number")
			return
		}
		filter.Page = page
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		filter.Limit = limit
	}
	page, err := r.tasks.List(req.Context(), userID, filter)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskPageView(page))
}

func (r *Router) handleTaskSubroutes(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for task subroute", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	trimmed := strings.TrimPrefix(req.URL.Path, "/api/tasks/")
	parts := strings.Split(trimmed, "/")
	taskID := parts[0]
	if taskID == "" {
		r.notFound(w)
		return
	}
	if uuid.Validate(taskID) != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}
	if len(parts) == 2 && parts[1] == "summarize" {
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w)
			return
		}
		r.handleSummarizeTask(w, req, info.UserID, taskID)
		return
	}
	if len(parts) > 1 {
		r.notFound(w)
		return
	}
	switch req.Method {
	case http.MethodGet:
		r.handleGetTask(w, req, info.UserID, taskID)
	case http.MethodPut:
		r.handleUpdateTask(w, req, info.UserID, taskID)
	case http.MethodDelete:
		r.handleDeleteTask(w, req, info.UserID, taskID)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleGetTask(w http.ResponseWriter, req *http.Request, userID, taskID string) {
	found, err := r.tasks.Get(req.Context(), userID, taskID)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskView(found))
}

func (r *Router) handleUpdateTask(w http.ResponseWriter, req *http.Request, userID, taskID string) {
	var payload taskPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	input := task.UpdateInput{
		Title:       payload.Title,
		Description: payload.Description,
	}
	if payload.Priority != nil {
		priority := domain.Priority(*payload.Priority)
		input.Priority = &priority
	}
	if payload.DueDate != nil {
		due, err := parseDueDate(*payload.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid due date")
			return
		}
		input.DueDate = &due
	}
	updated, err := r.tasks.Update(req.Context(), userID, taskID, input)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskView(updated))
}

func (r *Router) handleDeleteTask(w http.ResponseWriter, req *http.Request, userID, taskID string) {
	if err := r.tasks.Delete(req.Context(), userID, taskID); err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task removed"})
}

func (r *Router) handleSummarizeTask(w http.ResponseWriter, req *http.Request, userID, taskID string) {
	result, err := r.tasks.Summarize(req.Context(), userID, taskID)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"taskId":  result.TaskID,
		"summary": result.Summary,
	})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

var dueDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDueDate accepts RFC3339 timestamps and bare dates; bare values
// resolve to midnight UTC.
func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, format := range dueDateFormats {
		if parsed, err := time.Parse(format, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

// audit wraps handlers with request logging, panic recovery and metrics.
func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("handler panicked", "panic", rec, "path", req.URL.Path, "stack", string(debug.Stack()))
					if recorder.status == 0 {
						body := map[string]string{"message": "internal server error"}
						if r.development {
							body["stack"] = string(debug.Stack())
						}
						writeJSON(recorder, http.StatusInternalServerError, body)
					}
				}
			}()
			next(recorder, req)
		}()

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
