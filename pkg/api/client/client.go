// Package client provides typed access to the taskhive API for Go
// callers and end-to-end tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides typed access to the taskhive API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:4000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Message)
}

// User reflects API user payloads. Token is present on register and
// login responses only.
type User struct {
	ID        string     `json:"_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Token     string     `json:"token,omitempty"`
}

// Task reflects API task payloads.
type Task struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"dueDate"`
	Priority    string    `json:"priority"`
	UserID      string    `json:"userId"`
	Summary     string    `json:"summary,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TaskPage is a filtered, paginated task listing.
type TaskPage struct {
	Tasks      []Task     `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

// TaskInput carries task fields for create and update calls. Nil fields
// are omitted, which an update interprets as "keep the stored value".
type TaskInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

// ListOptions narrows and pages a task listing; zero values are omitted.
type ListOptions struct {
	Priority string
	DueDate  string
	Search   string
	Page     int
	Limit    int
}

// Summary is the result of a summarize call.
type Summary struct {
	TaskID  string `json:"taskId"`
	Summary string `json:"summary"`
}

// Register creates an account and returns it with a session token.
func (c *Client) Register(ctx context.Context, name, email, password string) (User, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	var resp User
	if err := c.do(ctx, http.MethodPost, "/api/users/register", body, "", &resp); err != nil {
		return User{}, err
	}
	return resp, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	body := map[string]string{"email": email, "password": password}
	var resp User
	if err := c.do(ctx, http.MethodPost, "/api/users/login", body, "", &resp); err != nil {
		return User{}, err
	}
	return resp, nil
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var resp User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, token, &resp); err != nil {
		return User{}, err
	}
	return resp, nil
}

// CreateTask creates a task for the authenticated user.
func (c *Client) CreateTask(ctx context.Context, token string, input TaskInput) (Task, error) {
	var resp Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", input, token, &resp); err != nil {
		return Task{}, err
	}
	return resp, nil
}

// ListTasks returns the authenticated user's tasks matching opts.
func (c *Client) ListTasks(ctx context.Context, token string, opts ListOptions) (TaskPage, error) {
	values := url.Values{}
	if opts.Priority != "" {
		values.Set("priority", opts.Priority)
	}
	if opts.DueDate != "" {
		values.Set("dueDate", opts.DueDate)
	}
	if opts.Search != "" {
		values.Set("search", opts.Search)
	}
	if opts.Page > 0 {
		values.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		values.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/tasks"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp TaskPage
	if err := c.do(ctx, http.MethodGet, path, nil, token, &resp); err != nil {
		return TaskPage{}, err
	}
	return resp, nil
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, token, id string) (Task, error) {
	var resp Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, token, &resp); err != nil {
		return Task{}, err
	}
	return resp, nil
}

// UpdateTask applies a partial mutation to a task.
func (c *Client) UpdateTask(ctx context.Context, token, id string, input TaskInput) (Task, error) {
	var resp Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), input, token, &resp); err != nil {
		return Task{}, err
	}
	return resp, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, token, nil)
}

// SummarizeTask requests an AI summary for a task's description.
func (c *Client) SummarizeTask(ctx context.Context, token, id string) (Summary, error) {
	var resp Summary
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/summarize", nil, token, &resp); err != nil {
		return Summary{}, err
	}
	return resp, nil
}
