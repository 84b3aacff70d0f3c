package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*Client, *recordedRequest) {
	t.Helper()
	recorded := &recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorded.method = r.Method
		recorded.path = r.URL.Path
		recorded.query = r.URL.RawQuery
		recorded.auth = r.Header.Get("Authorization")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&recorded.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	cli, err := New(server.URL, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return cli, recorded
}

func TestNewNormalisesBaseURL(t *testing.T) {
	cli, err := New("localhost:4000/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if cli.baseURL != "http://localhost:4000" {
		t.Fatalf("base url %q", cli.baseURL)
	}

	cli, err = New("")
	if err != nil {
		t.Fatalf("new client with empty base: %v", err)
	}
	if cli.baseURL != "http://localhost:4000" {
		t.Fatalf("default base url %q", cli.baseURL)
	}
}

func TestRegisterSendsCredentialsAndDecodesUser(t *testing.T) {
	cli, recorded := newTestServer(t, http.StatusCreated,
		`{"_id":"u1","name":"Alice","email":"alice@example.com","token":"tok"}`)

	user, err := cli.Register(context.Background(), "Alice", "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if recorded.method != http.MethodPost || recorded.path != "/api/users/register" {
		t.Fatalf("request %s %s", recorded.method, recorded.path)
	}
	if recorded.body["password"] != "hunter2" {
		t.Fatalf("password not sent: %v", recorded.body)
	}
	if user.ID != "u1" || user.Token != "tok" {
		t.Fatalf("decoded user %+v", user)
	}
}

func TestMeSendsBearerToken(t *testing.T) {
	cli, recorded := newTestServer(t, http.StatusOK, `{"_id":"u1","name":"Alice"}`)

	if _, err := cli.Me(context.Background(), "  tok  "); err != nil {
		t.Fatalf("me: %v", err)
	}
	if recorded.auth != "Bearer tok" {
		t.Fatalf("authorization header %q", recorded.auth)
	}
}

func TestListTasksEncodesOptions(t *testing.T) {
	cli, recorded := newTestServer(t, http.StatusOK,
		`{"tasks":[{"_id":"t1","title":"report"}],"pagination":{"page":2,"limit":5,"total":12}}`)

	page, err := cli.ListTasks(context.Background(), "tok", ListOptions{
		Priority: "high",
		DueDate:  "this-week",
		Search:   "report",
		Page:     2,
		Limit:    5,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if recorded.query != "dueDate=this-week&limit=5&page=2&priority=high&search=report" {
		t.Fatalf("query %q", recorded.query)
	}
	if page.Pagination.Total != 12 || len(page.Tasks) != 1 || page.Tasks[0].ID != "t1" {
		t.Fatalf("decoded page %+v", page)
	}
}

func TestListTasksOmitsZeroOptions(t *testing.T) {
	cli, recorded := newTestServer(t, http.StatusOK, `{"tasks":[],"pagination":{"page":1,"limit":10,"total":0}}`)

	if _, err := cli.ListTasks(context.Background(), "tok", ListOptions{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if recorded.query != "" {
		t.Fatalf("expected bare path, got query %q", recorded.query)
	}
}

func TestUpdateTaskOmitsNilFields(t *testing.T) {
	cli, recorded := newTestServer(t, http.StatusOK, `{"_id":"t1","title":"final"}`)

	title := "final"
	if _, err := cli.UpdateTask(context.Background(), "tok", "t1", TaskInput{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if recorded.method != http.MethodPut || recorded.path != "/api/tasks/t1" {
		t.Fatalf("request %s %s", recorded.method, recorded.path)
	}
	if _, present := recorded.body["priority"]; present {
		t.Fatalf("nil field serialized: %v", recorded.body)
	}
	if recorded.body["title"] != "final" {
		t.Fatalf("title not sent: %v", recorded.body)
	}
}

func TestSummarizeTaskPath(t *testing.T) {
	cli, recorded := newTestServer(t, http.StatusOK, `{"taskId":"t1","summary":"done"}`)

	summary, err := cli.SummarizeTask(context.Background(), "tok", "t1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if recorded.path != "/api/tasks/t1/summarize" {
		t.Fatalf("path %q", recorded.path)
	}
	if summary.TaskID != "t1" || summary.Summary != "done" {
		t.Fatalf("decoded summary %+v", summary)
	}
}

func TestErrorResponsesBecomeAPIError(t *testing.T) {
	cli, _ := newTestServer(t, http.StatusForbidden, `{"message":"not authorized to access this task"}`)

	_, err := cli.GetTask(context.Background(), "tok", "t1")
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Message != "not authorized to access this task" {
		t.Fatalf("api error %+v", apiErr)
	}
}

func TestNonJSONErrorBodyKeptVerbatim(t *testing.T) {
	cli, _ := newTestServer(t, http.StatusBadGateway, "upstream exploded")

	err := cli.DeleteTask(context.Background(), "tok", "t1")
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "upstream exploded" {
		t.Fatalf("message %q", apiErr.Message)
	}
}
