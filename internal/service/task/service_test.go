package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/taskhive/api/internal/domain"
	"github.com/taskhive/api/internal/repository"
)

type stubTaskRepository struct {
	tasks map[string]domain.Task

	lastQuery    repository.TaskQuery
	listResponse []domain.Task
	listTotal    int

	summaryCalls int
}

func newStubTaskRepository() *stubTaskRepository {
	return &stubTaskRepository{tasks: make(map[string]domain.Task)}
}

func (s *stubTaskRepository) CreateTask(ctx context.Context, task *domain.Task) error {
	s.tasks[task.ID] = *task
	return nil
}

func (s *stubTaskRepository) GetTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	if task, ok := s.tasks[id]; ok {
		copied := task
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubTaskRepository) ListTasks(ctx context.Context, userID string, q repository.TaskQuery) ([]domain.Task, int, error) {
	s.lastQuery = q
	return s.listResponse, s.listTotal, nil
}

func (s *stubTaskRepository) UpdateTask(ctx context.Context, id, userID string, update repository.TaskUpdate) (*domain.Task, error) {
	task, ok := s.tasks[id]
	if !ok || task.UserID != userID {
		return nil, repository.ErrNotFound
	}
	task.Title = update.Title
	task.Description = update.Description
	task.DueDate = update.DueDate
	task.Priority = update.Priority
	task.UpdatedAt = time.Now().UTC()
	s.tasks[id] = task
	return &task, nil
}

func (s *stubTaskRepository) DeleteTask(ctx context.Context, id, userID string) error {
	task, ok := s.tasks[id]
	if !ok || task.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *stubTaskRepository) SetTaskSummary(ctx context.Context, id, userID, summary string) (*domain.Task, error) {
	s.summaryCalls++
	task, ok := s.tasks[id]
	if !ok || task.UserID != userID {
		return nil, repository.ErrNotFound
	}
	task.Summary = summary
	s.tasks[id] = task
	return &task, nil
}

type stubSummarizer struct {
	summary string
	err     error
	calls   int
}

func (s *stubSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	s.calls++
	return s.summary, s.err
}

func testService(repo repository.TaskRepository, sum Summarizer) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if sum == nil {
		sum = &stubSummarizer{}
	}
	return New(repo, sum, log)
}

func TestCreateDefaultsPriorityAndStartsWithoutSummary(t *testing.T) {
	repo := newStubTaskRepository()
	svc := testService(repo, nil)

	due := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(context.Background(), "owner-1", CreateInput{Title: "A", DueDate: due})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Priority != domain.PriorityMedium {
		t.Fatalf("priority %q, want medium", created.Priority)
	}
	if created.Summary != "" || created.Description != "" {
		t.Fatalf("summary and description should start absent: %+v", created)
	}

	fetched, err := svc.Get(context.Background(), "owner-1", created.ID)
	if err != nil {
		t.Fatalf("get after create: %v", err)
	}
	if fetched.Title != "A" || !fetched.DueDate.Equal(due) {
		t.Fatalf("round trip mismatch: %+v", fetched)
	}
}

func TestCreatePreservesExplicitPriority(t *testing.T) {
	repo := newStubTaskRepository()
	svc := testService(repo, nil)

	due := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(context.Background(), "owner-1", CreateInput{Title: "A", DueDate: due, Priority: domain.PriorityHigh})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fetched, err := svc.Get(context.Background(), "owner-1", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Priority != domain.PriorityHigh {
		t.Fatalf("priority %q, want high", fetched.Priority)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := testService(newStubTaskRepository(), nil)
	due := time.Now()

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"missing title", CreateInput{DueDate: due}},
		{"blank title", CreateInput{Title: "   ", DueDate: due}},
		{"missing due date", CreateInput{Title: "A"}},
		{"bad priority", CreateInput{Title: "A", DueDate: due, Priority: "urgent"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), "owner-1", tc.input); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestListComputesOffsetAndEchoesPagination(t *testing.T) {
	repo := newStubTaskRepository()
	repo.listResponse = make([]domain.Task, 5)
	repo.listTotal = 12
	svc := testService(repo, nil)

	page, err := svc.List(context.Background(), "owner-1", ListFilter{Page: 2, Limit: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lastQuery.Offset != 5 || repo.lastQuery.Limit != 5 {
		t.Fatalf("query offset/limit = %d/%d, want 5/5", repo.lastQuery.Offset, repo.lastQuery.Limit)
	}
	if page.Page != 2 || page.Limit != 5 || page.Total != 12 {
		t.Fatalf("pagination %+v, want page 2 limit 5 total 12", page)
	}
}

func TestListDefaultsPageAndLimit(t *testing.T) {
	repo := newStubTaskRepository()
	svc := testService(repo, nil)

	page, err := svc.List(context.Background(), "owner-1", ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Page != 1 || page.Limit != 10 {
		t.Fatalf("defaults %d/%d, want 1/10", page.Page, page.Limit)
	}
	if repo.lastQuery.Offset != 0 {
		t.Fatalf("offset %d, want 0", repo.lastQuery.Offset)
	}
}

func TestListTranslatesFilters(t *testing.T) {
	repo := newStubTaskRepository()
	svc := testService(repo, nil)

	_, err := svc.List(context.Background(), "owner-1", ListFilter{Priority: "high", DueDate: "today", Search: " report "})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	q := repo.lastQuery
	if q.Priority != domain.PriorityHigh {
		t.Fatalf("priority filter %q, want high", q.Priority)
	}
	if q.DueFrom == nil || q.DueTo == nil {
		t.Fatal("today filter should bound both sides")
	}
	if q.Search != "report" {
		t.Fatalf("search %q, want trimmed %q", q.Search, "report")
	}
}

func TestListValidatesFilters(t *testing.T) {
	svc := testService(newStubTaskRepository(), nil)

	cases := []struct {
		name   string
		filter ListFilter
	}{
		{"bad priority", ListFilter{Priority: "urgent"}},
		{"bad due date", ListFilter{DueDate: "fortnight"}},
		{"negative page", ListFilter{Page: -1}},
		{"limit too large", ListFilter{Limit: 1000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.List(context.Background(), "owner-1", tc.filter); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestListAcceptsAllAsNoFilter(t *testing.T) {
	repo := newStubTaskRepository()
	svc := testService(repo, nil)

	if _, err := svc.List(context.Background(), "owner-1", ListFilter{Priority: "all", DueDate: "all"}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lastQuery.Priority != "" || repo.lastQuery.DueFrom != nil || repo.lastQuery.DueTo != nil {
		t.Fatalf("filter should be empty: %+v", repo.lastQuery)
	}
}

func seedTask(repo *stubTaskRepository, owner, description string) domain.Task {
	task := domain.Task{
		ID:       "task-1",
		UserID:   owner,
		Title:    "write report",
		DueDate:  time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		Priority: domain.PriorityMedium,
	}
	task.Description = description
	repo.tasks[task.ID] = task
	return task
}

func TestGetEnforcesOwnership(t *testing.T) {
	repo := newStubTaskRepository()
	seedTask(repo, "owner-1", "")
	svc := testService(repo, nil)

	if _, err := svc.Get(context.Background(), "owner-2", "task-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign owner: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "owner-1", "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing id: expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMergesPartialFields(t *testing.T) {
	repo := newStubTaskRepository()
	seedTask(repo, "owner-1", "original description")
	svc := testService(repo, nil)

	title := "revised report"
	updated, err := svc.Update(context.Background(), "owner-1", "task-1", UpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "revised report" {
		t.Fatalf("title %q, want revised", updated.Title)
	}
	if updated.Description != "original description" {
		t.Fatalf("unset fields must be preserved, got %q", updated.Description)
	}
	if updated.Priority != domain.PriorityMedium {
		t.Fatalf("priority changed unexpectedly: %q", updated.Priority)
	}
}

func TestUpdateRejectsClearingTitle(t *testing.T) {
	repo := newStubTaskRepository()
	seedTask(repo, "owner-1", "")
	svc := testService(repo, nil)

	blank := "   "
	if _, err := svc.Update(context.Background(), "owner-1", "task-1", UpdateInput{Title: &blank}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateAndDeleteEnforceOwnership(t *testing.T) {
	repo := newStubTaskRepository()
	seedTask(repo, "owner-1", "")
	svc := testService(repo, nil)

	title := "x"
	if _, err := svc.Update(context.Background(), "owner-2", "task-1", UpdateInput{Title: &title}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("update: expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(context.Background(), "owner-2", "task-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("delete: expected ErrForbidden, got %v", err)
	}
	if _, ok := repo.tasks["task-1"]; !ok {
		t.Fatal("task must survive foreign delete attempt")
	}
}

func TestDeleteRemovesOwnedTask(t *testing.T) {
	repo := newStubTaskRepository()
	seedTask(repo, "owner-1", "")
	svc := testService(repo, nil)

	if err := svc.Delete(context.Background(), "owner-1", "task-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.tasks["task-1"]; ok {
		t.Fatal("task still present after delete")
	}
}

func TestSummarizeRequiresDescription(t *testing.T) {
	repo := newStubTaskRepository()
	seedTask(repo, "owner-1", "")
	gateway := &stubSummarizer{summary: "unused"}
	svc := testService(repo, gateway)

	_, err := svc.Summarize(context.Background(), "owner-1", "task-1")
	if !errors.Is(err, ErrMissingDescription) {
		t.Fatalf("expected ErrMissingDescription, got %v", err)
	}
	if gateway.calls != 0 {
		t.Fatal("gateway must not be called without a description")
	}
	if repo.tasks["task-1"].Summary != "" {
		t.Fatal("summary must remain absent")
	}
}

func TestSummarizeGatewayFailureLeavesTaskUnchanged(t *testing.T) {
	repo := newStubTaskRepository()
	task := seedTask(repo, "owner-1", "quarterly report due friday")
	task.Summary = "previous summary"
	repo.tasks[task.ID] = task

	gateway := &stubSummarizer{err: errors.New("upstream 503")}
	svc := testService(repo, gateway)

	_, err := svc.Summarize(context.Background(), "owner-1", "task-1")
	if !errors.Is(err, ErrSummarizeFailed) {
		t.Fatalf("expected ErrSummarizeFailed, got %v", err)
	}
	if repo.summaryCalls != 0 {
		t.Fatal("failed summarization must not touch the store")
	}
	if repo.tasks["task-1"].Summary != "previous summary" {
		t.Fatalf("summary changed: %q", repo.tasks["task-1"].Summary)
	}
}

func TestSummarizePersistsAndOverwrites(t *testing.T) {
	repo := newStubTaskRepository()
	seedTask(repo, "owner-1", "quarterly report due friday")
	gateway := &stubSummarizer{summary: "Finish the quarterly report by Friday."}
	svc := testService(repo, gateway)

	result, err := svc.Summarize(context.Background(), "owner-1", "task-1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if result.TaskID != "task-1" || result.Summary != gateway.summary {
		t.Fatalf("unexpected result: %+v", result)
	}
	if repo.tasks["task-1"].Summary != gateway.summary {
		t.Fatalf("summary not persisted: %q", repo.tasks["task-1"].Summary)
	}

	gateway.summary = "Second pass summary."
	if _, err := svc.Summarize(context.Background(), "owner-1", "task-1"); err != nil {
		t.Fatalf("second summarize: %v", err)
	}
	if repo.tasks["task-1"].Summary != "Second pass summary." {
		t.Fatalf("summary not overwritten: %q", repo.tasks["task-1"].Summary)
	}
}

func TestSummarizeEnforcesOwnershipBeforeGateway(t *testing.T) {
	repo := newStubTaskRepository()
	seedTask(repo, "owner-1", "some description")
	gateway := &stubSummarizer{summary: "unused"}
	svc := testService(repo, gateway)

	if _, err := svc.Summarize(context.Background(), "owner-2", "task-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if gateway.calls != 0 {
		t.Fatal("gateway must not be called for a foreign task")
	}
}
