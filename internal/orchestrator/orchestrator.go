package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/research-reporter/internal/agents"
	"github.com/example/research-reporter/internal/models"
	"github.com/example/research-reporter/internal/tools"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNoPlan       = errors.New("no plan to report on")
	ErrTaskBusy     = errors.New("task is already running")
)

// Orchestrator keeps research tasks in memory and drives them through the
// plan and report stages.
type Orchestrator struct {
	Planner  agents.Planner
	Reporter agents.Reporter

	tasksMu sync.RWMutex
	tasks   map[string]*models.Task
	running map[string]struct{}

	hub *Hub
}

func New(planner agents.Planner, reporter agents.Reporter) *Orchestrator {
	return &Orchestrator{
		Planner:  planner,
		Reporter: reporter,
		tasks:    map[string]*models.Task{},
		running:  map[string]struct{}{},
		hub:      NewHub(),
	}
}

func (o *Orchestrator) CreateTask(prompt string) models.Task {
	now := time.Now()
	t := &models.Task{ID: uuid.NewString(), Prompt: prompt, Status: models.StatusPending, CreatedAt: now, UpdatedAt: now}
	o.tasksMu.Lock()
	o.tasks[t.ID] = t
	snapshot := *t
	o.tasksMu.Unlock()
	o.publishStatus(snapshot)
	return snapshot
}

// GetTask returns a snapshot; tasks keep changing while stages run.
func (o *Orchestrator) GetTask(id string) (models.Task, bool) {
	o.tasksMu.RLock()
	defer o.tasksMu.RUnlock()
	t, ok := o.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return *t, true
}

// ListTasks returns snapshots ordered by creation time.
func (o *Orchestrator) ListTasks() []models.Task {
	o.tasksMu.RLock()
	out := make([]models.Task, 0, len(o.tasks))
	for _, t := range o.tasks {
		out = append(out, *t)
	}
	o.tasksMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Plan runs the plan stage for a task and stores the outcome on it.
func (o *Orchestrator) Plan(ctx context.Context, id string) (*models.PlanResult, error) {
	if err := o.acquire(id); err != nil {
		return nil, err
	}
	defer o.release(id)
	return o.plan(ctx, id)
}

func (o *Orchestrator) plan(ctx context.Context, id string) (*models.PlanResult, error) {
	t, err := o.update(id, func(t *models.Task) {
		t.Status = models.StatusPlanning
		t.Error, t.ErrorKind = "", ""
	})
	if err != nil {
		return nil, err
	}
	o.publishStatus(t)

	res := o.Planner.CreatePlan(ctx, t.Prompt)
	t, err = o.update(id, func(t *models.Task) {
		t.PlanPrompt = res.PlanPrompt
		if res.Failed() {
			t.Status = models.StatusFailed
			t.Error, t.ErrorKind = res.Error, res.ErrorKind
			return
		}
		t.Plan = res.Plan
		t.Status = models.StatusPlanned
		if res.Usage != nil {
			t.Usage = t.Usage.Add(*res.Usage)
		}
	})
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		slog.Warn("orchestrator: planning failed", slog.String("task_id", id), slog.String("error", res.Error))
		o.hub.Publish(id, Event{Event: "error", TaskID: id, Payload: map[string]any{"error": res.Error, "error_kind": res.ErrorKind}})
	} else {
		o.hub.Publish(id, Event{Event: "plan", TaskID: id, Payload: res.Plan})
	}
	o.publishStatus(t)
	return res, nil
}

// Report runs the report stage against the task's stored plan.
func (o *Orchestrator) Report(ctx context.Context, id string) (*models.ReportResult, error) {
	if err := o.acquire(id); err != nil {
		return nil, err
	}
	defer o.release(id)
	return o.report(ctx, id)
}

// ReportAsync claims the task and runs the report stage in the background.
// It fails fast when the task is unknown, busy or has no plan.
func (o *Orchestrator) ReportAsync(ctx context.Context, id string) error {
	if err := o.acquire(id); err != nil {
		return err
	}
	if t, _ := o.GetTask(id); t.Plan == nil {
		o.release(id)
		return ErrNoPlan
	}
	go func() {
		defer o.release(id)
		if _, err := o.report(ctx, id); err != nil {
			slog.Error("orchestrator: report run failed", slog.String("task_id", id), slog.Any("error", err))
		}
	}()
	return nil
}

func (o *Orchestrator) report(ctx context.Context, id string) (*models.ReportResult, error) {
	t, ok := o.GetTask(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	if t.Plan == nil {
		return nil, ErrNoPlan
	}
	t, err := o.update(id, func(t *models.Task) {
		t.Status = models.StatusReporting
		t.Error, t.ErrorKind = "", ""
	})
	if err != nil {
		return nil, err
	}
	o.publishStatus(t)

	subCtx := tools.WithProgress(ctx, func(line string) {
		o.hub.Publish(id, Event{Event: "progress", TaskID: id, Payload: map[string]any{"message": line}})
	})
	res := o.Reporter.GenerateReport(subCtx, t.Prompt, t.Plan)
	t, err = o.update(id, func(t *models.Task) {
		if res.Failed() {
			t.Status = models.StatusFailed
			t.Error, t.ErrorKind = res.Error, res.ErrorKind
			return
		}
		t.Report, t.Summary, t.TOC = res.Report, res.Summary, res.TOC
		t.Status = models.StatusSuccess
		if res.Usage != nil {
			t.Usage = t.Usage.Add(*res.Usage)
		}
	})
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		slog.Warn("orchestrator: report failed", slog.String("task_id", id), slog.String("error", res.Error))
		o.hub.Publish(id, Event{Event: "error", TaskID: id, Payload: map[string]any{"error": res.Error, "error_kind": res.ErrorKind}})
	} else {
		o.hub.Publish(id, Event{Event: "report", TaskID: id, Payload: res})
	}
	o.publishStatus(t)
	return res, nil
}

// Start plans and then reports; it stops after a failed plan.
func (o *Orchestrator) Start(ctx context.Context, id string) error {
	if err := o.acquire(id); err != nil {
		return err
	}
	defer o.release(id)
	return o.start(ctx, id)
}

// StartAsync claims the task and runs Start in the background.
func (o *Orchestrator) StartAsync(ctx context.Context, id string) error {
	if err := o.acquire(id); err != nil {
		return err
	}
	go func() {
		defer o.release(id)
		if err := o.start(ctx, id); err != nil {
			slog.Error("orchestrator: task run failed", slog.String("task_id", id), slog.Any("error", err))
		}
	}()
	return nil
}

func (o *Orchestrator) start(ctx context.Context, id string) error {
	pr, err := o.plan(ctx, id)
	if err != nil {
		return err
	}
	if pr.Failed() {
		return nil
	}
	_, err = o.report(ctx, id)
	return err
}

// acquire marks a task as having a stage run in flight.
func (o *Orchestrator) acquire(id string) error {
	o.tasksMu.Lock()
	defer o.tasksMu.Unlock()
	if _, ok := o.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	if _, busy := o.running[id]; busy {
		return ErrTaskBusy
	}
	o.running[id] = struct{}{}
	return nil
}

func (o *Orchestrator) release(id string) {
	o.tasksMu.Lock()
	delete(o.running, id)
	o.tasksMu.Unlock()
}

// Subscribe returns a channel carrying JSON-encoded Event payloads for a specific task.
// The caller must call the returned unsubscribe func when done.
func (o *Orchestrator) Subscribe(taskID string) (<-chan []byte, func()) {
	return o.hub.Subscribe(taskID)
}

func (o *Orchestrator) update(id string, fn func(t *models.Task)) (models.Task, error) {
	o.tasksMu.Lock()
	defer o.tasksMu.Unlock()
	t, ok := o.tasks[id]
	if !ok {
		return models.Task{}, ErrTaskNotFound
	}
	fn(t)
	t.UpdatedAt = time.Now()
	return *t, nil
}

func (o *Orchestrator) publishStatus(t models.Task) {
	payload := map[string]any{"status": t.Status}
	if t.Error != "" {
		payload["error"] = t.Error
	}
	o.hub.Publish(t.ID, Event{Event: "task_status", TaskID: t.ID, Payload: payload})
}
