package orchestrator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/research-reporter/internal/models"
	"github.com/example/research-reporter/internal/tools"
)

type stubPlanner struct {
	res *models.PlanResult
}

func (p stubPlanner) CreatePlan(context.Context, string) *models.PlanResult { return p.res }

type stubReporter struct {
	res      *models.ReportResult
	progress []string
	gotPlan  *models.ResearchPlan
}

func (r *stubReporter) GenerateReport(ctx context.Context, topic string, plan *models.ResearchPlan) *models.ReportResult {
	r.gotPlan = plan
	for _, line := range r.progress {
		tools.ReportProgress(ctx, line)
	}
	return r.res
}

func okPlan() *models.PlanResult {
	return &models.PlanResult{
		Plan:       &models.ResearchPlan{Sections: []models.Section{{Name: "Intro", SearchQuery: "intro"}}},
		PlanPrompt: "plan prompt",
		Usage:      &models.Usage{TotalTokenCount: 10},
	}
}

func okReport() *models.ReportResult {
	return &models.ReportResult{
		Report:  "# Report",
		Summary: "Finished searching for 'intro'",
		TOC:     []models.TOCEntry{{Name: "Intro", Anchor: "intro"}},
		Usage:   &models.Usage{TotalTokenCount: 5},
	}
}

func drain(ch <-chan []byte) []Event {
	var out []Event
	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return out
			}
			var ev Event
			if json.Unmarshal(b, &ev) == nil {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}

func eventNames(evs []Event) []string {
	names := make([]string, 0, len(evs))
	for _, ev := range evs {
		names = append(names, ev.Event)
	}
	return names
}

func TestCreateAndListTasks(t *testing.T) {
	o := New(stubPlanner{res: okPlan()}, &stubReporter{res: okReport()})
	a := o.CreateTask("first")
	time.Sleep(time.Millisecond)
	b := o.CreateTask("second")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, models.StatusPending, a.Status)

	got, ok := o.GetTask(a.ID)
	require.True(t, ok)
	assert.Equal(t, "first", got.Prompt)

	list := o.ListTasks()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	_, ok = o.GetTask("missing")
	assert.False(t, ok)
}

func TestStartRunsPlanThenReport(t *testing.T) {
	rep := &stubReporter{res: okReport(), progress: []string{"Finished searching for 'intro'"}}
	o := New(stubPlanner{res: okPlan()}, rep)
	task := o.CreateTask("topic")
	ch, unsubscribe := o.Subscribe(task.ID)
	defer unsubscribe()

	require.NoError(t, o.Start(context.Background(), task.ID))

	got, _ := o.GetTask(task.ID)
	assert.Equal(t, models.StatusSuccess, got.Status)
	assert.Equal(t, "plan prompt", got.PlanPrompt)
	assert.Equal(t, "# Report", got.Report)
	assert.Equal(t, "Finished searching for 'intro'", got.Summary)
	assert.Equal(t, 15, got.Usage.TotalTokenCount)
	require.NotNil(t, rep.gotPlan)
	assert.Equal(t, "Intro", rep.gotPlan.Sections[0].Name)

	assert.Equal(t, []string{
		"task_status", "plan", "task_status",
		"task_status", "progress", "report", "task_status",
	}, eventNames(drain(ch)))
}

func TestPlanFailureStopsStart(t *testing.T) {
	rep := &stubReporter{res: okReport()}
	o := New(stubPlanner{res: &models.PlanResult{
		Error:      "Error creating research plan: QUOTA_EXCEEDED",
		ErrorKind:  models.ErrorQuota,
		PlanPrompt: "plan prompt",
	}}, rep)
	task := o.CreateTask("topic")

	require.NoError(t, o.Start(context.Background(), task.ID))

	got, _ := o.GetTask(task.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, models.ErrorQuota, got.ErrorKind)
	assert.Equal(t, "plan prompt", got.PlanPrompt)
	assert.Nil(t, got.Plan)
	assert.Nil(t, rep.gotPlan, "report stage must not run")
}

func TestReportRequiresPlan(t *testing.T) {
	o := New(stubPlanner{res: okPlan()}, &stubReporter{res: okReport()})
	task := o.CreateTask("topic")

	_, err := o.Report(context.Background(), task.ID)
	assert.ErrorIs(t, err, ErrNoPlan)

	_, err = o.Report(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = o.Plan(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestReportFailureKeepsPlan(t *testing.T) {
	o := New(stubPlanner{res: okPlan()}, &stubReporter{res: &models.ReportResult{
		Error:     "Error generating final report: The model is overloaded. Please try again later.",
		ErrorKind: models.ErrorOverloaded,
	}})
	task := o.CreateTask("topic")

	_, err := o.Plan(context.Background(), task.ID)
	require.NoError(t, err)
	res, err := o.Report(context.Background(), task.ID)
	require.NoError(t, err)
	assert.True(t, res.Failed())

	got, _ := o.GetTask(task.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, models.ErrorOverloaded, got.ErrorKind)
	assert.NotNil(t, got.Plan)
	assert.Empty(t, got.Report)
	assert.Equal(t, 10, got.Usage.TotalTokenCount)
}

// gatedPlanner blocks in CreatePlan until gate is closed.
type gatedPlanner struct {
	entered chan struct{}
	gate    chan struct{}
}

func newGatedPlanner() *gatedPlanner {
	return &gatedPlanner{entered: make(chan struct{}, 1), gate: make(chan struct{})}
}

func (p *gatedPlanner) CreatePlan(ctx context.Context, _ string) *models.PlanResult {
	p.entered <- struct{}{}
	<-p.gate
	return okPlan()
}

func TestRunningTaskRejectsSecondRun(t *testing.T) {
	planner := newGatedPlanner()
	o := New(planner, &stubReporter{res: okReport()})
	task := o.CreateTask("topic")

	require.NoError(t, o.StartAsync(context.Background(), task.ID))
	<-planner.entered

	assert.ErrorIs(t, o.StartAsync(context.Background(), task.ID), ErrTaskBusy)
	assert.ErrorIs(t, o.ReportAsync(context.Background(), task.ID), ErrTaskBusy)
	_, err := o.Plan(context.Background(), task.ID)
	assert.ErrorIs(t, err, ErrTaskBusy)
	got, _ := o.GetTask(task.ID)
	assert.Equal(t, models.StatusPlanning, got.Status)

	close(planner.gate)
	require.Eventually(t, func() bool {
		got, _ := o.GetTask(task.ID)
		return got.Status == models.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return o.ReportAsync(context.Background(), task.ID) == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestReportAsyncWithoutPlanReleasesTask(t *testing.T) {
	o := New(stubPlanner{res: okPlan()}, &stubReporter{res: okReport()})
	task := o.CreateTask("topic")

	assert.ErrorIs(t, o.ReportAsync(context.Background(), task.ID), ErrNoPlan)
	assert.ErrorIs(t, o.StartAsync(context.Background(), "missing"), ErrTaskNotFound)

	_, err := o.Plan(context.Background(), task.ID)
	require.NoError(t, err)
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe("t1")
	for i := 0; i < 40; i++ {
		h.Publish("t1", Event{Event: "progress", TaskID: "t1"})
	}
	assert.Len(t, drain(ch), 16)
	assert.Equal(t, 1, h.Subscribers("t1"))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, h.Subscribers("t1"))
	h.Publish("t1", Event{Event: "progress", TaskID: "t1"})
}
