package agents

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/example/research-reporter/internal/models"
)

// emulatedLatency sleeps a random 1-2s to mimic a live call.
type emulatedLatency struct {
	// Wait replaces the random sleep, e.g. in tests.
	Wait func(ctx context.Context) error
}

func (l emulatedLatency) wait(ctx context.Context) error {
	if l.Wait != nil {
		return l.Wait(ctx)
	}
	d := time.Duration(1+rand.Intn(2)) * time.Second
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EmulatedPlanner returns a fixed three-section plan without calling out.
type EmulatedPlanner struct{ emulatedLatency }

func (p *EmulatedPlanner) CreatePlan(ctx context.Context, topic string) *models.PlanResult {
	slog.Info("planner: generating emulated response", slog.String("action", "create_plan"))
	if err := p.wait(ctx); err != nil {
		return &models.PlanResult{Error: err.Error(), ErrorKind: models.ErrorFatal}
	}
	return &models.PlanResult{
		Plan: &models.ResearchPlan{Sections: []models.Section{
			{Name: "Emulated Intro to " + topic, SearchQuery: "intro to " + topic},
			{Name: "Emulated Key Aspects of " + topic, SearchQuery: "key aspects of " + topic},
			{Name: "Emulated Future of " + topic, SearchQuery: "future of " + topic},
		}},
		Usage: &models.Usage{TotalTokenCount: 123},
	}
}

// EmulatedReporter returns a fixed report without searching or calling out.
type EmulatedReporter struct{ emulatedLatency }

func (r *EmulatedReporter) GenerateReport(ctx context.Context, topic string, plan *models.ResearchPlan) *models.ReportResult {
	slog.Info("reporter: generating emulated response", slog.String("action", "generate_report"))
	if err := r.wait(ctx); err != nil {
		return &models.ReportResult{Error: err.Error(), ErrorKind: models.ErrorFatal}
	}
	return &models.ReportResult{
		Report:  emulatedReport,
		Summary: fmt.Sprintf("Finished searching for 'intro to %s'\nFinished searching for 'key aspects of %s'", topic, topic),
		TOC:     tableOfContents(plan.SectionNames()),
		Usage:   &models.Usage{TotalTokenCount: 456},
	}
}

const emulatedReport = `# Emulated Report for: The significance of digital literacy in the 21st century.

<h1>HTML Ipsum Presents</h1><p><strong>Pellentesque habitant morbi tristique</strong> senectus et netus et malesuada fames ac turpis egestas. Vestibulum tortor quam, feugiat vitae, ultricies eget, tempor sit amet, ante. Donec eu libero sit amet quam egestas semper. <em>Aenean ultricies mi vitae est.</em> Mauris placerat eleifend leo.</p><h2>Header Level 2</h2><ol><li>Lorem ipsum dolor sit amet, consectetuer adipiscing elit.</li><li>Aliquam tincidunt mauris eu risus.</li></ol><blockquote><p>Lorem ipsum dolor sit amet, consectetur adipiscing elit. Vivamus magna. Cras in mi at felis aliquet congue.</p></blockquote><h3>Header Level 3</h3><ul><li>Lorem ipsum dolor sit amet, consectetuer adipiscing elit.</li><li>Aliquam tincidunt mauris eu risus.</li></ul><pre><code>#header h1 a {display: block;width: 300px;height: 80px;}</code></pre>`
