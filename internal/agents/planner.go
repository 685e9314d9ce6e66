package agents

import (
	"context"

	"github.com/example/research-reporter/internal/config"
	"github.com/example/research-reporter/internal/models"
	"github.com/example/research-reporter/internal/providers/gemini"
	"github.com/example/research-reporter/internal/tools"
)

// Planner turns a topic into an ordered list of report sections.
type Planner interface {
	CreatePlan(ctx context.Context, topic string) *models.PlanResult
}

// Reporter searches each planned section and asks the model for the report.
type Reporter interface {
	GenerateReport(ctx context.Context, topic string, plan *models.ResearchPlan) *models.ReportResult
}

// NewStages picks live or emulated stages once, from cfg.Emulated.
func NewStages(cfg config.Config, client *gemini.Client, searcher tools.Searcher) (Planner, Reporter) {
	if cfg.Emulated {
		return &EmulatedPlanner{}, &EmulatedReporter{}
	}
	return &LLMPlanner{Client: client}, &LLMReporter{Client: client, Search: searcher}
}

const apiKeyNotConfigured = "Gemini API key not configured."

// outcomeKind maps a failed executor outcome to the caller-facing error kind.
func outcomeKind(o gemini.Outcome) models.ErrorKind {
	switch {
	case o.Kind == gemini.QuotaExceeded:
		return models.ErrorQuota
	case o.Kind == gemini.TransientFailure:
		return models.ErrorTransient
	case o.Overloaded:
		return models.ErrorOverloaded
	case o.Transport:
		return models.ErrorTransport
	case o.Malformed:
		return models.ErrorMalformed
	}
	return models.ErrorFatal
}
