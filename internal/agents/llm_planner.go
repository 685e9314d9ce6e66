package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/research-reporter/internal/models"
	"github.com/example/research-reporter/internal/providers/gemini"
)

// LLMPlanner asks the model for a research plan.
type LLMPlanner struct{ Client *gemini.Client }

func (p *LLMPlanner) CreatePlan(ctx context.Context, topic string) *models.PlanResult {
	if !p.Client.Configured() {
		return &models.PlanResult{Error: apiKeyNotConfigured, ErrorKind: models.ErrorConfig}
	}
	slog.Info("planner: creating research plan", slog.String("prompt", topic))

	prompt := buildPlanPrompt(topic)
	out := p.Client.Generate(ctx, prompt)
	if !out.OK() {
		return &models.PlanResult{
			Error:      "Error creating research plan: " + out.ErrorMessage(),
			ErrorKind:  outcomeKind(out),
			PlanPrompt: prompt,
		}
	}

	text, ok := gemini.ExtractText(out.Payload)
	if !ok {
		return &models.PlanResult{
			Error:      "Could not generate research plan from Gemini.",
			ErrorKind:  models.ErrorMalformed,
			PlanPrompt: prompt,
		}
	}
	plan, err := gemini.ParsePlan(text)
	if err != nil {
		slog.Warn("planner: failed to parse research plan", slog.Any("error", err), slog.String("response_text", text))
		return &models.PlanResult{
			Error:      "Could not parse research plan from Gemini response.",
			ErrorKind:  models.ErrorMalformed,
			PlanPrompt: prompt,
		}
	}
	usage := gemini.ExtractUsage(out.Payload)
	return &models.PlanResult{Plan: plan, PlanPrompt: prompt, Usage: &usage}
}

func buildPlanPrompt(topic string) string {
	return fmt.Sprintf("Create a research plan for the query: '%s'. "+
		"The plan should be a JSON object with a single key 'sections', which is an array of objects. "+
		"Each object in the array should have two keys: 'name' (a string for the section title) and "+
		"'search_query' (a string for a concise search engine query). "+
		"Respond with ONLY the JSON object, without any surrounding text or markdown formatting.", topic)
}
