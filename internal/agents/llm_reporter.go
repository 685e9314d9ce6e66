package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/research-reporter/internal/models"
	"github.com/example/research-reporter/internal/providers/gemini"
	"github.com/example/research-reporter/internal/tools"
)

// MaxEvidencePerSection caps how many search results of a section reach the prompt.
const MaxEvidencePerSection = 3

// LLMReporter runs the section searches in plan order and makes a single
// model call with all of the evidence.
type LLMReporter struct {
	Client *gemini.Client
	Search tools.Searcher
}

func (r *LLMReporter) GenerateReport(ctx context.Context, topic string, plan *models.ResearchPlan) *models.ReportResult {
	if !r.Client.Configured() {
		return &models.ReportResult{Error: apiKeyNotConfigured, ErrorKind: models.ErrorConfig}
	}
	if plan == nil {
		plan = &models.ResearchPlan{}
	}
	slog.Info("reporter: generating report from search results", slog.String("prompt", topic), slog.Int("sections", len(plan.Sections)))

	evidence, summary := r.gatherEvidence(ctx, plan)
	names := plan.SectionNames()
	prompt := buildReportPrompt(topic, names, evidence)

	out := r.Client.Generate(ctx, prompt)
	if !out.OK() {
		return &models.ReportResult{
			Error:     "Error generating final report: " + out.ErrorMessage(),
			ErrorKind: outcomeKind(out),
		}
	}
	text, ok := gemini.ExtractText(out.Payload)
	if !ok {
		return &models.ReportResult{
			Error:     "Could not generate final report from search results.",
			ErrorKind: models.ErrorMalformed,
		}
	}
	usage := gemini.ExtractUsage(out.Payload)
	return &models.ReportResult{
		Report:  text,
		Summary: strings.Join(summary, "\n"),
		TOC:     tableOfContents(names),
		Usage:   &usage,
	}
}

// gatherEvidence searches sequentially; the context string must follow the
// section order. A failed search adds neither evidence nor a summary line.
func (r *LLMReporter) gatherEvidence(ctx context.Context, plan *models.ResearchPlan) (string, []string) {
	var sb strings.Builder
	var summary []string
	for _, section := range plan.Sections {
		if r.Search == nil {
			break
		}
		items, err := r.Search.Search(ctx, section.SearchQuery)
		if err != nil {
			slog.Warn("reporter: web search failed", slog.String("section", section.Name), slog.Any("error", err))
			continue
		}
		writeSectionEvidence(&sb, section.Name, items)
		line := fmt.Sprintf("Finished searching for '%s'", section.SearchQuery)
		summary = append(summary, line)
		tools.ReportProgress(ctx, line)
	}
	return sb.String(), summary
}

func writeSectionEvidence(sb *strings.Builder, name string, items []models.EvidenceItem) {
	fmt.Fprintf(sb, "Research for section '%s':\n", name)
	if len(items) > MaxEvidencePerSection {
		items = items[:MaxEvidencePerSection]
	}
	for _, it := range items {
		fmt.Fprintf(sb, "Title: %s\nSnippet: %s\nSource: %s\n\n", it.Title, it.Snippet, it.Link)
	}
}

const exampleHeading = "Key Aspects of Topic"

func buildReportPrompt(topic string, sectionNames []string, evidence string) string {
	return fmt.Sprintf(`You are a senior research assistant tasked with generating a comprehensive report in Markdown format based on web search snippets. The topic is '%s'.

The report MUST be structured into the following sections, using the exact titles provided:
- %s

Crucially, before each Markdown heading for a section, you MUST insert an HTML anchor tag. The 'name' attribute of the anchor must be a 'slug' of the section title (all lowercase, spaces replaced with hyphens, and special characters removed).

For example, for a section titled '%s', the final output in the report must be formatted exactly like this:
<a name="%s"></a>
## %s
... content for the section ...

Follow this instruction for all sections.

--- WEB SEARCH SNIPPETS ---
%s
--- END OF SNIPPETS ---

Now, generate the full report following these instructions precisely.`,
		topic,
		strings.Join(sectionNames, "\n- "),
		exampleHeading, Slugify(exampleHeading), exampleHeading,
		evidence,
	)
}
