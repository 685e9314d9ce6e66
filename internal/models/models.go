package models

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPlanning  Status = "PLANNING"
	StatusPlanned   Status = "PLANNED"
	StatusReporting Status = "REPORTING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
)

// ErrorKind lets callers tell quota problems and misconfiguration apart from
// ordinary upstream failures.
type ErrorKind string

const (
	ErrorTransport  ErrorKind = "transport"
	ErrorTransient  ErrorKind = "transient"
	ErrorQuota      ErrorKind = "quota"
	ErrorOverloaded ErrorKind = "overloaded"
	ErrorMalformed  ErrorKind = "malformed"
	ErrorConfig     ErrorKind = "config"
	ErrorFatal      ErrorKind = "fatal"
)

type Section struct {
	Name        string `json:"name"`
	SearchQuery string `json:"search_query"`
}

// ResearchPlan keeps sections in the order the model returned them.
type ResearchPlan struct {
	Sections []Section `json:"sections"`
}

// SectionNames returns the headings in plan order.
func (p *ResearchPlan) SectionNames() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Sections))
	for _, s := range p.Sections {
		out = append(out, s.Name)
	}
	return out
}

type EvidenceItem struct {
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Link    string `json:"link,omitempty"`
}

type Usage struct {
	TotalTokenCount      int `json:"totalTokenCount"`
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
}

// Add returns the element-wise sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		TotalTokenCount:      u.TotalTokenCount + o.TotalTokenCount,
		PromptTokenCount:     u.PromptTokenCount + o.PromptTokenCount,
		CandidatesTokenCount: u.CandidatesTokenCount + o.CandidatesTokenCount,
	}
}

// PlanResult is either {plan, planPrompt, usage} or {error, [planPrompt]}.
type PlanResult struct {
	Plan       *ResearchPlan `json:"plan,omitempty"`
	PlanPrompt string        `json:"planPrompt,omitempty"`
	Usage      *Usage        `json:"usage,omitempty"`
	Error      string        `json:"error,omitempty"`
	ErrorKind  ErrorKind     `json:"error_kind,omitempty"`
}

func (r *PlanResult) Failed() bool { return r == nil || r.Error != "" }

// TOCEntry pairs a report heading with the anchor name placed before it.
type TOCEntry struct {
	Name   string `json:"name"`
	Anchor string `json:"anchor"`
}

// ReportResult is either {report, intermediate_summary, toc, usage} or {error}.
type ReportResult struct {
	Report    string     `json:"report,omitempty"`
	Summary   string     `json:"intermediate_summary,omitempty"`
	TOC       []TOCEntry `json:"toc,omitempty"`
	Usage     *Usage     `json:"usage,omitempty"`
	Error     string     `json:"error,omitempty"`
	ErrorKind ErrorKind  `json:"error_kind,omitempty"`
}

func (r *ReportResult) Failed() bool { return r == nil || r.Error != "" }

// Task tracks one prompt through planning and report generation.
type Task struct {
	ID         string        `json:"id"`
	Prompt     string        `json:"prompt"`
	Status     Status        `json:"status"`
	Plan       *ResearchPlan `json:"plan,omitempty"`
	PlanPrompt string        `json:"planPrompt,omitempty"`
	Report     string        `json:"report,omitempty"`
	Summary    string        `json:"intermediate_summary,omitempty"`
	TOC        []TOCEntry    `json:"toc,omitempty"`
	Usage      Usage         `json:"usage"`
	Error      string        `json:"error,omitempty"`
	ErrorKind  ErrorKind     `json:"error_kind,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
