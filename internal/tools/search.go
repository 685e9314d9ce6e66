package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/example/research-reporter/internal/config"
	"github.com/example/research-reporter/internal/models"
)

const cseScope = "https://www.googleapis.com/auth/cse"

// ErrSearchNotConfigured is returned when no usable search engine id is set.
var ErrSearchNotConfigured = errors.New("web search is not configured")

// Searcher is the web-search collaborator. Failures come back as errors,
// never panics; a nil slice with a nil error means "no results".
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.EvidenceItem, error)
}

// CustomSearch queries the Google Custom Search JSON API.
type CustomSearch struct {
	svc      *customsearch.Service
	engineID string
	limiter  *rate.Limiter

	// Timeout bounds each query; zero means no extra deadline.
	Timeout time.Duration
}

// NewCustomSearch builds a client for engineID. A nil limiter disables pacing.
func NewCustomSearch(ctx context.Context, engineID string, limiter *rate.Limiter, opts ...option.ClientOption) (*CustomSearch, error) {
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("custom search client: %w", err)
	}
	return &CustomSearch{svc: svc, engineID: engineID, limiter: limiter}, nil
}

// NewSearcherFromConfig returns a Custom Search client, authenticated with the
// search API key when one is set and with application default credentials
// otherwise. It falls back to a searcher that always reports
// ErrSearchNotConfigured.
func NewSearcherFromConfig(ctx context.Context, cfg config.Config) Searcher {
	if !cfg.SearchConfigured() {
		slog.Warn("search: engine id not configured; web search disabled")
		return Unconfigured{}
	}
	var opts []option.ClientOption
	if cfg.SearchKeyConfigured() {
		opts = append(opts, option.WithAPIKey(cfg.SearchAPIKey))
	} else {
		slog.Warn("search: no API key, using application default credentials")
		opts = append(opts, option.WithScopes(cseScope))
	}
	limit := rate.Inf
	if cfg.SearchRatePS > 0 {
		limit = rate.Limit(cfg.SearchRatePS)
	}
	limiter := rate.NewLimiter(limit, 1)
	cs, err := NewCustomSearch(ctx, cfg.SearchEngineID, limiter, opts...)
	if err != nil {
		slog.Warn("search: client init failed; web search disabled", slog.Any("error", err))
		return Unconfigured{}
	}
	cs.Timeout = cfg.SearchTimeout
	return cs
}

func (c *CustomSearch) Search(ctx context.Context, query string) ([]models.EvidenceItem, error) {
	if c.engineID == "" || c.engineID == config.PlaceholderSearchEngineID {
		return nil, ErrSearchNotConfigured
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	res, err := c.svc.Cse.List().Cx(c.engineID).Q(query).Context(ctx).Do()
	if err != nil {
		slog.Warn("search: query failed", slog.String("query", query), slog.Any("error", err))
		return nil, fmt.Errorf("custom search %q: %w", query, err)
	}
	items := make([]models.EvidenceItem, 0, len(res.Items))
	for _, it := range res.Items {
		if it == nil {
			continue
		}
		snippet := it.Snippet
		if snippet == "" && it.HtmlSnippet != "" {
			snippet = HTMLToText(it.HtmlSnippet)
		}
		items = append(items, models.EvidenceItem{Title: it.Title, Snippet: snippet, Link: it.Link})
	}
	return items, nil
}

// Unconfigured is the Searcher used when search credentials are missing.
type Unconfigured struct{}

func (Unconfigured) Search(context.Context, string) ([]models.EvidenceItem, error) {
	return nil, ErrSearchNotConfigured
}
