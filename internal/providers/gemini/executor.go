package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = time.Second

	overloadedMessage = "The model is overloaded. Please try again later."
	decodeFailed      = "Failed to decode JSON response from API."
	retriesExhausted  = "API call failed after multiple retries."
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Executor sends one logical request to the model endpoint with bounded
// retries and exponential backoff, and classifies what came back.
type Executor struct {
	HTTPClient     Doer
	MaxAttempts    int
	InitialBackoff time.Duration
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor returns an Executor with the default retry policy.
func NewExecutor(client Doer) *Executor {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &Executor{
		HTTPClient:     client,
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: DefaultInitialBackoff,
	}
}

// Execute posts body as JSON to endpoint. Attempts never overlap; each
// backoff elapses in full before the next one starts.
func (e *Executor) Execute(ctx context.Context, endpoint string, body any) Outcome {
	b, err := json.Marshal(body)
	if err != nil {
		return fatal(fmt.Sprintf("encode request: %v", err), 0)
	}
	maxAttempts := e.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	delay := e.InitialBackoff
	if delay <= 0 {
		delay = DefaultInitialBackoff
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, raw, err := e.send(ctx, endpoint, b)
		if err != nil {
			// Transport errors are never retried.
			out := fatal(transportMessage(err), attempt)
			out.Transport = true
			return out
		}

		var payload any
		decodeErr := json.Unmarshal(raw, &payload)
		msg := errorMessage(payload)
		c := Classify(status, msg)

		if c.Quota {
			return Outcome{Kind: QuotaExceeded, Message: msg, Attempts: attempt}
		}

		if c.Retriable && attempt < maxAttempts {
			slog.Info("gemini: API is busy, retrying",
				slog.Int("status", status),
				slog.Duration("delay", delay),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", maxAttempts),
			)
			if err := e.sleep(ctx, delay); err != nil {
				return Outcome{
					Kind:     TransientFailure,
					Message:  fmt.Sprintf("retry wait interrupted after %d attempts (HTTP %d): %v", attempt, status, err),
					Attempts: attempt,
				}
			}
			delay *= 2
			continue
		}

		if decodeErr != nil {
			out := fatal(decodeFailed, attempt)
			out.Malformed = true
			return out
		}
		if msg != "" {
			if c.Overloaded {
				out := fatal(overloadedMessage, attempt)
				out.Overloaded = true
				return out
			}
			return fatal(msg, attempt)
		}
		// An exhausted 429/503 without an error message is handed over as is;
		// the interpreter rejects it for its missing content.
		return succeeded(payload, attempt)
	}

	return fatal(retriesExhausted, maxAttempts)
}

func (e *Executor) send(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := e.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return res.StatusCode, raw, nil
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transportMessage drops the request URL from client errors; the endpoint
// carries the API key in its query string.
func transportMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Op + ": " + uerr.Err.Error()
	}
	return err.Error()
}
