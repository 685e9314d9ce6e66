package tools

import "context"

// ProgressCallback receives human-readable progress lines as a stage runs.
type ProgressCallback func(line string)

type ctxKey string

var ctxProgressKey ctxKey = "progress_cb"

// WithProgress attaches cb to ctx.
func WithProgress(ctx context.Context, cb ProgressCallback) context.Context {
	return context.WithValue(ctx, ctxProgressKey, cb)
}

// ReportProgress forwards line to the callback in ctx, if any.
func ReportProgress(ctx context.Context, line string) {
	if cb, ok := ctx.Value(ctxProgressKey).(ProgressCallback); ok && cb != nil {
		cb(line)
	}
}
