package gemini

import (
	"net/http"
	"strings"
)

// Classification is the verdict on a single received response.
type Classification struct {
	Quota      bool
	Overloaded bool
	Retriable  bool
}

// Classify is the only place that interprets provider wording and status
// codes. Matching is a literal, case-sensitive substring check.
func Classify(status int, message string) Classification {
	c := Classification{
		Quota:      strings.Contains(message, "quota"),
		Overloaded: strings.Contains(message, "overloaded"),
	}
	c.Retriable = c.Overloaded || status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
	return c
}

// errorMessage returns error.message from a decoded response body, if any.
func errorMessage(payload any) string {
	m, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	e, ok := m["error"].(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := e["message"].(string)
	return msg
}
