package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/example/research-reporter/internal/models"
)

// ErrMissingSections is returned when the plan JSON has no "sections" key.
var ErrMissingSections = errors.New("plan has no sections key")

var jsonFence = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// ExtractText walks candidates[0].content.parts[0].text.
func ExtractText(payload any) (string, bool) {
	root, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}
	candidates, ok := root["candidates"].([]any)
	if !ok || len(candidates) == 0 {
		return "", false
	}
	first, ok := candidates[0].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := first["content"].(map[string]any)
	if !ok {
		return "", false
	}
	parts, ok := content["parts"].([]any)
	if !ok || len(parts) == 0 {
		return "", false
	}
	part, ok := parts[0].(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := part["text"].(string)
	return text, ok
}

// ExtractJSONBlock returns the object inside a ```json fence, or text
// unchanged when there is no such fence.
func ExtractJSONBlock(text string) string {
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// ExtractUsage reads usageMetadata; absent or malformed metadata yields zero usage.
func ExtractUsage(payload any) models.Usage {
	var u models.Usage
	root, ok := payload.(map[string]any)
	if !ok {
		return u
	}
	meta, ok := root["usageMetadata"]
	if !ok || meta == nil {
		return u
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return u
	}
	if err := json.Unmarshal(b, &u); err != nil {
		return models.Usage{}
	}
	return u
}

// ParsePlan decodes a research plan from model text, tolerating a ```json fence.
func ParsePlan(text string) (*models.ResearchPlan, error) {
	raw := strings.TrimSpace(ExtractJSONBlock(text))
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	sections, ok := probe["sections"]
	if !ok || string(sections) == "null" {
		return nil, ErrMissingSections
	}
	plan := &models.ResearchPlan{}
	if err := json.Unmarshal(sections, &plan.Sections); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	return plan, nil
}
