package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	vmerrors "github.com/verimeet/verimeet/pkg/errors"
)

// CleanJSONContent strips markdown code fences and surrounding whitespace
// from a model response. Models occasionally wrap JSON output in ```json
// blocks even when asked not to.
func CleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// UnmarshalContent parses a model response into target after cleanup.
// A failure wraps ErrMalformedResponse so callers can distinguish a bad
// payload from a failed call.
func UnmarshalContent(content string, target interface{}) error {
	cleaned := CleanJSONContent(content)
	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return fmt.Errorf("%w: %v", vmerrors.ErrMalformedResponse, err)
	}
	return nil
}
