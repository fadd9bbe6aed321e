package segment

import (
	"encoding/json"
	"strings"

	"dailypost/internal/types"
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`,
	"”", `"`,
)

// ParseItems extracts the list of strings from a model answer. It accepts, in
// order: {"items": [...]}, a bare JSON array, then the first {...} or [...]
// span found in the text. Non-string elements are skipped. Anything else
// yields nil.
func ParseItems(raw string) []string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	if items, ok := decodeItems(text); ok {
		return items
	}
	for _, delims := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		if span, ok := outerSpan(text, delims[0], delims[1]); ok {
			if items, ok := decodeItems(span); ok {
				return items
			}
		}
	}
	return nil
}

func decodeItems(text string) ([]string, bool) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, false
	}
	switch v := value.(type) {
	case map[string]any:
		list, ok := v["items"].([]any)
		if !ok {
			return nil, false
		}
		return stringsOf(list), true
	case []any:
		return stringsOf(v), true
	default:
		return nil, false
	}
}

func stringsOf(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// outerSpan returns the text from the first open to the last close delimiter.
func outerSpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Clean normalizes curly double quotes, drops blank, over-long and duplicate
// entries, and truncates to maxItems when it is positive. Order is kept.
func Clean(items []string, maxItems int) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		text, ok := types.NormalizePost(quoteReplacer.Replace(item))
		if !ok {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, text)
		if maxItems > 0 && len(out) == maxItems {
			break
		}
	}
	return out
}
