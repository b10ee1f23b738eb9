package extract

import (
	"strings"
)

// Repair restores the opening of a JSON object when the model started its answer
// mid-object, either after the opening brace or after the first key's opening quote.
// Nothing else is fixed; truncated or otherwise broken output still fails to parse.
func Repair(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, `{"`) {
		return raw
	}
	if strings.HasPrefix(trimmed, `"`) {
		return "{" + raw
	}
	return `{"` + raw
}
