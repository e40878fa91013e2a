// Package dispatch implements the provider dispatch pipeline: resolve the
// provider from the model name, gate it against configuration, translate
// the conversation, execute the backend call, and extract the reply text.
package dispatch

import (
	"strings"

	"promptrun/internal/core"
)

// prefixRule binds a model-name prefix to a provider.
type prefixRule struct {
	prefix   string
	provider core.ProviderID
}

// prefixRules is evaluated top to bottom and the first match wins.
// Prefixes could in principle overlap, so adding a provider means
// appending a rule; never reorder existing entries.
var prefixRules = []prefixRule{
	{"gpt", core.ProviderOpenAI},
	{"claude", core.ProviderAnthropic},
	{"gemini", core.ProviderGoogle},
}

// Resolve maps a model identifier to its provider. It is total and
// deterministic: model names no rule matches yield ProviderUnknown.
func Resolve(model string) core.ProviderID {
	for _, rule := range prefixRules {
		if strings.HasPrefix(model, rule.prefix) {
			return rule.provider
		}
	}
	return core.ProviderUnknown
}
