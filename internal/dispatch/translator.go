package dispatch

import (
	"strings"

	"promptrun/internal/core"
)

// systemSeparator joins the contents of multiple system messages.
const systemSeparator = "\n"

// Translate converts a conversation into its provider-neutral form.
// System messages are merged, in original order, into one system text;
// a conversation without system messages yields a nil System (absent,
// not empty). All other messages keep their relative order. A role
// outside the known set is mapped to a user turn rather than rejected.
func Translate(conv core.Conversation) core.Prompt {
	var systems []string
	turns := make([]core.Turn, 0, len(conv))

	for _, msg := range conv {
		switch msg.Role {
		case core.RoleSystem:
			systems = append(systems, msg.Content)
		case core.RoleAssistant:
			turns = append(turns, core.Turn{Role: core.RoleAssistant, Text: msg.Content})
		default:
			// Unrecognized roles fall back to user turns.
			turns = append(turns, core.Turn{Role: core.RoleUser, Text: msg.Content})
		}
	}

	prompt := core.Prompt{Turns: turns}
	if len(systems) > 0 {
		merged := strings.Join(systems, systemSeparator)
		prompt.System = &merged
	}
	return prompt
}
