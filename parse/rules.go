// Package parse turns an utterance into a structured command, first with
// fixed substring rules and then with an inference service.
package parse

import (
	"strings"

	"github.com/Paranoid-AF/saycmd"
)

// Rule maps a trigger phrase to an action.
type Rule struct {
	Trigger string
	Action  saycmd.Action
}

// Rules is evaluated top to bottom; the first trigger found in the text wins.
var Rules = []Rule{
	{"copy", saycmd.ActionCopy},
	{"paste", saycmd.ActionPaste},
	{"delete", saycmd.ActionDelete},
	{"type", saycmd.ActionTypeText},
	{"open", saycmd.ActionOpen},
	{"rename", saycmd.ActionRename},
	{"go back", saycmd.ActionGoBack},
	{"disk space", saycmd.ActionShowSpace},
}

// MatchRule applies Rules to text. The value is the text with the first
// occurrence of the trigger removed; actions without a target get no value.
func MatchRule(text string) (saycmd.Command, bool) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	if lower == "" {
		return saycmd.Command{}, false
	}

	for _, r := range Rules {
		i := strings.Index(lower, r.Trigger)
		if i < 0 {
			continue
		}
		if !r.Action.NeedsTarget() && r.Action != saycmd.ActionTypeText {
			return saycmd.Command{Action: string(r.Action)}, true
		}
		// Cut from the original text when lower-casing kept byte offsets, so typed
		// text keeps its case.
		src := lower
		if len(trimmed) == len(lower) {
			src = trimmed
		}
		value := strings.TrimSpace(src[:i] + src[i+len(r.Trigger):])
		return saycmd.Command{Action: string(r.Action), Value: value}, true
	}
	return saycmd.Command{}, false
}
