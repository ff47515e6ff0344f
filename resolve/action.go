package resolve

import (
	"strings"

	"github.com/Paranoid-AF/saycmd"
)

// ActionResolver maps a free-form action label onto the vocabulary.
type ActionResolver struct {
	cutoff float64
	labels []string
}

// NewActionResolver returns a resolver using the given similarity cutoff.
func NewActionResolver(cutoff float64) *ActionResolver {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	labels := make([]string, len(saycmd.Actions))
	for i, a := range saycmd.Actions {
		labels[i] = string(a)
	}
	return &ActionResolver{cutoff: cutoff, labels: labels}
}

// ResolveAction returns the vocabulary action closest to label.
func (r *ActionResolver) ResolveAction(label string) (saycmd.Action, bool) {
	norm := normalizeLabel(label)
	if norm == "" {
		return "", false
	}
	for _, l := range r.labels {
		if l == norm {
			return saycmd.Action(l), true
		}
	}
	if best := CloseMatches(norm, r.labels, 1, r.cutoff); len(best) > 0 {
		return saycmd.Action(best[0]), true
	}
	return "", false
}

func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(label)
}
