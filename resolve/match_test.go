package resolve

import (
	"testing"

	"github.com/Paranoid-AF/saycmd"
	"github.com/stretchr/testify/assert"
)

func TestCloseMatches(t *testing.T) {
	tests := []struct {
		name          string
		word          string
		possibilities []string
		n             int
		cutoff        float64
		want          []string
	}{
		{"best first", "apple", []string{"ape", "apple", "peach", "puppy"}, 3, 0.6, []string{"apple", "ape"}},
		{"limit n", "apple", []string{"ape", "apple", "peach", "puppy"}, 1, 0.6, []string{"apple"}},
		{"nothing above cutoff", "xyz123", []string{"report", "downloads"}, 3, 0.6, nil},
		{"ties keep input order", "abc", []string{"abd", "abe"}, 2, 0.6, []string{"abd", "abe"}},
		{"zero n", "apple", []string{"apple"}, 0, 0.6, nil},
		{"empty possibilities", "apple", nil, 3, 0.6, nil},
		{"unicode runes", "café", []string{"cafe", "cafés"}, 2, 0.6, []string{"cafés", "cafe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CloseMatches(tt.word, tt.possibilities, tt.n, tt.cutoff)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("report", "report"), 1e-9)
	assert.InDelta(t, 2.0*5/11, Similarity("delet", "delete"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
}

func TestResolveAction(t *testing.T) {
	r := NewActionResolver(DefaultCutoff)

	tests := []struct {
		label string
		want  saycmd.Action
		ok    bool
	}{
		{"delete", saycmd.ActionDelete, true},
		{"  DELETE ", saycmd.ActionDelete, true},
		{"delet", saycmd.ActionDelete, true},
		{"list directory", saycmd.ActionListDirectory, true},
		{"show-space", saycmd.ActionShowSpace, true},
		{"get size", saycmd.ActionGetSize, true},
		{"navigat", saycmd.ActionNavigate, true},
		{"typ text", saycmd.ActionTypeText, true},
		{"go_back", saycmd.ActionGoBack, true},
		{"xyzzy", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := r.ResolveAction(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveActionEveryVocabularyLabel(t *testing.T) {
	r := NewActionResolver(0)
	for _, a := range saycmd.Actions {
		got, ok := r.ResolveAction(string(a))
		assert.True(t, ok, a)
		assert.Equal(t, a, got)
	}
}
