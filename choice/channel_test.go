package choice

import (
	"context"
	"testing"
	"time"

	"github.com/Paranoid-AF/saycmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRequestChoiceAnsweredFromNotify(t *testing.T) {
	var c *Channel
	c = NewChannel(func(req Request) {
		assert.Equal(t, []string{"/a/report.txt", "/b/report.pdf"}, req.Options)
		require.NoError(t, c.SupplyChoice(req.Options[1]))
		assert.ErrorIs(t, c.SupplyChoice(req.Options[0]), ErrAlreadySupplied)
	})

	got, err := c.RequestChoice(context.Background(), "Multiple matches", []string{"/a/report.txt", "/b/report.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "/b/report.pdf", got)

	_, ok := c.Pending()
	assert.False(t, ok)
}

func TestRequestChoiceAnsweredFromAnotherGoroutine(t *testing.T) {
	posted := make(chan Request, 1)
	c := NewChannel(func(req Request) { posted <- req })

	done := make(chan string)
	go func() {
		got, err := c.RequestChoice(context.Background(), "New name?", nil)
		assert.NoError(t, err)
		done <- got
	}()

	req := <-posted
	assert.True(t, req.FreeText())
	pendingReq, ok := c.Pending()
	require.True(t, ok)
	assert.Equal(t, "New name?", pendingReq.Prompt)

	require.NoError(t, c.SupplyChoice("final.txt"))
	assert.Equal(t, "final.txt", <-done)
}

func TestSupplyChoiceWithoutRequest(t *testing.T) {
	c := NewChannel(nil)
	assert.ErrorIs(t, c.SupplyChoice("x"), ErrNoPendingChoice)
}

func TestStaleAnswerDoesNotLeakIntoNextRequest(t *testing.T) {
	var c *Channel
	answers := []string{"first"}
	c = NewChannel(func(req Request) {
		if len(answers) > 0 {
			require.NoError(t, c.SupplyChoice(answers[0]))
			answers = answers[1:]
		}
	})

	got, err := c.RequestChoice(context.Background(), "one", []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	assert.ErrorIs(t, c.SupplyChoice("late"), ErrNoPendingChoice)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.RequestChoice(ctx, "two", []string{"a", "b"})
	assert.ErrorIs(t, err, saycmd.ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSecondOutstandingRequestPanics(t *testing.T) {
	posted := make(chan struct{})
	c := NewChannel(func(Request) { close(posted) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.RequestChoice(ctx, "first", []string{"a"})
	}()
	<-posted

	assert.Panics(t, func() {
		_, _ = c.RequestChoice(context.Background(), "second", []string{"b"})
	})

	cancel()
	<-done
}

func TestSelect(t *testing.T) {
	options := []string{"/a/report.txt", "/b/report.pdf"}
	tests := []struct {
		input    string
		want     string
		fallback bool
	}{
		{"1", "/a/report.txt", false},
		{" 2 ", "/b/report.pdf", false},
		{"/B/REPORT.PDF", "/b/report.pdf", false},
		{"3", "/a/report.txt", true},
		{"0", "/a/report.txt", true},
		{"banana", "/a/report.txt", true},
		{"", "/a/report.txt", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, fallback := Select(tt.input, options)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.fallback, fallback)
		})
	}

	got, fallback := Select("  new name.txt ", nil)
	assert.Equal(t, "new name.txt", got)
	assert.False(t, fallback)
}

func TestFormatPrompt(t *testing.T) {
	out := FormatPrompt(Request{
		Prompt:  "Multiple matches found for 'report'. Choose one:",
		Options: []string{"/a/report.txt", "/b/report.pdf"},
	})
	assert.Equal(t, "Multiple matches found for 'report'. Choose one:\n1. /a/report.txt\n2. /b/report.pdf\nEnter number: ", out)

	assert.Equal(t, "New name?\n> ", FormatPrompt(Request{Prompt: "New name?"}))
}
