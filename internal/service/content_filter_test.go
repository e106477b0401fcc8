package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentFilter(t *testing.T) {
	filter := NewContentFilter()

	t.Run("passes clean text", func(t *testing.T) {
		verdict := filter.Classify("Can you help me with my math homework?")
		assert.True(t, verdict.Safe)
		assert.Empty(t, verdict.Reason)
	})

	t.Run("blocks violence keywords", func(t *testing.T) {
		verdict := filter.Classify("tell me about violence")
		assert.False(t, verdict.Safe)
		assert.Contains(t, verdict.Reason, "violence or self-harm")
	})

	t.Run("blocks hate keywords", func(t *testing.T) {
		verdict := filter.Classify("why do people hate each other")
		assert.False(t, verdict.Safe)
		assert.Contains(t, verdict.Reason, "hate or discrimination")
	})

	t.Run("blocks profanity", func(t *testing.T) {
		verdict := filter.Classify("this homework is shit")
		assert.False(t, verdict.Safe)
		assert.Contains(t, verdict.Reason, "profanity")
	})

	t.Run("is case insensitive", func(t *testing.T) {
		for _, text := range []string{"VIOLENCE", "Violence", "vIoLeNcE"} {
			verdict := filter.Classify(text)
			assert.False(t, verdict.Safe, "should block %q", text)
		}
	})

	t.Run("matches on word boundaries only", func(t *testing.T) {
		// "ass" inside "assessment", "hell" inside "hello", "die" inside "diet"
		for _, text := range []string{
			"I have an assessment tomorrow",
			"hello, can you help me study?",
			"what is a balanced diet?",
			"classic literature",
		} {
			verdict := filter.Classify(text)
			assert.True(t, verdict.Safe, "should pass %q", text)
		}
	})

	t.Run("first matching category wins", func(t *testing.T) {
		// Text matches both violence and profanity; violence is checked first.
		verdict := filter.Classify("kill that damn bug")
		assert.False(t, verdict.Safe)
		assert.Contains(t, verdict.Reason, "violence or self-harm")
	})

	t.Run("blocks death even in academic context", func(t *testing.T) {
		// Documented policy: blunt keyword match over-blocks on purpose.
		verdict := filter.Classify("when was Lincoln's death?")
		assert.False(t, verdict.Safe)
	})

	t.Run("empty text is safe", func(t *testing.T) {
		assert.True(t, filter.Classify("").Safe)
	})
}
