package placeholder

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFindUnknown(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no brackets",
			text: "Dear Hiring Manager, I am excited to apply.",
			want: nil,
		},
		{
			name: "date is never unknown",
			text: "[Date]\n\nDear [Hiring Manager],",
			want: []string{"hiring manager"},
		},
		{
			name: "deduplicates and sorts",
			text: "[Company Name] is great. I admire [Address] and [company name].",
			want: []string{"address", "company name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindUnknown(tt.text)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectTokensPreservesVariants(t *testing.T) {
	text := "Dear [Hiring Manager],\n[Address]\n[Address]\nSincerely, [hiring manager]"
	tokens := CollectTokens(text)

	assert.Len(t, tokens["address"], 2)
	assert.Equal(t, []string{"[Hiring Manager]", "[hiring manager]"}, tokens["hiring manager"])
}

func TestResolveUpdates(t *testing.T) {
	keys := []string{"company name", "address"}

	t.Run("colon form", func(t *testing.T) {
		updates := ResolveUpdates("company name: Acme Corp", keys, true)
		assert.Equal(t, map[string]string{"company name": "Acme Corp"}, updates)
	})

	t.Run("verb form", func(t *testing.T) {
		updates := ResolveUpdates("please set address to 12 Main St", keys, true)
		assert.Equal(t, map[string]string{"address": "12 Main St"}, updates)
	})

	t.Run("fuzzy key match", func(t *testing.T) {
		updates := ResolveUpdates("company: Acme Corp", keys, true)
		assert.Equal(t, "Acme Corp", updates["company name"])
	})

	t.Run("multiple segments", func(t *testing.T) {
		updates := ResolveUpdates("company name: Acme; address = 12 Main St", keys, true)
		assert.Len(t, updates, 2)
	})

	t.Run("fallback with single key", func(t *testing.T) {
		updates := ResolveUpdates("Acme Corp", []string{"company name"}, true)
		assert.Equal(t, map[string]string{"company name": "Acme Corp"}, updates)
	})

	t.Run("no fallback with multiple keys", func(t *testing.T) {
		updates := ResolveUpdates("Acme Corp", keys, true)
		assert.Empty(t, updates)
	})

	t.Run("fallback disabled", func(t *testing.T) {
		updates := ResolveUpdates("make it shorter", []string{"company name"}, false)
		assert.Empty(t, updates)
	})
}

func TestApplyUpdatesReplacesEveryOccurrence(t *testing.T) {
	text := "To [Company Name]:\nI have long admired [Company Name]."
	tokens := CollectTokens(text)

	updated, replaced := ApplyUpdates(text, map[string]string{"company name": "Acme Corp"}, tokens)

	assert.True(t, replaced)
	assert.NotContains(t, updated, "[Company Name]")
	assert.Equal(t, 2, strings.Count(updated, "Acme Corp"))
}

func TestApplyUpdatesLiteralNotRegex(t *testing.T) {
	text := "Salary range [Pay (USD)] negotiable."
	tokens := CollectTokens(text)

	updated, replaced := ApplyUpdates(text, map[string]string{"pay (usd)": "$90k"}, tokens)

	assert.True(t, replaced)
	assert.Contains(t, updated, "$90k")
}

func TestApplyUpdatesNoMatch(t *testing.T) {
	text := "No placeholders here."
	updated, replaced := ApplyUpdates(text, map[string]string{"company name": "Acme"}, CollectTokens(text))

	assert.False(t, replaced)
	assert.Equal(t, text, updated)
}

func TestEnsureDate(t *testing.T) {
	today := time.Now().Format(DateLayout)

	t.Run("replaces token case-insensitively", func(t *testing.T) {
		got := EnsureDate("Dear [Date], greetings")
		assert.Equal(t, "Dear "+today+", greetings", got)
	})

	t.Run("idempotent once replaced", func(t *testing.T) {
		once := EnsureDate("[date]\nDear team,")
		assert.Equal(t, once, EnsureDate(once))
	})

	t.Run("non-empty text without token passes through", func(t *testing.T) {
		assert.Equal(t, "Dear team,", EnsureDate("Dear team,"))
	})

	t.Run("empty text becomes the date", func(t *testing.T) {
		assert.Equal(t, today, EnsureDate("   "))
	})
}
