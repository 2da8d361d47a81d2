package textutil

import (
	"encoding/base64"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeJobDescription(t *testing.T) {
	padding := strings.Repeat("We are hiring for an exciting opportunity. ", 8)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			name: "one signal only",
			text: padding + "Responsibilities include shipping features.",
			want: false,
		},
		{
			name: "two signals and long enough",
			text: padding + "Responsibilities include shipping. Requirements: Go experience.",
			want: true,
		},
		{
			name: "two signals but short",
			text: "Responsibilities and requirements.",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeJobDescription(tt.text))
		})
	}
}

func TestAppearsToBeCoverLetter(t *testing.T) {
	body := "Dear Hiring Manager, I am writing to express my interest in the role. " +
		"My experience aligns well with your needs. Sincerely, Jane"

	short := body + strings.Repeat("x", 190-len(body))
	assert.Len(t, short, 190)
	assert.False(t, AppearsToBeCoverLetter(short))

	padded := body + strings.Repeat(" I look forward to hearing from you.", 3)
	assert.Greater(t, len(padded), 200)
	assert.True(t, AppearsToBeCoverLetter(padded))

	noClosing := "Dear Hiring Manager, " + strings.Repeat("I am very interested in this position. ", 6)
	assert.False(t, AppearsToBeCoverLetter(noClosing))
}

func TestExtractContactInfo(t *testing.T) {
	resume := strings.Join([]string{
		"Jane Quincy Doe",
		"123 Maple Street",
		"Springfield, IL 62704",
		"jane.doe@example.com | (217) 555-0134",
		"linkedin.com/in/janedoe",
		"",
		"EXPERIENCE",
	}, "\n")

	info := ExtractContactInfo(resume)

	assert.Equal(t, "Jane Quincy Doe", info.Name)
	assert.Equal(t, "jane.doe@example.com", info.Email)
	assert.Equal(t, "(217) 555-0134", info.Phone)
	assert.Equal(t, "123 Maple Street", info.Address)
	assert.Equal(t, "Springfield", info.City)
	assert.Equal(t, "IL", info.State)
	assert.Equal(t, "62704", info.Zip)
}

func TestExtractContactInfoSkipsNonNameLines(t *testing.T) {
	resume := strings.Join([]string{
		"jane.doe@example.com",
		"github.com/janedoe",
		"Jane Doe",
	}, "\n")

	info := ExtractContactInfo(resume)
	assert.Equal(t, "Jane Doe", info.Name)
}

func TestExtractContactInfoIgnoresBodyBeyondHeader(t *testing.T) {
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = "filler line without signals"
	}
	lines = append(lines, "buried.email@example.com")

	info := ExtractContactInfo(strings.Join(lines, "\n"))
	assert.Empty(t, info.Email)
}

func TestFormatContactInfo(t *testing.T) {
	info := ExtractContactInfo("Jane Doe\n123 Maple Street\nSpringfield, IL 62704\njane@example.com")
	formatted := FormatContactInfo(info)

	assert.Equal(t, "Jane Doe\n123 Maple Street\nSpringfield, IL 62704\njane@example.com", formatted)
}

func TestMakeExcerpt(t *testing.T) {
	assert.Equal(t, "a b c", MakeExcerpt("  a \n b\t c  ", 100))
	assert.Equal(t, "abcde", MakeExcerpt("abcdefgh", 5))
	assert.Empty(t, MakeExcerpt("", 100))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// "é" is two bytes; a limit landing mid-rune backs off instead of
	// splitting it.
	assert.Equal(t, "résum", Truncate("résumé", 7))
	assert.True(t, utf8.ValidString(Truncate(strings.Repeat("ü", 50), 33)))
	assert.Equal(t, "plain", Truncate("plain", 10))
	assert.Equal(t, "pl", Truncate("plain", 2))
}

func TestSafeTextPreview(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("hello   world"))
	assert.Equal(t, "hello world", SafeTextPreview(encoded, 100))
	assert.Empty(t, SafeTextPreview("not-base64!!!", 100))
}

func TestFirstNonEmptyLine(t *testing.T) {
	assert.Equal(t, "March 3, 2025", FirstNonEmptyLine("\n   \nMarch 3, 2025\nDear team,"))
	assert.Empty(t, FirstNonEmptyLine(" \n \n"))
}

func TestExtractUploadTextNonPDF(t *testing.T) {
	assert.Empty(t, ExtractUploadText([]byte("plain text"), "notes.txt", "text/plain"))
}

func TestExtractUploadTextMalformedPDF(t *testing.T) {
	assert.Empty(t, ExtractUploadText([]byte("%PDF-1.4 garbage"), "resume.pdf", "application/pdf"))
}
