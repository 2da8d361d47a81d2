package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPDFRequest(t *testing.T) {
	tests := []struct {
		message string
		want    PDFTarget
	}{
		{"create pdf", PDFCoverLetter},
		{"Can you PDF this?", PDFCoverLetter},
		{"save as pdf please", PDFCoverLetter},
		{"export my resume to pdf", PDFResume},
		{"make a pdf of my CV", PDFResume},
		{"create file", PDFCoverLetter},
		{"tell me about the company", PDFNone},
		{"", PDFNone},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPDFRequest(tt.message))
		})
	}
}

func TestDetectResumeReview(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"can you review my resume?", true},
		{"what do you think of my resume", true},
		{"give me feedback on my CV", true},
		{"review the job description", false},
		{"my resume is attached", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectResumeReview(tt.message))
		})
	}
}

func TestLooksLikeLetterAdjustment(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"make it shorter", true},
		{"can you emphasize my leadership?", true},
		{"please soften the second paragraph", true},
		{"update the closing", true},
		{"I want a friendlier tone", true},
		{"create pdf", false},
		{"download pdf now", false},
		{"hello there", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeLetterAdjustment(tt.message))
		})
	}
}

func TestDetectRequestSignals(t *testing.T) {
	t.Run("positive matches", func(t *testing.T) {
		signals := DetectRequestSignals("please write a cover letter for this role")
		assert.True(t, signals.HasIntent)
		assert.True(t, signals.RequestsCoverLetter)
	})

	t.Run("negation vetoes cover letter", func(t *testing.T) {
		signals := DetectRequestSignals("I do not need a cover letter, just resume help")
		assert.False(t, signals.RequestsCoverLetter)
		assert.True(t, signals.RequestsResumeUpdate)
	})

	t.Run("resume term without intent", func(t *testing.T) {
		signals := DetectRequestSignals("my resume")
		assert.False(t, signals.RequestsResumeUpdate)
	})

	t.Run("negation vetoes resume", func(t *testing.T) {
		signals := DetectRequestSignals("help me apply without resume changes")
		assert.False(t, signals.RequestsResumeUpdate)
	})
}

func TestShouldDraftCoverLetter(t *testing.T) {
	jobDescription := strings.Repeat("Great opportunity at Acme. ", 10) +
		"Responsibilities: ship features. Requirements: Go."

	tests := []struct {
		name                string
		message             string
		hasAttachments      bool
		hasIntent           bool
		requestsCoverLetter bool
		want                bool
	}{
		{name: "explicit phrase", message: "I need a cover letter", want: true},
		{name: "verb plus letter", message: "draft a letter for me", want: true},
		{name: "job description without intent", message: jobDescription, want: false},
		{name: "job description with intent", message: jobDescription, hasIntent: true, want: true},
		{name: "attachments plus drafting verb", message: "write something based on my files", hasAttachments: true, want: true},
		{name: "plain chat", message: "how are you today", want: false},
		{name: "empty", message: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldDraftCoverLetter(tt.message, tt.hasAttachments, tt.hasIntent, tt.requestsCoverLetter)
			assert.Equal(t, tt.want, got)
		})
	}
}
