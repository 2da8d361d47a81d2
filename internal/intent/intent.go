// Package intent classifies free-text chat messages into the actions the
// orchestrator routes on. Detection is driven by the phrase tables in
// phrases.go so the vocabulary can grow without touching branching logic.
package intent

import (
	"strings"

	"github.com/applywise/applywise/internal/textutil"
)

// PDFTarget identifies what kind of document a PDF request refers to.
type PDFTarget int

const (
	PDFNone PDFTarget = iota
	PDFCoverLetter
	PDFResume
)

// Normalize lowercases a message and collapses runs of whitespace, the shared
// precondition for every phrase-table match.
func Normalize(message string) string {
	return strings.Join(strings.Fields(strings.ToLower(message)), " ")
}

// DetectPDFRequest reports whether the message asks for a PDF (or generic
// file) export, and of what. Generic requests default to the cover letter,
// the dominant use case.
func DetectPDFRequest(message string) PDFTarget {
	normalized := Normalize(message)
	if normalized == "" {
		return PDFNone
	}
	if !containsAny(normalized, pdfRequestPhrases) {
		return PDFNone
	}
	if containsAny(normalized, resumeTerms) {
		return PDFResume
	}
	return PDFCoverLetter
}

// DetectResumeReview reports whether the message asks for resume feedback:
// a resume term co-occurring with a review action, or a canned review phrase.
func DetectResumeReview(message string) bool {
	normalized := Normalize(message)
	if normalized == "" {
		return false
	}
	hasResumeTerm := containsAny(normalized, resumeTerms)
	hasReviewAction := containsAny(normalized, reviewActions)
	return (hasResumeTerm && hasReviewAction) || containsAny(normalized, reviewPhrases)
}

// LooksLikeLetterAdjustment reports whether the message reads as an edit
// instruction for an existing draft rather than a fresh request.
func LooksLikeLetterAdjustment(message string) bool {
	normalized := Normalize(message)
	if normalized == "" {
		return false
	}
	if strings.HasPrefix(normalized, "create pdf") || strings.HasPrefix(normalized, "download pdf") {
		return false
	}
	if strings.HasPrefix(normalized, "make it ") {
		return true
	}
	for _, prefix := range adjustmentStarters {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return containsAny(normalized, adjustmentKeywords)
}

// RequestSignals summarizes the routing-level word-list matches for a message.
type RequestSignals struct {
	HasIntent            bool // a drafting/revising verb or "please" appears
	RequestsCoverLetter  bool
	RequestsResumeUpdate bool
}

// DetectRequestSignals evaluates the intent verb, cover-letter, and resume
// word lists against the message, applying negation phrases as vetoes.
func DetectRequestSignals(message string) RequestSignals {
	normalized := Normalize(message)

	signals := RequestSignals{
		HasIntent: containsAny(normalized, intentVerbs) || strings.Contains(normalized, "please"),
	}

	signals.RequestsCoverLetter = containsAny(normalized, coverLetterTerms)
	if containsAny(normalized, negativeCoverPhrases) {
		signals.RequestsCoverLetter = false
	}

	signals.RequestsResumeUpdate = containsAny(normalized, resumeTerms) && signals.HasIntent
	if containsAny(normalized, negativeResumePhrases) {
		signals.RequestsResumeUpdate = false
	}

	return signals
}

// ShouldDraftCoverLetter decides whether a message warrants producing a full
// draft. Job-description-looking messages defer to the caller's signals so a
// pasted posting alone never triggers a draft.
func ShouldDraftCoverLetter(message string, hasAttachments, hasIntent, requestsCoverLetter bool) bool {
	normalized := Normalize(message)
	if normalized == "" {
		return false
	}
	if containsAny(normalized, coverLetterTerms) {
		return true
	}
	if containsAny(normalized, draftingVerbs) && strings.Contains(normalized, "letter") {
		return true
	}
	if textutil.LooksLikeJobDescription(message) {
		return requestsCoverLetter || hasIntent
	}
	if hasAttachments && containsAny(normalized, draftingVerbs) {
		return true
	}
	return false
}

func containsAny(normalized string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}
