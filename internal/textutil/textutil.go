// Package textutil holds the text heuristics and extraction helpers shared by
// the chat and upload flows.
package textutil

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/applywise/applywise/internal/models"
)

const (
	// MaxStoredTextLength caps extracted upload text kept for prompts.
	MaxStoredTextLength = 20_000

	defaultExcerptLimit = 1200
)

var jobSignals = []string{
	"job description",
	"responsibilities",
	"requirements",
	"qualifications",
	"what you will do",
	"what you'll do",
	"about the role",
	"about you",
	"preferred skills",
}

// LooksLikeJobDescription reports whether text resembles a pasted job posting:
// at least two signal phrases and more than 250 characters.
func LooksLikeJobDescription(text string) bool {
	lowered := strings.ToLower(text)
	count := 0
	for _, signal := range jobSignals {
		if strings.Contains(lowered, signal) {
			count++
		}
	}
	return count >= 2 && len(lowered) > 250
}

// AppearsToBeCoverLetter reports whether text has the structure of a formatted
// cover letter: a salutation, a closing, and at least 200 characters.
func AppearsToBeCoverLetter(text string) bool {
	if len(text) < 200 {
		return false
	}
	lowered := strings.ToLower(text)

	hasSalutation := strings.Contains(lowered, "dear ") ||
		strings.Contains(lowered, "to whom it may concern") ||
		strings.Contains(lowered, "hiring manager")

	hasClosing := strings.Contains(lowered, "sincerely") ||
		strings.Contains(lowered, "regards") ||
		strings.Contains(lowered, "respectfully") ||
		strings.Contains(lowered, "best wishes")

	return hasSalutation && hasClosing
}

// Truncate clamps s to at most limit bytes, backing off to a rune boundary so
// a multi-byte character is never split.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// MakeExcerpt collapses whitespace and clamps text to a preview-friendly length.
func MakeExcerpt(text string, limit int) string {
	if limit <= 0 {
		limit = defaultExcerptLimit
	}
	return Truncate(strings.Join(strings.Fields(text), " "), limit)
}

// SafeTextPreview decodes base64 upload contents and returns a sanitized,
// clamped preview. Undecodable contents yield an empty string.
func SafeTextPreview(b64Contents string, limit int) string {
	decoded, err := base64.StdEncoding.DecodeString(b64Contents)
	if err != nil {
		return ""
	}
	return MakeExcerpt(string(decoded), limit)
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	cityPattern  = regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*),\s*([A-Z]{2})\s*(\d{5}(?:-\d{4})?)`)
)

var streetKeywords = []string{
	"street", "st", "avenue", "ave", "road", "rd", "drive", "dr",
	"lane", "ln", "way", "court", "ct",
}

// ExtractContactInfo scrapes name, email, phone, and address fields from the
// header region of a resume. Only the first 15 lines are considered.
func ExtractContactInfo(resumeText string) models.ContactInfo {
	var info models.ContactInfo
	trimmed := strings.TrimSpace(resumeText)
	if trimmed == "" {
		return info
	}

	lines := strings.Split(trimmed, "\n")
	header := strings.Join(firstN(lines, 15), "\n")

	if m := emailPattern.FindString(header); m != "" {
		info.Email = m
	}
	if m := phonePattern.FindString(header); m != "" {
		info.Phone = strings.TrimSpace(m)
	}

	// Name: first of the top five lines that reads as 2-4 capitalized words
	// and carries no contact-ish markers.
	for _, line := range firstN(lines, 5) {
		cleaned := strings.TrimSpace(line)
		if cleaned == "" || containsAny(strings.ToLower(cleaned), "@", "http", "linkedin", "github", "(") {
			continue
		}
		words := strings.Fields(cleaned)
		if len(words) >= 2 && len(words) <= 4 && allCapitalized(words) {
			info.Name = cleaned
			break
		}
	}

	if m := cityPattern.FindStringSubmatch(header); m != nil {
		info.City = m[1]
		info.State = m[2]
		info.Zip = m[3]
	}

	for _, line := range firstN(lines, 10) {
		lowered := strings.ToLower(strings.TrimSpace(line))
		if hasStreetKeyword(lowered) && strings.ContainsFunc(lowered, unicode.IsDigit) {
			info.Address = strings.TrimSpace(line)
			break
		}
	}

	return info
}

// FormatContactInfo renders extracted contact fields as a cover letter header
// block, one field per line.
func FormatContactInfo(info models.ContactInfo) string {
	var lines []string
	if info.Name != "" {
		lines = append(lines, info.Name)
	}
	if info.Address != "" {
		lines = append(lines, info.Address)
	}
	if info.City != "" && info.State != "" {
		location := info.City + ", " + info.State
		if info.Zip != "" {
			location += " " + info.Zip
		}
		lines = append(lines, location)
	}
	if info.Email != "" {
		lines = append(lines, info.Email)
	}
	if info.Phone != "" {
		lines = append(lines, info.Phone)
	}
	return strings.Join(lines, "\n")
}

// FirstNonEmptyLine returns the first line of text with non-blank content.
func FirstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if stripped := strings.TrimSpace(line); stripped != "" {
			return stripped
		}
	}
	return ""
}

func firstN(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func allCapitalized(words []string) bool {
	for _, word := range words {
		runes := []rune(word)
		if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
			return false
		}
	}
	return true
}

func hasStreetKeyword(line string) bool {
	for _, field := range strings.FieldsFunc(line, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		for _, kw := range streetKeywords {
			if field == kw {
				return true
			}
		}
	}
	return false
}
