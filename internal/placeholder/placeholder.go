// Package placeholder parses and resolves bracketed tokens in cover letter text.
package placeholder

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	tokenPattern   = regexp.MustCompile(`\[[^\[\]]+\]`)
	datePattern    = regexp.MustCompile(`(?i)\[date\]`)
	keyValueLine   = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z\s]{0,50})\s*[:=-]\s*(.+)$`)
	verbUpdateLine = regexp.MustCompile(`(?i)^(?:please\s+)?(?:set|update|change|use|replace)\s+([A-Za-z][A-Za-z\s]{0,50})\s+(?:to|as|=|is)\s*(.+)$`)
	segmentSplit   = regexp.MustCompile(`[;\n]`)
)

// DateLayout is the human-readable format substituted for [date] tokens.
const DateLayout = "January 2, 2006"

// EnsureDate replaces [date] tokens (any casing) with today's formatted date.
// Text without such a token passes through untouched; empty text becomes just
// the date line so a letter always leads with one.
func EnsureDate(text string) string {
	dateLine := time.Now().Format(DateLayout)
	if datePattern.MatchString(text) {
		return datePattern.ReplaceAllString(text, dateLine)
	}
	if strings.TrimSpace(text) == "" {
		return dateLine
	}
	return text
}

// FindUnknown returns the sorted, deduplicated set of normalized placeholder
// keys that the system cannot fill on its own. The reserved [date] token is
// never reported.
func FindUnknown(text string) []string {
	seen := map[string]bool{}
	for _, token := range tokenPattern.FindAllString(text, -1) {
		if isReserved(token) {
			continue
		}
		key := normalizeKey(token)
		if key != "" {
			seen[key] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// CollectTokens maps each normalized placeholder key to the literal token
// strings found in the text, preserving casing and spacing variants so the
// caller can substitute them exactly.
func CollectTokens(text string) map[string][]string {
	mapping := map[string][]string{}
	for _, token := range tokenPattern.FindAllString(text, -1) {
		if isReserved(token) {
			continue
		}
		key := normalizeKey(token)
		if key == "" {
			continue
		}
		mapping[key] = append(mapping[key], token)
	}
	return mapping
}

// ResolveUpdates parses free text into key/value placeholder replacements.
// Lines of the form "key: value", "key = value", or "set key to value" are
// matched against availableKeys exactly, then by substring in either
// direction. When nothing structured matches and exactly one key is
// outstanding, allowFallback treats the whole message as that key's value.
func ResolveUpdates(message string, availableKeys []string, allowFallback bool) map[string]string {
	updates := map[string]string{}
	stripped := strings.TrimSpace(message)
	if stripped == "" || len(availableKeys) == 0 {
		return updates
	}

	for _, raw := range segmentSplit.Split(stripped, -1) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		groups := keyValueLine.FindStringSubmatch(line)
		if groups == nil {
			groups = verbUpdateLine.FindStringSubmatch(line)
		}
		if groups == nil {
			continue
		}
		key := strings.TrimSpace(groups[1])
		value := strings.TrimSpace(groups[2])
		if value == "" {
			continue
		}
		if matched := matchKey(key, availableKeys); matched != "" {
			updates[matched] = value
		}
	}

	if len(updates) == 0 && allowFallback && len(availableKeys) == 1 {
		updates[availableKeys[0]] = stripped
	}
	return updates
}

// ApplyUpdates substitutes every literal token occurrence of each resolved key
// with its trimmed value. Substitution is plain string replacement; tokens
// containing regex metacharacters stay safe.
func ApplyUpdates(text string, updates map[string]string, tokens map[string][]string) (string, bool) {
	if len(updates) == 0 {
		return text, false
	}
	replaced := false
	for key, value := range updates {
		safe := strings.TrimSpace(value)
		for _, token := range tokens[key] {
			if strings.Contains(text, token) {
				text = strings.ReplaceAll(text, token, safe)
				replaced = true
			}
		}
	}
	return text, replaced
}

func isReserved(token string) bool {
	return strings.EqualFold(token, "[date]")
}

func normalizeKey(token string) string {
	return strings.ToLower(strings.TrimSpace(strings.Trim(token, "[] ")))
}

func matchKey(candidate string, choices []string) string {
	lowered := strings.ToLower(strings.TrimSpace(candidate))
	if lowered == "" {
		return ""
	}
	for _, choice := range choices {
		if lowered == choice {
			return choice
		}
	}
	for _, choice := range choices {
		if strings.Contains(choice, lowered) {
			return choice
		}
	}
	for _, choice := range choices {
		if strings.Contains(lowered, choice) {
			return choice
		}
	}
	return ""
}
