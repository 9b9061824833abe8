package sani

import (
	"regexp"
	"strings"
)

// DefaultMetaKeys are protocol keys that must never reach the user. A line
// containing any of them is dropped whole.
var DefaultMetaKeys = []string{
	"INTENT:",
	"ACTION:",
	"FOTO_MENU:",
	"BOT_INTEGRATION:",
	"MENU_KATEGORI:",
	"MENU_ITEM:",
	"CONTENT:",
}

var (
	leakedActionRe   = regexp.MustCompile(`(?is)\[\^?ACTION\].*?\[/\^?ACTION\]`)
	leakedResponseRe = regexp.MustCompile(`(?is)\[\^?RESPONSE\].*?\[/\^?RESPONSE\]`)
	bracketTagRe     = regexp.MustCompile(`\[[^\]]*\]`)
	ruleLineRe       = regexp.MustCompile(`(?m)^[ \t]*[-–—]{3,}[ \t]*$`)
	inlineNumberRe   = regexp.MustCompile(`(\S)[ \t]+(\d+\.)[ \t]`)
	hspaceRunRe      = regexp.MustCompile(`[ \t]+`)
	blankRunRe       = regexp.MustCompile(`\n{3,}`)
)

// Sanitizer cleans conversational replies. The zero value is not usable;
// build one with NewSanitizer.
type Sanitizer struct {
	metaKeys []string // lower-cased
}

// NewSanitizer builds a Sanitizer for the given meta keys. With no keys the
// DefaultMetaKeys table is used.
func NewSanitizer(metaKeys ...string) *Sanitizer {
	if len(metaKeys) == 0 {
		metaKeys = DefaultMetaKeys
	}
	keys := make([]string, 0, len(metaKeys))
	for _, k := range metaKeys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keys = append(keys, k)
		}
	}
	return &Sanitizer{metaKeys: keys}
}

var defaultSanitizer = NewSanitizer()

// SanitizeChatReply runs the default Sanitizer.
func SanitizeChatReply(raw string) string {
	return defaultSanitizer.Sanitize(raw)
}

// Sanitize strips leaked protocol artifacts from raw and returns text safe
// to show. The result is a fixed point: Sanitize(Sanitize(x)) == Sanitize(x).
func (s *Sanitizer) Sanitize(raw string) string {
	// Every pass either shortens the text or turns a space into a newline,
	// so the loop terminates.
	out := raw
	for {
		next := s.pass(out)
		if next == out {
			return out
		}
		out = next
	}
}

func (s *Sanitizer) pass(text string) string {
	if text == "" {
		return ""
	}
	text = leakedActionRe.ReplaceAllString(text, "")
	text = leakedResponseRe.ReplaceAllString(text, "")
	text = bracketTagRe.ReplaceAllString(text, "")
	text = s.dropMetaLines(text)
	text = cutAt(text, strings.Index(text, "```"))
	if loc := ruleLineRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	text = cutAt(text, strings.Index(text, "\n{"))
	text = inlineNumberRe.ReplaceAllString(text, "${1}\n${2} ")
	return tidyWhitespace(text)
}

func (s *Sanitizer) dropMetaLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !s.hasMetaKey(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func (s *Sanitizer) hasMetaKey(line string) bool {
	lower := strings.ToLower(line)
	for _, k := range s.metaKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func cutAt(text string, idx int) string {
	if idx < 0 {
		return text
	}
	return text[:idx]
}

func tidyWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(hspaceRunRe.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
