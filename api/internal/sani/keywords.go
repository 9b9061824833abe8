package sani

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// shortKeyword: ключи не длиннее этого должны начинать слово ("rs" не в "kurs").
const shortKeyword = 2

// containsWord reports whether kw occurs in text. Longer keywords match
// anywhere so prefixed forms count ("mengubah" for "ubah", "pembayaran" for
// "bayar"). Both arguments are expected in lower case.
func containsWord(text, kw string) bool {
	if kw == "" {
		return false
	}
	if utf8.RuneCountInString(kw) > shortKeyword {
		return strings.Contains(text, kw)
	}
	for from := 0; from <= len(text)-len(kw); {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 {
			return true
		}
		prev, _ := utf8.DecodeLastRuneInString(text[:i])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}
		from = i + 1
	}
	return false
}

func containsAnyWord(text string, kws []string) bool {
	for _, kw := range kws {
		if containsWord(text, kw) {
			return true
		}
	}
	return false
}

// maskWords заменяет исключённые слова пробелом, чтобы их части не срабатывали
// как ключи ("masuk" внутри "termasuk").
func maskWords(text string, exclude []string) string {
	for _, w := range exclude {
		text = strings.ReplaceAll(text, w, " ")
	}
	return text
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
