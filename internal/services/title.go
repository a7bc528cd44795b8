package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-ai-chat/internal/domain"
)

// DefaultTitleMaxLen caps titles by rune length.
const DefaultTitleMaxLen = 60

// titleWordRE extracts letters with optional trailing digits (e.g. "go2025").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
	"i": {}, "me": {}, "my": {}, "you": {}, "can": {}, "please": {}, "how": {}, "what": {},
}

// normalizeTitle trims whitespace and collapses runs of it to one space.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// clipRunes truncates s to max runes; max <= 0 means DefaultTitleMaxLen.
func clipRunes(s string, max int) string {
	if max <= 0 {
		max = DefaultTitleMaxLen
	}
	if utf8.RuneCountInString(s) > max {
		return strings.TrimSpace(string([]rune(s)[:max]))
	}
	return s
}

// isPlaceholderTitle reports whether a chat still has an unnamed title.
func isPlaceholderTitle(current string) bool {
	t := strings.ToLower(strings.TrimSpace(current))
	return t == "" || t == strings.ToLower(domain.DefaultChatTitle) || t == "untitled"
}

// titleFromMessage derives a short title from the first user message: up to
// eight non-stop-words, title-cased for locale. Empty when nothing remains.
func titleFromMessage(msg string, locale language.Tag) string {
	toks := titleWordRE.FindAllString(strings.ToLower(msg), -1)
	if len(toks) == 0 {
		return ""
	}
	if locale == language.Und {
		locale = language.English
	}
	caser := cases.Title(locale)

	out := make([]string, 0, 8)
	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, caser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	return strings.Join(out, " ")
}
