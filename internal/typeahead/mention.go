package typeahead

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	mentionPattern = regexp.MustCompile(`@(\w+)`)
	partialPattern = regexp.MustCompile(`^@(\w*)$`)
)

// ExtractMentions returns the usernames mentioned in text, once each, in
// order of first appearance.
func ExtractMentions(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// ActiveMention reports the partial username being typed when the last word
// of text starts with @.
func ActiveMention(text string) (string, bool) {
	last, ok := lastWord(text)
	if !ok {
		return "", false
	}
	m := partialPattern.FindStringSubmatch(last)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CompleteMention replaces the mention being typed with @username and a
// trailing space. Text without an active mention is returned unchanged.
func CompleteMention(text, username string) string {
	last, ok := lastWord(text)
	if !ok || !partialPattern.MatchString(last) {
		return text
	}
	return text[:len(text)-len(last)] + "@" + username + " "
}

func lastWord(text string) (string, bool) {
	r, _ := utf8.DecodeLastRuneInString(text)
	if text == "" || unicode.IsSpace(r) {
		return "", false
	}
	i := strings.LastIndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return text, true
	}
	_, size := utf8.DecodeRuneInString(text[i:])
	return text[i+size:], true
}
