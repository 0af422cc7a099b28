package nlp

import (
	"strings"
	"unicode"
)

// stopwords are dropped during keyword extraction. Kept small and
// English-only; the tokenizer is a collaborator contract, not a model.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "had": {}, "has": {},
	"have": {}, "he": {}, "her": {}, "his": {}, "i": {}, "if": {}, "in": {},
	"is": {}, "it": {}, "its": {}, "me": {}, "my": {}, "no": {}, "not": {},
	"of": {}, "on": {}, "or": {}, "our": {}, "she": {}, "so": {}, "that": {},
	"the": {}, "their": {}, "them": {}, "then": {}, "there": {}, "they": {},
	"this": {}, "to": {}, "up": {}, "was": {}, "we": {}, "were": {},
	"what": {}, "when": {}, "which": {}, "will": {}, "with": {}, "you": {},
	"your": {},
}

// RuleTokenizer is the default keyword tokenizer: lowercase, split on
// non-letter/digit runs, drop stopwords and single characters, fold
// common inflectional suffixes.
type RuleTokenizer struct{}

// NewRuleTokenizer returns the default rule-based tokenizer.
func NewRuleTokenizer() *RuleTokenizer {
	return &RuleTokenizer{}
}

// TokenizeAndLemmatize splits text into normalized keyword tokens.
// Duplicates are preserved: term frequency matters to the vectorizer.
func (t *RuleTokenizer) TokenizeAndLemmatize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 2 {
			continue
		}
		if _, stop := stopwords[field]; stop {
			continue
		}
		tokens = append(tokens, lemmatize(field))
	}
	return tokens
}

// lemmatize folds regular English inflections. A deliberately light
// stemmer: it only strips suffixes when the stem stays pronounceable
// (>= 3 letters), so "eggs" -> "egg" but "less" stays "less".
func lemmatize(word string) string {
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ing") && len(word) > 5:
		return undouble(word[:len(word)-3])
	case strings.HasSuffix(word, "ed") && len(word) > 4:
		return undouble(word[:len(word)-2])
	case strings.HasSuffix(word, "ss"):
		return word
	case strings.HasSuffix(word, "s") && len(word) > 3:
		return word[:len(word)-1]
	default:
		return word
	}
}

// undouble collapses a doubled final consonant left by suffix removal
// ("runn" -> "run", "stopp" -> "stop").
func undouble(stem string) string {
	n := len(stem)
	if n >= 2 && stem[n-1] == stem[n-2] && !isVowel(stem[n-1]) {
		return stem[:n-1]
	}
	return stem
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// NormalizeTag canonicalizes a tag for theme identity: trimmed,
// title-cased first letter, case-insensitive comparisons use the
// lowercase form.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	lower := strings.ToLower(tag)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
