package search

import (
	"strings"
	"unicode"
)

// Tokenize normalizes free text into search tokens: lowercased, split on
// any non-alphanumeric rune, empty tokens dropped.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// TokenizeTag normalizes a tag into its index tokens: the whole phrase
// (collapsed whitespace, lowercased) plus each word token, so both
// "quarterly review" and "review" find the tag.
func TokenizeTag(tag string) []string {
	words := Tokenize(tag)
	if len(words) == 0 {
		return nil
	}
	phrase := strings.Join(words, " ")
	if len(words) == 1 {
		return words
	}
	return append([]string{phrase}, words...)
}
