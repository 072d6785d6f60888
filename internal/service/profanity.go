package service

import (
	"regexp"
	"strings"
	"sync"
)

// leetspeakReplacer maps the usual character substitutions back to letters
// before matching.
var leetspeakReplacer = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"8", "b",
	"@", "a",
	"$", "s",
	"!", "i",
)

var (
	nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)
	nonAlphaPattern    = regexp.MustCompile(`[^a-z]`)
	alphaRunPattern    = regexp.MustCompile(`[a-z]+`)
)

const profanityCacheLimit = 1024

// ProfanityFilter screens usernames against a word list with leetspeak and
// repeated-character normalization. The filter owns its state, including a
// bounded verdict cache that is dropped whenever the word list changes.
type ProfanityFilter struct {
	mu    sync.RWMutex
	words map[string]struct{}
	cache map[string]bool
}

// NewProfanityFilter creates a filter seeded with the given words. The word
// list ships empty by default; operators load the real list at startup so
// offensive terms never appear in source.
func NewProfanityFilter(words []string) *ProfanityFilter {
	f := &ProfanityFilter{
		words: make(map[string]struct{}, len(words)),
		cache: make(map[string]bool),
	}
	for _, w := range words {
		if w = strings.TrimSpace(strings.ToLower(w)); w != "" {
			f.words[w] = struct{}{}
		}
	}
	return f
}

// ContainsProfanity reports whether the text matches the word list after
// normalization, either as a substring or as an extracted word.
func (f *ProfanityFilter) ContainsProfanity(text string) bool {
	if text == "" {
		return false
	}

	f.mu.RLock()
	if verdict, ok := f.cache[text]; ok {
		f.mu.RUnlock()
		return verdict
	}
	f.mu.RUnlock()

	verdict := f.check(text)

	f.mu.Lock()
	if len(f.cache) >= profanityCacheLimit {
		// Full rebuild beats tracking recency for a cache this small.
		f.cache = make(map[string]bool)
	}
	f.cache[text] = verdict
	f.mu.Unlock()

	return verdict
}

// AddWord extends the word list and invalidates cached verdicts.
func (f *ProfanityFilter) AddWord(word string) {
	word = strings.TrimSpace(strings.ToLower(word))
	if word == "" {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.words[word] = struct{}{}
	f.cache = make(map[string]bool)
}

// RemoveWord shrinks the word list and invalidates cached verdicts.
func (f *ProfanityFilter) RemoveWord(word string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.words, strings.TrimSpace(strings.ToLower(word)))
	f.cache = make(map[string]bool)
}

// WordCount returns the size of the word list.
func (f *ProfanityFilter) WordCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.words)
}

func (f *ProfanityFilter) check(text string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.words) == 0 {
		return false
	}

	normalized := normalizeProfanity(text)

	for word := range f.words {
		if strings.Contains(normalized, word) {
			return true
		}
	}

	for _, word := range extractWords(normalized) {
		if _, ok := f.words[normalizeProfanity(word)]; ok {
			return true
		}
	}

	return false
}

// normalizeProfanity lowercases, undoes leetspeak and caps repeated
// character runs at two, so "h3lll0" matches "hello"-adjacent entries.
func normalizeProfanity(text string) string {
	normalized := leetspeakReplacer.Replace(strings.ToLower(text))
	return collapseRepeatedRuns(normalized)
}

// collapseRepeatedRuns caps runs of the same character at two. Go's RE2
// engine has no backreferences, so this replaces `(.)\1{2,}` -> "$1$1".
func collapseRepeatedRuns(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run <= 2 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// extractWords pulls candidate words out of a username shape like
// "my_word123": separator-split parts, letter runs, and the letters-only
// collapse of the whole string.
func extractWords(text string) []string {
	var words []string
	for _, w := range nonAlnumPattern.Split(text, -1) {
		if w != "" {
			words = append(words, w)
		}
	}
	if collapsed := nonAlphaPattern.ReplaceAllString(text, ""); collapsed != "" {
		words = append(words, collapsed)
	}
	words = append(words, alphaRunPattern.FindAllString(text, -1)...)
	return words
}
