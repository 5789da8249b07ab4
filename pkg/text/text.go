// Package text holds the small text helpers shared by document sources and
// scorers: tokenization, keyword extraction and HTML stripping.
package text

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var tokenPattern = regexp.MustCompile(`[a-z']+`)

// Stopwords are ignored by keyword extraction
var Stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "from": {}, "this": {}, "have": {},
	"will": {}, "they": {}, "their": {}, "about": {}, "into": {}, "after": {}, "before": {},
	"over": {}, "under": {}, "more": {}, "less": {}, "than": {}, "been": {}, "being": {},
	"through": {}, "across": {}, "between": {}, "within": {}, "without": {}, "company": {},
	"brand": {}, "inc": {}, "llc": {}, "corp": {},
}

// Tokenize lowercases s and returns its latin word tokens
func Tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// Keywords returns up to n most frequent tokens longer than three characters,
// excluding stopwords and the brand's own tokens. Ties keep first appearance.
func Keywords(s, brand string, n int) []string {
	exclude := make(map[string]struct{})
	for _, t := range Tokenize(brand) {
		exclude[t] = struct{}{}
	}

	counts := make(map[string]int)
	var order []string
	for _, t := range Tokenize(s) {
		if len(t) <= 3 {
			continue
		}
		if _, ok := Stopwords[t]; ok {
			continue
		}
		if _, ok := exclude[t]; ok {
			continue
		}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		return []string{}
	}
	return order
}

// StripHTML returns the visible text of an HTML fragment with collapsed whitespace.
// Plain text passes through unchanged apart from whitespace.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Truncate cuts s to at most max runes
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// ContainsAny reports whether lower(s) contains any of the lowercase needles
func ContainsAny(s string, needles ...string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
