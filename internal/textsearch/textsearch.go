// Package textsearch implements the keyword matching used by the FAQ and
// subsidy lookups: Unicode case folding, Korean→English term expansion and
// markdown-style highlighting.
package textsearch

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// translations maps common Korean EV terms to the English word used in
// imported manufacturer FAQs
var translations = map[string]string{
	"충전":    "charge",
	"배터리":   "battery",
	"보증":    "warranty",
	"타이어":   "tire",
	"유지보수":  "maintenance",
	"소프트웨어": "software",
	"결제":    "payment",
	"속도":    "speed",
	"예약":    "reserve",
	"성능":    "performance",
	"안전":    "safety",
	"서비스":   "service",
}

// Fold normalizes s for case-insensitive comparison
func Fold(s string) string {
	// a Caser is stateful and cannot be shared between goroutines
	return cases.Fold().String(norm.NFC.String(s))
}

// Translate returns the English term for a Korean keyword, if known
func Translate(keyword string) (string, bool) {
	en, ok := translations[strings.TrimSpace(keyword)]
	return en, ok
}

// Terms returns the keyword and its translation, when one exists
func Terms(keyword string) []string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}
	terms := []string{keyword}
	if en, ok := Translate(keyword); ok {
		terms = append(terms, en)
	}
	return terms
}

// Contains reports whether s contains substr ignoring case
func Contains(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// ContainsAny reports whether any field contains any term
func ContainsAny(terms []string, fields ...string) bool {
	for _, field := range fields {
		folded := Fold(field)
		for _, term := range terms {
			if term != "" && strings.Contains(folded, Fold(term)) {
				return true
			}
		}
	}
	return false
}

type span struct{ start, end int }

// Highlight wraps every case-insensitive occurrence of the terms in
// **…**, keeping the original text. Overlapping matches are merged.
func Highlight(s string, terms []string) string {
	s = norm.NFC.String(s)
	spans := matchSpans(s, terms)
	if len(spans) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 4*len(spans))
	last := 0
	for _, sp := range spans {
		b.WriteString(s[last:sp.start])
		b.WriteString("**")
		b.WriteString(s[sp.start:sp.end])
		b.WriteString("**")
		last = sp.end
	}
	b.WriteString(s[last:])
	return b.String()
}

// matchSpans finds byte ranges of s matching the terms. Matching runs
// rune by rune on folded text so offsets stay valid for the original.
func matchSpans(s string, terms []string) []span {
	var spans []span
	for _, term := range terms {
		needle := []rune(Fold(term))
		if len(needle) == 0 {
			continue
		}
		spans = append(spans, findFolded(s, needle)...)
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, sp := range spans[1:] {
		top := &merged[len(merged)-1]
		if sp.start <= top.end {
			if sp.end > top.end {
				top.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

func findFolded(s string, needle []rune) []span {
	type pos struct {
		r      rune
		offset int
	}
	folder := cases.Fold()
	var runes []pos
	for i, r := range s {
		folded := []rune(folder.String(string(r)))
		// runes that fold to several runes (ß → ss) are kept as is
		if len(folded) == 1 {
			r = folded[0]
		}
		runes = append(runes, pos{r: r, offset: i})
	}

	var spans []span
	for i := 0; i+len(needle) <= len(runes); i++ {
		match := true
		for j, nr := range needle {
			if runes[i+j].r != nr {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		end := len(s)
		if i+len(needle) < len(runes) {
			end = runes[i+len(needle)].offset
		}
		spans = append(spans, span{start: runes[i].offset, end: end})
		i += len(needle) - 1
	}
	return spans
}
