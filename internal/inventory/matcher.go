package inventory

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// MatchStatus represents the outcome of matching one line.
type MatchStatus string

const (
	Matched   MatchStatus = "MATCHED"
	Ambiguous MatchStatus = "AMBIGUOUS"
	Unmatched MatchStatus = "UNMATCHED"
)

// Candidate is an ingredient the matcher can pick.
type Candidate struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Unit     string    `json:"unit"`
	Keywords []string  `json:"-"`
}

// MatchResult contains the result of a matching operation.
type MatchResult struct {
	Status     MatchStatus `json:"status"`
	Match      *Candidate  `json:"match,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Matcher performs keyword-based ingredient matching.
type Matcher struct {
	items    []Candidate
	keywords [][]string
}

const (
	variantWeight = 5
	regularWeight = 1
)

// Variant words narrow a match: "red onion" must not match "onion" when a
// "red onion" ingredient could exist.
var variantKeywords = map[string]bool{
	"red": true, "green": true, "yellow": true, "white": true, "brown": true,
	"black": true, "large": true, "small": true, "medium": true,
	"fresh": true, "frozen": true, "dried": true,
}

// NewMatcher pre-tokenizes each candidate's name and keywords.
func NewMatcher(items []Candidate) *Matcher {
	m := &Matcher{items: items, keywords: make([][]string, len(items))}
	for i, it := range items {
		seen := map[string]bool{}
		for _, src := range append([]string{it.Name}, it.Keywords...) {
			for _, tok := range strings.Fields(normalize(src)) {
				if !seen[tok] {
					seen[tok] = true
					m.keywords[i] = append(m.keywords[i], tok)
				}
			}
		}
	}
	return m
}

// Match scores every candidate by the keywords it shares with text. Variant
// words in the text are mandatory.
func (m *Matcher) Match(text string) MatchResult {
	input := map[string]bool{}
	variants := map[string]bool{}
	for _, tok := range strings.Fields(normalize(text)) {
		input[tok] = true
		if variantKeywords[tok] {
			variants[tok] = true
		}
	}

	best := 0
	var top []Candidate
	for i, it := range m.items {
		kws := m.keywords[i]
		if !hasAll(kws, variants) {
			continue
		}
		score := 0
		for _, kw := range kws {
			if input[kw] {
				if variantKeywords[kw] {
					score += variantWeight
				} else {
					score += regularWeight
				}
			}
		}
		switch {
		case score == 0 || score < best:
		case score > best:
			best = score
			top = []Candidate{it}
		default:
			top = append(top, it)
		}
	}

	switch len(top) {
	case 0:
		return MatchResult{Status: Unmatched}
	case 1:
		return MatchResult{Status: Matched, Match: &top[0]}
	default:
		return MatchResult{Status: Ambiguous, Candidates: top}
	}
}

func hasAll(keywords []string, required map[string]bool) bool {
	for r := range required {
		found := false
		for _, kw := range keywords {
			if kw == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// normalize lowercases s and replaces non-alphanumerics with single spaces.
// Trailing plural "s" is dropped so "tomatoes" meets "tomato".
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(' ')
		}
	}
	fields := strings.Fields(sb.String())
	for i, f := range fields {
		fields[i] = singular(f)
	}
	return strings.Join(fields, " ")
}

func singular(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "oes"):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}

// MatchedLine pairs a parsed line with its ingredient match.
type MatchedLine struct {
	Line
	MatchResult
}

// MatchAll matches every line. A matched line without a unit takes the
// ingredient's unit.
func (m *Matcher) MatchAll(lines []Line) []MatchedLine {
	out := make([]MatchedLine, 0, len(lines))
	for _, l := range lines {
		res := m.Match(l.Description)
		if res.Status == Matched && l.Unit == "" {
			l.Unit = res.Match.Unit
		}
		out = append(out, MatchedLine{Line: l, MatchResult: res})
	}
	return out
}
