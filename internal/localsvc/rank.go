package localsvc

import (
	"sort"
	"strings"
	"unicode"
)

// terms splits s into lower-cased letter/digit runs.
func terms(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Score is the fraction of distinct query terms that occur in content.
// An empty query scores 0 against everything.
func Score(query, content string) float64 {
	q := terms(query)
	if len(q) == 0 {
		return 0
	}

	have := make(map[string]struct{})
	for _, t := range terms(content) {
		have[t] = struct{}{}
	}

	seen := make(map[string]struct{}, len(q))
	matched := 0
	for _, t := range q {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := have[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(seen))
}

// rank scores hits (given in insertion order) against query, drops those
// below minScore and sorts the rest by descending score.
func rank(hits []Hit, query string, minScore float64) []Hit {
	out := hits[:0]
	for _, h := range hits {
		h.Score = Score(query, h.Content)
		if h.Score >= minScore {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
