package search

import (
	"cmp"
	"slices"

	"github.com/sahilm/fuzzy"
)

// field is one searchable column of an entity set with its weight. A
// non-empty pattern replaces the shared one for this column.
type field struct {
	values  []string
	weight  float64
	pattern string
}

// column adapts a slice of strings to fuzzy.Source.
type column []string

func (c column) String(i int) string { return c[i] }
func (c column) Len() int            { return len(c) }

type scored struct {
	index int
	score float64
	raw   int
}

// weightedMatch runs a subsequence match of pattern over every field and
// combines the per-field closeness into one weighted score per entity.
//
// Closeness is matched/span, where span runs from the first to the last
// matched rune, reduced by 10% when the match does not start at the
// beginning of the value. An entity is kept when its weighted sum reaches
// threshold. Results are ordered by score, then by sahilm's own score, then
// by position, so identical inputs always rank identically.
func weightedMatch(pattern string, n int, fields []field, threshold float64) []int {
	if pattern == "" || n == 0 {
		return nil
	}

	acc := make(map[int]*scored)
	for _, f := range fields {
		if f.weight == 0 {
			continue
		}
		p := pattern
		if f.pattern != "" {
			p = f.pattern
		}
		for _, m := range fuzzy.FindFrom(p, column(f.values)) {
			s := acc[m.Index]
			if s == nil {
				s = &scored{index: m.Index}
				acc[m.Index] = s
			}
			s.score += f.weight * closeness(m.MatchedIndexes)
			s.raw += m.Score
		}
	}

	hits := make([]scored, 0, len(acc))
	for _, s := range acc {
		if s.score >= threshold {
			hits = append(hits, *s)
		}
	}
	slices.SortFunc(hits, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.raw, a.raw); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.index
	}
	return out
}

func closeness(matched []int) float64 {
	if len(matched) == 0 {
		return 0
	}
	first, last := matched[0], matched[len(matched)-1]
	c := float64(len(matched)) / float64(last-first+1)
	if first > 0 {
		c *= 0.9
	}
	return c
}
