// Package similarity computes textual closeness between proposed work items.
//
// Two complementary metrics are used: a Ratcliff/Obershelp sequence ratio
// (order-sensitive, catches near-identical phrasings) and Jaccard token
// overlap (order-insensitive, catches reworded titles). The per-field score
// is the max of the two, and title and body scores merge into a combined
// score weighted toward the title.
//
// All functions are pure and deterministic; they are safe for concurrent use.
package similarity

import (
	"strings"
	"unicode"
)

// Field weights for the combined score. Titles carry most of the signal:
// generators tend to produce distinctive titles over boilerplate-heavy bodies.
const (
	titleWeight = 0.7
	bodyWeight  = 0.3
)

// maxSequenceRunes bounds the quadratic sequence match. Bodies beyond this
// length are truncated before comparison; token overlap still sees the full
// text via JaccardSimilarity.
const maxSequenceRunes = 2000

// Score holds the similarity between two (title, body) pairs.
// All values are in [0, 1].
type Score struct {
	Title    float64  `json:"title_similarity"`
	Body     float64  `json:"body_similarity"`
	Combined float64  `json:"combined_similarity"`
	Semantic *float64 `json:"semantic_similarity,omitempty"`
}

// Normalize lowercases text, strips punctuation to whitespace, collapses
// whitespace runs, and trims. Normalization makes the metrics insensitive to
// casing and formatting noise.
func Normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

// SequenceSimilarity returns the Ratcliff/Obershelp ratio between the
// normalized inputs: 2*M / (len(a)+len(b)) where M is the total length of
// recursively-found matching blocks. Returns 1.0 for identical normalized
// strings and 0.0 if either input is empty after normalization.
//
// This is block matching, not edit distance: a long shared substring
// dominates the score even when surrounded by unrelated text.
func SequenceSimilarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}

	ra, rb := []rune(na), []rune(nb)
	if len(ra) > maxSequenceRunes {
		ra = ra[:maxSequenceRunes]
	}
	if len(rb) > maxSequenceRunes {
		rb = rb[:maxSequenceRunes]
	}

	matched := matchingTotal(ra, rb, 0, len(ra), 0, len(rb))
	return float64(2*matched) / float64(len(ra)+len(rb))
}

// longestMatch finds the longest matching block in a[alo:ahi] and b[blo:bhi].
// Returns the start indices and length of the match (length 0 if none).
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (int, int, int) {
	besti, bestj, bestsize := alo, blo, 0

	// j2len[j] is the length of the match ending at a[i-1], b[j]
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for j := blo; j < bhi; j++ {
			if a[i] == b[j] {
				k := j2len[j-1] + 1
				newj2len[j] = k
				if k > bestsize {
					besti, bestj, bestsize = i-k+1, j-k+1, k
				}
			}
		}
		j2len = newj2len
	}

	return besti, bestj, bestsize
}

// matchingTotal sums the lengths of all matching blocks between
// a[alo:ahi] and b[blo:bhi], recursing on the regions to the left and
// right of the longest match.
func matchingTotal(a, b []rune, alo, ahi, blo, bhi int) int {
	i, j, k := longestMatch(a, b, alo, ahi, blo, bhi)
	if k == 0 {
		return 0
	}
	total := k
	total += matchingTotal(a, b, alo, i, blo, j)
	total += matchingTotal(a, b, i+k, ahi, j+k, bhi)
	return total
}

// JaccardSimilarity returns token-set overlap between the normalized inputs:
// |A ∩ B| / |A ∪ B| over whitespace-split tokens. Returns 0.0 if either
// token set is empty.
func JaccardSimilarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection

	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(Normalize(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Compare scores two (title, body) pairs. Per-field similarity is the max of
// the sequence and Jaccard metrics; the combined score weighs title over body.
func Compare(title1, body1, title2, body2 string) Score {
	titleSim := max(SequenceSimilarity(title1, title2), JaccardSimilarity(title1, title2))
	bodySim := max(SequenceSimilarity(body1, body2), JaccardSimilarity(body1, body2))

	return Score{
		Title:    titleSim,
		Body:     bodySim,
		Combined: titleWeight*titleSim + bodyWeight*bodySim,
	}
}
