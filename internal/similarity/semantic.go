package similarity

import "strings"

// SemanticScorer is a pluggable strategy for semantic similarity between two
// (title, body) pairs. The default implementation is a keyword-overlap
// heuristic; a real embedding backend can be dropped in without changing the
// duplicate filter contract.
type SemanticScorer interface {
	// Name identifies the strategy for logging and statistics.
	Name() string

	// Score returns a semantic similarity in [0, 1].
	Score(title1, body1, title2, body2 string) float64
}

// Comparer scores item pairs, optionally augmenting the textual metrics with
// a semantic strategy. The zero value is usable and equivalent to Compare.
type Comparer struct {
	// Semantic is the optional semantic strategy. When set, Compare fills
	// Score.Semantic; the combined score is unaffected.
	Semantic SemanticScorer
}

// Compare scores two (title, body) pairs, filling Score.Semantic when a
// semantic strategy is configured.
func (c *Comparer) Compare(title1, body1, title2, body2 string) Score {
	score := Compare(title1, body1, title2, body2)
	if c.Semantic != nil {
		sem := c.Semantic.Score(title1, body1, title2, body2)
		score.Semantic = &sem
	}
	return score
}

// KeywordOverlapScorer approximates semantic similarity by Jaccard overlap of
// significant keywords: tokens at least MinTokenLength runes long, with common
// stopwords removed. It is the fallback used when no embedding backend is
// available.
type KeywordOverlapScorer struct {
	// MinTokenLength is the minimum token length to count as a keyword.
	// Tokens shorter than this carry little semantic content. Default: 4.
	MinTokenLength int
}

// Name implements SemanticScorer
func (k *KeywordOverlapScorer) Name() string { return "keyword-overlap" }

// stopwords excluded from keyword comparison. Kept short on purpose: the
// MinTokenLength filter already drops most function words.
var stopwords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "when": {}, "then": {},
	"should": {}, "would": {}, "could": {}, "have": {}, "been": {}, "will": {},
	"there": {}, "their": {}, "they": {}, "were": {}, "does": {}, "into": {},
	"after": {}, "before": {}, "because": {}, "which": {}, "where": {},
	"while": {}, "about": {}, "some": {}, "more": {}, "other": {},
}

// Score implements SemanticScorer
func (k *KeywordOverlapScorer) Score(title1, body1, title2, body2 string) float64 {
	minLen := k.MinTokenLength
	if minLen <= 0 {
		minLen = 4
	}

	keywordsA := k.keywords(title1+" "+body1, minLen)
	keywordsB := k.keywords(title2+" "+body2, minLen)
	if len(keywordsA) == 0 || len(keywordsB) == 0 {
		return 0.0
	}

	intersection := 0
	for kw := range keywordsA {
		if _, ok := keywordsB[kw]; ok {
			intersection++
		}
	}
	union := len(keywordsA) + len(keywordsB) - intersection

	return float64(intersection) / float64(union)
}

func (k *KeywordOverlapScorer) keywords(text string, minLen int) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(Normalize(text)) {
		if len([]rune(token)) < minLen {
			continue
		}
		if _, ok := stopwords[token]; ok {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}
