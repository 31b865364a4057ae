// Package matching pairs semantically equivalent markets across venues.
//
// The engine builds a token-based inverted index over one venue's markets so
// that each market on the other venue is only compared against candidates
// sharing at least one entity, keeping the design-level cost near O(n+m)
// instead of O(n*m) pairwise comparisons.
package matching

import (
	"sort"
	"strings"
	"unicode"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// Scoring weights. Entity overlap carries slightly more weight than the
// character-bigram Dice coefficient; the Dice term absorbs word-order and
// phrasing differences the token view misses.
const (
	entityWeight = 0.55
	diceWeight   = 0.45

	// A single shared entity is accepted only when the full strings are
	// also similar; one common token alone matches too many unrelated
	// markets.
	singleEntityMinDice = 0.35

	bonusThreeEntities = 0.10
	bonusTwoEntities   = 0.05
)

// stopWords are tokens that carry no matching signal: articles, auxiliary
// verbs, generic market vocabulary, and near-term year tokens that appear in
// nearly every dated question.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "does": {}, "did": {}, "are": {}, "was": {}, "were": {},
	"been": {}, "being": {}, "has": {}, "have": {}, "had": {}, "with": {},
	"this": {}, "that": {}, "than": {}, "before": {}, "after": {}, "above": {},
	"below": {}, "over": {}, "under": {}, "more": {}, "less": {}, "win": {},
	"market": {}, "price": {}, "team": {}, "game": {}, "match": {},
	"2024": {}, "2025": {}, "2026": {}, "2027": {},
}

// Match pairs a Polymarket market with its best Kalshi counterpart.
// At most one match is produced per Polymarket market.
type Match struct {
	Polymarket types.NormalizedMarket
	Kalshi     types.NormalizedMarket
	Score      float64
}

// Engine finds cross-venue market matches above a minimum score.
type Engine struct {
	minScore float64
	logger   *zap.Logger
}

// NewEngine creates a matching engine with the given score threshold.
func NewEngine(minScore float64, logger *zap.Logger) *Engine {
	return &Engine{
		minScore: minScore,
		logger:   logger,
	}
}

// MatchMarkets finds, for each Polymarket market, the best-scoring Kalshi
// market above the threshold. Ties keep the first candidate in index order.
func (e *Engine) MatchMarkets(polymarket, kalshi []types.NormalizedMarket) []Match {
	index := buildIndex(kalshi)

	kalshiEntities := make([][]string, len(kalshi))
	kalshiNorm := make([]string, len(kalshi))
	for i := range kalshi {
		kalshiNorm[i] = NormalizeText(kalshi[i].Question)
		kalshiEntities[i] = ExtractEntities(kalshiNorm[i])
	}

	matches := make([]Match, 0, len(polymarket))

	for i := range polymarket {
		norm := NormalizeText(polymarket[i].Question)
		entities := ExtractEntities(norm)
		if len(entities) == 0 {
			continue
		}

		candidates := index.candidates(entities)
		if len(candidates) == 0 {
			continue
		}

		bestIdx := -1
		bestScore := 0.0
		for _, c := range candidates {
			score := Score(entities, norm, kalshiEntities[c], kalshiNorm[c])
			if score > bestScore {
				bestScore = score
				bestIdx = c
			}
		}

		if bestIdx < 0 || bestScore < e.minScore {
			continue
		}

		matches = append(matches, Match{
			Polymarket: polymarket[i],
			Kalshi:     kalshi[bestIdx],
			Score:      bestScore,
		})
		MatchScore.Observe(bestScore)
	}

	e.logger.Debug("matching-complete",
		zap.Int("polymarket-markets", len(polymarket)),
		zap.Int("kalshi-markets", len(kalshi)),
		zap.Int("matches", len(matches)))

	MatchesFoundTotal.Add(float64(len(matches)))

	return matches
}

// invertedIndex maps an entity token to the Kalshi market indices containing
// it.
type invertedIndex map[string][]int

func buildIndex(markets []types.NormalizedMarket) invertedIndex {
	index := make(invertedIndex)
	for i := range markets {
		norm := NormalizeText(markets[i].Question)
		for _, entity := range ExtractEntities(norm) {
			index[entity] = append(index[entity], i)
		}
	}
	return index
}

// candidates returns the union of market indices reachable through any of
// the given entities, in ascending index order so tie-breaks stay
// deterministic.
func (idx invertedIndex) candidates(entities []string) []int {
	seen := make(map[int]struct{})
	for _, entity := range entities {
		for _, i := range idx[entity] {
			seen[i] = struct{}{}
		}
	}

	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// NormalizeText lowercases, strips punctuation except spaces, and collapses
// whitespace runs.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteByte(' ')
			lastSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}

// ExtractEntities returns the normalized tokens of length > 2 excluding stop
// words. Entities approximate proper nouns and subject terms and are the
// coarse semantic fingerprint of a question.
func ExtractEntities(normalized string) []string {
	fields := strings.Fields(normalized)
	entities := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))

	for _, tok := range fields {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		entities = append(entities, tok)
	}

	return entities
}

// Score computes the match score of two markets from their entities and
// normalized question strings. Returns 0 for rejected pairs.
func Score(aEntities []string, aNorm string, bEntities []string, bNorm string) float64 {
	shared := sharedCount(aEntities, bEntities)
	if shared == 0 {
		return 0
	}

	dice := DiceCoefficient(aNorm, bNorm)
	if shared == 1 && dice < singleEntityMinDice {
		return 0
	}

	maxLen := len(aEntities)
	if len(bEntities) > maxLen {
		maxLen = len(bEntities)
	}
	entityOverlap := float64(shared) / float64(maxLen)

	score := entityWeight*entityOverlap + diceWeight*dice

	switch {
	case shared >= 3:
		score += bonusThreeEntities
	case shared == 2:
		score += bonusTwoEntities
	}

	if score > 1.0 {
		score = 1.0
	}

	return score
}

func sharedCount(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, e := range a {
		set[e] = struct{}{}
	}

	shared := 0
	for _, e := range b {
		if _, ok := set[e]; ok {
			shared++
		}
	}
	return shared
}

// DiceCoefficient computes 2*|shared bigrams| / (|bigrams(a)|+|bigrams(b)|)
// over character bigrams, counting multiplicity. Identical strings score 1;
// it is robust to word order and minor phrasing differences.
func DiceCoefficient(a, b string) float64 {
	if a == b && len(a) >= 2 {
		return 1.0
	}

	aBigrams := bigrams(a)
	bBigrams := bigrams(b)
	if len(aBigrams) == 0 || len(bBigrams) == 0 {
		return 0
	}

	counts := make(map[string]int, len(aBigrams))
	for _, bg := range aBigrams {
		counts[bg]++
	}

	shared := 0
	for _, bg := range bBigrams {
		if counts[bg] > 0 {
			counts[bg]--
			shared++
		}
	}

	return 2.0 * float64(shared) / float64(len(aBigrams)+len(bBigrams))
}

func bigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}

	out := make([]string, 0, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		out = append(out, string(runes[i:i+2]))
	}
	return out
}
