// Package textutil provides the pure text primitives behind memcore's
// retrieval strategies: tokenization, trigram extraction, edit distance,
// TF-IDF weighting, and the similarity measures built on them.
// Everything here is stateless and deterministic.
package textutil

import (
	"math"
	"regexp"
	"strings"
)

// MinTokenLength is the shortest token that gets indexed or searched.
// Tokens of this length or shorter are discarded.
const MinTokenLength = 2

// nonWordRegex matches everything that is not a letter, digit, or underscore.
var nonWordRegex = regexp.MustCompile(`[^a-z0-9_\s]+`)

// Tokenize lowercases text, strips non-word characters, splits on
// whitespace, and discards tokens of length <= 2.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	cleaned := nonWordRegex.ReplaceAllString(lower, " ")

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > MinTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Trigrams returns every 3-character sliding window of the word after
// space padding, so a word of length n yields n+1 trigrams. The padding
// makes prefixes and suffixes distinguishable from interior substrings.
func Trigrams(word string) []string {
	if word == "" {
		return []string{}
	}

	padded := "  " + word + " "
	runes := []rune(padded)

	grams := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+3]))
	}
	return grams
}

// TrigramSet returns the distinct trigrams of a word.
func TrigramSet(word string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, g := range Trigrams(word) {
		set[g] = struct{}{}
	}
	return set
}

// EditDistance computes the Levenshtein distance between a and b with
// unit cost for insertion, deletion, and substitution.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Single-row DP over b
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// TermFrequencies counts token occurrences.
func TermFrequencies(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}

// TFIDF computes the TF-IDF weight vector for a token sequence.
// Term frequency is occurrences/len(tokens); the IDF factor is
// ln(totalDocs/df), with df defaulting to 1 for terms absent from
// the document-frequency map.
func TFIDF(tokens []string, docFrequency map[string]int, totalDocs int) map[string]float64 {
	weights := make(map[string]float64)
	if len(tokens) == 0 || totalDocs <= 0 {
		return weights
	}

	counts := TermFrequencies(tokens)
	n := float64(len(tokens))

	for term, count := range counts {
		df := docFrequency[term]
		if df < 1 {
			df = 1
		}
		tf := float64(count) / n
		idf := math.Log(float64(totalDocs) / float64(df))
		weights[term] = tf * idf
	}
	return weights
}

// Norm returns the L2 norm of a sparse weight vector.
func Norm(vec map[string]float64) float64 {
	var sum float64
	for _, w := range vec {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the normalized dot product of two sparse
// vectors, in [0,1] for non-negative weights. Returns 0 when either
// vector has zero norm.
func CosineSimilarity(vecA, vecB map[string]float64) float64 {
	normA := Norm(vecA)
	normB := Norm(vecB)
	if normA == 0 || normB == 0 {
		return 0
	}

	// Iterate the smaller vector for the dot product
	small, large := vecA, vecB
	if len(vecB) < len(vecA) {
		small, large = vecB, vecA
	}

	var dot float64
	for term, w := range small {
		if other, ok := large[term]; ok {
			dot += w * other
		}
	}
	return dot / (normA * normB)
}

// TrigramSimilarity returns the Jaccard similarity of the two words'
// trigram sets.
func TrigramSimilarity(a, b string) float64 {
	setA := TrigramSet(a)
	setB := TrigramSet(b)
	return jaccard(setA, setB)
}

// JaccardSimilarity returns word-set overlap of two texts: the texts
// are lowercased and whitespace-split, then scored as
// |intersection| / |union|.
func JaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	return jaccard(setA, setB)
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
