// File path: internal/similarity/similarity.go
package similarity

import (
	"math"

	"github.com/agnivade/levenshtein"

	"github.com/studyaid/quizmatch/internal/textnorm"
)

// Package similarity provides the scoring primitives used by both the fine
// ranker and the dedup decider: cosine over term-frequency vectors,
// edit-distance similarity for short strings, and an order-independent
// answer-set similarity.

// Vector is a term-frequency vector keyed by token.
type Vector map[string]float64

// TermFreq builds a term-frequency vector from a token stream.
func TermFreq(tokens []string) Vector {
	if len(tokens) == 0 {
		return nil
	}
	tf := make(Vector, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	return tf
}

// Cosine computes dot(a,b) / (|a|*|b|). Empty vectors score zero; identical
// non-empty vectors score one.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for term, wa := range a {
		normA += wa * wa
		if wb, ok := b[term]; ok {
			dot += wa * wb
		}
	}
	for _, wb := range b {
		normB += wb * wb
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return clamp(dot / denom)
}

// Text scores two texts with cosine over every token. This is the unfiltered
// variant used by the dedup decider, where even short Vietnamese function
// words help discriminate between near-identical records.
func Text(t1, t2 string) float64 {
	return Cosine(TermFreq(textnorm.Tokens(t1)), TermFreq(textnorm.Tokens(t2)))
}

// Keyword scores two texts with cosine over keyword tokens (punctuation
// stripped, tokens longer than two runes). The enhanced ranker uses this
// variant so boilerplate particles do not inflate scores.
func Keyword(t1, t2 string) float64 {
	return Cosine(TermFreq(textnorm.KeywordTokens(t1)), TermFreq(textnorm.KeywordTokens(t2)))
}

// EditDistance returns 1 - levenshtein(s1,s2)/max(len), a similarity in
// [0,1] for short strings where cosine is too coarse.
func EditDistance(s1, s2 string) float64 {
	if s1 == "" && s2 == "" {
		return 1
	}
	r1 := []rune(s1)
	r2 := []rune(s2)
	maxLen := len(r1)
	if len(r2) > maxLen {
		maxLen = len(r2)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(s1, s2)
	return clamp(1 - float64(dist)/float64(maxLen))
}

// AnswerSetFunc computes the symmetric answer-set similarity: each answer in
// one set is paired with its best match in the other set, the bests are
// averaged, and the two directions are averaged again. The result is
// order-independent and tolerates extra or missing options.
func AnswerSetFunc(a, b []string, sim func(string, string) float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var total float64
	var comparisons int
	for _, x := range a {
		var best float64
		for _, y := range b {
			if s := sim(x, y); s > best {
				best = s
			}
		}
		total += best
		comparisons++
	}
	for _, y := range b {
		var best float64
		for _, x := range a {
			if s := sim(y, x); s > best {
				best = s
			}
		}
		total += best
		comparisons++
	}
	if comparisons == 0 {
		return 0
	}
	return clamp(total / float64(comparisons))
}

// KeywordAnswerSet is AnswerSetFunc over the keyword cosine variant.
func KeywordAnswerSet(a, b []string) float64 {
	return AnswerSetFunc(a, b, Keyword)
}

// TextAnswerSet is AnswerSetFunc over the unfiltered cosine variant.
func TextAnswerSet(a, b []string) float64 {
	return AnswerSetFunc(a, b, Text)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
