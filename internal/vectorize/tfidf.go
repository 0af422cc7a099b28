// Package vectorize derives sparse TF-IDF weight maps from token lists.
//
// Document frequencies come from theme counters rather than a full
// token-level corpus index. A theme's total count is used as a proxy for
// the keyword's document frequency — an accepted approximation, since
// themes are created from the same keywords the vectorizer weights.
package vectorize

import "math"

// TFIDF computes a sparse token→weight map for one document.
//
// Term frequency is the raw in-document count divided by the token list
// length. Inverse document frequency is ln(totalDocs / (df+1)); the
// add-one smoothing guarantees no division by zero and no ln(0).
// Tokens absent from the input are absent from the result.
//
// totalDocs <= 0 returns an empty map.
func TFIDF(tokens []string, corpusDocFreq map[string]int, totalDocs int) map[string]float64 {
	weights := make(map[string]float64)
	if totalDocs <= 0 || len(tokens) == 0 {
		return weights
	}

	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}

	n := float64(len(tokens))
	for tok, count := range counts {
		tf := float64(count) / n
		idf := math.Log(float64(totalDocs) / float64(corpusDocFreq[tok]+1))
		weights[tok] = tf * idf
	}
	return weights
}

// TopKeys returns the k map keys with the largest weights, descending.
// Ties break lexicographically so the result is deterministic.
func TopKeys(weights map[string]float64, k int) []string {
	if k <= 0 || len(weights) == 0 {
		return nil
	}

	keys := make([]string, 0, len(weights))
	for key := range weights {
		keys = append(keys, key)
	}
	sortKeysByWeight(keys, weights)

	if len(keys) > k {
		keys = keys[:k]
	}
	return keys
}

func sortKeysByWeight(keys []string, weights map[string]float64) {
	// Insertion sort: key counts here are tiny (one document's vocabulary).
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0; j-- {
			wa, wb := weights[keys[j-1]], weights[keys[j]]
			if wb > wa || (wb == wa && keys[j] < keys[j-1]) {
				keys[j-1], keys[j] = keys[j], keys[j-1]
			} else {
				break
			}
		}
	}
}
