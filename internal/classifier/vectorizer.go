package classifier

import (
	"math"
	"sort"
	"strings"
)

// Vectorizer is a TF-IDF bag-of-words transform with a frozen
// vocabulary. Once Fit has run, Vocabulary and IDF are immutable;
// Transform projects new documents onto that fixed feature space,
// dropping out-of-vocabulary tokens.
type Vectorizer struct {
	MaxFeatures int
	MinDF       int
	MaxDF       float64

	Vocabulary map[string]int // token -> column index
	IDF        []float64      // idf weight per column, aligned to Vocabulary
	fitted     bool
}

// NewVectorizer builds a Vectorizer with §4.5's defaults (max_features
// from the profile config, min_df=2, max_df=0.8).
func NewVectorizer(maxFeatures int) *Vectorizer {
	return &Vectorizer{MaxFeatures: maxFeatures, MinDF: 2, MaxDF: 0.8}
}

// Fit establishes the vocabulary and IDF weights from the given
// pre-tokenized (space-joined) documents, then returns each document's
// TF-IDF vector. Called once per training run, on the first training
// batch; later batches of the same run only call Transform.
func (v *Vectorizer) Fit(docs []string) [][]float64 {
	docTokens := make([][]string, len(docs))
	df := map[string]int{}
	for i, d := range docs {
		toks := strings.Fields(d)
		docTokens[i] = toks
		seen := map[string]bool{}
		for _, t := range toks {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	maxDocCount := int(v.MaxDF * float64(len(docs)))
	type candidate struct {
		token string
		df    int
	}
	var candidates []candidate
	for t, count := range df {
		if count < v.MinDF {
			continue
		}
		if len(docs) > 1 && count > maxDocCount {
			continue
		}
		candidates = append(candidates, candidate{t, count})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].df != candidates[j].df {
			return candidates[i].df > candidates[j].df
		}
		return candidates[i].token < candidates[j].token
	})
	if v.MaxFeatures > 0 && len(candidates) > v.MaxFeatures {
		candidates = candidates[:v.MaxFeatures]
	}

	v.Vocabulary = make(map[string]int, len(candidates))
	v.IDF = make([]float64, len(candidates))
	for i, c := range candidates {
		v.Vocabulary[c.token] = i
		v.IDF[i] = math.Log(float64(1+len(docs))/float64(1+c.df)) + 1
	}
	v.fitted = true

	out := make([][]float64, len(docTokens))
	for i, toks := range docTokens {
		out[i] = v.vectorFromTokens(toks)
	}
	return out
}

// Transform projects already-fitted documents onto the frozen
// vocabulary; unknown tokens are ignored.
func (v *Vectorizer) Transform(docs []string) [][]float64 {
	out := make([][]float64, len(docs))
	for i, d := range docs {
		out[i] = v.vectorFromTokens(strings.Fields(d))
	}
	return out
}

// Fitted reports whether Fit has established a vocabulary.
func (v *Vectorizer) Fitted() bool { return v.fitted }

func (v *Vectorizer) vectorFromTokens(tokens []string) []float64 {
	vec := make([]float64, len(v.Vocabulary))
	tf := map[int]float64{}
	for _, t := range tokens {
		if idx, ok := v.Vocabulary[t]; ok {
			tf[idx]++
		}
	}

	var normSq float64
	for idx, count := range tf {
		w := count * v.IDF[idx]
		vec[idx] = w
		normSq += w * w
	}
	if normSq == 0 {
		return vec
	}
	norm := math.Sqrt(normSq)
	for idx := range tf {
		vec[idx] /= norm
	}
	return vec
}
