package classifier

import (
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// TokenizeOptions selects which optional feature channels Tokenize
// appends beyond plain word unigrams.
type TokenizeOptions struct {
	CharNgram bool

	BPE bool

	// WordNgram appends joined multi-word spans alongside the plain
	// unigrams, for word-order signal a bag of unigrams alone misses
	// ("buy now" vs. two unrelated occurrences of "buy" and "now").
	// WordNgramMin/WordNgramMax bound the span length and mirror
	// scikit-learn's ngram_range convention; a max below 2 is treated
	// as a plain bigram.
	WordNgram    bool
	WordNgramMin int
	WordNgramMax int
}

// Tokenize converts raw text into the space-joined token string the
// vectorizer consumes, per §4.5. It splits on Unicode letter/number
// runs and additionally treats each CJK rune as its own word token,
// since CJK scripts carry no whitespace to split on (see DESIGN.md).
// When opts.WordNgram is set, joined multi-word spans are appended
// alongside the unigrams. When opts.CharNgram is set, character
// bigrams and trigrams of the original text are appended regardless
// of script. When opts.BPE is also set, BPE token IDs from a
// cl100k_base encoding are appended as an additional feature channel:
// a second vocabulary lens that groups sub-word pieces the Unicode
// splitter leaves separate, useful for non-CJK corpora where char
// n-grams alone are noisy.
func Tokenize(text string, opts TokenizeOptions) string {
	words := wordTokens(strings.ToLower(text))
	tokens := append([]string(nil), words...)

	if opts.WordNgram {
		lo, hi := opts.WordNgramMin, opts.WordNgramMax
		if lo < 2 {
			lo = 2
		}
		if hi < lo {
			hi = lo
		}
		for n := lo; n <= hi; n++ {
			for i := 0; i+n <= len(words); i++ {
				tokens = append(tokens, strings.Join(words[i:i+n], "_"))
			}
		}
	}

	if opts.CharNgram {
		runes := []rune(text)
		for i := 0; i < len(runes)-1; i++ {
			tokens = append(tokens, string(runes[i:i+2]))
		}
		for i := 0; i < len(runes)-2; i++ {
			tokens = append(tokens, string(runes[i:i+3]))
		}
	}

	if opts.BPE {
		tokens = append(tokens, bpeTokens(text)...)
	}

	return strings.Join(tokens, " ")
}

var bpeEncoding = sync.OnceValue(func() *tiktoken.Tiktoken {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil
	}
	return enc
})

// bpeTokens encodes text under the cl100k_base BPE vocabulary and
// returns each token ID prefixed so it never collides with a word or
// char-ngram token in the same vocabulary.
func bpeTokens(text string) []string {
	enc := bpeEncoding()
	if enc == nil {
		return nil
	}
	ids := enc.Encode(text, nil, nil)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "bpe#" + strconv.Itoa(id)
	}
	return out
}

func wordTokens(text string) []string {
	var tokens []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, string(cur))
			cur = cur[:0]
		}
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r)
}
