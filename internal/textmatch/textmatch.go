package textmatch

import (
	"strings"
	"unicode"
)

const (
	// TokenMatchRatio is the per-token similarity at which two tokens count
	// as the same word ("radiators" ~ "radiator").
	TokenMatchRatio = 0.75

	// ContainmentScore is awarded when all words of one side appear, in
	// order, inside the other.
	ContainmentScore = 0.8

	// substringScore is awarded when one side is a raw substring of the
	// other without word alignment.
	substringScore = 0.7

	// minSubstringRunes keeps very short fragments from matching everything.
	minSubstringRunes = 4
)

// leadingFillers are dropped from the front of a phrase.
var leadingFillers = map[string]struct{}{
	"the": {}, "my": {}, "our": {}, "a": {}, "an": {}, "this": {}, "that": {},
}

// Normalise lower-cases s, turns punctuation into spaces, removes
// apostrophes, collapses whitespace, and drops leading articles and
// possessives.
//
//	Normalise("  The Kid's  Room!") == "kids room"
func Normalise(s string) string {
	return strings.Join(Tokens(s), " ")
}

// Tokens returns the normalised words of s.
func Tokens(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
			// "kid's" -> "kids"
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	for len(words) > 1 {
		if _, filler := leadingFillers[words[0]]; !filler {
			break
		}
		words = words[1:]
	}
	return words
}

// Score returns the similarity of two phrases in [0, 1]. Inputs are
// normalised first.
func Score(a, b string) float64 {
	return ScoreTokens(Tokens(a), Tokens(b))
}

// ScoreTokens is Score over already-normalised tokens.
func ScoreTokens(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	as, bs := strings.Join(a, " "), strings.Join(b, " ")
	if as == bs {
		return 1
	}

	best := Ratio(as, bs)
	if d := dice(a, b); d > best {
		best = d
	}
	if ContainmentScore > best && (containsRun(a, b) || containsRun(b, a)) {
		best = ContainmentScore
	}
	if substringScore > best && substring(as, bs) {
		best = substringScore
	}
	return best
}

// Ratio is 1 - distance/maxLen over runes, so identical strings score 1
// and entirely different strings of equal length score 0.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// dice is 2*sum(similarity)/(len(a)+len(b)), pairing each token of a with
// its most similar unclaimed token of b when that similarity reaches
// TokenMatchRatio.
func dice(a, b []string) float64 {
	used := make([]bool, len(b))
	var matched float64
	for _, ta := range a {
		bestIdx, bestRatio := -1, 0.0
		for j, tb := range b {
			if used[j] {
				continue
			}
			if r := Ratio(ta, tb); r >= TokenMatchRatio && r > bestRatio {
				bestIdx, bestRatio = j, r
			}
		}
		if bestIdx >= 0 {
			used[bestIdx] = true
			matched += bestRatio
		}
	}
	return 2 * matched / float64(len(a)+len(b))
}

// containsRun reports whether needle appears as a contiguous run of tokens in hay.
func containsRun(hay, needle []string) bool {
	if len(needle) > len(hay) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, tok := range needle {
			if hay[i+j] != tok {
				continue outer
			}
		}
		return true
	}
	return false
}

func substring(a, b string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len([]rune(short)) < minSubstringRunes {
		return false
	}
	return strings.Contains(long, short)
}

// Contains reports whether the normalised fragment occurs inside the
// normalised text. An empty fragment is contained in everything.
func Contains(text, fragment string) bool {
	f := Normalise(fragment)
	if f == "" {
		return true
	}
	return strings.Contains(Normalise(text), f)
}
