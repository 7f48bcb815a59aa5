// Package textmatch normalises spoken names and scores how closely two
// names match.
//
// Scores are in [0, 1]. Identical normalised strings score 1. Otherwise the
// score is the best of three measures:
//
//   - whole-string Levenshtein similarity
//   - Dice overlap of tokens weighted by similarity, where a token pair
//     counts when its own Levenshtein similarity is at least TokenMatchRatio
//   - word containment: one side's tokens appear as a contiguous run in the
//     other ("heater" in "bedroom heater") scores ContainmentScore
//
// The functions are pure and safe for concurrent use.
package textmatch
