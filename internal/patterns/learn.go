package patterns

import (
	"strings"
	"unicode"

	"meldeamt/internal/patterns/models"
)

// Similarity thresholds for accepting a token pair as a learnable pattern.
// An abbreviation expansion only needs moderate similarity because the
// expansion adds characters; a spelling fix must be near-identical.
const (
	moderateSimilarity = 0.5
	highSimilarity     = 0.8
)

// LearnFromDiff aligns the tokens of a raw address with the tokens of its
// human-corrected form and extracts learnable patterns. The alignment is
// greedy: each original token consumes its most similar unused corrected
// token, ties going to the earliest candidate, so the result is
// deterministic for a given input pair.
//
// A pair becomes a pattern when the tokens differ case-insensitively and one
// of three shapes holds: a shorter original with moderate similarity (an
// abbreviation expansion), a near-identical pair (a spelling fix), or a short
// uppercase original expanding into a markedly longer token (a city
// abbreviation, which skips the similarity check entirely). Numeric-only and
// single-character tokens never participate.
func LearnFromDiff(original, corrected string) []models.Candidate {
	origTokens := tokenize(original)
	corrTokens := tokenize(corrected)

	consumed := make([]bool, len(corrTokens))
	var out []models.Candidate

	for _, orig := range origTokens {
		if !learnableToken(orig) {
			continue
		}

		best := -1
		bestSim := -1.0
		for j, corr := range corrTokens {
			if consumed[j] || !learnableToken(corr) {
				continue
			}
			if sim := similarity(orig, corr); sim > bestSim {
				best, bestSim = j, sim
			}
		}
		if best < 0 {
			continue
		}
		consumed[best] = true

		corr := corrTokens[best]
		if strings.EqualFold(orig, corr) {
			continue
		}
		if !acceptPair(orig, corr, bestSim) {
			continue
		}
		out = append(out, models.Candidate{
			Pattern:   orig,
			Corrected: corr,
			Type:      classify(orig, corr),
		})
	}
	return out
}

func acceptPair(orig, corr string, sim float64) bool {
	switch {
	case isCityAbbreviation(orig, corr):
		return true
	case len([]rune(orig)) < len([]rune(corr)) && sim >= moderateSimilarity:
		return true
	case sim >= highSimilarity:
		return true
	}
	return false
}

// classify picks the resolution type for an accepted pair.
func classify(orig, corr string) models.ResolutionType {
	switch {
	case isCityAbbreviation(orig, corr):
		return models.TypeCityAbbreviation
	case strings.HasSuffix(strings.ToLower(orig), "str") && hasFullStreetSuffix(corr):
		return models.TypeStreetAbbreviation
	case containsDigit(orig) && containsDigit(corr):
		return models.TypeNumberCorrection
	}
	return models.TypeWordCorrection
}

// isCityAbbreviation recognizes short uppercase tokens like "KL" expanding
// into a much longer name like "Kaiserslautern".
func isCityAbbreviation(orig, corr string) bool {
	origLen := len([]rune(orig))
	return origLen <= 3 && isAllUpper(orig) && len([]rune(corr)) >= 2*origLen
}

// hasFullStreetSuffix reports whether the token ends in a full German
// street-type word.
func hasFullStreetSuffix(token string) bool {
	lower := strings.ToLower(token)
	for _, suffix := range streetSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// streetSuffixes are the full German street-type word forms. The truncated
// "str" abbreviation is deliberately absent.
var streetSuffixes = []string{
	"straße", "strasse", "weg", "platz", "allee",
	"ring", "damm", "ufer", "gasse", "steig", "pfad",
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func learnableToken(token string) bool {
	runes := []rune(token)
	if len(runes) <= 1 {
		return false
	}
	return !isNumeric(token)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// similarity is a normalized edit-distance ratio in [0,1], case-insensitive.
func similarity(a, b string) float64 {
	ar := []rune(strings.ToLower(a))
	br := []rune(strings.ToLower(b))
	if len(ar) == 0 && len(br) == 0 {
		return 1
	}
	max := len(ar)
	if len(br) > max {
		max = len(br)
	}
	return 1 - float64(levenshtein(ar, br))/float64(max)
}

func levenshtein(a, b []rune) int {
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
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
