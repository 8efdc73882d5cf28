// Package patterns closes the loop between human address corrections and
// future automation: it learns token-level fixes from correction diffs and
// replays them on new raw addresses before quality scoring.
package patterns

import (
	"sort"
	"strings"
	"unicode"

	"meldeamt/internal/patterns/models"
)

// Apply replays learned corrections on a raw address. Patterns are tried
// longest first, then by descending frequency, so a longer pattern can never
// be shadowed by a partial-token collision. Each substitution is whole-word
// and case-insensitive; every substitution actually made is reported in
// order.
//
// Apply is idempotent: once a token is replaced by its full form, the
// abbreviation no longer exists as a whole word, so a second pass changes
// nothing.
func Apply(address string, resolutions []models.Resolution) (string, []models.Applied) {
	ordered := make([]models.Resolution, len(resolutions))
	copy(ordered, resolutions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if len(ordered[i].Pattern) != len(ordered[j].Pattern) {
			return len(ordered[i].Pattern) > len(ordered[j].Pattern)
		}
		return ordered[i].Frequency > ordered[j].Frequency
	})

	corrected := address
	var applied []models.Applied
	for _, r := range ordered {
		if r.Pattern == "" {
			continue
		}
		replaced, changed := replaceWholeWord(corrected, r.Pattern, r.Corrected)
		if !changed {
			continue
		}
		corrected = replaced
		applied = append(applied, models.Applied{
			Original:  r.Pattern,
			Corrected: r.Corrected,
			Type:      r.Type,
		})
	}
	return corrected, applied
}

// replaceWholeWord substitutes every word token equal to pattern
// (case-insensitive) with replacement. Word tokens are maximal runs of
// letters and digits, so German letters are handled and "Musterstr" never
// matches inside "Musterstraße".
func replaceWholeWord(s, pattern, replacement string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	changed := false

	runes := []rune(s)
	for i := 0; i < len(runes); {
		if !isWordRune(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		start := i
		for i < len(runes) && isWordRune(runes[i]) {
			i++
		}
		token := string(runes[start:i])
		if strings.EqualFold(token, pattern) {
			b.WriteString(replacement)
			changed = true
		} else {
			b.WriteString(token)
		}
	}
	return b.String(), changed
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
