package recognize

import (
	"strings"
	"unicode"
)

// ErrorRate holds the edit distance between a reference transcript and a
// recognized one. For languages written without spaces the unit is the
// character (CER); otherwise it is the word (WER).
type ErrorRate struct {
	Rate          float64 // 0.0 = perfect, 1.0+ = very bad
	Substitutions int
	Insertions    int
	Deletions     int
	RefUnits      int
}

// CompareTranscripts calculates the error rate of hypothesis against
// reference for lang. Both strings are lowercased with punctuation and
// whitespace normalized away.
// Rate = (Substitutions + Insertions + Deletions) / RefUnits.
func CompareTranscripts(reference, hypothesis, lang string) ErrorRate {
	split := normalizeWords
	if unspaced[lang] {
		split = normalizeChars
	}
	ref := split(reference)
	hyp := split(hypothesis)

	n := len(ref)
	if n == 0 {
		return ErrorRate{}
	}
	m := len(hyp)

	// DP table for minimum edit distance.
	d := make([][]int, n+1)
	for i := range d {
		d[i] = make([]int, m+1)
		d[i][0] = i
	}
	for j := 0; j <= m; j++ {
		d[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if ref[i-1] == hyp[j-1] {
				d[i][j] = d[i-1][j-1]
				continue
			}
			d[i][j] = min(d[i-1][j-1], d[i-1][j], d[i][j-1]) + 1
		}
	}

	var subs, ins, dels int
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && ref[i-1] == hyp[j-1]:
			i--
			j--
		case i > 0 && j > 0 && d[i][j] == d[i-1][j-1]+1:
			subs++
			i--
			j--
		case i > 0 && d[i][j] == d[i-1][j]+1:
			dels++
			i--
		default:
			ins++
			j--
		}
	}

	return ErrorRate{
		Rate:          float64(subs+ins+dels) / float64(n),
		Substitutions: subs,
		Insertions:    ins,
		Deletions:     dels,
		RefUnits:      n,
	}
}

func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, strings.ToLower(s))
}

func normalizeWords(s string) []string {
	return strings.Fields(stripPunct(s))
}

func normalizeChars(s string) []string {
	var units []string
	for _, r := range stripPunct(s) {
		if !unicode.IsSpace(r) {
			units = append(units, string(r))
		}
	}
	return units
}
