package shipping

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const Nationwide = "nationwide"

// Normalize folds a region or province name for comparison. Vietnamese names
// arrive both precomposed and decomposed, so NFC comes first.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MatchRegion reports whether province is covered by regions. An empty set
// or a "nationwide" entry covers every province. Otherwise a region matches
// when it equals the province or either name contains the other, which lets
// "Hà Nội" match "Thành phố Hà Nội".
func MatchRegion(regions []string, province string) bool {
	p := Normalize(province)
	if p == "" {
		return false
	}
	if len(regions) == 0 {
		return true
	}
	for _, r := range regions {
		if Normalize(r) == Nationwide {
			return true
		}
	}
	for _, raw := range regions {
		r := Normalize(raw)
		if r == "" {
			continue
		}
		if r == p || strings.Contains(r, p) || strings.Contains(p, r) {
			return true
		}
	}
	return false
}

// SameProvince is an exact comparison after normalization.
func SameProvince(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}
