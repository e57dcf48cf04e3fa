// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package number

import "strconv"

// WIPO bodies with a four-digit year have at least this many digits; the
// two-digit form is shorter.
const wipoLongBody = 9

// wipoCenturyPivot separates two-digit WIPO years: below it the year is in
// the 2000s, otherwise in the 1900s. PCT publications start in 1978.
const wipoCenturyPivot = 78

// WODenormalize converts a WIPO number with a four-digit year into the
// two-digit form some providers return ("WO2003049775A2" -> "WO03049775A2").
// The second return value is false for non-WIPO or short numbers.
func WODenormalize(s string) (string, bool) {
	p, err := Parse(s)
	if err != nil || p.Country != "WO" || len(p.Number) < wipoLongBody || !allDigits(p.Number[:4]) {
		return "", false
	}
	return "WO" + p.Number[2:] + p.Kind, true
}

// WONormalize converts a WIPO number with a two-digit year back into the
// four-digit form ("WO03049775A2" -> "WO2003049775A2").
func WONormalize(s string) (string, bool) {
	p, err := Parse(s)
	if err != nil || p.Country != "WO" || len(p.Number) < 4 || len(p.Number) >= wipoLongBody || !allDigits(p.Number[:2]) {
		return "", false
	}
	yy, _ := strconv.Atoi(p.Number[:2])
	century := "20"
	if yy >= wipoCenturyPivot {
		century = "19"
	}
	return "WO" + century + p.Number + p.Kind, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
