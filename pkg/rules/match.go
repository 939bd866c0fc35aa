package rules

import (
	"strings"
	"unicode"
)

// MatchFunc reports whether a company name contains a restricted token.
type MatchFunc func(name, token string, caseSensitive bool) bool

// SubstringMatch flags a name when the token appears anywhere in it, including inside
// a longer word: "UAEnergy" matches "UAE".
func SubstringMatch(name, token string, caseSensitive bool) bool {
	if token == "" {
		return false
	}

	if !caseSensitive {
		name = strings.ToLower(name)
		token = strings.ToLower(token)
	}

	return strings.Contains(name, token)
}

// WordBoundaryMatch flags a name only when the token's words appear as whole,
// consecutive words of the name.
func WordBoundaryMatch(name, token string, caseSensitive bool) bool {
	nameWords := words(name)
	tokenWords := words(token)

	if len(tokenWords) == 0 || len(tokenWords) > len(nameWords) {
		return false
	}

	equal := func(a, b string) bool {
		if caseSensitive {
			return a == b
		}

		return strings.EqualFold(a, b)
	}

	for i := 0; i+len(tokenWords) <= len(nameWords); i++ {
		matched := true

		for j, w := range tokenWords {
			if !equal(nameWords[i+j], w) {
				matched = false

				break
			}
		}

		if matched {
			return true
		}
	}

	return false
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
