package corpus

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Transform post-processes a value drawn for a slot.
type Transform string

const (
	TransformNone       Transform = ""
	TransformCapitalize Transform = "capitalize" // upper-case the first letter
	TransformSentence   Transform = "sentence"   // first letter upper, rest lower, ending with a period
	TransformLower      Transform = "lower"
	TransformUpper      Transform = "upper"
	TransformTitle      Transform = "title"
)

// Valid reports whether t is a known transform.
func (t Transform) Valid() bool {
	switch t {
	case TransformNone, TransformCapitalize, TransformSentence, TransformLower, TransformUpper, TransformTitle:
		return true
	}
	return false
}

// Apply returns v transformed. Casers are created per call because they
// carry state and parallel expansion may apply transforms concurrently.
func (t Transform) Apply(v string) string {
	switch t {
	case TransformCapitalize:
		return capitalize(v)
	case TransformSentence:
		s := strings.TrimSpace(v)
		if r, size := utf8.DecodeRuneInString(s); r != utf8.RuneError {
			s = capitalize(string(r)) + cases.Lower(language.Und).String(s[size:])
		}
		if s != "" && !strings.HasSuffix(s, ".") {
			s += "."
		}
		return s
	case TransformLower:
		return cases.Lower(language.Und).String(v)
	case TransformUpper:
		return cases.Upper(language.Und).String(v)
	case TransformTitle:
		return cases.Title(language.English, cases.NoLower).String(v)
	default:
		return v
	}
}

func capitalize(v string) string {
	r, size := utf8.DecodeRuneInString(v)
	if r == utf8.RuneError {
		return v
	}
	return cases.Upper(language.Und).String(string(r)) + v[size:]
}
