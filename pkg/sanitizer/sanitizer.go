package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func trim(s string) string {
	return strings.TrimSpace(s)
}

// collapseWhitespace folds any run of whitespace into a single space.
func collapseWhitespace(s string) string {
	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// collapseBlanks folds runs of spaces and tabs but keeps line breaks, so
// multi-line descriptions keep their shape.
func collapseBlanks(s string) string {
	var result strings.Builder
	var lastWasBlank bool

	for _, r := range s {
		switch {
		case r == '\n':
			result.WriteRune(r)
			lastWasBlank = false
		case unicode.IsSpace(r):
			if !lastWasBlank {
				result.WriteRune(' ')
				lastWasBlank = true
			}
		default:
			result.WriteRune(r)
			lastWasBlank = false
		}
	}

	return result.String()
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' {
			return -1
		}
		return r
	}, s)
}

// SanitizeName normalizes a listing name: control characters removed,
// whitespace collapsed, edges trimmed. Case and unicode letters survive.
func SanitizeName(input string) string {
	p := Pipeline{
		stripControl,
		collapseWhitespace,
		trim,
	}
	return p.Apply(input)
}

// SanitizeDescription normalizes free-form listing text while preserving
// intentional line breaks.
func SanitizeDescription(input string) string {
	p := Pipeline{
		stripControl,
		collapseBlanks,
		trim,
	}
	return p.Apply(input)
}

// SanitizeAccountID cleans a caller-supplied account identifier. The id is
// opaque, so only surrounding whitespace and control characters go.
func SanitizeAccountID(input string) string {
	p := Pipeline{
		stripControl,
		trim,
	}
	return p.Apply(input)
}

// SanitizeSlice applies a strategy to every element, dropping empties and
// duplicates while preserving first-seen order.
func SanitizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
