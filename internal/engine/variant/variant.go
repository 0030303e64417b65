// Package variant derives the three text forms a signature is drawn from.
package variant

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxFullLen is the longest name (in characters) kept verbatim as the
// full form.
const maxFullLen = 18

// Forms returns the full, initials and stylized forms of name. It is a
// pure function of its input. An empty or blank name yields three empty
// strings.
func Forms(name string) [3]string {
	name = strings.TrimSpace(norm.NFC.String(name))
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return [3]string{}
	}

	first := []rune(parts[0])
	var last []rune
	if len(parts) > 1 {
		last = []rune(parts[len(parts)-1])
	}

	return [3]string{
		full(name, first, last),
		initials(first, last),
		stylized(first, last),
	}
}

func full(name string, first, last []rune) string {
	if len([]rune(name)) <= maxFullLen {
		return name
	}
	return string(first) + " " + string(last)
}

func initials(first, last []rune) string {
	if len(last) == 0 {
		return string(first)
	}
	return string(first[:1]) + ". " + string(last)
}

func stylized(first, last []rune) string {
	n := max(3, len(first)/2)
	return string(prefix(first, n)) + string(prefix(last, 3)) + "."
}

func prefix(r []rune, n int) []rune {
	if len(r) < n {
		return r
	}
	return r[:n]
}
