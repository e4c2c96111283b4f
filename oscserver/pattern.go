// Package oscserver implements the OSC dispatcher and UDP/TCP servers:
// pattern-based method dispatch, bundle bracketing, and the
// query/response correlation spec.md §4.5 describes.
package oscserver

import (
	"regexp"
	"strings"
)

// compilePattern turns an OSC address pattern into a precompiled regex
// matching full addresses, per spec.md §4.5:
//
//	? matches any single character except '/'
//	* matches zero or more characters except '/'
//	[abc], [a-z], [!abc] match a character class
//	{foo,bar,baz} matches one of the comma-separated alternatives
//	all other characters match literally; '/' is a literal separator
//
// Precompiling at registration time (rather than per-dispatch) mirrors
// the shape of go-osc's internal dispatcher, which does the same
// translation once per AddMsgHandler call.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '?':
			b.WriteString(`[^/]`)
		case '*':
			b.WriteString(`[^/]*`)
		case '[':
			j := i + 1
			negate := j < len(runes) && runes[j] == '!'
			if negate {
				j++
			}
			start := j
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				// unclosed class: treat '[' as a literal
				b.WriteString(regexp.QuoteMeta("["))
				continue
			}
			class := string(runes[start:j])
			b.WriteByte('[')
			if negate {
				b.WriteByte('^')
			}
			b.WriteString(escapeClassBody(class))
			b.WriteByte(']')
			i = j
		case '{':
			j := i + 1
			for j < len(runes) && runes[j] != '}' {
				j++
			}
			if j >= len(runes) {
				b.WriteString(regexp.QuoteMeta("{"))
				continue
			}
			alts := strings.Split(string(runes[i+1:j]), ",")
			b.WriteString("(?:")
			for k, alt := range alts {
				if k > 0 {
					b.WriteByte('|')
				}
				b.WriteString(regexp.QuoteMeta(alt))
			}
			b.WriteString(")")
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}

// escapeClassBody escapes characters meaningful to a regex character
// class (other than the already-handled leading '^' and the closing
// ']') so "[a-z]"-style ranges still work while literal '\' is safe.
func escapeClassBody(s string) string {
	return strings.NewReplacer(`\`, `\\`, `^`, `\^`).Replace(s)
}
