package util

import "regexp"

var lazyBracesRe = regexp.MustCompile(`(?s)\{.*?\}`)

// FirstBracedLazy returns the first `{...}` up to the nearest closing brace.
// Nested objects and braces inside strings cut the fragment short.
func FirstBracedLazy(s string) (string, bool) {
	m := lazyBracesRe.FindString(s)
	return m, m != ""
}

// FirstJSONObject returns the first balanced `{...}` in s. Braces inside JSON
// string literals are ignored. If an opening brace never balances, the scan
// restarts at the next one.
func FirstJSONObject(s string) (string, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}
		if end := balancedEnd(s, start); end > 0 {
			return s[start:end], true
		}
	}
	return "", false
}

// balancedEnd returns the index just past the brace closing s[start], or -1.
func balancedEnd(s string, start int) int {
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
