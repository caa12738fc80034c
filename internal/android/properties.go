package android

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
)

const propertyBlanks = " \t\f"

// readProperties parses a Java properties stream: comment lines, line
// continuations, the three key separators and backslash escapes.
func readProperties(r io.Reader) map[string]string {
	props := make(map[string]string)
	scanner := bufio.NewScanner(r)

	var logical strings.Builder
	continued := false
	for scanner.Scan() {
		line := strings.TrimLeft(scanner.Text(), propertyBlanks)
		if !continued && (line == "" || line[0] == '#' || line[0] == '!') {
			continue
		}
		continued = endsWithEscape(line)
		if continued {
			logical.WriteString(line[:len(line)-1])
			continue
		}
		logical.WriteString(line)
		key, value := cutProperty(logical.String())
		props[key] = value
		logical.Reset()
	}
	if logical.Len() > 0 {
		key, value := cutProperty(logical.String())
		props[key] = value
	}
	return props
}

// endsWithEscape reports whether line ends in an odd run of backslashes,
// which continues the entry on the next line.
func endsWithEscape(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// cutProperty splits an entry at the first unescaped '=', ':' or blank.
func cutProperty(line string) (string, string) {
	end := len(line)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' {
			i++
			continue
		}
		if c == '=' || c == ':' || strings.IndexByte(propertyBlanks, c) >= 0 {
			end = i
			break
		}
	}
	rest := strings.TrimLeft(line[end:], propertyBlanks)
	if rest != "" && (rest[0] == '=' || rest[0] == ':') {
		rest = strings.TrimLeft(rest[1:], propertyBlanks)
	}
	return unescapeProperty(line[:end]), unescapeProperty(rest)
}

// unescapeProperty decodes \t, \n, \r, \f and \uXXXX. Any other escaped
// character stands for itself, so C\:\\Users becomes C:\Users.
func unescapeProperty(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' {
			b.WriteByte(v[i])
			continue
		}
		if i+1 == len(v) {
			break
		}
		i++
		switch v[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			r, ok := hexRune(v[i+1:])
			if !ok {
				b.WriteByte('u')
				continue
			}
			i += 4
			if utf16.IsSurrogate(r) && strings.HasPrefix(v[i+1:], `\u`) {
				if low, ok := hexRune(v[i+3:]); ok {
					if pair := utf16.DecodeRune(r, low); pair != '\uFFFD' {
						r = pair
						i += 6
					}
				}
			}
			b.WriteRune(r)
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

func hexRune(s string) (rune, bool) {
	if len(s) < 4 {
		return 0, false
	}
	n, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}
