package adapter

import (
	"reflect"
	"strings"
)

// TypeName renders t the way it is shown next to a value: generic types as
// Base<A, B>, slices and arrays as Elem[], maps as map<K, V>, and named types
// without their package path.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "null"
	}
	return formatTypeString(t.String())
}

// formatTypeString rewrites a Go type expression such as
// "map[string][]*pkg.Pair[int,pkg.Item]" into display form.
func formatTypeString(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return s
	case s == "interface {}":
		return "any"
	case strings.HasPrefix(s, "*"):
		return formatTypeString(s[1:])
	case strings.HasPrefix(s, "[]"):
		return elemTypeName(s[2:])
	case strings.HasPrefix(s, "["):
		if end := matchBracket(s, 0); end > 0 {
			return elemTypeName(s[end+1:])
		}
	case strings.HasPrefix(s, "map["):
		if end := matchBracket(s, 3); end > 0 {
			return "map<" + formatTypeString(s[4:end]) + ", " + formatTypeString(s[end+1:]) + ">"
		}
	case strings.HasPrefix(s, "func("), strings.HasPrefix(s, "chan "), strings.HasPrefix(s, "struct {"),
		strings.HasPrefix(s, "interface {"):
		return s
	}

	base, args := s, ""
	if i := strings.IndexByte(s, '['); i > 0 && strings.HasSuffix(s, "]") {
		base, args = s[:i], s[i+1:len(s)-1]
	}
	if dot := strings.LastIndexByte(base, '.'); dot >= 0 {
		base = base[dot+1:]
	}
	if args == "" {
		return base
	}
	parts := splitTypeArgs(args)
	for i, p := range parts {
		parts[i] = formatTypeString(p)
	}
	return base + "<" + strings.Join(parts, ", ") + ">"
}

func elemTypeName(elem string) string {
	if elem == "uint8" {
		return "byte[]"
	}
	return formatTypeString(elem) + "[]"
}

// matchBracket returns the index of the bracket closing the one at open.
func matchBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTypeArgs(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
