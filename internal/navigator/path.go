package navigator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Segment is one parsed step of a path.
// Path example: regions.asia.countries[0]["postal-code"]
type Segment interface {
	matches(name string) bool
	String() string
}

// Field is a dotted field name.
type Field struct {
	Name string
}

// QuotedKey is a key accessed with bracket-quoted syntax: ["key"].
type QuotedKey struct {
	Name string
}

// ArrayIndex is an index like [0].
type ArrayIndex struct {
	Index int
}

func (f Field) matches(name string) bool     { return name == f.Name }
func (q QuotedKey) matches(name string) bool { return name == q.Name }
func (a ArrayIndex) matches(name string) bool {
	return name == "["+strconv.Itoa(a.Index)+"]"
}

func (f Field) String() string      { return f.Name }
func (q QuotedKey) String() string  { return "[" + strconv.Quote(q.Name) + "]" }
func (a ArrayIndex) String() string { return "[" + strconv.Itoa(a.Index) + "]" }

var numericSegment = regexp.MustCompile(`\.(\d+)(?:$|[.\[])`)

// NormalizePath converts numeric dotted segments to bracket notation.
// Examples:
//
//	"items.0" -> "items[0]"
//	"items.0.tags" -> "items[0].tags"
func NormalizePath(path string) string {
	for {
		loc := numericSegment.FindStringSubmatchIndex(path)
		if loc == nil {
			return path
		}
		digits := path[loc[2]:loc[3]]
		path = path[:loc[0]] + "[" + digits + "]" + path[loc[3]:]
	}
}

// ParsePath parses a path into segments. It supports dots, bracket indices and
// bracket-quoted keys. A leading "_" or "$" names the root and is dropped.
func ParsePath(input string) ([]Segment, error) {
	input = strings.TrimSpace(input)
	if input == "_" || input == "$" {
		return nil, nil
	}
	input = strings.TrimPrefix(strings.TrimPrefix(input, "_."), "$.")
	if strings.HasPrefix(input, "_[") || strings.HasPrefix(input, "$[") {
		input = input[1:]
	}

	var segs []Segment
	for i := 0; i < len(input); {
		switch ch := input[i]; ch {
		case '.':
			i++
		case '[':
			seg, n, err := parseBracket(input[i:])
			if err != nil {
				return nil, fmt.Errorf("invalid path %q at offset %d: %w", input, i, err)
			}
			segs = append(segs, seg)
			i += n
		default:
			j := i
			for j < len(input) && input[j] != '.' && input[j] != '[' {
				j++
			}
			segs = append(segs, Field{Name: input[i:j]})
			i = j
		}
	}
	return segs, nil
}

// parseBracket parses a "[...]" segment at the start of s and returns the
// number of bytes consumed.
func parseBracket(s string) (Segment, int, error) {
	if len(s) > 1 && s[1] == '"' {
		// Find the closing quote, honoring escapes.
		for j := 2; j < len(s); j++ {
			switch s[j] {
			case '\\':
				j++
			case '"':
				if j+1 >= len(s) || s[j+1] != ']' {
					return nil, 0, fmt.Errorf("expected ] after quoted key")
				}
				name, err := strconv.Unquote(s[1 : j+1])
				if err != nil {
					return nil, 0, err
				}
				return QuotedKey{Name: name}, j + 2, nil
			}
		}
		return nil, 0, fmt.Errorf("unterminated quoted key")
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return nil, 0, fmt.Errorf("unterminated bracket")
	}
	inner := s[1:end]
	if n, err := strconv.Atoi(inner); err == nil && n >= 0 {
		return ArrayIndex{Index: n}, end + 1, nil
	}
	return Field{Name: inner}, end + 1, nil
}

var plainField = regexp.MustCompile(`^[A-Za-z_@#][A-Za-z0-9_@#]*$`)

// FormatPath joins child names into a path string: identifiers are dotted,
// indices stay in brackets and anything else is bracket-quoted.
func FormatPath(names []string) string {
	var b strings.Builder
	for _, name := range names {
		switch {
		case isIndexName(name):
			b.WriteString(name)
		case plainField.MatchString(name):
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(name)
		default:
			b.WriteString(QuotedKey{Name: name}.String())
		}
	}
	return b.String()
}

func isIndexName(name string) bool {
	if len(name) < 3 || name[0] != '[' || name[len(name)-1] != ']' {
		return false
	}
	_, err := strconv.Atoi(name[1 : len(name)-1])
	return err == nil
}
