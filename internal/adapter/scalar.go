package adapter

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// MaxStringLength is the number of characters shown before a string display is
// truncated.
const MaxStringLength = 1000

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\r", `\r`,
	"\n", `\n`,
	"\t", `\t`,
)

// QuoteString renders s as a double-quoted display string.
func QuoteString(s string) string {
	truncated := false
	if len(s) > MaxStringLength {
		if r := []rune(s); len(r) > MaxStringLength {
			s = string(r[:MaxStringLength])
			truncated = true
		}
	}
	var b strings.Builder
	b.Grow(len(s) + 5)
	b.WriteByte('"')
	_, _ = stringEscaper.WriteString(&b, s)
	if truncated {
		b.WriteString("...")
	}
	b.WriteByte('"')
	return b.String()
}

// FormatFloat renders f with the shortest text that parses back to the same
// value at the given bit size.
func FormatFloat(f float64, bitSize int) string {
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

// FormatNumber normalizes a JSON number literal: integers print in base 10,
// values that fit a float64 print round-trippable, anything else keeps its
// literal text.
func FormatNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil {
		return FormatFloat(f, 64)
	}
	return n.String()
}

// FormatTime renders t as an ISO-8601 round-trip timestamp.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func stringLeaf(s, typeName string) scalar {
	return scalar{desc: Description{Kind: KindString, Display: QuoteString(s), TypeName: typeName}}
}

func primitiveLeaf(display, typeName string) scalar {
	return scalar{desc: Description{Kind: KindPrimitive, Display: display, TypeName: typeName}}
}
