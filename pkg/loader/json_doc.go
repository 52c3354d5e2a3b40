package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/oakwood-commons/kvtree/internal/textpos"
)

// JSONKind identifies the JSON value type of a JSONNode.
type JSONKind int

const (
	JSONNull JSONKind = iota
	JSONBool
	JSONNumber
	JSONString
	JSONObject
	JSONArray
)

var jsonKindNames = [...]string{"null", "boolean", "number", "string", "object", "array"}

func (k JSONKind) String() string {
	if int(k) < len(jsonKindNames) {
		return jsonKindNames[k]
	}
	return fmt.Sprintf("JSONKind(%d)", int(k))
}

// JSONNode is a parsed JSON value that remembers where it came from.
type JSONNode struct {
	Kind JSONKind
	// Value holds bool, json.Number or string for scalar kinds.
	Value   any
	Members []JSONMember
	Items   []*JSONNode
	// Pos spans the value. For object members it starts at the key.
	Pos textpos.Position
}

// JSONMember is one key/value pair of an object in document order.
type JSONMember struct {
	Key   string
	Value *JSONNode
}

// Len returns the number of members or items.
func (n *JSONNode) Len() int {
	switch n.Kind {
	case JSONObject:
		return len(n.Members)
	case JSONArray:
		return len(n.Items)
	default:
		return 0
	}
}

// jsonParser walks encoding/json tokens and converts decoder byte offsets into
// line/column spans. base is the byte offset of src inside the full text.
type jsonParser struct {
	dec  *json.Decoder
	src  string
	base int
	ix   *textpos.Index
}

func newJSONParser(src string, base int, ix *textpos.Index) *jsonParser {
	dec := json.NewDecoder(strings.NewReader(src))
	dec.UseNumber()
	return &jsonParser{dec: dec, src: src, base: base, ix: ix}
}

// ParseJSON parses every top-level JSON value in text. A single document yields
// one node; concatenated values yield one node each.
func ParseJSON(text string) ([]*JSONNode, error) {
	p := newJSONParser(text, 0, textpos.NewIndex(text))
	var out []*JSONNode
	for {
		if p.skipSpace() >= len(p.src) {
			break
		}
		n, err := p.value()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("invalid JSON: %w", io.ErrUnexpectedEOF)
	}
	return out, nil
}

// skipSpace returns the offset of the next token start, skipping whitespace
// and the separators the decoder consumes implicitly.
func (p *jsonParser) skipSpace() int {
	i := int(p.dec.InputOffset())
	for i < len(p.src) {
		switch p.src[i] {
		case ' ', '\t', '\r', '\n', ',', ':':
			i++
		default:
			return i
		}
	}
	return i
}

func (p *jsonParser) span(start, end int) textpos.Position {
	sl, sc := p.ix.LineCol(p.base + start)
	el, ec := p.ix.LineCol(p.base + end)
	return textpos.Position{StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec}
}

func (p *jsonParser) value() (*JSONNode, error) {
	start := p.skipSpace()
	tok, err := p.dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return p.object(start)
		case '[':
			return p.array(start)
		default:
			return nil, fmt.Errorf("unexpected %q at offset %d", rune(t), p.base+start)
		}
	case nil:
		return &JSONNode{Kind: JSONNull, Pos: p.span(start, int(p.dec.InputOffset()))}, nil
	case bool:
		return &JSONNode{Kind: JSONBool, Value: t, Pos: p.span(start, int(p.dec.InputOffset()))}, nil
	case json.Number:
		return &JSONNode{Kind: JSONNumber, Value: t, Pos: p.span(start, int(p.dec.InputOffset()))}, nil
	case string:
		return &JSONNode{Kind: JSONString, Value: t, Pos: p.span(start, int(p.dec.InputOffset()))}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func (p *jsonParser) object(start int) (*JSONNode, error) {
	n := &JSONNode{Kind: JSONObject}
	for p.dec.More() {
		keyStart := p.skipSpace()
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key at offset %d is not a string", p.base+keyStart)
		}
		child, err := p.value()
		if err != nil {
			return nil, err
		}
		sl, sc := p.ix.LineCol(p.base + keyStart)
		child.Pos.StartLine, child.Pos.StartCol = sl, sc
		n.Members = append(n.Members, JSONMember{Key: key, Value: child})
	}
	if err := p.closing('}'); err != nil {
		return nil, err
	}
	n.Pos = p.span(start, int(p.dec.InputOffset()))
	return n, nil
}

func (p *jsonParser) array(start int) (*JSONNode, error) {
	n := &JSONNode{Kind: JSONArray}
	for p.dec.More() {
		child, err := p.value()
		if err != nil {
			return nil, err
		}
		n.Items = append(n.Items, child)
	}
	if err := p.closing(']'); err != nil {
		return nil, err
	}
	n.Pos = p.span(start, int(p.dec.InputOffset()))
	return n, nil
}

func (p *jsonParser) closing(want json.Delim) error {
	tok, err := p.dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errors.New("unbalanced JSON delimiters")
	}
	return nil
}

// ParseNDJSON parses newline-delimited JSON. Lines that are not valid JSON
// become plain string roots.
func ParseNDJSON(text string) ([]any, error) {
	ix := textpos.NewIndex(text)
	var out []any
	for line := 1; line <= ix.LineCount(); line++ {
		raw, _ := ix.Line(line)
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		ls, _ := ix.LineStartAt(line)
		p := newJSONParser(raw, ls.ByteOffset, ix)
		n, err := p.value()
		if err != nil || p.skipSpace() < len(raw) {
			out = append(out, trimmed)
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, ErrEmptyInput
	}
	return out, nil
}
