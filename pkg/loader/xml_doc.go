package loader

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/oakwood-commons/kvtree/internal/textpos"
)

// XMLElement is a parsed element with its attributes, child elements and
// character data.
type XMLElement struct {
	Name     string
	Attrs    []XMLAttr
	Children []*XMLElement
	// Text is the concatenated character data directly inside the element.
	Text string
	Pos  textpos.Position
}

// XMLAttr is one attribute of an element.
type XMLAttr struct {
	Name  string
	Value string
	Pos   textpos.Position
}

// ParseXML parses text and returns its document element.
func ParseXML(text string) (*XMLElement, error) {
	ix := textpos.NewIndex(text)
	dec := xml.NewDecoder(strings.NewReader(text))

	var (
		root  *XMLElement
		stack []*XMLElement
		texts []*strings.Builder
	)
	for {
		start := int(dec.InputOffset())
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			end := int(dec.InputOffset())
			el := &XMLElement{Name: t.Name.Local}
			sl, sc := ix.LineCol(start)
			el.Pos = textpos.Position{StartLine: sl, StartCol: sc}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, XMLAttr{
					Name:  a.Name.Local,
					Value: a.Value,
					Pos:   attrPosition(ix, text, start, end, a.Name.Local),
				})
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
			texts = append(texts, &strings.Builder{})
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("invalid XML: unexpected </%s>", t.Name.Local)
			}
			el := stack[len(stack)-1]
			el.Text = texts[len(texts)-1].String()
			el.Pos.EndLine, el.Pos.EndCol = ix.LineCol(int(dec.InputOffset()))
			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]
		case xml.CharData:
			if len(texts) > 0 {
				texts[len(texts)-1].Write(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("invalid XML: %w", ErrEmptyInput)
	}
	return root, nil
}

// attrPosition finds name="value" inside the start tag text[start:end]. The
// decoder does not report attribute offsets, so the tag is scanned directly,
// skipping quoted attribute values.
func attrPosition(ix *textpos.Index, text string, start, end int, name string) textpos.Position {
	tag := text[start:end]
	var quote byte
	for i := 0; i < len(tag); i++ {
		b := tag[i]
		if quote != 0 {
			if b == quote {
				quote = 0
			}
			continue
		}
		if b == '"' || b == '\'' {
			quote = b
			continue
		}
		if i == 0 || !isXMLNameBoundary(tag[i-1]) || !strings.HasPrefix(tag[i:], name) {
			continue
		}
		j := i + len(name)
		for j < len(tag) && isXMLSpace(tag[j]) {
			j++
		}
		if j >= len(tag) || tag[j] != '=' {
			continue
		}
		j++
		for j < len(tag) && isXMLSpace(tag[j]) {
			j++
		}
		if j >= len(tag) || (tag[j] != '"' && tag[j] != '\'') {
			continue
		}
		closeAt := strings.IndexByte(tag[j+1:], tag[j])
		if closeAt < 0 {
			return textpos.Position{}
		}
		valueEnd := j + 1 + closeAt + 1
		sl, sc := ix.LineCol(start + i)
		el, ec := ix.LineCol(start + valueEnd)
		return textpos.Position{StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec}
	}
	return textpos.Position{}
}

func isXMLSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func isXMLNameBoundary(b byte) bool {
	return isXMLSpace(b) || b == ':'
}
