package navigator

import (
	"errors"
	"reflect"
	"testing"

	"github.com/oakwood-commons/kvtree/internal/tree"
	"github.com/oakwood-commons/kvtree/pkg/loader"
)

func jsonForest(t *testing.T, text string) []*tree.Node {
	t.Helper()
	docs, err := loader.ParseJSON(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	roots := make([]*tree.Node, len(docs))
	for i, d := range docs {
		roots[i] = tree.NewRoot(d)
	}
	return roots
}

const regions = `{
  "regions": {
    "asia": {"countries": [{"city": "Tokyo"}, {"city": "Seoul", "postal-code": "04524"}]}
  },
  "items": ["a", "b", "c"]
}`

func TestResolveEmptyPath(t *testing.T) {
	roots := jsonForest(t, regions)
	for _, p := range []string{"", "_", "$"} {
		got, err := Find(roots, p)
		if err != nil {
			t.Fatalf("Find(%q): %v", p, err)
		}
		if got != roots[0] {
			t.Fatalf("Find(%q) should return the root", p)
		}
	}
}

func TestResolveDottedAndBracket(t *testing.T) {
	roots := jsonForest(t, regions)
	tests := []struct {
		path    string
		display string
	}{
		{"regions.asia.countries[0].city", `"Tokyo"`},
		{"regions.asia.countries.1.city", `"Seoul"`},
		{`regions.asia.countries[1]["postal-code"]`, `"04524"`},
		{"_.items[2]", `"c"`},
		{"$.items.0", `"a"`},
	}
	for _, tt := range tests {
		got, err := Find(roots, tt.path)
		if err != nil {
			t.Fatalf("Find(%q): %v", tt.path, err)
		}
		if got.Display() != tt.display {
			t.Fatalf("Find(%q) = %s, want %s", tt.path, got.Display(), tt.display)
		}
	}
}

func TestResolveReturnsWholePath(t *testing.T) {
	roots := jsonForest(t, regions)
	nodes, err := Resolve(roots, "regions.asia")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(nodes) != 3 || nodes[0] != roots[0] || nodes[2].Name() != "asia" {
		t.Fatalf("unexpected path %v", nodes)
	}
}

func TestResolveNotFound(t *testing.T) {
	roots := jsonForest(t, regions)
	for _, p := range []string{"missing", "regions.europe", "items[9]"} {
		if _, err := Find(roots, p); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Find(%q) error = %v, want ErrNotFound", p, err)
		}
	}
	if _, err := Find(nil, "x"); !errors.Is(err, ErrEmptyForest) {
		t.Fatalf("expected ErrEmptyForest, got %v", err)
	}
	if _, err := Find(roots, `items["open`); err == nil {
		t.Fatal("expected parse error for unterminated key")
	}
}

func TestResolveSelectsRootByIndex(t *testing.T) {
	roots := jsonForest(t, `{"a": 1} {"a": 2}`)
	got, err := Find(roots, "[1].a")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Display() != "2" {
		t.Fatalf("got %s, want 2", got.Display())
	}
	if _, err := Find(roots, "[5]"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPathOfRoundTrip(t *testing.T) {
	roots := jsonForest(t, regions)
	target, err := Find(roots, `regions.asia.countries[1]["postal-code"]`)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	path, ok := PathOf(roots, target)
	if !ok {
		t.Fatal("PathOf reported unreachable node")
	}
	if path != `regions.asia.countries[1]["postal-code"]` {
		t.Fatalf("PathOf = %s", path)
	}
	again, err := Find(roots, path)
	if err != nil || again != target {
		t.Fatalf("round trip failed: %v", err)
	}

	multi := jsonForest(t, `1 {"b": true}`)
	b, _ := Find(multi, "[1].b")
	if p, _ := PathOf(multi, b); p != "[1].b" {
		t.Fatalf("PathOf in multi-root forest = %s", p)
	}
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want []Segment
	}{
		{"a.b", []Segment{Field{"a"}, Field{"b"}}},
		{"a[0]", []Segment{Field{"a"}, ArrayIndex{0}}},
		{`a["x.y"][2].z`, []Segment{Field{"a"}, QuotedKey{"x.y"}, ArrayIndex{2}, Field{"z"}}},
		{`["q\"uote"]`, []Segment{QuotedKey{`q"uote`}}},
		{"@id", []Segment{Field{"@id"}}},
	}
	for _, tt := range tests {
		got, err := ParsePath(tt.in)
		if err != nil {
			t.Fatalf("ParsePath(%q): %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("ParsePath(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"items.0":                  "items[0]",
		"items.0.tags":             "items[0].tags",
		"regions.asia.countries.1": "regions.asia.countries[1]",
		"a.b1":                     "a.b1",
		"":                         "",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Fatalf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPath(t *testing.T) {
	got := FormatPath([]string{"users", "[0]", "first name", "@id", "#text"})
	want := `users[0]["first name"].@id.#text`
	if got != want {
		t.Fatalf("FormatPath = %s, want %s", got, want)
	}
}
