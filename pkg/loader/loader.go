// Package loader reads raw documents, detects their format, and parses them
// into format-native values that keep their source positions.
//
// Supported inputs:
//   - JSON (single or concatenated values) and newline-delimited JSON
//   - YAML, including multi-document streams (one root per document)
//   - XML
//   - CSV with a header row
//   - TOML
//   - JWT tokens (header, payload, signature)
//
// Every loaded Document is immutable once returned, so it can be handed from
// the loading goroutine to the goroutine that owns the tree.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/kvtree/pkg/logger"
)

var (
	// ErrEmptyInput is returned when there is nothing to parse.
	ErrEmptyInput = errors.New("empty input")
	// ErrUnknownFormat is returned for an unrecognized format name.
	ErrUnknownFormat = errors.New("unknown format")
)

// Format names a supported input format. The empty Format means auto-detect.
type Format string

const (
	FormatAuto   Format = ""
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
	FormatXML    Format = "xml"
	FormatCSV    Format = "csv"
	FormatTOML   Format = "toml"
	FormatJWT    Format = "jwt"
	FormatObject Format = "object"
)

// Formats lists the formats accepted by ParseFormat.
var Formats = []Format{FormatJSON, FormatNDJSON, FormatYAML, FormatXML, FormatCSV, FormatTOML, FormatJWT}

// ParseFormat converts a user supplied format name. "" and "auto" mean
// auto-detect.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "ndjson", "jsonl":
		return FormatNDJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xml":
		return FormatXML, nil
	case "csv":
		return FormatCSV, nil
	case "toml":
		return FormatTOML, nil
	case "jwt":
		return FormatJWT, nil
	default:
		return FormatAuto, fmt.Errorf("%w %q", ErrUnknownFormat, s)
	}
}

// Document is a fully parsed input.
type Document struct {
	Name   string
	Format Format
	// Roots holds one value per top-level document: *JSONNode, *yaml.Node,
	// *XMLElement, *CSVTable, or plain Go values for TOML, JWT and objects.
	Roots []any
	// Text is the raw source the roots were parsed from.
	Text string
}

// Options controls loading.
type Options struct {
	Format   Format
	Name     string
	Progress ProgressFunc
}

// Result is delivered by LoadAsync.
type Result struct {
	Document *Document
	Err      error
}

// Load reads r to the end, reporting progress, and parses the text.
func Load(ctx context.Context, r io.Reader, opts Options) (*Document, error) {
	data, err := io.ReadAll(NewProgressReader(ctx, r, opts.Progress))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", displayName(opts.Name), err)
	}
	return Parse(ctx, string(data), opts)
}

// LoadFile opens path and loads it. The file name is used for format
// detection when opts.Format is auto.
func LoadFile(ctx context.Context, path string, opts Options) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if opts.Name == "" {
		opts.Name = path
	}
	return Load(ctx, f, opts)
}

// LoadFiles loads several files concurrently and returns them in argument
// order. The first failure cancels the rest.
func LoadFiles(ctx context.Context, paths []string, opts Options) ([]*Document, error) {
	docs := make([]*Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			o := opts
			o.Name = path
			doc, err := LoadFile(gctx, path, o)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// LoadAsync runs Load on a background goroutine and delivers exactly one
// Result on the returned channel.
func LoadAsync(ctx context.Context, r io.Reader, opts Options) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		doc, err := Load(ctx, r, opts)
		out <- Result{Document: doc, Err: err}
	}()
	return out
}

// FromObject wraps an already parsed Go value. Strings and byte slices are
// parsed as text, everything else is shown as a plain object.
func FromObject(ctx context.Context, name string, value any) (*Document, error) {
	if value == nil {
		return nil, fmt.Errorf("object input is nil")
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() { //nolint:exhaustive // only nil-able kinds need checking
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil, fmt.Errorf("object input is nil")
		}
	}
	switch v := value.(type) {
	case string:
		return Parse(ctx, v, Options{Name: name})
	case []byte:
		return Parse(ctx, string(v), Options{Name: name})
	default:
		return &Document{Name: name, Format: FormatObject, Roots: []any{value}}, nil
	}
}

// Parse parses text in opts.Format, detecting the format when it is auto.
func Parse(ctx context.Context, text string, opts Options) (*Document, error) {
	lgr := logger.FromContext(ctx).WithValues(logger.SourceKey, displayName(opts.Name))
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	format := opts.Format
	detected := format == FormatAuto
	if detected {
		format = DetectFormat(opts.Name, text)
	}
	start := time.Now()
	roots, err := parseAs(format, text)
	if err != nil && detected && format == FormatJSON {
		lgr.V(1).Info("JSON parse failed, retrying as YAML", "error", err.Error())
		if yamlRoots, yerr := parseAs(FormatYAML, text); yerr == nil {
			format, roots, err = FormatYAML, yamlRoots, nil
		}
	}
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		table := roots[0].(*CSVTable)
		if i, ok := table.FirstDrift(); ok {
			lgr.V(1).Info("CSV record spans several lines, later line numbers are approximate",
				"record", i, "line", table.Rows[i].Line, "shownAt", DisplayLine(i))
		}
	}
	lgr.V(1).Info("document parsed",
		logger.FormatKey, string(format),
		"detected", detected,
		"roots", len(roots),
		"duration", time.Since(start).String())
	return &Document{Name: opts.Name, Format: format, Roots: roots, Text: text}, nil
}

func parseAs(format Format, text string) ([]any, error) {
	switch format {
	case FormatJSON:
		nodes, err := ParseJSON(text)
		if err != nil {
			return nil, err
		}
		roots := make([]any, len(nodes))
		for i, n := range nodes {
			roots[i] = n
		}
		return roots, nil
	case FormatNDJSON:
		return ParseNDJSON(text)
	case FormatYAML:
		return parseYAML(text)
	case FormatXML:
		el, err := ParseXML(text)
		if err != nil {
			return nil, err
		}
		return []any{el}, nil
	case FormatCSV:
		table, err := ParseCSV(text)
		if err != nil {
			return nil, err
		}
		return []any{table}, nil
	case FormatTOML:
		var data map[string]any
		if err := toml.Unmarshal([]byte(text), &data); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
		return []any{data}, nil
	case FormatJWT:
		decoded, err := DecodeJWT(text)
		if err != nil {
			return nil, err
		}
		return []any{decoded}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, string(format))
	}
}

// parseYAML returns one *yaml.Node (a document node) per YAML document.
func parseYAML(text string) ([]any, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var roots []any
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		if len(doc.Content) == 0 {
			continue
		}
		roots = append(roots, &doc)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("invalid YAML: %w", ErrEmptyInput)
	}
	return roots, nil
}

// DetectFormat picks a format from the file extension, falling back to
// content heuristics.
func DetectFormat(name, text string) Format {
	if f := formatFromExtension(name); f != FormatAuto {
		return f
	}
	input := strings.TrimSpace(text)
	if IsJWT(input) {
		return FormatJWT
	}
	if strings.HasPrefix(input, "<") {
		return FormatXML
	}
	if strings.Contains(input, "\n---") || strings.HasPrefix(input, "---") {
		return FormatYAML
	}
	if lines := strings.Split(input, "\n"); len(lines) > 1 && isLikelyNDJSON(lines) {
		return FormatNDJSON
	}
	// TOML [section] headers look like JSON arrays, so check TOML first.
	if isLikelyTOML(input) {
		return FormatTOML
	}
	if strings.HasPrefix(input, "{") || strings.HasPrefix(input, "[") {
		return FormatJSON
	}
	return FormatYAML
}

func formatFromExtension(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".xml":
		return FormatXML
	case ".csv":
		return FormatCSV
	case ".toml":
		return FormatTOML
	case ".jwt":
		return FormatJWT
	default:
		return FormatAuto
	}
}

func displayName(name string) string {
	if name == "" {
		return "<stdin>"
	}
	return name
}

// isLikelyNDJSON requires several non-empty lines, a majority of which start
// like a JSON object or array. Bare YAML list items do not qualify.
func isLikelyNDJSON(lines []string) bool {
	jsonCount := 0
	nonEmptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmptyCount++
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			jsonCount++
		}
	}
	// A pretty-printed JSON document also has many lines; only count it as
	// NDJSON when the first line is a complete value.
	if nonEmptyCount <= 1 || jsonCount <= nonEmptyCount/2 {
		return false
	}
	first := strings.TrimSpace(lines[0])
	return strings.HasSuffix(first, "}") || strings.HasSuffix(first, "]")
}

var (
	tomlSectionPattern  = regexp.MustCompile(`^\s*\[{1,2}(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\]{1,2}\s*$`)
	tomlKeyValuePattern = regexp.MustCompile(`^\s*(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\s*=\s*.+$`)
)

// isLikelyTOML looks for [section] headers or a majority of key = value lines.
func isLikelyTOML(input string) bool {
	sectionCount := 0
	keyValueCount := 0
	nonEmptyCount := 0
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmptyCount++
		if tomlSectionPattern.MatchString(line) {
			sectionCount++
		}
		if tomlKeyValuePattern.MatchString(line) {
			keyValueCount++
		}
	}
	if sectionCount > 0 {
		return true
	}
	return nonEmptyCount > 0 && keyValueCount > nonEmptyCount/2
}
