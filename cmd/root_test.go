package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/kvtree/internal/config"
	"github.com/oakwood-commons/kvtree/internal/limiter"
	"github.com/oakwood-commons/kvtree/pkg/settings"
)

const sample = `{"a": [1,2,3], "b": {"c": "x"}}`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestOutlineFromStdin(t *testing.T) {
	out, err := execute(t, sample)
	require.NoError(t, err)
	assert.Equal(t, "▾ (2 properties)\n  ▸ a: (3 items)\n  ▸ b: (1 properties)\n", out)
}

func TestOutlineExpandAllWithWindow(t *testing.T) {
	out, err := execute(t, sample, "--expand-all", "--offset", "2", "--limit", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "    • [0]: 1", lines[0])
	assert.Equal(t, "    • [2]: 3", lines[2])
	assert.Equal(t, "(showing rows 3-5 of 7)", lines[3])
}

func TestOutlineFromFile(t *testing.T) {
	path := writeFile(t, "data.yaml", "name: demo\ntags:\n  - a\n  - b\n")
	out, err := execute(t, "", path, "--types")
	require.NoError(t, err)
	assert.Contains(t, out, `name: "demo"`)
	assert.Contains(t, out, "tags: (2 items)")
}

func TestPathOutputsSubtree(t *testing.T) {
	out, err := execute(t, sample, "--path", "a")
	require.NoError(t, err)
	assert.Equal(t, "▾ a: (3 items)\n  • [0]: 1\n  • [1]: 2\n  • [2]: 3\n", out)

	_, err = execute(t, sample, "--path", "missing")
	require.Error(t, err)
}

func TestTreeOutput(t *testing.T) {
	out, err := execute(t, sample, "-o", "tree")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "."))
	assert.Contains(t, out, `c: "x"`)
	assert.Contains(t, out, "[1]: 2")
}

func TestSearchListsMatches(t *testing.T) {
	out, err := execute(t, sample, "--search", "kind == 'Primitive' && display != '2'")
	require.NoError(t, err)
	assert.Equal(t, "a[0]: 1\na[2]: 3\n", out)

	_, err = execute(t, sample, "--search", "nothing-like-this")
	require.Error(t, err)
}

func TestMaxDepthFlag(t *testing.T) {
	out, err := execute(t, `{"a": {"b": {"c": 1}}}`, "--max-depth", "2", "--expand-all")
	require.NoError(t, err)
	assert.Contains(t, out, "b: <max depth reached>")
	assert.NotContains(t, out, "c: 1")
}

func TestFormatFlag(t *testing.T) {
	out, err := execute(t, "id,name\n1,ann\n2,bob\n", "--format", "csv", "--expand-all")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 items)")
	assert.Contains(t, out, `name: "bob"`)
}

func TestInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"limit and tail", []string{"--limit", "1", "--tail", "1"}},
		{"bad output", []string{"-o", "table"}},
		{"bad format", []string{"--format", "ini"}},
		{"path and search", []string{"--path", "a", "--search", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, sample, tt.args...)
			require.Error(t, err)
		})
	}
}

func TestEmptyInput(t *testing.T) {
	_, err := execute(t, "  \n")
	require.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	out, err := execute(t, sample, "--snapshot", "--no-color", "--width", "80", "--height", "12", "--path", "b.c")
	require.NoError(t, err)
	assert.Contains(t, out, `• c: "x"`)
	assert.Contains(t, out, "kvtree [tree] b.c")
	assert.Contains(t, out, `{"a": [1,2,3]`)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, settings.CliBinaryName+" "))
}

func TestConfigCommands(t *testing.T) {
	out, err := execute(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "maxDepth: 10")

	out, err = execute(t, "", "config", "themes")
	require.NoError(t, err)
	assert.Equal(t, "* dark\n  light\n", out)

	path := writeFile(t, "kv.yaml", "ui:\n  theme:\n    default: light\n")
	out, err = execute(t, "", "config", "themes", "--config-file", path)
	require.NoError(t, err)
	assert.Equal(t, "  dark\n* light\n", out)

	out, err = execute(t, "", "config", "path", "--config-file", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}

func TestConfigFileTreeSettings(t *testing.T) {
	path := writeFile(t, "kv.yaml", "tree:\n  autoExpandLimit: 1\n")
	out, err := execute(t, sample, "--config-file", path)
	require.NoError(t, err)
	assert.Equal(t, "▸ (2 properties)\n", out)

	out, err = execute(t, sample, "--config-file", path, "--auto-expand-limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "a: (3 items)", "flags override the config file")
}

func TestRunSettings(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	expand := true
	cfg.Tree.ExpandAll = &expand
	cfg.Tree.MaxDepth = 6

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts := &options{}
	flags.IntVar(&opts.maxDepth, "max-depth", 0, "")
	flags.IntVar(&opts.autoExpandLimit, "auto-expand-limit", 0, "")
	flags.BoolVar(&opts.expandAll, "expand-all", false, "")
	require.NoError(t, flags.Parse([]string{"--max-depth", "3"}))

	r := runSettings(flags, cfg, opts)
	assert.Equal(t, 3, r.Tree.MaxDepth)
	assert.Equal(t, 100, r.Tree.AutoExpandLimit)
	assert.True(t, r.Tree.ExpandAll)
}

func TestValidateOptions(t *testing.T) {
	assert.NoError(t, validateOptions(&options{output: OutputTree}))
	assert.Error(t, validateOptions(&options{output: OutputOutline, window: limiter.Config{Offset: -1}}))
	assert.Error(t, validateOptions(&options{output: OutputOutline, maxDepth: -1}))
}
