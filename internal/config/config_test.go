package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Tree.MaxDepth)
	assert.Equal(t, 100, cfg.Tree.AutoExpandLimit)
	assert.Equal(t, "dark", cfg.UI.Theme.Default)
	assert.Equal(t, []string{"dark", "light"}, cfg.ThemeNames())
	assert.Equal(t, "14", cfg.ActiveTheme().Name)
}

func TestDefaultConfigYAMLIsCopy(t *testing.T) {
	a := DefaultConfigYAML()
	require.NotEmpty(t, a)
	a[0] = '#'
	assert.NotEqual(t, a[0], DefaultConfigYAML()[0])
}

func TestMergeOverridesSetFields(t *testing.T) {
	base, err := Default()
	require.NoError(t, err)

	cfg, err := Merge(base, []byte(`
tree:
  maxDepth: 4
  expandAll: true
ui:
  theme:
    default: light
  themes:
    light:
      string: "#00ff00"
    solar:
      name: "3"
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Tree.MaxDepth)
	assert.Equal(t, 100, cfg.Tree.AutoExpandLimit, "unset fields keep defaults")
	require.NotNil(t, cfg.Tree.ExpandAll)
	assert.True(t, *cfg.Tree.ExpandAll)

	light := cfg.ActiveTheme()
	assert.Equal(t, "#00ff00", light.String)
	assert.Equal(t, "25", light.Name, "theme fields merge individually")
	assert.Equal(t, []string{"dark", "light", "solar"}, cfg.ThemeNames())
	assert.Len(t, base.UI.Themes, 2, "base is not modified")
}

func TestMergeUnknownTheme(t *testing.T) {
	base, err := Default()
	require.NoError(t, err)
	_, err = Merge(base, []byte("ui:\n  theme:\n    default: neon\n"))
	require.ErrorIs(t, err, ErrUnknownTheme)
}

func TestMergeInvalidYAML(t *testing.T) {
	base, err := Default()
	require.NoError(t, err)
	_, err = Merge(base, []byte("tree: [1, 2"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Tree.MaxDepth)

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("tree:\n  autoExpandLimit: 5\n"), 0o600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Tree.AutoExpandLimit)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/explicit.yaml", ResolvePath("/explicit.yaml"))

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Empty(t, ResolvePath(""))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "kvtree"), 0o755))
	path := filepath.Join(dir, "kvtree", FileName)
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))
	assert.Equal(t, path, ResolvePath(""))
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "maxDepth: 10")
	assert.Contains(t, string(data), "selected_bg")
}
