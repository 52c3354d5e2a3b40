// Package settings provides build metadata, run configuration, and context
// helpers shared by the kvtree CLI and library packages.
package settings

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "kvtree"

const (
	// DefaultMaxDepth bounds how deep the tree materializes nodes.
	DefaultMaxDepth = 10
	// DefaultAutoExpandLimit is the largest child count a root may have and
	// still start expanded.
	DefaultAutoExpandLimit = 100
)

// VersionInformation is populated at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// TreeSettings controls how documents are turned into trees.
type TreeSettings struct {
	MaxDepth        int
	AutoExpandLimit int
	ExpandAll       bool
}

// Run holds configuration for a single execution of the application.
type Run struct {
	MinLogLevel int8
	Tree        TreeSettings
	Format      string
	NoColor     bool
	Interactive bool
	ExitOnError bool
}

// NewCliParams returns the default CLI run settings.
func NewCliParams() *Run {
	return &Run{
		MinLogLevel: 0,
		Tree: TreeSettings{
			MaxDepth:        DefaultMaxDepth,
			AutoExpandLimit: DefaultAutoExpandLimit,
		},
		ExitOnError: true,
	}
}

// Normalize replaces unset tree limits with their defaults.
func (r *Run) Normalize() {
	if r.Tree.MaxDepth <= 0 {
		r.Tree.MaxDepth = DefaultMaxDepth
	}
	if r.Tree.AutoExpandLimit <= 0 {
		r.Tree.AutoExpandLimit = DefaultAutoExpandLimit
	}
}
