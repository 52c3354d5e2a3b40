package cmd

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oakwood-commons/kvtree/internal/config"
	"github.com/oakwood-commons/kvtree/internal/formatter"
	"github.com/oakwood-commons/kvtree/internal/limiter"
	"github.com/oakwood-commons/kvtree/pkg/loader"
	"github.com/oakwood-commons/kvtree/pkg/logger"
	"github.com/oakwood-commons/kvtree/pkg/settings"
)

// errShowHelp is returned when there is no input and help should be shown.
var errShowHelp = errors.New("no input provided")

// Output modes for non-interactive rendering.
const (
	OutputOutline = "outline"
	OutputTree    = "tree"
)

var stdinIsPiped = func() bool {
	stat, err := os.Stdin.Stat()
	return err == nil && (stat.Mode()&os.ModeCharDevice) == 0
}

var stdoutIsTerminal = func() bool {
	stat, err := os.Stdout.Stat()
	return err == nil && (stat.Mode()&os.ModeCharDevice) != 0
}

// options holds the flag values of one command invocation.
type options struct {
	format          string
	maxDepth        int
	autoExpandLimit int
	expandAll       bool
	path            string
	search          string
	output          string
	interactive     bool
	snapshot        bool
	noColor         bool
	debug           bool
	logFile         string
	configFile      string
	width           int
	height          int
	showTypes       bool
	treeNoValues    bool
	window          limiter.Config
}

// newRootCmd builds the kvtree command tree.
func newRootCmd() *cobra.Command {
	opts := &options{}
	var logClose func()

	rootCmd := &cobra.Command{
		Use:   settings.CliBinaryName + " [files...]",
		Short: "Explore JSON, YAML, XML, CSV and TOML documents as a lazily expanded tree",
		Long: `kvtree renders structured documents as an outline of expandable nodes.

Input comes from files or stdin. Without -i the visible outline is printed;
with -i an interactive viewer shows the tree next to the raw text and keeps
the selection and the text caret in step.`,
		Example: "  kvtree config.yaml\n" +
			"  kvtree data.json --expand-all --limit 20\n" +
			"  kvtree data.json --path 'items[0]' -o tree\n" +
			"  kvtree data.json --search \"kind == 'String' && text.contains('error')\"\n" +
			"  cat rows.csv | kvtree -i\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			closeFn, err := setupLogger(cmd, opts)
			logClose = closeFn
			return err
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			logger.Sync()
			if logClose != nil {
				logClose()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd, opts, args)
			if errors.Is(err, errShowHelp) {
				return cmd.Help()
			}
			return err
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&opts.format, "format", "f", "", "input format: json|ndjson|yaml|xml|csv|toml|jwt (default: detect)")
	f.IntVar(&opts.maxDepth, "max-depth", 0, fmt.Sprintf("maximum tree depth (default from config, else %d)", settings.DefaultMaxDepth))
	f.IntVar(&opts.autoExpandLimit, "auto-expand-limit", 0, fmt.Sprintf("largest root child count that starts expanded (default from config, else %d)", settings.DefaultAutoExpandLimit))
	f.BoolVar(&opts.expandAll, "expand-all", false, "expand every node before rendering")
	f.StringVarP(&opts.path, "path", "p", "", "select the node at a path such as 'items[0].name'")
	f.StringVarP(&opts.search, "search", "s", "", "find nodes by text or CEL predicate (variables: name, kind, display, text, type, depth, line, children)")
	f.StringVarP(&opts.output, "output", "o", OutputOutline, "output format: outline|tree")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "start the interactive viewer")
	f.BoolVar(&opts.snapshot, "snapshot", false, "render a single frame of the interactive viewer and exit")
	f.BoolVar(&opts.showTypes, "types", false, "show type labels in outline output")
	f.BoolVar(&opts.treeNoValues, "tree-no-values", false, "show structure only in tree output")
	f.IntVar(&opts.width, "width", 0, "output width in columns (default: terminal width)")
	f.IntVar(&opts.height, "height", 0, "snapshot height in rows (default: terminal height)")
	f.IntVar(&opts.window.Limit, "limit", 0, "show only the first N rows")
	f.IntVar(&opts.window.Offset, "offset", 0, "skip the first N rows")
	f.IntVar(&opts.window.Tail, "tail", 0, "show only the last N rows (mutually exclusive with --limit)")

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&opts.noColor, "no-color", false, "disable color output")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	pf.StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	pf.StringVar(&opts.configFile, "config-file", "", "path to a YAML config file")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(opts))
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// setupLogger initializes the global logger and stores it in the command
// context. The interactive viewer owns the terminal, so without --log-file
// its logs are dropped.
func setupLogger(cmd *cobra.Command, opts *options) (func(), error) {
	var level int8
	if opts.debug {
		level = -1
	}
	var out io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case opts.logFile != "":
		file, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return closeFn, fmt.Errorf("open log file: %w", err)
		}
		out = file
		closeFn = func() { _ = file.Close() }
	case opts.interactive:
		out = io.Discard
	}
	lgr := logger.Setup(logger.Options{Level: level, Output: out})
	lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithLogger(ctx, lgr))
	return closeFn, nil
}

// loadConfig reads the config file and applies its theme.
func loadConfig(opts *options) (config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(opts.configFile))
	if err != nil {
		return cfg, err
	}
	formatter.SetTheme(themeFromConfig(cfg.ActiveTheme()))
	return cfg, nil
}

func themeFromConfig(tc config.ThemeColors) formatter.Theme {
	c := func(s string) color.Color {
		if s == "" {
			return nil
		}
		return lipgloss.Color(s)
	}
	return formatter.Theme{
		Name:        c(tc.Name),
		String:      c(tc.String),
		Number:      c(tc.Number),
		Bool:        c(tc.Bool),
		Null:        c(tc.Null),
		Container:   c(tc.Container),
		Placeholder: c(tc.Placeholder),
		Type:        c(tc.Type),
		SelectedBG:  c(tc.SelectedBG),
	}
}

// runSettings merges config file values and explicitly set flags.
func runSettings(flags *pflag.FlagSet, cfg config.Config, opts *options) *settings.Run {
	r := settings.NewCliParams()
	r.Tree.MaxDepth = cfg.Tree.MaxDepth
	r.Tree.AutoExpandLimit = cfg.Tree.AutoExpandLimit
	if cfg.Tree.ExpandAll != nil {
		r.Tree.ExpandAll = *cfg.Tree.ExpandAll
	}
	if flags.Changed("max-depth") {
		r.Tree.MaxDepth = opts.maxDepth
	}
	if flags.Changed("auto-expand-limit") {
		r.Tree.AutoExpandLimit = opts.autoExpandLimit
	}
	if flags.Changed("expand-all") {
		r.Tree.ExpandAll = opts.expandAll
	}
	if opts.debug {
		r.MinLogLevel = -1
	}
	r.Format = opts.format
	r.NoColor = opts.noColor
	r.Interactive = opts.interactive
	r.Normalize()
	return r
}

func validateOptions(opts *options) error {
	if err := opts.window.Validate(); err != nil {
		return err
	}
	switch opts.output {
	case OutputOutline, OutputTree:
	default:
		return fmt.Errorf("invalid output %q: valid values are %s, %s", opts.output, OutputOutline, OutputTree)
	}
	if opts.path != "" && opts.search != "" {
		return fmt.Errorf("--path and --search are mutually exclusive")
	}
	if opts.maxDepth < 0 || opts.autoExpandLimit < 0 {
		return fmt.Errorf("--max-depth and --auto-expand-limit must be non-negative")
	}
	if _, err := loader.ParseFormat(opts.format); err != nil {
		return err
	}
	return nil
}
