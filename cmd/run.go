package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/kvtree/internal/flatten"
	"github.com/oakwood-commons/kvtree/internal/formatter"
	"github.com/oakwood-commons/kvtree/internal/limiter"
	"github.com/oakwood-commons/kvtree/internal/navigator"
	"github.com/oakwood-commons/kvtree/internal/tree"
	"github.com/oakwood-commons/kvtree/internal/ui"
	"github.com/oakwood-commons/kvtree/pkg/core"
	"github.com/oakwood-commons/kvtree/pkg/loader"
	"github.com/oakwood-commons/kvtree/pkg/logger"
	"github.com/oakwood-commons/kvtree/pkg/settings"
)

func run(cmd *cobra.Command, opts *options, args []string) error {
	if err := validateOptions(opts); err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	runCfg := runSettings(cmd.Flags(), cfg, opts)
	ctx := settings.IntoContext(cmd.Context(), runCfg)
	lgr := logger.FromContext(ctx)

	s, err := openSession(ctx, cmd.InOrStdin(), args, runCfg, *lgr)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case opts.snapshot:
		if err := selectTarget(s, opts); err != nil {
			return err
		}
		return renderSnapshot(out, s, opts)
	case opts.interactive:
		if err := selectTarget(s, opts); err != nil {
			return err
		}
		return ui.Run(ctx, s.Controller, ui.WithNoColor(opts.noColor), ui.WithAppName(settings.CliBinaryName))
	case opts.search != "":
		return printMatches(out, s, opts)
	}

	roots := s.Roots
	if opts.path != "" {
		n, err := s.Reveal(opts.path)
		if err != nil {
			return err
		}
		n.SetExpanded(true)
		roots = []*tree.Node{n}
	}
	return printRoots(out, roots, opts)
}

// openSession loads the files in args, or stdin when there are none.
func openSession(ctx context.Context, stdin io.Reader, args []string, r *settings.Run, lgr logr.Logger) (*core.Session, error) {
	format, err := loader.ParseFormat(r.Format)
	if err != nil {
		return nil, err
	}
	lopts := loader.Options{Format: format}
	sopts := []core.Option{core.WithSettings(r), core.WithLogger(lgr)}

	if len(args) > 0 {
		return core.OpenFiles(ctx, args, lopts, sopts...)
	}
	if stdin == os.Stdin && !stdinIsPiped() {
		return nil, errShowHelp
	}
	lopts.Name = "stdin"
	lopts.Progress = func(n int64) {
		lgr.V(1).Info("reading input", "bytes", n)
	}
	res := <-core.OpenAsync(ctx, stdin, lopts, sopts...)
	return res.Session, res.Err
}

// selectTarget applies --path or --search to the session's selection.
func selectTarget(s *core.Session, opts *options) error {
	switch {
	case opts.path != "":
		_, err := s.Reveal(opts.path)
		return err
	case opts.search != "":
		_, err := s.Search(opts.search)
		return err
	}
	return nil
}

func outputWidth(opts *options) int {
	if opts.width > 0 {
		return opts.width
	}
	if stdoutIsTerminal() {
		return formatter.TerminalWidth()
	}
	return 0
}

// printRoots renders roots in the selected output format.
func printRoots(out io.Writer, roots []*tree.Node, opts *options) error {
	if opts.output == OutputTree {
		_, err := io.WriteString(out, formatter.FormatAsTree(roots, formatter.TreeOptions{
			NoValues:     opts.treeNoValues,
			MaxStringLen: outputWidth(opts),
		}))
		return err
	}
	text, err := formatter.RenderOutline(flatten.New(roots), formatter.OutlineOptions{
		Width:     outputWidth(opts),
		NoColor:   opts.noColor || !stdoutIsTerminal(),
		ShowTypes: opts.showTypes,
		Window:    opts.window,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}

// printMatches lists every node matching --search as "path: value".
func printMatches(out io.Writer, s *core.Session, opts *options) error {
	nodes, err := s.FindAll(opts.search)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("no match for %q", opts.search)
	}
	var b strings.Builder
	for _, n := range limiter.Slice(opts.window, nodes) {
		path, ok := navigator.PathOf(s.Roots, n)
		if !ok {
			path = n.Name()
		}
		if d := n.Display(); d != "" {
			path += ": " + d
		}
		b.WriteString(path)
		b.WriteByte('\n')
	}
	_, err = io.WriteString(out, b.String())
	return err
}

func renderSnapshot(out io.Writer, s *core.Session, opts *options) error {
	w, h := opts.width, opts.height
	if dw, dh := ui.DetectSize(os.Stdout); w <= 0 || h <= 0 {
		if w <= 0 {
			w = dw
		}
		if h <= 0 {
			h = dh
		}
	}
	if w <= 0 {
		w = 80
	}
	if h <= 0 {
		h = 24
	}
	m := ui.New(s.Controller, ui.WithSize(w, h), ui.WithNoColor(opts.noColor), ui.WithAppName(settings.CliBinaryName))
	defer m.Close()
	_, err := fmt.Fprintln(out, m.Render())
	return err
}
