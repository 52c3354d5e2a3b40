package ui

import (
	"context"
	"os"
	"runtime"
	"time"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"

	"github.com/oakwood-commons/kvtree/internal/selection"
)

var (
	stdinIsPiped = func() bool {
		stat, err := os.Stdin.Stat()
		return err == nil && (stat.Mode()&os.ModeCharDevice) == 0
	}
	openTerminalIOFn = openTerminalIO
	termGetSize      = term.GetSize
)

// DetectSize returns the size of the terminal attached to f, or 0, 0.
func DetectSize(f *os.File) (int, int) {
	if f == nil {
		return 0, 0
	}
	w, h, err := termGetSize(int(f.Fd()))
	if err != nil {
		return 0, 0
	}
	return w, h
}

// Run starts the interactive viewer and blocks until the user quits or ctx
// is canceled.
func Run(ctx context.Context, ctrl *selection.Controller, opts ...Option) error {
	progOpts, cleanup := programOptions(ctx)
	defer cleanup()

	if w, h := DetectSize(os.Stdout); w > 0 && h > 0 {
		opts = append([]Option{WithSize(w, h)}, opts...)
	}
	m := New(ctrl, opts...)
	defer m.Close()

	_, err := tea.NewProgram(m, progOpts...).Run()
	return err
}

// programOptions points the program at the real terminal when stdin carries
// the document.
func programOptions(ctx context.Context) ([]tea.ProgramOption, func()) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if !stdinIsPiped() {
		return opts, func() {}
	}
	ttyIn, ttyOut, err := openTerminalIOFn()
	if err != nil {
		// No controlling terminal (CI); keys will not reach the program.
		return opts, func() {}
	}
	cctx, cancel := context.WithCancel(ctx)
	opts = []tea.ProgramOption{tea.WithContext(cctx), tea.WithInput(ttyIn)}
	if ttyOut != nil {
		opts = append(opts, tea.WithOutput(ttyOut), withTTYResizeWatcher(cctx, ttyOut))
	}
	return opts, func() {
		cancel()
		_ = ttyIn.Close()
		if ttyOut != nil && ttyOut != ttyIn {
			_ = ttyOut.Close()
		}
	}
}

func openTerminalIO() (*os.File, *os.File, error) {
	in, out := terminalDeviceNames(runtime.GOOS)
	input, err := os.OpenFile(in, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}
	if out == "" || out == in {
		return input, input, nil
	}
	output, err := os.OpenFile(out, os.O_RDWR, 0)
	if err != nil {
		return input, nil, err
	}
	return input, output, nil
}

func terminalDeviceNames(goos string) (input string, output string) {
	if goos == "windows" {
		return "CONIN$", "CONOUT$"
	}
	return "/dev/tty", "/dev/tty"
}

// withTTYResizeWatcher polls the terminal size, since resize signals do not
// arrive when stdin is a pipe.
func withTTYResizeWatcher(ctx context.Context, out *os.File) tea.ProgramOption {
	return func(p *tea.Program) {
		go func() {
			t := time.NewTicker(250 * time.Millisecond)
			defer t.Stop()
			lastW, lastH := 0, 0
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					w, h, err := termGetSize(int(out.Fd()))
					if err != nil || (w == lastW && h == lastH) {
						continue
					}
					lastW, lastH = w, h
					p.Send(tea.WindowSizeMsg{Width: w, Height: h})
				}
			}
		}()
	}
}
