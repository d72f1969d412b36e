package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/gookit/color"
)

var version = "0.2.0"

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

const (
	exitFailure   = 1
	exitUsage     = 2
	exitCancelled = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		code := exitFailure
		msg := err.Error()
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.Code
		}
		if msg != "" {
			fmt.Fprintln(os.Stderr, color.Red.Sprint("error: ")+msg)
		}
		stop()
		os.Exit(code)
	}
}

// run dispatches a subcommand. Rendered output goes to outW, diagnostics and
// logs to errW.
func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	if len(args) == 0 {
		usage(errW)
		return &ExitError{Code: exitUsage}
	}

	switch args[0] {
	case "render":
		return runRender(ctx, outW, errW, args[1:])
	case "dump":
		return runDump(outW, errW, args[1:])
	case "version":
		fmt.Fprintf(outW, "stencil version %s\n", version)
		return nil
	case "help", "-h", "-help", "--help":
		usage(outW)
		return nil
	default:
		usage(errW)
		return &ExitError{Code: exitUsage, Message: fmt.Sprintf("unknown command: %s", args[0])}
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `stencil - render text templates with cancellable loops

Usage:
  stencil render [options] TEMPLATE...
  stencil dump [options] TEMPLATE
  stencil version

Run "stencil <command> -h" for the options of a command.
`)
}
