// Package logging configures the context logger used by the daemon and the
// sweeper.
package logging

import (
	"context"
	"io"

	"goa.design/clue/log"
)

type Options struct {
	// Format is one of "json", "text", "terminal" or "auto".
	Format string
	Debug  bool
	Output io.Writer
}

// Context returns ctx carrying a structured logger built from opts.
func Context(ctx context.Context, opts Options) context.Context {
	logOpts := []log.LogOption{log.WithFormat(formatFor(opts.Format))}
	if opts.Output != nil {
		logOpts = append(logOpts, log.WithOutput(opts.Output))
	}
	ctx = log.Context(ctx, logOpts...)
	if opts.Debug {
		ctx = log.Context(ctx, log.WithDebug())
	}
	return ctx
}

func formatFor(name string) log.FormatFunc {
	switch name {
	case "json":
		return log.FormatJSON
	case "text":
		return log.FormatText
	case "terminal":
		return log.FormatTerminal
	}
	if log.IsTerminal() {
		return log.FormatTerminal
	}
	return log.FormatJSON
}
