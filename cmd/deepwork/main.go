package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"deepwork/internal/bootstrap"
	sessiondto "deepwork/internal/modules/session/dto"
	"deepwork/internal/platform/config"
	"deepwork/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	dataDir string
	store   string
	addr    string
	format  string
	debug   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "deepwork",
		Short:         "Deep-work session tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("unknown format %q: must be text|json", opts.format)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", defaultDataDir(), "directory holding config, database and notes")
	root.PersistentFlags().StringVar(&opts.store, "store", "", "session store: sqlite|vault|memory (overrides config)")
	root.PersistentFlags().StringVar(&opts.addr, "addr", "", "daemon socket to send commands to instead of the local store")
	root.PersistentFlags().StringVar(&opts.format, "format", "text", "output format: text|json")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logs")

	root.AddCommand(newCreateCmd(opts))
	root.AddCommand(newTransitionCmd(opts, "start", "Start a scheduled session", callStart))
	root.AddCommand(newPauseCmd(opts))
	root.AddCommand(newTransitionCmd(opts, "resume", "Resume a paused session", callResume))
	root.AddCommand(newTransitionCmd(opts, "complete", "Complete a running session", callComplete))
	root.AddCommand(newTransitionCmd(opts, "show", "Show one session", callShow))
	root.AddCommand(newActiveCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newSweepCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	return root
}

func defaultDataDir() string {
	if dir := os.Getenv("DEEPWORK_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".deepwork"
	}
	return filepath.Join(home, ".deepwork")
}

func (o *options) config() (config.Config, error) {
	cfg, err := config.Load(o.dataDir)
	if err != nil {
		return config.Config{}, err
	}
	if o.store != "" {
		cfg.Store = o.store
	}
	if o.debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *options) context(cmd *cobra.Command, cfg config.Config) context.Context {
	return logging.Context(cmd.Context(), logging.Options{
		Format: cfg.LogFormat,
		Debug:  cfg.Debug,
		Output: cmd.ErrOrStderr(),
	})
}

// loadApp targets the daemon when --addr is set, otherwise an in-process
// engine over the configured store.
func loadApp(o *options) (*bootstrap.App, config.Config, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, config.Config{}, err
	}
	if o.addr != "" {
		app, err := bootstrap.Connect(cfg, o.addr)
		return app, cfg, err
	}
	app, err := bootstrap.New(cfg)
	return app, cfg, err
}

// withApp runs fn against a loaded app and closes it afterwards.
func withApp(cmd *cobra.Command, o *options, fn func(ctx context.Context, app *bootstrap.App) error) (err error) {
	app, cfg, err := loadApp(o)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(o.context(cmd, cfg), app)
}

func newCreateCmd(opts *options) *cobra.Command {
	var title, goal string
	var minutes int
	create := &cobra.Command{
		Use:   "create --title <title> --minutes <n>",
		Short: "Schedule a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Create(ctx, title, goal, minutes)
				if err != nil {
					return err
				}
				return printSession(cmd, opts.format, out)
			})
		},
	}
	create.Flags().StringVar(&title, "title", "", "session title")
	create.Flags().StringVar(&goal, "goal", "", "what the session should achieve")
	create.Flags().IntVar(&minutes, "minutes", 25, "scheduled duration in minutes")
	return create
}

type sessionCall func(ctx context.Context, app *bootstrap.App, sessionID string) (sessiondto.SessionOutput, error)

func callStart(ctx context.Context, app *bootstrap.App, sessionID string) (sessiondto.SessionOutput, error) {
	return app.SessionCLI.Start(ctx, sessionID)
}

func callResume(ctx context.Context, app *bootstrap.App, sessionID string) (sessiondto.SessionOutput, error) {
	return app.SessionCLI.Resume(ctx, sessionID)
}

func callComplete(ctx context.Context, app *bootstrap.App, sessionID string) (sessiondto.SessionOutput, error) {
	return app.SessionCLI.Complete(ctx, sessionID)
}

func callShow(ctx context.Context, app *bootstrap.App, sessionID string) (sessiondto.SessionOutput, error) {
	return app.SessionCLI.Show(ctx, sessionID)
}

func newTransitionCmd(opts *options, use, short string, call sessionCall) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := call(ctx, app, args[0])
				if err != nil {
					return err
				}
				return printSession(cmd, opts.format, out)
			})
		},
	}
}

func newPauseCmd(opts *options) *cobra.Command {
	var reason string
	pause := &cobra.Command{
		Use:   "pause <session-id> --reason <text>",
		Short: "Pause an active session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Pause(ctx, args[0], reason)
				if err != nil {
					return err
				}
				return printSession(cmd, opts.format, out)
			})
		},
	}
	pause.Flags().StringVar(&reason, "reason", "", "why the session is paused")
	return pause
}

func newActiveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Show the session currently in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Active(ctx)
				if err != nil {
					return err
				}
				return printSession(cmd, opts.format, out)
			})
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List all sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.SessionCLI.History(ctx)
				if err != nil {
					return err
				}
				return printHistory(cmd, opts.format, items)
			})
		},
	}
}

func newSweepCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reclassify stale sessions once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Sweep(ctx)
				if err != nil {
					return err
				}
				return printSweep(cmd, opts.format, out)
			})
		},
	}
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon: periodic sweeper plus the session socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.addr != "" {
				return fmt.Errorf("serve runs the engine locally; drop --addr")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return withApp(cmd, opts, bootstrap.RunDaemon)
		},
	}
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, app *bootstrap.App) error {
				return bootstrap.RunWatch(app)
			})
		},
	}
}
