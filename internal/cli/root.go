// Package cli implements sheetctl, a terminal front end for a sheetd server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sheetsync/api/internal/client"
	"sheetsync/api/internal/theme"
)

var errNotLoggedIn = errors.New("not logged in: run `sheetctl login` first")

// options is the state shared by every command of one invocation.
type options struct {
	server  string
	token   string
	output  string
	theme   string
	noColor bool

	stdin  io.ReadCloser
	stdout io.Writer
	stderr io.Writer

	v   *viper.Viper
	cfg Config
	out *printer
}

// NewRootCommand creates the sheetctl command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdin, os.Stdout, os.Stderr)
}

func newRootCommand(stdin io.ReadCloser, stdout, stderr io.Writer) *cobra.Command {
	o := &options{stdin: stdin, stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "sheetctl",
		Short: "Edit a shared sheetsync table from the terminal",
		Long: `sheetctl edits the shared table served by sheetd.

Every change is saved immediately and broadcast to all connected clients.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.init()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.server, "server", "", "sheetd base URL (default from config)")
	flags.StringVar(&o.token, "token", "", "Access token (default from config)")
	flags.StringVarP(&o.output, "output", "o", "", "Output format: table | json | yaml")
	flags.StringVar(&o.theme, "theme", "", "Colour theme for table output")
	flags.BoolVar(&o.noColor, "no-color", false, "Disable ANSI color output")

	rootCmd.AddCommand(
		newLoginCommand(o),
		newLogoutCommand(o),
		newWhoAmICommand(o),
		newShowCommand(o),
		newColumnsCommand(o),
		newSetCommand(o),
		newAddRowCommand(o),
		newAddColumnCommand(o),
		newDeleteRowCommand(o),
		newRemoveColumnCommand(o),
		newMoveColumnCommand(o),
		newRenameColumnCommand(o),
		newResizeCommand(o),
		newVisibilityCommand(o, "hide", false),
		newVisibilityCommand(o, "unhide", true),
		newImportCommand(o),
		newExportCommand(o),
		newSearchCommand(o),
		newThemesCommand(o),
		newWatchCommand(o),
		newEditCommand(o),
	)
	return rootCmd
}

// Execute runs sheetctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func (o *options) init() error {
	if o.noColor {
		color.NoColor = true
	}
	o.v = newViper()
	cfg, err := LoadConfig(o.v)
	if err != nil {
		return err
	}
	if o.server != "" {
		cfg.Server = o.server
	}
	if o.token != "" {
		cfg.Token = o.token
	}
	if o.output != "" {
		cfg.Output = o.output
	}
	if o.theme != "" {
		cfg.Theme = o.theme
	}
	if !validFormat(cfg.Output) {
		return fmt.Errorf("unknown output format %q (use table, json or yaml)", cfg.Output)
	}
	th, ok := theme.Lookup(cfg.Theme)
	if !ok {
		th = theme.Default()
	}
	o.cfg = cfg
	o.out = &printer{w: o.stdout, format: cfg.Output, theme: th}
	return nil
}

func (o *options) remote() *client.Remote {
	return client.NewRemote(o.cfg.Server, o.cfg.Token)
}

func (o *options) requireLogin() error {
	if o.cfg.Token == "" {
		return errNotLoggedIn
	}
	return nil
}

// notifier prints engine notices on stderr. Save confirmations are only
// shown in table mode so json and yaml output stays clean.
func (o *options) notifier() client.Notifier {
	errOut := &printer{w: o.stderr, format: o.cfg.Output, theme: o.out.theme}
	return client.NotifierFunc(func(n client.Notice) {
		if n.Level == client.Info && o.cfg.Output != FormatTable {
			return
		}
		errOut.notice(n)
	})
}

// engine is a running client engine bound to one command.
type engine struct {
	*client.Engine
	cancel context.CancelFunc
	done   chan struct{}
}

// openEngine starts an engine and waits for the stored table to load. With
// live set it also subscribes to the change stream.
func (o *options) openEngine(ctx context.Context, live bool, notifier client.Notifier) (*engine, error) {
	if err := o.requireLogin(); err != nil {
		return nil, err
	}
	remote := o.remote()
	opts := client.Options{Records: remote, Notifier: notifier}
	if live {
		opts.Events = remote.Events()
	}

	runCtx, cancel := context.WithCancel(ctx)
	e := &engine{Engine: client.New(opts), cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(e.done)
		_ = e.Run(runCtx)
	}()

	select {
	case <-e.Ready():
	case <-ctx.Done():
		e.stop()
		return nil, ctx.Err()
	}
	if err := e.LoadErr(); err != nil {
		e.stop()
		return nil, fmt.Errorf("load table: %w", err)
	}
	return e, nil
}

// close waits for pending saves, then stops the engine.
func (e *engine) close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := e.Flush(ctx)
	e.stop()
	return err
}

// stop cancels the engine and waits for Run to return. It is safe to call
// more than once.
func (e *engine) stop() {
	e.cancel()
	<-e.done
}
