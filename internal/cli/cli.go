// Package cli implements the storefront command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/utafrali/storefront/internal/admin"
	"github.com/utafrali/storefront/internal/app"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Opener builds the application on first use, so that help and usage errors
// never need configuration or network.
type Opener func(ctx context.Context) (*app.App, error)

// Browser runs the interactive catalog browser until the user quits.
type Browser func(ctx context.Context, a *app.App) error

// CLI holds the streams and the lazily opened application.
type CLI struct {
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
	open   Opener
	browse Browser

	app    *app.App
	format Format
}

// New creates a CLI writing results to stdout and messages to stderr.
func New(stdin io.Reader, stdout, stderr io.Writer, open Opener, browse Browser) *CLI {
	return &CLI{stdin: stdin, stdout: stdout, stderr: stderr, open: open, browse: browse, format: FormatTable}
}

// Run executes args and returns the process exit code. Failures are reported
// on stderr with the same wording the storefront shows its users.
func (c *CLI) Run(ctx context.Context, args []string) int {
	err := c.root().Execute(ctx, args, c.stderr)
	if c.app != nil {
		if serr := c.app.Shutdown(context.WithoutCancel(ctx)); serr != nil {
			fmt.Fprintf(c.stderr, "shutdown: %v\n", serr)
		}
		c.app = nil
	}
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		fmt.Fprintln(c.stderr, err)
		return ExitUsage
	default:
		fmt.Fprintln(c.stderr, Message(err))
		return ExitError
	}
}

// Message is the line shown for err. Messages already worded for the user
// pass through unchanged.
func Message(err error) string {
	var um *userMessage
	if errors.As(err, &um) {
		return um.msg
	}
	return admin.Message(err)
}

// userMessage carries a pre-rendered message for an error.
type userMessage struct {
	msg string
	err error
}

func (e *userMessage) Error() string { return e.msg }
func (e *userMessage) Unwrap() error { return e.err }

func (c *CLI) application(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := c.open(ctx)
	if err != nil {
		return nil, &userMessage{msg: "storefront: " + err.Error(), err: err}
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(ctx)
		return nil, &userMessage{msg: "storefront: " + err.Error(), err: err}
	}
	c.app = a
	return a, nil
}

// withSession opens the application and resolves the stored token.
func (c *CLI) withSession(ctx context.Context) (*app.App, error) {
	a, err := c.application(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.Session.Init(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (c *CLI) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	c.format = FormatTable
	fs.VarP(&c.format, "output", "o", "output format: table, json or yaml")
	return fs
}

func (c *CLI) emit(v any, table func(tw *tabwriter.Writer)) error {
	return emit(c.stdout, c.format, v, table)
}

func (c *CLI) root() *Command {
	return &Command{
		Name:    "storefront",
		Summary: "Browse the catalog and administer products from the terminal.",
		Subcommands: []*Command{
			c.homeCommand(),
			c.categoriesCommand(),
			c.categoryCommand(),
			c.productsCommand(),
			c.productCommand(),
			c.browseCommand(),
			c.registerCommand(),
			c.loginCommand(),
			c.logoutCommand(),
			c.whoamiCommand(),
			c.adminCommand(),
			c.statusCommand(),
		},
	}
}

func exactArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("%w: expected %d argument(s), got %d\n\nusage: %s", ErrUsage, n, len(args), usage)
	}
	return nil
}
