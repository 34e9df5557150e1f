package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// ErrUsage marks errors caused by how the command was invoked.
var ErrUsage = errors.New("usage")

// Command is a node of the command tree. Leaves set Run; inner nodes set
// Subcommands.
type Command struct {
	Name    string
	Summary string
	Usage   string

	// Flags builds the command's flag set. Called once per invocation.
	Flags func() *pflag.FlagSet

	Subcommands []*Command
	Run         func(ctx context.Context, args []string) error

	parent *Command
}

// Execute dispatches args through the tree and runs the matching command.
func (c *Command) Execute(ctx context.Context, args []string, help io.Writer) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(help)
		return nil
	}

	if len(c.Subcommands) > 0 {
		if len(args) == 0 || strings.HasPrefix(args[0], "-") {
			c.PrintHelp(help)
			return fmt.Errorf("%w: %s needs a subcommand", ErrUsage, c.fullName())
		}
		for _, sub := range c.Subcommands {
			if sub.Name == args[0] {
				sub.parent = c
				return sub.Execute(ctx, args[1:], help)
			}
		}
		if s := suggest(args[0], c.Subcommands); s != "" {
			return fmt.Errorf("%w: unknown command %q (did you mean %q?)", ErrUsage, args[0], s)
		}
		return fmt.Errorf("%w: unknown command %q, run '%s --help'", ErrUsage, args[0], c.fullName())
	}

	if c.Flags != nil {
		fs := c.Flags()
		fs.SetOutput(io.Discard)
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				c.PrintHelp(help)
				return nil
			}
			return fmt.Errorf("%w: %s, run '%s --help'", ErrUsage, err.Error(), c.fullName())
		}
		args = fs.Args()
	}
	return c.Run(ctx, args)
}

// PrintHelp writes usage, subcommands and flags to w.
func (c *Command) PrintHelp(w io.Writer) {
	if c.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}
	switch {
	case c.Usage != "":
		fmt.Fprintf(w, "Usage:\n  %s\n", c.Usage)
	case len(c.Subcommands) > 0:
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", c.fullName())
	default:
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", c.fullName())
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
	}

	if c.Flags != nil {
		var b strings.Builder
		fs := c.Flags()
		fs.SetOutput(&b)
		fs.PrintDefaults()
		if b.Len() > 0 {
			fmt.Fprintf(w, "\nFlags:\n%s", b.String())
		}
	}
}

func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

// suggest returns the only subcommand sharing a two-letter prefix with name.
func suggest(name string, subs []*Command) string {
	if len(name) < 2 {
		return ""
	}
	var match string
	for _, sub := range subs {
		if strings.HasPrefix(sub.Name, name[:2]) {
			if match != "" {
				return ""
			}
			match = sub.Name
		}
	}
	return match
}
