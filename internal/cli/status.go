package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/utafrali/storefront/pkg/health"
)

// ErrUnhealthy is returned by status when a critical check is down.
var ErrUnhealthy = errors.New("critical dependency down")

func (c *CLI) statusCommand() *Command {
	return &Command{
		Name:    "status",
		Summary: "Check the catalog backend and the token store",
		Flags:   func() *pflag.FlagSet { return c.flags("status") },
		Run: func(ctx context.Context, args []string) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			resp := a.Health.Check(ctx)
			names := make([]string, 0, len(resp.Checks))
			for name := range resp.Checks {
				names = append(names, name)
			}
			sort.Strings(names)

			if err := c.emit(resp, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "CHECK\tSTATUS\tCRITICAL\tLATENCY\tERROR")
				for _, name := range names {
					r := resp.Checks[name]
					fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", name, r.Status, r.Critical, r.Latency.Round(time.Microsecond), r.Error)
				}
				fmt.Fprintf(tw, "\nOverall: %s\n", resp.Status)
			}); err != nil {
				return err
			}
			if resp.Status == health.StatusDown {
				return &userMessage{msg: "The catalog backend is unreachable.", err: ErrUnhealthy}
			}
			return nil
		},
	}
}
