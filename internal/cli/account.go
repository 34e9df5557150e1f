package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/storefront"
)

type whoami struct {
	State     string       `json:"state"`
	User      *domain.User `json:"user,omitempty"`
	Admin     bool         `json:"admin"`
	Reason    string       `json:"reason,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

func (c *CLI) loginCommand() *Command {
	var email, password string
	return &Command{
		Name:    "login",
		Summary: "Log in and remember the session",
		Usage:   "storefront login --email <email> [--password <password>]",
		Flags: func() *pflag.FlagSet {
			fs := c.flags("login")
			fs.StringVar(&email, "email", "", "account email")
			fs.StringVar(&password, "password", "", "account password (read from stdin when omitted)")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if password == "" {
				line, err := c.readLine()
				if err != nil {
					return fmt.Errorf("%w: --password is required", ErrUsage)
				}
				password = line
			}
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			if err := a.Session.Login(ctx, domain.Credentials{Email: email, Password: password}); err != nil {
				return err
			}
			snap := a.Session.Snapshot()
			return c.emit(describe(snap, a.Session), func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Logged in as %s <%s>\n", snap.User.FullName(), snap.User.Email)
			})
		},
	}
}

func (c *CLI) logoutCommand() *Command {
	return &Command{
		Name:    "logout",
		Summary: "Forget the stored session",
		Run: func(ctx context.Context, args []string) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			if err := a.Session.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, "Logged out.")
			return nil
		},
	}
}

func (c *CLI) whoamiCommand() *Command {
	return &Command{
		Name:    "whoami",
		Summary: "Show the current session",
		Flags:   func() *pflag.FlagSet { return c.flags("whoami") },
		Run: func(ctx context.Context, args []string) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			// A failed resolution leaves the session anonymous, which is
			// exactly what is reported below.
			_ = a.Session.Init(ctx)
			snap := a.Session.Snapshot()
			view := describe(snap, a.Session)
			return c.emit(view, func(tw *tabwriter.Writer) {
				if snap.State != session.Authenticated || snap.User == nil {
					fmt.Fprintf(tw, "Not logged in")
					if view.Reason != "" {
						fmt.Fprintf(tw, " (%s)", view.Reason)
					}
					fmt.Fprintln(tw)
					return
				}
				fmt.Fprintf(tw, "Name\t%s\n", snap.User.FullName())
				fmt.Fprintf(tw, "Email\t%s\n", snap.User.Email)
				fmt.Fprintf(tw, "Admin\t%t\n", view.Admin)
				if view.ExpiresAt != nil {
					fmt.Fprintf(tw, "Expires\t%s\n", view.ExpiresAt.Local().Format(time.RFC1123))
				}
			})
		},
	}
}

func describe(snap session.Snapshot, s *session.Store) whoami {
	w := whoami{State: snap.State.String(), User: snap.User, Admin: snap.IsAdmin(), Reason: reasonText(snap.Reason)}
	if claims, err := s.TokenClaims(); err == nil && !claims.ExpiresAt.IsZero() {
		exp := claims.ExpiresAt
		w.ExpiresAt = &exp
	}
	return w
}

func reasonText(r session.Reason) string {
	switch r {
	case session.ReasonExpired:
		return "session expired"
	case session.ReasonLoggedOut:
		return "logged out"
	case session.ReasonResolveFailed:
		return "could not verify the stored session"
	default:
		return ""
	}
}

func (c *CLI) registerCommand() *Command {
	var reg domain.Registration
	return &Command{
		Name:    "register",
		Summary: "Create a customer account",
		Flags: func() *pflag.FlagSet {
			fs := c.flags("register")
			fs.StringVar(&reg.Name, "name", "", "first name")
			fs.StringVar(&reg.Surname, "surname", "", "last name")
			fs.StringVar(&reg.Email, "email", "", "email")
			fs.StringVar(&reg.Password, "password", "", "password")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			u, err := a.Storefront.Register(ctx, reg)
			if err != nil {
				return &userMessage{msg: storefront.RegistrationMessage(err), err: err}
			}
			return c.emit(u, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Account created for %s. You can now log in.\n", u.Email)
			})
		},
	}
}

func (c *CLI) readLine() (string, error) {
	if c.stdin == nil {
		return "", errors.New("no input")
	}
	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err == nil {
			err = errors.New("empty input")
		}
		return "", err
	}
	return line, nil
}
