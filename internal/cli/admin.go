package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/utafrali/storefront/internal/admin"
	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/app"
	"github.com/utafrali/storefront/internal/domain"
)

func (c *CLI) adminCommand() *Command {
	return &Command{
		Name:    "admin",
		Summary: "Manage categories and products (administrators only)",
		Subcommands: []*Command{
			{
				Name:    "category",
				Summary: "Create, update or delete categories",
				Subcommands: []*Command{
					c.adminCategorySave("create"),
					c.adminCategorySave("update"),
					c.adminCategoryDelete(),
				},
			},
			{
				Name:    "product",
				Summary: "List, create, update or delete products",
				Subcommands: []*Command{
					c.adminProductList(),
					c.adminProductSave("create"),
					c.adminProductSave("update"),
					c.adminProductDelete(),
					c.adminProductDeleteImage(),
				},
			},
		},
	}
}

// console opens the application, resolves the session and checks the ADMIN
// role before anything is sent to the backend.
func (c *CLI) console(ctx context.Context) (*app.App, error) {
	a, err := c.withSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.Admin.Authorize(); err != nil {
		return nil, err
	}
	return a, nil
}

func (c *CLI) adminCategorySave(verb string) *Command {
	var (
		in        domain.CategoryInput
		coverPath string
	)
	usage := "storefront admin category create --name <name> [--description <text>] [--cover <file>]"
	if verb == "update" {
		usage = "storefront admin category update [flags] <id>"
	}
	return &Command{
		Name:    verb,
		Summary: verb + " a category",
		Usage:   usage,
		Flags: func() *pflag.FlagSet {
			fs := c.flags("category " + verb)
			fs.StringVar(&in.Name, "name", "", "category name")
			fs.StringVar(&in.Description, "description", "", "category description")
			fs.StringVar(&coverPath, "cover", "", "cover image file to upload")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			var id string
			if verb == "update" {
				if err := exactArgs(args, 1, usage); err != nil {
					return err
				}
				id = args[0]
			} else if err := exactArgs(args, 0, usage); err != nil {
				return err
			}

			var cover *api.Upload
			if coverPath != "" {
				up, err := api.ReadUpload(coverPath)
				if err != nil {
					return &userMessage{msg: err.Error(), err: err}
				}
				cover = &up
			}

			a, err := c.console(ctx)
			if err != nil {
				return err
			}
			cat, err := a.Admin.SaveCategory(ctx, id, in, cover)
			if err != nil && cat.ID == "" {
				return err
			}
			if emitErr := c.emit(cat, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Category %s saved (%s).\n", cat.Name, cat.ID)
			}); emitErr != nil {
				return emitErr
			}
			return err
		},
	}
}

func (c *CLI) adminCategoryDelete() *Command {
	const usage = "storefront admin category delete <id>"
	return &Command{
		Name:    "delete",
		Summary: "delete a category without products",
		Usage:   usage,
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, usage); err != nil {
				return err
			}
			a, err := c.console(ctx)
			if err != nil {
				return err
			}
			if err := a.Admin.DeleteCategory(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "Category %s deleted.\n", args[0])
			return nil
		},
	}
}

func (c *CLI) adminProductList() *Command {
	var page int
	return &Command{
		Name:    "list",
		Summary: "list products, newest first",
		Flags: func() *pflag.FlagSet {
			fs := c.flags("product list")
			fs.IntVar(&page, "page", 1, "page number, starting at 1")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			a, err := c.console(ctx)
			if err != nil {
				return err
			}
			if err := a.Admin.LoadProducts(ctx); err != nil {
				return err
			}
			list := a.Admin.Products()
			if page > 1 {
				if err := list.GoTo(ctx, page-1); err != nil {
					return err
				}
			}
			return c.emitListing(list.Snapshot(), "")
		},
	}
}

func (c *CLI) adminProductSave(verb string) *Command {
	var pf productFlags
	usage := "storefront admin product create --name <name> --price <price> --category <id> [flags]"
	if verb == "update" {
		usage = "storefront admin product update [flags] <id>"
	}
	return &Command{
		Name:    verb,
		Summary: verb + " a product and upload its images",
		Usage:   usage,
		Flags: func() *pflag.FlagSet {
			fs := c.flags("product " + verb)
			pf.register(fs)
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			var id string
			if verb == "update" {
				if err := exactArgs(args, 1, usage); err != nil {
					return err
				}
				id = args[0]
			} else if err := exactArgs(args, 0, usage); err != nil {
				return err
			}
			in, err := pf.input()
			if err != nil {
				return err
			}
			images := make([]api.Upload, 0, len(pf.images))
			for _, path := range pf.images {
				up, err := api.ReadUpload(path)
				if err != nil {
					return &userMessage{msg: err.Error(), err: err}
				}
				images = append(images, up)
			}

			a, err := c.console(ctx)
			if err != nil {
				return err
			}
			p, uploaded, err := a.Admin.SaveProduct(ctx, id, in, images)
			var partial *admin.PartialSaveError
			if err != nil && !errors.As(err, &partial) {
				return err
			}
			p.Images = append(p.Images, uploaded...)
			if emitErr := c.emit(p, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Product %s saved (%s), %d of %d image(s) uploaded.\n", p.Name, p.ID, len(uploaded), len(images))
			}); emitErr != nil {
				return emitErr
			}
			return err
		},
	}
}

func (c *CLI) adminProductDelete() *Command {
	const usage = "storefront admin product delete <id>"
	return &Command{
		Name:    "delete",
		Summary: "delete a product",
		Usage:   usage,
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, usage); err != nil {
				return err
			}
			a, err := c.console(ctx)
			if err != nil {
				return err
			}
			if err := a.Admin.DeleteProduct(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "Product %s deleted.\n", args[0])
			return nil
		},
	}
}

func (c *CLI) adminProductDeleteImage() *Command {
	const usage = "storefront admin product delete-image <image-id>"
	return &Command{
		Name:    "delete-image",
		Summary: "delete one product image",
		Usage:   usage,
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, usage); err != nil {
				return err
			}
			a, err := c.console(ctx)
			if err != nil {
				return err
			}
			if err := a.Admin.DeleteProductImage(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "Image %s deleted.\n", args[0])
			return nil
		},
	}
}
