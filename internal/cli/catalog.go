package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/query"
	"github.com/utafrali/storefront/internal/storefront"
	"github.com/utafrali/storefront/pkg/pagination"
)

// MsgNoResults is printed for an empty listing.
const MsgNoResults = "No products match the current filters."

type homeView struct {
	Hero       *domain.Product   `json:"hero"`
	Excerpt    string            `json:"excerpt,omitempty"`
	Categories []domain.Category `json:"categories"`
	Latest     []domain.Product  `json:"latest"`
}

func (c *CLI) homeCommand() *Command {
	return &Command{
		Name:    "home",
		Summary: "Show the highlighted product, featured categories and latest arrivals",
		Flags:   func() *pflag.FlagSet { return c.flags("home") },
		Run: func(ctx context.Context, args []string) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			home, err := a.Storefront.Home(ctx)
			if err != nil {
				return err
			}
			view := homeView{Hero: home.Hero, Excerpt: home.HeroExcerpt(), Categories: home.Categories, Latest: home.Latest}
			return c.emit(view, func(tw *tabwriter.Writer) {
				if home.Hero != nil {
					fmt.Fprintf(tw, "FEATURED\t%s\t%s\n", home.Hero.Name, home.Hero.PriceLabel())
					fmt.Fprintf(tw, "\t%s\n", home.HeroExcerpt())
				}
				for _, cat := range home.Categories {
					fmt.Fprintf(tw, "CATEGORY\t%s\t%s\n", cat.Name, cat.Slug)
				}
				for _, p := range home.Latest {
					fmt.Fprintf(tw, "NEW\t%s\t%s\n", p.Name, p.PriceLabel())
				}
			})
		},
	}
}

func (c *CLI) categoriesCommand() *Command {
	return &Command{
		Name:    "categories",
		Summary: "List every category",
		Flags:   func() *pflag.FlagSet { return c.flags("categories") },
		Run: func(ctx context.Context, args []string) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			cats, err := a.Storefront.Categories(ctx)
			if err != nil {
				return err
			}
			return c.emit(cats, func(tw *tabwriter.Writer) { writeCategories(tw, cats) })
		},
	}
}

func (c *CLI) categoryCommand() *Command {
	var (
		ff filterFlags
		fs *pflag.FlagSet
	)
	const usage = "storefront category [flags] <slug>"
	return &Command{
		Name:    "category",
		Summary: "List the products of one category",
		Usage:   usage,
		Flags: func() *pflag.FlagSet {
			fs = c.flags("category")
			ff.register(fs)
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, usage); err != nil {
				return err
			}
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			f, err := ff.toFilters(fs, a.Storefront.DefaultFilters())
			if err != nil {
				return err
			}
			c.warnPriceRange(f)

			view, err := a.Storefront.Category(ctx, args[0], f)
			if view != nil && view.Products != nil {
				defer view.Products.Close()
			}
			if errors.Is(err, catalog.ErrCategoryNotFound) {
				return &userMessage{msg: fmt.Sprintf("Category %q not found.", args[0]), err: err}
			}
			if err != nil {
				return err
			}
			if f.Page > 0 {
				if err := view.Products.GoTo(ctx, f.Page); err != nil {
					return err
				}
				if got := view.Products.Active().Page; got != f.Page {
					fmt.Fprintf(c.stderr, "Page %d is out of range; showing page %d.\n", f.Page+1, got+1)
				}
			}
			return c.emitListing(view.Products.Snapshot(), view.Category.Name)
		},
	}
}

func (c *CLI) productsCommand() *Command {
	var (
		ff filterFlags
		fs *pflag.FlagSet
	)
	return &Command{
		Name:    "products",
		Summary: "Search the whole catalog",
		Flags: func() *pflag.FlagSet {
			fs = c.flags("products")
			ff.register(fs)
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			f, err := ff.toFilters(fs, a.Storefront.DefaultFilters())
			if err != nil {
				return err
			}
			c.warnPriceRange(f)

			list := a.Storefront.Products(f)
			defer list.Close()
			if err := list.Load(ctx); err != nil {
				return err
			}
			return c.emitListing(list.Snapshot(), "")
		},
	}
}

func (c *CLI) productCommand() *Command {
	const usage = "storefront product [flags] <slug>"
	return &Command{
		Name:    "product",
		Summary: "Show one product",
		Usage:   usage,
		Flags:   func() *pflag.FlagSet { return c.flags("product") },
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, usage); err != nil {
				return err
			}
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			p, err := a.Storefront.Product(ctx, args[0])
			if errors.Is(err, storefront.ErrProductNotFound) {
				return &userMessage{msg: fmt.Sprintf("Product %q not found.", args[0]), err: err}
			}
			if err != nil {
				return err
			}
			return c.emit(p, func(tw *tabwriter.Writer) { writeProduct(tw, p) })
		},
	}
}

func (c *CLI) warnPriceRange(f query.Filters) {
	if w := storefront.PriceRangeWarning(f); w != "" {
		fmt.Fprintln(c.stderr, w)
	}
}

// emitListing prints one page of a list controller. An empty page is a
// normal outcome.
func (c *CLI) emitListing(snap catalog.Snapshot[domain.Product], title string) error {
	if snap.State == catalog.Errored {
		return snap.Err
	}
	return c.emit(snap.Page, func(tw *tabwriter.Writer) {
		if title != "" {
			fmt.Fprintf(tw, "%s\n\n", title)
		}
		if snap.NoResults() {
			fmt.Fprintln(tw, MsgNoResults)
			return
		}
		writeProducts(tw, snap.Page)
	})
}

func writeCategories(tw *tabwriter.Writer, cats []domain.Category) {
	fmt.Fprintln(tw, "ID\tNAME\tSLUG\tDESCRIPTION")
	for _, cat := range cats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cat.ID, cat.Name, cat.Slug, cat.Description)
	}
}

func writeProducts(tw *tabwriter.Writer, page pagination.Page[domain.Product]) {
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tAVAILABILITY\tCATEGORY\tSLUG")
	for _, p := range page.Content {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.PriceLabel(), p.Availability, p.CategoryName(), p.Slug)
	}
	fmt.Fprintf(tw, "\nPage %d of %d (%d products)\n", page.Number+1, page.TotalPages, page.TotalElements)
}

func writeProduct(tw *tabwriter.Writer, p domain.Product) {
	fmt.Fprintf(tw, "Name\t%s\n", p.Name)
	fmt.Fprintf(tw, "Price\t%s\n", p.PriceLabel())
	fmt.Fprintf(tw, "Availability\t%s\n", p.Availability)
	fmt.Fprintf(tw, "Category\t%s\n", p.CategoryName())
	fmt.Fprintf(tw, "Materials\t%s\n", p.Materials)
	fmt.Fprintf(tw, "Dimension\t%s\n", p.Dimension)
	fmt.Fprintf(tw, "Description\t%s\n", strings.ReplaceAll(p.Description, "\n", " "))
	for _, img := range p.Images {
		fmt.Fprintf(tw, "Image\t%s\t%s\n", img.ID, img.ImageURL)
	}
}

func (c *CLI) browseCommand() *Command {
	return &Command{
		Name:    "browse",
		Summary: "Browse the catalog interactively",
		Run: func(ctx context.Context, args []string) error {
			if c.browse == nil {
				return errors.New("interactive browser unavailable")
			}
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			// The browser shows the session state itself, including a
			// failed resolution.
			_ = a.Session.Init(ctx)
			return c.browse(ctx, a)
		},
	}
}
