package cli

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/query"
)

// filterFlags collects product listing flags. Prices are kept as text until
// toFilters so a typo is reported as such.
type filterFlags struct {
	name, description, material, dimension string
	minPrice, maxPrice                     string
	availability, sort                     string
	highlighted                            bool
	page, size                             int
}

func (ff *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&ff.name, "name", "", "filter by name")
	fs.StringVar(&ff.description, "description", "", "filter by description")
	fs.StringVar(&ff.material, "material", "", "filter by material")
	fs.StringVar(&ff.dimension, "dimension", "", "filter by dimension")
	fs.StringVar(&ff.minPrice, "min-price", "", "minimum price")
	fs.StringVar(&ff.maxPrice, "max-price", "", "maximum price")
	fs.StringVar(&ff.availability, "availability", "", "AVAILABLE or UNAVAILABLE")
	fs.BoolVar(&ff.highlighted, "highlighted", false, "only highlighted products (--highlighted=false for the others)")
	fs.StringVar(&ff.sort, "sort", "", "sort as field,asc|desc")
	fs.IntVar(&ff.page, "page", 1, "page number, starting at 1")
	fs.IntVar(&ff.size, "size", 0, "page size (default CATALOG_PAGE_SIZE)")
}

// toFilters converts the flags. fs tells an explicit --highlighted=false from
// an absent flag.
func (ff *filterFlags) toFilters(fs *pflag.FlagSet, base query.Filters) (query.Filters, error) {
	f := base
	f.Page = ff.page - 1
	if ff.size > 0 {
		f.Size = ff.size
	}
	f.Name = query.Text(ff.name)
	f.Description = query.Text(ff.description)
	f.Material = query.Text(ff.material)
	f.Dimension = query.Text(ff.dimension)
	f.Availability = query.Text(ff.availability)

	var err error
	if f.MinPrice, err = query.Price(ff.minPrice); err != nil {
		return f, fmt.Errorf("%w: --min-price: %w", ErrUsage, err)
	}
	if f.MaxPrice, err = query.Price(ff.maxPrice); err != nil {
		return f, fmt.Errorf("%w: --max-price: %w", ErrUsage, err)
	}
	if fs.Changed("highlighted") {
		f.Highlighted = query.Some(ff.highlighted)
	}
	if fs.Changed("sort") {
		if f.Sort, err = query.ParseSort(ff.sort); err != nil {
			return f, fmt.Errorf("%w: %w", ErrUsage, err)
		}
	}
	if a, ok := f.Availability.Get(); ok && !domain.IsValidAvailability(a) {
		return f, fmt.Errorf("%w: --availability must be one of %v", ErrUsage, domain.ValidAvailabilities())
	}
	if err := f.Validate(); err != nil {
		return f, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return f, nil
}

// productFlags collects the admin product form.
type productFlags struct {
	name, description, price, availability string
	materials, dimension, category         string
	highlighted                            bool
	images                                 []string
}

func (pf *productFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&pf.name, "name", "", "product name")
	fs.StringVar(&pf.description, "description", "", "product description")
	fs.StringVar(&pf.price, "price", "", "price, e.g. 129.90")
	fs.StringVar(&pf.availability, "availability", domain.AvailabilityAvailable, "AVAILABLE or UNAVAILABLE")
	fs.StringVar(&pf.materials, "materials", "", "materials")
	fs.StringVar(&pf.dimension, "dimension", "", "dimension")
	fs.StringVar(&pf.category, "category", "", "category ID")
	fs.BoolVar(&pf.highlighted, "highlighted", false, "feature on the home page")
	fs.StringArrayVar(&pf.images, "image", nil, "image file to upload (repeatable)")
}

func (pf *productFlags) input() (domain.ProductInput, error) {
	in := domain.ProductInput{
		Name:         pf.name,
		Description:  pf.description,
		Availability: pf.availability,
		Highlighted:  pf.highlighted,
		Materials:    pf.materials,
		Dimension:    pf.dimension,
		CategoryID:   pf.category,
	}
	price, err := query.Price(pf.price)
	if err != nil {
		return in, fmt.Errorf("%w: --price: %w", ErrUsage, err)
	}
	in.Price = price.Or(in.Price)
	return in, nil
}
