// Package query builds catalog product queries.
//
// Every optional filter is an explicit Opt so that "not set" and "set to the
// zero value" stay distinct: Highlighted=false and MinPrice=0 are sent, unset
// fields are not.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Opt is an optional value.
type Opt[T any] struct {
	value T
	set   bool
}

// Some returns a set Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, set: true}
}

// None returns an unset Opt.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is set.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value is present.
func (o Opt[T]) IsSet() bool { return o.set }

// Or returns the value, or def when unset.
func (o Opt[T]) Or(def T) T {
	if !o.set {
		return def
	}
	return o.value
}

// Direction of a sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort orders a listing by one field.
type Sort struct {
	Field     string
	Direction Direction
}

// Common sorts.
var (
	SortNewest    = Sort{Field: "idProduct", Direction: Desc}
	SortNameAsc   = Sort{Field: "name", Direction: Asc}
	SortPriceAsc  = Sort{Field: "price", Direction: Asc}
	SortPriceDesc = Sort{Field: "price", Direction: Desc}
)

// String renders the wire form "field,direction".
func (s Sort) String() string {
	if s.Field == "" {
		return ""
	}
	if s.Direction == "" {
		return s.Field
	}
	return s.Field + "," + string(s.Direction)
}

// IsZero reports whether no sort is configured.
func (s Sort) IsZero() bool { return s.Field == "" }

// ParseSort parses "field" or "field,asc|desc".
func ParseSort(s string) (Sort, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Sort{}, nil
	}
	field, dir, hasDir := strings.Cut(s, ",")
	field = strings.TrimSpace(field)
	if field == "" {
		return Sort{}, fmt.Errorf("sort %q: missing field", s)
	}
	out := Sort{Field: field}
	if hasDir {
		switch d := Direction(strings.ToLower(strings.TrimSpace(dir))); d {
		case Asc, Desc:
			out.Direction = d
		default:
			return Sort{}, fmt.Errorf("sort %q: direction must be asc or desc", s)
		}
	}
	return out, nil
}

// Filters is the full parameter set of a product listing.
type Filters struct {
	Page int
	Size int
	Sort Sort

	Name         Opt[string]
	Description  Opt[string]
	Material     Opt[string]
	Dimension    Opt[string]
	CategoryID   Opt[string]
	MinPrice     Opt[decimal.Decimal]
	MaxPrice     Opt[decimal.Decimal]
	Availability Opt[string]
	Highlighted  Opt[bool]
}

// New returns filters for the first page of the given size.
func New(size int) Filters {
	return Filters{Size: size}
}

// Equal reports value equality over every field. Decimal prices compare
// numerically, so 10 and 10.00 are equal.
func (f Filters) Equal(o Filters) bool {
	return f.Page == o.Page &&
		f.Size == o.Size &&
		f.Sort == o.Sort &&
		f.Name == o.Name &&
		f.Description == o.Description &&
		f.Material == o.Material &&
		f.Dimension == o.Dimension &&
		f.CategoryID == o.CategoryID &&
		decimalOptEqual(f.MinPrice, o.MinPrice) &&
		decimalOptEqual(f.MaxPrice, o.MaxPrice) &&
		f.Availability == o.Availability &&
		f.Highlighted == o.Highlighted
}

func decimalOptEqual(a, b Opt[decimal.Decimal]) bool {
	av, aok := a.Get()
	bv, bok := b.Get()
	if aok != bok {
		return false
	}
	return !aok || av.Equal(bv)
}

// PriceRangeInverted reports a min price above the max price. The range is
// still sent as-is; callers may only warn about it.
func (f Filters) PriceRangeInverted() bool {
	minP, okMin := f.MinPrice.Get()
	maxP, okMax := f.MaxPrice.Get()
	return okMin && okMax && minP.GreaterThan(maxP)
}

// Validate checks the paging invariants.
func (f Filters) Validate() error {
	if f.Page < 0 {
		return fmt.Errorf("page must not be negative, got %d", f.Page)
	}
	if f.Size <= 0 {
		return fmt.Errorf("size must be positive, got %d", f.Size)
	}
	return nil
}

// Build serialises filters into query parameters. Unset optionals and empty
// strings are dropped; zero numbers and false booleans are kept.
func Build(f Filters) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(f.Page))
	if f.Size > 0 {
		v.Set("size", strconv.Itoa(f.Size))
	}
	if s := f.Sort.String(); s != "" {
		v.Set("sort", s)
	}

	setString(v, "name", f.Name)
	setString(v, "description", f.Description)
	setString(v, "material", f.Material)
	setString(v, "dimension", f.Dimension)
	setString(v, "categoryId", f.CategoryID)
	setString(v, "availability", f.Availability)

	if p, ok := f.MinPrice.Get(); ok {
		v.Set("minPrice", p.String())
	}
	if p, ok := f.MaxPrice.Get(); ok {
		v.Set("maxPrice", p.String())
	}
	if h, ok := f.Highlighted.Get(); ok {
		v.Set("highlighted", strconv.FormatBool(h))
	}
	return v
}

func setString(v url.Values, key string, o Opt[string]) {
	if s, ok := o.Get(); ok && s != "" {
		v.Set(key, s)
	}
}

// Text returns Some(s) for a non-blank s after trimming, None otherwise.
// Form inputs go through it so that clearing a field unsets the filter.
func Text(s string) Opt[string] {
	s = strings.TrimSpace(s)
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

// Price parses a decimal price; blank input yields None.
func Price(s string) (Opt[decimal.Decimal], error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return None[decimal.Decimal](), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return None[decimal.Decimal](), fmt.Errorf("invalid price %q: %w", s, err)
	}
	return Some(d), nil
}
