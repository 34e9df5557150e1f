package domain

import (
	"github.com/shopspring/decimal"
)

// Availability values accepted by the backend.
const (
	AvailabilityAvailable   = "AVAILABLE"
	AvailabilityUnavailable = "UNAVAILABLE"
)

// Category is a catalog grouping, addressed by slug on the storefront.
type Category struct {
	ID            string `json:"idCategory"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Slug          string `json:"slug"`
	CoverImageURL string `json:"coverImageUrl"`
}

// ProductImage is one ordered picture of a product.
type ProductImage struct {
	ID       string `json:"idProductImage"`
	ImageURL string `json:"imageUrl"`
	AltText  string `json:"altText"`
	Order    int    `json:"order"`
}

// Product represents a product in the catalog.
type Product struct {
	ID           string          `json:"idProduct"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Slug         string          `json:"slug"`
	Availability string          `json:"availability"`
	Highlighted  bool            `json:"highlighted"`
	Materials    string          `json:"materials"`
	Dimension    string          `json:"dimension"`
	Category     *Category       `json:"category,omitempty"`
	Images       []ProductImage  `json:"productImages"`
}

// Available reports whether the product can currently be bought.
func (p Product) Available() bool {
	return p.Availability == AvailabilityAvailable
}

// CoverImage returns the image with the lowest order, if any.
func (p Product) CoverImage() (ProductImage, bool) {
	if len(p.Images) == 0 {
		return ProductImage{}, false
	}
	best := p.Images[0]
	for _, img := range p.Images[1:] {
		if img.Order < best.Order {
			best = img
		}
	}
	return best, true
}

// PriceLabel renders the price the way the shop displays it.
func (p Product) PriceLabel() string {
	return "€ " + p.Price.StringFixed(2)
}

// CategoryName is safe to call on products whose category was not expanded.
func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// ValidAvailabilities returns the set of valid availability values.
func ValidAvailabilities() []string {
	return []string{AvailabilityAvailable, AvailabilityUnavailable}
}

// IsValidAvailability checks whether s is a valid availability value.
func IsValidAvailability(s string) bool {
	for _, v := range ValidAvailabilities() {
		if v == s {
			return true
		}
	}
	return false
}

// CategoryInput is the body of category create and update calls.
type CategoryInput struct {
	Name          string `json:"name" validate:"required,max=100"`
	Description   string `json:"description" validate:"max=1000"`
	CoverImageURL string `json:"coverImageUrl"`
}

// ProductInput is the body of product create and update calls.
type ProductInput struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Description  string          `json:"description" validate:"max=5000"`
	Price        decimal.Decimal `json:"price" validate:"gt=0"`
	Availability string          `json:"availability" validate:"required,oneof=AVAILABLE UNAVAILABLE"`
	Highlighted  bool            `json:"highlighted"`
	Materials    string          `json:"materials"`
	Dimension    string          `json:"dimension"`
	CategoryID   string          `json:"categoryId" validate:"required"`
}

// InputFromProduct pre-fills an edit form from an existing product.
func InputFromProduct(p Product) ProductInput {
	in := ProductInput{
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Availability: p.Availability,
		Highlighted:  p.Highlighted,
		Materials:    p.Materials,
		Dimension:    p.Dimension,
	}
	if p.Category != nil {
		in.CategoryID = p.Category.ID
	}
	return in
}

func init() {
	// The backend expects prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}
