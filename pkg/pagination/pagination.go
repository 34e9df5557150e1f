package pagination

// Params identifies a zero-based page request.
type Params struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// DefaultParams returns the first page with the catalog grid size (3x3).
func DefaultParams() Params {
	return Params{
		Page: 0,
		Size: 9,
	}
}

// Normalize clamps the page to >= 0 and the size to [1, 100].
func (p Params) Normalize() Params {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultParams().Size
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

// Page is the list envelope returned by every catalog list endpoint.
// Number is the zero-based index of this page.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
	Size          int `json:"size"`
	Number        int `json:"number"`
}

// NewPage builds a page from one slice of results and the overall element
// count, computing TotalPages the same way the backend does.
func NewPage[T any](content []T, totalElements int, params Params) Page[T] {
	params = params.Normalize()
	totalPages := totalElements / params.Size
	if totalElements%params.Size > 0 {
		totalPages++
	}
	if content == nil {
		content = []T{}
	}

	return Page[T]{
		Content:       content,
		TotalPages:    totalPages,
		TotalElements: totalElements,
		Size:          params.Size,
		Number:        params.Page,
	}
}

// Slice pages an in-memory slice.
func Slice[T any](all []T, params Params) Page[T] {
	params = params.Normalize()
	start := params.Page * params.Size
	if start > len(all) {
		start = len(all)
	}
	end := start + params.Size
	if end > len(all) {
		end = len(all)
	}
	return NewPage(append([]T(nil), all[start:end]...), len(all), params)
}

// IsEmpty reports whether the page carries no elements.
func (p Page[T]) IsEmpty() bool {
	return len(p.Content) == 0
}

// InRange reports whether n is a navigable page index, i.e. 0 <= n < TotalPages.
func (p Page[T]) InRange(n int) bool {
	return n >= 0 && n < p.TotalPages
}

// HasNext reports whether a page follows this one.
func (p Page[T]) HasNext() bool {
	return p.InRange(p.Number + 1)
}

// HasPrev reports whether a page precedes this one.
func (p Page[T]) HasPrev() bool {
	return p.Number > 0 && p.InRange(p.Number-1)
}
