package pagination

// Page-number pagination used by the storefront and admin dashboards.

const (
	// DefaultSize is the standard page size when one is not provided.
	DefaultSize = 20
	// MaxSize caps how many rows any paged query can request.
	MaxSize = 100
)

// Params holds page/size inputs from controllers or services.
type Params struct {
	Page int
	Size int
}

// Normalize clamps the page and size into their allowed ranges.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultSize
	}
	if p.Size > MaxSize {
		p.Size = MaxSize
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Size
}

// Pages returns the number of pages needed for total rows.
func (p Params) Pages(total int64) int {
	n := p.Normalize()
	if total <= 0 {
		return 0
	}
	pages := total / int64(n.Size)
	if total%int64(n.Size) != 0 {
		pages++
	}
	return int(pages)
}
