package cart

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("cart not found")

type Type string

const (
	TypeKnown     Type = "KNOWN"
	TypeAnonymous Type = "ANONYMOUS"
)

type Currency string

const (
	GBP Currency = "GBP"
	USD Currency = "USD"
)

func (c Currency) Valid() bool { return c == GBP || c == USD }

type Item struct {
	SKU      string `json:"sku"`
	Quantity int32  `json:"quantity"`
}

type Cart struct {
	ID         uuid.UUID
	CustomerID *uuid.UUID
	Type       Type
	Currency   Currency
	Items      []Item
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MergeItems folds anonymous into known. Quantities of SKUs present in both
// are summed; known's ordering is kept and new SKUs are appended in the
// order they appear in anonymous.
func MergeItems(known, anonymous []Item) []Item {
	out := make([]Item, 0, len(known)+len(anonymous))
	idx := make(map[string]int, len(known)+len(anonymous))
	for _, list := range [][]Item{known, anonymous} {
		for _, it := range list {
			if i, ok := idx[it.SKU]; ok {
				out[i].Quantity += it.Quantity
				continue
			}
			idx[it.SKU] = len(out)
			out = append(out, it)
		}
	}
	return out
}
