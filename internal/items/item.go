// Package items persists item records as a single JSON array on disk.
package items

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Store errors.
var (
	ErrNotFound    = errors.New("item not found")
	ErrInvalidItem = errors.New("invalid item")
)

// Item is a single catalogue record.
type Item struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// NewItem is the payload accepted when creating an item.
type NewItem struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// Validate trims the text fields in place and checks the payload.
// The returned error wraps ErrInvalidItem.
func (n *NewItem) Validate() error {
	n.Name = strings.TrimSpace(n.Name)
	n.Category = strings.TrimSpace(n.Category)

	if n.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if n.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidItem)
	}
	if math.IsNaN(n.Price) || math.IsInf(n.Price, 0) {
		return fmt.Errorf("%w: price must be a finite number", ErrInvalidItem)
	}
	if n.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidItem)
	}
	return nil
}
