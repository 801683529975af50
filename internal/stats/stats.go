package stats

import (
	"fmt"

	"github.com/hakimbdev/items-api/internal/items"
	"github.com/shopspring/decimal"
)

// Summary is the statistics derived from the full item list.
type Summary struct {
	Total        int                      `json:"total"`
	AveragePrice float64                  `json:"averagePrice"`
	TotalValue   float64                  `json:"totalValue"`
	Categories   map[string]CategoryStats `json:"categories"`
	PriceRange   PriceRange               `json:"priceRange"`
}

// CategoryStats contains statistics for a single category
type CategoryStats struct {
	Count      int     `json:"count"`
	TotalValue float64 `json:"totalValue"`
}

// PriceRange holds the lowest and highest item price
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Compute builds a Summary in a single pass over list.
//
// Money values are rounded to 2 decimal places, half away from zero.
// Category keys are used verbatim, so "Books" and "books" are separate.
func Compute(list []items.Item) Summary {
	summary := Summary{
		Categories: make(map[string]CategoryStats),
	}
	if len(list) == 0 {
		return summary
	}

	type bucket struct {
		count int
		sum   decimal.Decimal
	}

	sum := decimal.Zero
	buckets := make(map[string]*bucket)
	minPrice, maxPrice := list[0].Price, list[0].Price

	for _, it := range list {
		price := decimal.NewFromFloat(it.Price)
		sum = sum.Add(price)

		b, ok := buckets[it.Category]
		if !ok {
			b = &bucket{sum: decimal.Zero}
			buckets[it.Category] = b
		}
		b.count++
		b.sum = b.sum.Add(price)

		if it.Price < minPrice {
			minPrice = it.Price
		}
		if it.Price > maxPrice {
			maxPrice = it.Price
		}
	}

	count := decimal.NewFromInt(int64(len(list)))

	summary.Total = len(list)
	summary.AveragePrice = round2(sum.Div(count))
	summary.TotalValue = round2(sum)
	summary.PriceRange = PriceRange{Min: minPrice, Max: maxPrice}
	for name, b := range buckets {
		summary.Categories[name] = CategoryStats{
			Count:      b.count,
			TotalValue: round2(b.sum),
		}
	}

	return summary
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// FormatMoney formats a value with two decimals for terminal output
func FormatMoney(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
