package account

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PriceCatalog resolves combo prices
type PriceCatalog interface {
	Price(combo string) (decimal.Decimal, error)
	Combos() []string
}

// StaticCatalog is a fixed combo price table
type StaticCatalog struct {
	prices map[string]decimal.Decimal
}

// NewStaticCatalog builds a catalog; combo names are case-insensitive
func NewStaticCatalog(prices map[string]decimal.Decimal) *StaticCatalog {
	normalized := make(map[string]decimal.Decimal, len(prices))
	for name, price := range prices {
		normalized[strings.ToUpper(name)] = price
	}
	return &StaticCatalog{prices: normalized}
}

// ParseCatalog builds a catalog from decimal strings as read from configuration
func ParseCatalog(raw map[string]string) (*StaticCatalog, error) {
	prices := make(map[string]decimal.Decimal, len(raw))
	for name, value := range raw {
		price, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("combo %s: invalid price %q: %w", name, value, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("combo %s: price cannot be negative", name)
		}
		prices[name] = price
	}
	return NewStaticCatalog(prices), nil
}

// Price returns the price of combo or a validation error for unknown combos
func (c *StaticCatalog) Price(combo string) (decimal.Decimal, error) {
	price, ok := c.prices[strings.ToUpper(combo)]
	if !ok {
		return decimal.Zero, shared.NewValidationError(fmt.Sprintf("Unknown combo type %s", combo))
	}
	return price, nil
}

// Combos lists the known combo names in order
func (c *StaticCatalog) Combos() []string {
	names := make([]string, 0, len(c.prices))
	for name := range c.prices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
