// Package pricing maps item codes to MMK prices.
//
// Resolution order: admin override from settings, then the parametric
// weekly-pass rule, then the static diamond catalog. First match wins;
// an unmatched code is unpriced and must be treated as a validation
// error by callers, never as a zero price.
package pricing

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// ErrUnpriced is returned when no rule prices the item code.
var ErrUnpriced = errors.New("item code has no price")

// Weekly-pass parametric rule: "wp<n>" buys n weekly passes at the
// configured per-pass rate, for n within the inclusive bounds.
const (
	WeeklyPassPrefix = "wp"
	MinWeeklyPasses  = 1
	MaxWeeklyPasses  = 10
)

// catalog holds the built-in MLBB diamond packs keyed by exact code,
// priced in MMK.
var catalog = map[string]int64{
	"11":       1000,
	"22":       2000,
	"56":       4900,
	"86":       7100,
	"112":      9200,
	"172":      14200,
	"257":      21100,
	"343":      28100,
	"429":      35100,
	"514":      42000,
	"600":      49000,
	"706":      56500,
	"878":      70500,
	"963":      77500,
	"1049":     84500,
	"1135":     91500,
	"1412":     113000,
	"2195":     169000,
	"3688":     281500,
	"5532":     422000,
	"9288":     702500,
	"wkp":      6200,
	"twilight": 35500,
}

// OverrideSource supplies admin price overrides.
// *repository.SettingsRepository satisfies it.
type OverrideSource interface {
	PriceOverride(ctx context.Context, itemCode string) (int64, bool, error)
}

// Resolver resolves item codes to prices.
type Resolver struct {
	overrides      OverrideSource
	weeklyPassRate int64
}

// NewResolver creates a Resolver consulting the given override source.
func NewResolver(overrides OverrideSource, weeklyPassRate int64) *Resolver {
	return &Resolver{
		overrides:      overrides,
		weeklyPassRate: weeklyPassRate,
	}
}

// Resolve returns the price for an item code, or ErrUnpriced.
func (r *Resolver) Resolve(ctx context.Context, itemCode string) (int64, error) {
	// 1. Admin override, exact match.
	if r.overrides != nil {
		price, ok, err := r.overrides.PriceOverride(ctx, itemCode)
		if err != nil {
			return 0, err
		}
		if ok {
			return price, nil
		}
	}

	// 2. Parametric weekly-pass rule.
	if price, ok := r.resolveWeeklyPass(itemCode); ok {
		return price, nil
	}

	// 3. Static catalog, exact match.
	if price, ok := catalog[itemCode]; ok {
		return price, nil
	}

	return 0, ErrUnpriced
}

// resolveWeeklyPass prices codes of the form "wp<n>". The suffix must
// be the plain decimal digits of n, so "wp+3" and "wp03" are not
// parametric. Codes with n outside the bounds are not parametric
// either.
func (r *Resolver) resolveWeeklyPass(itemCode string) (int64, bool) {
	suffix, ok := strings.CutPrefix(itemCode, WeeklyPassPrefix)
	if !ok || suffix == "" {
		return 0, false
	}

	n, err := strconv.Atoi(suffix)
	if err != nil || strconv.Itoa(n) != suffix {
		return 0, false
	}
	if n < MinWeeklyPasses || n > MaxWeeklyPasses {
		return 0, false
	}

	return int64(n) * r.weeklyPassRate, true
}

// CatalogCodes returns the built-in item codes, for display.
func CatalogCodes() []string {
	codes := make([]string, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}
	return codes
}

// CatalogPrice looks up the static catalog only, bypassing overrides.
func CatalogPrice(itemCode string) (int64, bool) {
	price, ok := catalog[itemCode]
	return price, ok
}
