// Package market narrows and orders marketplace listings from query
// parameters.
package market

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jredh-dev/rooted/internal/validation"
	"github.com/jredh-dev/rooted/pkg/models"
)

// Sort orders.
const (
	SortNewest      = "newest"
	SortPriceLow    = "price-low"
	SortPriceHigh   = "price-high"
	SortHarvestSoon = "harvest-soon"
	SortQuantity    = "quantity"
)

// harvestWindows maps a harvest range name to its length in days.
var harvestWindows = map[string]int{
	"week":   7,
	"month":  30,
	"season": 90,
}

// Filter selects and orders listed crops. Zero values match everything.
type Filter struct {
	Query    string
	CropType string
	MinPrice *float64
	MaxPrice *float64
	Harvest  string
	Sort     string
}

// ParseFilter reads a Filter from URL query parameters. Malformed values
// are reported as *validation.Error.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Query:    strings.ToLower(validation.Clean(q.Get("q"))),
		CropType: strings.ToLower(validation.Clean(q.Get("cropType"))),
		Harvest:  strings.ToLower(validation.Clean(q.Get("harvest"))),
		Sort:     strings.ToLower(validation.Clean(q.Get("sort"))),
	}
	if f.CropType == "all crops" {
		f.CropType = ""
	}

	var err error
	if f.MinPrice, err = parsePrice(q, "minPrice"); err != nil {
		return Filter{}, err
	}
	if f.MaxPrice, err = parsePrice(q, "maxPrice"); err != nil {
		return Filter{}, err
	}

	switch f.Harvest {
	case "", "all":
		f.Harvest = ""
	default:
		if _, ok := harvestWindows[f.Harvest]; !ok {
			return Filter{}, &validation.Error{Field: "harvest", Rule: "oneof", Message: "harvest must be one of: week month season all"}
		}
	}

	switch f.Sort {
	case "":
		f.Sort = SortNewest
	case SortNewest, SortPriceLow, SortPriceHigh, SortHarvestSoon, SortQuantity:
	default:
		return Filter{}, &validation.Error{
			Field:   "sort",
			Rule:    "oneof",
			Message: "sort must be one of: newest price-low price-high harvest-soon quantity",
		}
	}
	return f, nil
}

func parsePrice(q url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, &validation.Error{Field: key, Rule: "number", Message: fmt.Sprintf("%s must be a non-negative number", key)}
	}
	return &v, nil
}

func (f Filter) match(c models.Crop, now time.Time) bool {
	name := strings.ToLower(c.CropName)
	if f.Query != "" && !strings.Contains(name, f.Query) {
		return false
	}
	if f.CropType != "" && !strings.Contains(name, f.CropType) {
		return false
	}
	if f.MinPrice != nil && c.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && c.Price > *f.MaxPrice {
		return false
	}
	if days, ok := harvestWindows[f.Harvest]; ok {
		start := now.Truncate(24 * time.Hour)
		end := now.AddDate(0, 0, days)
		if c.HarvestDate.Before(start) || c.HarvestDate.After(end) {
			return false
		}
	}
	return true
}

// Apply returns the crops matching f in the requested order. The input
// slice is not modified.
func (f Filter) Apply(crops []models.Crop, now time.Time) []models.Crop {
	out := make([]models.Crop, 0, len(crops))
	for _, c := range crops {
		if f.match(c, now) {
			out = append(out, c)
		}
	}

	var cmp func(a, b models.Crop) int
	switch f.Sort {
	case SortPriceLow:
		cmp = func(a, b models.Crop) int { return compareFloat(a.Price, b.Price) }
	case SortPriceHigh:
		cmp = func(a, b models.Crop) int { return compareFloat(b.Price, a.Price) }
	case SortHarvestSoon:
		cmp = func(a, b models.Crop) int { return a.HarvestDate.Compare(b.HarvestDate) }
	case SortQuantity:
		cmp = func(a, b models.Crop) int { return b.Quantity - a.Quantity }
	default:
		cmp = func(a, b models.Crop) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
