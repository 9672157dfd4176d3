// Package sorting re-orders fetched excursion lists for display.
package sorting

import (
	"cmp"
	"slices"

	"tripfriend_bot/internal/model"
)

// Sort returns a copy of records ordered by key. The sort is stable, so records
// with equal keys keep their page order. The input slice is never modified.
// An unknown key returns the copy in its original order.
func Sort(records []model.Excursion, key model.SortKey) []model.Excursion {
	out := slices.Clone(records)
	switch key {
	case model.SortByDuration:
		slices.SortStableFunc(out, func(a, b model.Excursion) int {
			return cmp.Compare(a.Duration, b.Duration)
		})
	case model.SortByPrice:
		slices.SortStableFunc(out, func(a, b model.Excursion) int {
			return cmp.Compare(a.Price, b.Price)
		})
	case model.SortByRating:
		slices.SortStableFunc(out, func(a, b model.Excursion) int {
			return cmp.Compare(b.RatingValue(), a.RatingValue())
		})
	}
	return out
}
