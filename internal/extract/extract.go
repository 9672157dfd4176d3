// Package extract turns an excursion search-results page into structured records.
//
// All markup knowledge (selectors and text patterns) lives in this package so
// upstream layout changes only touch one place.
package extract

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tripfriend_bot/internal/model"
)

// ErrMissingField is wrapped by MalformedError when a required field is absent.
var ErrMissingField = errors.New("missing required field")

// MalformedError describes a listing that was skipped.
type MalformedError struct {
	Rank  int
	Field string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("listing %d: %s: %v", e.Rank, e.Field, ErrMissingField)
}

func (e *MalformedError) Unwrap() error {
	return ErrMissingField
}

// Result holds the outcome of parsing one listings page.
type Result struct {
	Excursions []model.Excursion
	Malformed  []error
}

var idPattern = regexp.MustCompile(`\d+`)

// Parse reads a listings page and extracts at most MaxListings records in page
// order. Listings missing a required field are reported in Result.Malformed and
// skipped; the rest of the page is still returned.
func Parse(r io.Reader) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	res := &Result{}
	var records []model.Excursion
	doc.Find(ListingSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= MaxListings {
			return false
		}
		ex, err := parseListing(s, i+1)
		if err != nil {
			res.Malformed = append(res.Malformed, err)
			return true
		}
		records = append(records, ex)
		return true
	})

	res.Excursions = Dedupe(records)
	return res, nil
}

// ParseString is Parse for markup already held in memory.
func ParseString(markup string) (*Result, error) {
	return Parse(strings.NewReader(markup))
}

func parseListing(s *goquery.Selection, rank int) (model.Excursion, error) {
	href := strings.TrimSpace(s.Find(HeaderLinkSelector).First().AttrOr("href", ""))
	id := idPattern.FindString(href)
	if id == "" {
		return model.Excursion{}, &MalformedError{Rank: rank, Field: "id"}
	}

	title, ok := text(s, TitleSelector)
	if !ok {
		return model.Excursion{}, &MalformedError{Rank: rank, Field: "title"}
	}
	desc, ok := text(s, TaglineSelector)
	if !ok {
		return model.Excursion{}, &MalformedError{Rank: rank, Field: "description"}
	}
	category, ok := text(s, CategorySelector)
	if !ok {
		return model.Excursion{}, &MalformedError{Rank: rank, Field: "category"}
	}

	ex := model.Excursion{
		ID:           id,
		Title:        title,
		Description:  desc,
		Category:     category,
		PriceText:    MissingPriceText,
		Rank:         rank,
		DurationText: missingDurationText,
		URL:          href,
	}

	if v, ok := text(s, PriceSelector); ok {
		ex.PriceText = v
		ex.Price, _ = ParsePrice(v)
	}
	if v, ok := text(s, ReviewsSelector); ok {
		if n, ok := ParseReviews(v); ok {
			ex.Reviews = &n
		}
	}
	if v, ok := text(s, RatingSelector); ok {
		if r, ok := ParseRating(v); ok {
			ex.Rating = &r
		}
	}
	if v, ok := text(s, DurationSelector); ok {
		ex.DurationText = v
		ex.Duration, _ = ParseDuration(v)
	}
	if v, ok := text(s, MovementSelector); ok {
		ex.Movement = v
	}
	if img := s.Find(ImageSelector).First(); img.Length() > 0 {
		ex.ImageURL = strings.TrimSpace(img.AttrOr(LazyImageAttr, ""))
	}
	return ex, nil
}

// text returns the whitespace-normalized text of the first match of sel.
// A missing node reports false; an empty node reports ("", true).
func text(s *goquery.Selection, sel string) (string, bool) {
	node := s.Find(sel).First()
	if node.Length() == 0 {
		return "", false
	}
	return strings.Join(strings.Fields(node.Text()), " "), true
}

// Dedupe removes repeated listings by ID. The output keeps the position and
// rank of the first occurrence while the later occurrence's fields win.
func Dedupe(records []model.Excursion) []model.Excursion {
	out := make([]model.Excursion, 0, len(records))
	index := make(map[string]int, len(records))
	for _, r := range records {
		if pos, ok := index[r.ID]; ok {
			rank := out[pos].Rank
			out[pos] = r
			out[pos].Rank = rank
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
