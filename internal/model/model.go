// Package model defines the domain types used across the application.
package model

import (
	"errors"
	"time"
)

// Excursion is a single listing extracted from the search-results page.
type Excursion struct {
	ID           string
	Title        string
	Description  string
	Category     string
	PriceText    string
	Price        int
	Reviews      *int
	Rating       *float64
	Rank         int
	Duration     float64
	DurationText string
	Movement     string
	URL          string
	ImageURL     string
}

// RatingValue returns the rating or 0 when the listing has none.
func (e Excursion) RatingValue() float64 {
	if e.Rating == nil {
		return 0
	}
	return *e.Rating
}

// ReviewCount returns the number of reviews or 0 when absent.
func (e Excursion) ReviewCount() int {
	if e.Reviews == nil {
		return 0
	}
	return *e.Reviews
}

// SortMode selects the ordering requested from the upstream site.
type SortMode string

// Supported sort modes.
const (
	SortDefault SortMode = "default"
	SortRating  SortMode = "rating"
)

// TypeFilter narrows listings by excursion format.
type TypeFilter string

// Supported type filters.
const (
	TypeAll     TypeFilter = "all"
	TypeGroup   TypeFilter = "group"
	TypePrivate TypeFilter = "private"
)

// SortKey selects how a fetched list is re-ordered for display.
type SortKey string

// Supported sort keys.
const (
	SortByDuration SortKey = "duration"
	SortByPrice    SortKey = "price"
	SortByRating   SortKey = "rating"
)

// SearchParams describes one listings query.
type SearchParams struct {
	CityURL   string
	StartDate time.Time
	EndDate   time.Time
	Sort      SortMode
	Type      TypeFilter
}

// Validate checks the invariants of a query.
func (p SearchParams) Validate() error {
	if p.CityURL == "" {
		return errors.New("city url is required")
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return errors.New("start and end dates are required")
	}
	if p.EndDate.Before(p.StartDate) {
		return errors.New("end date is before start date")
	}
	return nil
}

// State is a step of the booking conversation.
type State string

// Conversation states. StateAwaitingCity is also the initial state.
const (
	StateAwaitingCity       State = "awaiting_city"
	StateAwaitingStartDate  State = "awaiting_start_date"
	StateAwaitingEndDate    State = "awaiting_end_date"
	StateAwaitingTypeFilter State = "awaiting_type_filter"
	StateAwaitingSortChoice State = "awaiting_sort_choice"
)

// Session is the conversation progress of one chat.
type Session struct {
	ChatID     int64
	State      State
	City       string
	StartDate  time.Time
	EndDate    time.Time
	Type       TypeFilter
	Excursions []Excursion
	UpdatedAt  time.Time
}

// NewSession returns a session in the initial state.
func NewSession(chatID int64) *Session {
	return &Session{
		ChatID: chatID,
		State:  StateAwaitingCity,
	}
}

// Reset drops all collected choices and returns to the initial state.
func (s *Session) Reset() {
	*s = Session{ChatID: s.ChatID, State: StateAwaitingCity}
}
