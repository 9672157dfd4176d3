// Package calendar renders a month-grid date picker and decodes its button presses.
//
// The picker is transport-neutral: it produces rows of labelled buttons with
// callback data, and the bot turns them into an inline keyboard.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	callbackPrefix = "cal:"
	dayLayout      = "20060102"
	monthLayout    = "200601"
)

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

var weekdayNames = [...]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// Button is one cell of the picker.
type Button struct {
	Text string
	Data string
}

// Picker is a date picker limited to [Min, Max] and showing one month.
type Picker struct {
	Min   time.Time
	Max   time.Time
	Year  int
	Month time.Month
}

// New creates a picker for the inclusive range [minDate, maxDate] showing the
// given month. The shown month is clamped into the range.
func New(minDate, maxDate time.Time, year int, month time.Month) Picker {
	p := Picker{Min: Date(minDate), Max: Date(maxDate)}
	return p.WithMonth(year, month)
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WithMonth returns a copy of p showing another month, clamped into range.
func (p Picker) WithMonth(year int, month time.Month) Picker {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	if minFirst := firstOfMonth(p.Min); first.Before(minFirst) {
		first = minFirst
	}
	if maxFirst := firstOfMonth(p.Max); first.After(maxFirst) {
		first = maxFirst
	}
	p.Year, p.Month = first.Year(), first.Month()
	return p
}

// Contains reports whether d falls within the selectable range.
func (p Picker) Contains(d time.Time) bool {
	d = Date(d)
	return !d.Before(p.Min) && !d.After(p.Max)
}

// HasPrev reports whether the month before the shown one has selectable days.
func (p Picker) HasPrev() bool {
	return p.shown().After(firstOfMonth(p.Min))
}

// HasNext reports whether the month after the shown one has selectable days.
func (p Picker) HasNext() bool {
	return p.shown().Before(firstOfMonth(p.Max))
}

func (p Picker) shown() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Title is the caption of the shown month, e.g. "Июнь 2025".
func (p Picker) Title() string {
	return fmt.Sprintf("%s %d", monthNames[p.Month-1], p.Year)
}

// Grid lays out the shown month: a title row, a weekday row, one row per week
// starting on Monday, and a navigation row.
func (p Picker) Grid() [][]Button {
	ignore := ignoreData()
	rows := [][]Button{{{Text: p.Title(), Data: ignore}}}

	header := make([]Button, 0, len(weekdayNames))
	for _, name := range weekdayNames {
		header = append(header, Button{Text: name, Data: ignore})
	}
	rows = append(rows, header)

	first := p.shown()
	days := first.AddDate(0, 1, -1).Day()
	offset := (int(first.Weekday()) + 6) % 7

	week := make([]Button, 0, 7)
	for i := 0; i < offset; i++ {
		week = append(week, Button{Text: " ", Data: ignore})
	}
	for day := 1; day <= days; day++ {
		d := time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
		week = append(week, Button{Text: fmt.Sprint(day), Data: DayData(d)})
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]Button, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, Button{Text: " ", Data: ignore})
		}
		rows = append(rows, week)
	}

	nav := []Button{{Text: " ", Data: ignore}, {Text: "Отмена", Data: CancelData()}, {Text: " ", Data: ignore}}
	if p.HasPrev() {
		nav[0] = Button{Text: "<<", Data: MonthData(first.AddDate(0, -1, 0))}
	}
	if p.HasNext() {
		nav[2] = Button{Text: ">>", Data: MonthData(first.AddDate(0, 1, 0))}
	}
	return append(rows, nav)
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Kind identifies a picker button press.
type Kind int

// Button press kinds.
const (
	KindIgnore Kind = iota
	KindDay
	KindMonth
	KindCancel
)

// Action is a decoded picker button press. Date holds the picked day for
// KindDay and the first day of the target month for KindMonth.
type Action struct {
	Kind Kind
	Date time.Time
}

// ErrNotCalendar is returned for callback data that does not belong to the picker.
var ErrNotCalendar = errors.New("not a calendar callback")

// DayData encodes a day pick.
func DayData(d time.Time) string { return callbackPrefix + "d:" + d.Format(dayLayout) }

// MonthData encodes a month switch.
func MonthData(d time.Time) string { return callbackPrefix + "m:" + d.Format(monthLayout) }

// CancelData encodes the cancel button.
func CancelData() string { return callbackPrefix + "c" }

func ignoreData() string { return callbackPrefix + "n" }

// IsCallback reports whether data was produced by the picker.
func IsCallback(data string) bool {
	return strings.HasPrefix(data, callbackPrefix)
}

// ParseCallback decodes picker callback data.
func ParseCallback(data string) (Action, error) {
	rest, ok := strings.CutPrefix(data, callbackPrefix)
	if !ok {
		return Action{}, ErrNotCalendar
	}
	kind, value, _ := strings.Cut(rest, ":")
	switch kind {
	case "n":
		return Action{Kind: KindIgnore}, nil
	case "c":
		return Action{Kind: KindCancel}, nil
	case "d":
		d, err := time.Parse(dayLayout, value)
		if err != nil {
			return Action{}, fmt.Errorf("parse day %q: %w", value, err)
		}
		return Action{Kind: KindDay, Date: d}, nil
	case "m":
		d, err := time.Parse(monthLayout, value)
		if err != nil {
			return Action{}, fmt.Errorf("parse month %q: %w", value, err)
		}
		return Action{Kind: KindMonth, Date: d}, nil
	default:
		return Action{}, fmt.Errorf("unknown calendar action %q", kind)
	}
}
