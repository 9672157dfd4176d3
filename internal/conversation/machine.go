// Package conversation implements the booking dialog: city, trip dates,
// excursion type and sort order.
//
// The Machine is transport-neutral. It reads and writes sessions through
// storage.Storage and talks to the user through Output. Calls for the same
// chat must not run concurrently.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tripfriend_bot/internal/calendar"
	"tripfriend_bot/internal/destinations"
	"tripfriend_bot/internal/model"
	"tripfriend_bot/internal/sorting"
	"tripfriend_bot/internal/storage"
)

// Output delivers messages to a chat.
type Output interface {
	SendText(chatID int64, text string) error
	// SendKeyboard sends text with a reply keyboard of button labels.
	SendKeyboard(chatID int64, text string, rows [][]string) error
	SendDatePicker(chatID int64, text string, picker calendar.Picker) error
	// SendExcursion sends one listing. An empty imageURL means no image.
	SendExcursion(chatID int64, imageURL, caption string) error
}

// Searcher finds excursions for a query.
type Searcher interface {
	Search(ctx context.Context, p model.SearchParams) ([]model.Excursion, error)
}

// ValidationError reports user input that is not valid in the current state.
// The session is left unchanged and the user has been re-prompted.
type ValidationError struct {
	State model.State
	Input string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %q in state %s", e.Input, e.State)
}

// Machine drives the booking dialog.
type Machine struct {
	store   storage.Storage
	search  Searcher
	cities  *destinations.Table
	out     Output
	siteURL string
	now     func() time.Time
	log     *slog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces the wall clock used for date ranges and timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// New creates a Machine. siteURL is the base for links in captions.
func New(
	store storage.Storage,
	search Searcher,
	cities *destinations.Table,
	out Output,
	siteURL string,
	log *slog.Logger,
	opts ...Option,
) *Machine {
	m := &Machine{
		store:   store,
		search:  search,
		cities:  cities,
		out:     out,
		siteURL: siteURL,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start resets the chat to the initial state and greets the user.
func (m *Machine) Start(ctx context.Context, chatID int64) error {
	sess := model.NewSession(chatID)
	if err := m.save(ctx, sess); err != nil {
		return m.fail(chatID, err)
	}
	return m.out.SendKeyboard(chatID, welcomeText, cityRows)
}

// Help sends usage instructions without touching the session.
func (m *Machine) Help(_ context.Context, chatID int64) error {
	return m.out.SendText(chatID, helpText)
}

// HandleCancel abandons the dialog from the date picker and starts over.
func (m *Machine) HandleCancel(ctx context.Context, chatID int64) error {
	return m.Start(ctx, chatID)
}

// HandleText processes a text message according to the chat's state.
func (m *Machine) HandleText(ctx context.Context, chatID int64, text string) error {
	sess, err := m.load(ctx, chatID)
	if err != nil {
		return m.fail(chatID, err)
	}

	switch sess.State {
	case model.StateAwaitingCity:
		return m.chooseCity(ctx, sess, text)
	case model.StateAwaitingStartDate, model.StateAwaitingEndDate:
		picker, _ := m.pickerFor(sess)
		if err := m.out.SendDatePicker(chatID, useCalendarText, picker); err != nil {
			return err
		}
		return &ValidationError{State: sess.State, Input: text}
	case model.StateAwaitingTypeFilter:
		return m.chooseType(ctx, sess, text)
	case model.StateAwaitingSortChoice:
		return m.chooseSort(ctx, sess, text)
	default:
		m.log.Warn("unknown session state, resetting", "chat_id", chatID, "state", sess.State)
		return m.Start(ctx, chatID)
	}
}

// HandleDate processes a date picked in the calendar.
func (m *Machine) HandleDate(ctx context.Context, chatID int64, date time.Time) error {
	sess, err := m.load(ctx, chatID)
	if err != nil {
		return m.fail(chatID, err)
	}
	date = calendar.Date(date)

	picker, ok := m.pickerFor(sess)
	if !ok || !picker.Contains(date) {
		return &ValidationError{State: sess.State, Input: date.Format(time.DateOnly)}
	}

	switch sess.State {
	case model.StateAwaitingStartDate:
		sess.StartDate = date
		sess.State = model.StateAwaitingEndDate
		if err := m.save(ctx, sess); err != nil {
			return m.fail(chatID, err)
		}
		if err := m.out.SendText(chatID, fmt.Sprintf(pickedDateText, date.Format(displayDateLayout))); err != nil {
			return err
		}
		end := calendar.New(date, date.AddDate(1, 0, 0), date.Year(), date.Month())
		return m.out.SendDatePicker(chatID, endDateText, end)

	case model.StateAwaitingEndDate:
		sess.EndDate = date
		sess.State = model.StateAwaitingTypeFilter
		if err := m.save(ctx, sess); err != nil {
			return m.fail(chatID, err)
		}
		return m.out.SendKeyboard(chatID, fmt.Sprintf(pickedDateText, date.Format(displayDateLayout)), typeRows)

	case model.StateAwaitingCity, model.StateAwaitingTypeFilter, model.StateAwaitingSortChoice:
	}
	return &ValidationError{State: sess.State, Input: date.Format(time.DateOnly)}
}

// Picker returns the date picker the chat is currently expected to use.
func (m *Machine) Picker(ctx context.Context, chatID int64) (calendar.Picker, bool) {
	sess, err := m.load(ctx, chatID)
	if err != nil {
		m.log.Error("load session", "chat_id", chatID, "error", err)
		return calendar.Picker{}, false
	}
	return m.pickerFor(sess)
}

func (m *Machine) pickerFor(sess *model.Session) (calendar.Picker, bool) {
	switch sess.State {
	case model.StateAwaitingStartDate:
		today := calendar.Date(m.now())
		return calendar.New(today.AddDate(0, 0, -1), today.AddDate(1, 0, 0), today.Year(), today.Month()), true
	case model.StateAwaitingEndDate:
		start := sess.StartDate
		return calendar.New(start, start.AddDate(1, 0, 0), start.Year(), start.Month()), true
	case model.StateAwaitingCity, model.StateAwaitingTypeFilter, model.StateAwaitingSortChoice:
	}
	return calendar.Picker{}, false
}

func (m *Machine) chooseCity(ctx context.Context, sess *model.Session, text string) error {
	if _, ok := m.cities.Lookup(text); !ok {
		prompt := unknownCityText
		if name, ok := m.cities.Suggest(text); ok {
			prompt = fmt.Sprintf(suggestText, titleCase(name)) + "\n" + prompt
		}
		if err := m.out.SendKeyboard(sess.ChatID, prompt, cityRows); err != nil {
			return err
		}
		return &ValidationError{State: sess.State, Input: text}
	}

	sess.City = destinations.Normalize(text)
	sess.State = model.StateAwaitingStartDate
	if err := m.save(ctx, sess); err != nil {
		return m.fail(sess.ChatID, err)
	}
	picker, _ := m.pickerFor(sess)
	return m.out.SendDatePicker(sess.ChatID, startDateText, picker)
}

func (m *Machine) chooseType(ctx context.Context, sess *model.Session, text string) error {
	filter, ok := ParseTypeLabel(text)
	if !ok {
		if err := m.out.SendKeyboard(sess.ChatID, unknownTypeText, typeRows); err != nil {
			return err
		}
		return &ValidationError{State: sess.State, Input: text}
	}

	cityURL, ok := m.cities.Lookup(sess.City)
	if !ok {
		m.log.Warn("stored city no longer known, restarting", "chat_id", sess.ChatID, "city", sess.City)
		return m.Start(ctx, sess.ChatID)
	}

	if err := m.out.SendText(sess.ChatID, searchProgressText); err != nil {
		m.log.Warn("send progress", "chat_id", sess.ChatID, "error", err)
	}

	excursions, err := m.search.Search(ctx, model.SearchParams{
		CityURL:   cityURL,
		StartDate: sess.StartDate,
		EndDate:   sess.EndDate,
		Sort:      model.SortRating,
		Type:      filter,
	})
	if err != nil {
		m.log.Error("search excursions", "chat_id", sess.ChatID, "city", sess.City, "error", err)
		return m.out.SendKeyboard(sess.ChatID, fetchFailedText, typeRows)
	}
	if len(excursions) == 0 {
		return m.out.SendKeyboard(sess.ChatID, nothingFoundText, typeRows)
	}

	sess.Type = filter
	sess.Excursions = excursions
	sess.State = model.StateAwaitingSortChoice
	if err := m.save(ctx, sess); err != nil {
		return m.fail(sess.ChatID, err)
	}

	m.render(sess.ChatID, excursions)
	return m.out.SendKeyboard(sess.ChatID, sortPromptText, sortRows)
}

func (m *Machine) chooseSort(ctx context.Context, sess *model.Session, text string) error {
	key, ok := ParseSortLabel(text)
	if !ok {
		if err := m.out.SendKeyboard(sess.ChatID, unknownSortText, sortRows); err != nil {
			return err
		}
		return &ValidationError{State: sess.State, Input: text}
	}

	// Saving refreshes UpdatedAt so an active chat does not expire.
	if err := m.save(ctx, sess); err != nil {
		m.log.Warn("touch session", "chat_id", sess.ChatID, "error", err)
	}
	m.render(sess.ChatID, sorting.Sort(sess.Excursions, key))
	return nil
}

// render sends every excursion. A failed message does not stop the rest.
func (m *Machine) render(chatID int64, excursions []model.Excursion) {
	for _, e := range excursions {
		if err := m.out.SendExcursion(chatID, e.ImageURL, FormatCaption(e, m.siteURL)); err != nil {
			m.log.Warn("send excursion", "chat_id", chatID, "excursion_id", e.ID, "error", err)
		}
	}
}

func (m *Machine) load(ctx context.Context, chatID int64) (*model.Session, error) {
	sess, err := m.store.GetSession(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.NewSession(chatID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

func (m *Machine) save(ctx context.Context, sess *model.Session) error {
	sess.UpdatedAt = m.now().UTC()
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// fail reports an internal error to the user and returns it for logging.
func (m *Machine) fail(chatID int64, err error) error {
	if sendErr := m.out.SendText(chatID, internalErrorText); sendErr != nil {
		m.log.Warn("send error message", "chat_id", chatID, "error", sendErr)
	}
	return err
}
