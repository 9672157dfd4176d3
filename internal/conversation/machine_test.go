package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tripfriend_bot/internal/calendar"
	"tripfriend_bot/internal/destinations"
	"tripfriend_bot/internal/model"
	"tripfriend_bot/internal/storage"
)

const (
	testChatID = int64(100)
	moscowURL  = "https://experience.tripster.ru/experience/Moscow/"
)

type message struct {
	Kind   string
	Text   string
	Rows   [][]string
	Picker calendar.Picker
	Image  string
}

type mockOutput struct {
	messages []message
}

func (o *mockOutput) SendText(_ int64, text string) error {
	o.messages = append(o.messages, message{Kind: "text", Text: text})
	return nil
}

func (o *mockOutput) SendKeyboard(_ int64, text string, rows [][]string) error {
	o.messages = append(o.messages, message{Kind: "keyboard", Text: text, Rows: rows})
	return nil
}

func (o *mockOutput) SendDatePicker(_ int64, text string, picker calendar.Picker) error {
	o.messages = append(o.messages, message{Kind: "picker", Text: text, Picker: picker})
	return nil
}

func (o *mockOutput) SendExcursion(_ int64, imageURL, caption string) error {
	o.messages = append(o.messages, message{Kind: "excursion", Text: caption, Image: imageURL})
	return nil
}

func (o *mockOutput) last() message {
	if len(o.messages) == 0 {
		return message{}
	}
	return o.messages[len(o.messages)-1]
}

func (o *mockOutput) images() []string {
	var out []string
	for _, m := range o.messages {
		if m.Kind == "excursion" {
			out = append(out, m.Image)
		}
	}
	return out
}

func (o *mockOutput) reset() {
	o.messages = nil
}

type mockSearcher struct {
	result []model.Excursion
	err    error
	params []model.SearchParams
}

func (s *mockSearcher) Search(_ context.Context, p model.SearchParams) ([]model.Excursion, error) {
	s.params = append(s.params, p)
	return s.result, s.err
}

type fixture struct {
	machine *Machine
	out     *mockOutput
	search  *mockSearcher
	store   *storage.SQLite
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

func sampleExcursions() []model.Excursion {
	return []model.Excursion{
		{ID: "1", Title: "Кремль", Category: "групповая", PriceText: "3 000 руб.", Price: 3000, Rating: ptr(4.5), Rank: 1, Duration: 3, URL: "/experience/1/", ImageURL: "img/1"},
		{ID: "2", Title: "Метро", Category: "групповая", PriceText: "1 500 руб.", Price: 1500, Rating: ptr(4.9), Rank: 2, Duration: 2, URL: "/experience/2/", ImageURL: "img/2"},
		{ID: "3", Title: "Арбат", Category: "индивидуальная", PriceText: "3 000 руб.", Price: 3000, Rank: 3, Duration: 1.5, URL: "/experience/3/"},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cities := destinations.New(map[string]string{
		"москва":          moscowURL,
		"санкт-петербург": "https://experience.tripster.ru/experience/Saint_Petersburg/",
	})
	out := &mockOutput{}
	search := &mockSearcher{result: sampleExcursions()}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return time.Date(2025, time.May, 15, 10, 30, 0, 0, time.UTC) }

	m := New(store, search, cities, out, "https://experience.tripster.ru", log, WithClock(clock))
	return &fixture{machine: m, out: out, search: search, store: store}
}

func (f *fixture) session(t *testing.T) *model.Session {
	t.Helper()
	sess, err := f.store.GetSession(context.Background(), testChatID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	return sess
}

// advance drives the chat to the given state along the happy path.
func (f *fixture) advance(t *testing.T, to model.State) {
	t.Helper()
	ctx := context.Background()
	steps := []struct {
		state model.State
		run   func() error
	}{
		{model.StateAwaitingCity, func() error { return f.machine.Start(ctx, testChatID) }},
		{model.StateAwaitingStartDate, func() error { return f.machine.HandleText(ctx, testChatID, "Москва") }},
		{model.StateAwaitingEndDate, func() error { return f.machine.HandleDate(ctx, testChatID, day(2025, time.June, 1)) }},
		{model.StateAwaitingTypeFilter, func() error { return f.machine.HandleDate(ctx, testChatID, day(2025, time.June, 10)) }},
		{model.StateAwaitingSortChoice, func() error { return f.machine.HandleText(ctx, testChatID, "Все") }},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			t.Fatalf("advance to %s: %v", s.state, err)
		}
		if s.state == to {
			f.out.reset()
			return
		}
	}
	t.Fatalf("unknown target state %s", to)
}

func assertValidation(t *testing.T, err error) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.machine.Start(ctx, testChatID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if diff := cmp.Diff(message{Kind: "keyboard", Text: welcomeText, Rows: cityRows}, f.out.last()); diff != "" {
		t.Errorf("welcome (-want +got):\n%s", diff)
	}

	if err := f.machine.HandleText(ctx, testChatID, "Москва"); err != nil {
		t.Fatalf("city: %v", err)
	}
	sess := f.session(t)
	if diff := cmp.Diff("москва", sess.City); diff != "" {
		t.Errorf("city (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.StateAwaitingStartDate, sess.State); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}
	wantStart := calendar.New(day(2025, time.May, 14), day(2026, time.May, 15), 2025, time.May)
	if diff := cmp.Diff(message{Kind: "picker", Text: startDateText, Picker: wantStart}, f.out.last()); diff != "" {
		t.Errorf("start picker (-want +got):\n%s", diff)
	}

	f.out.reset()
	if err := f.machine.HandleDate(ctx, testChatID, day(2025, time.June, 1)); err != nil {
		t.Fatalf("start date: %v", err)
	}
	sess = f.session(t)
	if !sess.StartDate.Equal(day(2025, time.June, 1)) {
		t.Errorf("start date: got %v", sess.StartDate)
	}
	wantEnd := calendar.New(day(2025, time.June, 1), day(2026, time.June, 1), 2025, time.June)
	want := []message{
		{Kind: "text", Text: "Вы выбрали 01.06.2025"},
		{Kind: "picker", Text: endDateText, Picker: wantEnd},
	}
	if diff := cmp.Diff(want, f.out.messages); diff != "" {
		t.Errorf("end picker (-want +got):\n%s", diff)
	}

	f.out.reset()
	if err := f.machine.HandleDate(ctx, testChatID, day(2025, time.June, 10)); err != nil {
		t.Fatalf("end date: %v", err)
	}
	sess = f.session(t)
	if diff := cmp.Diff(model.StateAwaitingTypeFilter, sess.State); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(message{Kind: "keyboard", Text: "Вы выбрали 10.06.2025", Rows: typeRows}, f.out.last()); diff != "" {
		t.Errorf("type prompt (-want +got):\n%s", diff)
	}

	f.out.reset()
	if err := f.machine.HandleText(ctx, testChatID, "Все"); err != nil {
		t.Fatalf("type: %v", err)
	}
	wantParams := []model.SearchParams{{
		CityURL:   moscowURL,
		StartDate: day(2025, time.June, 1),
		EndDate:   day(2025, time.June, 10),
		Sort:      model.SortRating,
		Type:      model.TypeAll,
	}}
	if diff := cmp.Diff(wantParams, f.search.params); diff != "" {
		t.Errorf("search params (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"img/1", "img/2", ""}, f.out.images()); diff != "" {
		t.Errorf("rendered order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(message{Kind: "keyboard", Text: sortPromptText, Rows: sortRows}, f.out.last()); diff != "" {
		t.Errorf("sort prompt (-want +got):\n%s", diff)
	}
	sess = f.session(t)
	if diff := cmp.Diff(model.StateAwaitingSortChoice, sess.State); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(3, len(sess.Excursions)); diff != "" {
		t.Errorf("stored excursions (-want +got):\n%s", diff)
	}

	f.out.reset()
	if err := f.machine.HandleText(ctx, testChatID, "По цене ↑"); err != nil {
		t.Fatalf("sort: %v", err)
	}
	if diff := cmp.Diff([]string{"img/2", "img/1", ""}, f.out.images()); diff != "" {
		t.Errorf("price order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.StateAwaitingSortChoice, f.session(t).State); diff != "" {
		t.Errorf("state after sort (-want +got):\n%s", diff)
	}
}

func TestCityInput(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantState model.State
		wantCity  string
		wantText  string
	}{
		{name: "exact", input: "москва", wantState: model.StateAwaitingStartDate, wantCity: "москва", wantText: startDateText},
		{name: "mixed case", input: "САНКТ-Петербург", wantState: model.StateAwaitingStartDate, wantCity: "санкт-петербург", wantText: startDateText},
		{name: "unknown", input: "Атлантида", wantState: model.StateAwaitingCity, wantText: unknownCityText},
		{name: "typo gets suggestion", input: "Моска", wantState: model.StateAwaitingCity, wantText: "Возможно, вы имели в виду «Москва»?\n" + unknownCityText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.advance(t, model.StateAwaitingCity)

			err := f.machine.HandleText(context.Background(), testChatID, tt.input)
			if tt.wantState == model.StateAwaitingCity {
				assertValidation(t, err)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			sess := f.session(t)
			if diff := cmp.Diff(tt.wantState, sess.State); diff != "" {
				t.Errorf("state (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantCity, sess.City); diff != "" {
				t.Errorf("city (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantText, f.out.last().Text); diff != "" {
				t.Errorf("reply (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFirstMessageWithoutStart(t *testing.T) {
	f := newFixture(t)
	if err := f.machine.HandleText(context.Background(), testChatID, "Москва"); err != nil {
		t.Fatalf("city: %v", err)
	}
	if diff := cmp.Diff(model.StateAwaitingStartDate, f.session(t).State); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}
}

func TestDateOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		state model.State
		date  time.Time
	}{
		{name: "start in the past", state: model.StateAwaitingStartDate, date: day(2025, time.May, 13)},
		{name: "start too far ahead", state: model.StateAwaitingStartDate, date: day(2026, time.May, 16)},
		{name: "end before start", state: model.StateAwaitingEndDate, date: day(2025, time.May, 31)},
		{name: "end more than a year after start", state: model.StateAwaitingEndDate, date: day(2026, time.June, 2)},
		{name: "date while choosing type", state: model.StateAwaitingTypeFilter, date: day(2025, time.June, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.advance(t, tt.state)
			before := f.session(t)

			err := f.machine.HandleDate(context.Background(), testChatID, tt.date)
			assertValidation(t, err)

			after := f.session(t)
			if diff := cmp.Diff(before, after); diff != "" {
				t.Errorf("session changed (-before +after):\n%s", diff)
			}
			if len(f.out.messages) != 0 {
				t.Errorf("expected no messages, got %+v", f.out.messages)
			}
		})
	}
}

func TestDateBoundariesAccepted(t *testing.T) {
	tests := []struct {
		name  string
		state model.State
		date  time.Time
		want  model.State
	}{
		{name: "yesterday as start", state: model.StateAwaitingStartDate, date: day(2025, time.May, 14), want: model.StateAwaitingEndDate},
		{name: "one year ahead as start", state: model.StateAwaitingStartDate, date: day(2026, time.May, 15), want: model.StateAwaitingEndDate},
		{name: "same day as end", state: model.StateAwaitingEndDate, date: day(2025, time.June, 1), want: model.StateAwaitingTypeFilter},
		{name: "one year after start as end", state: model.StateAwaitingEndDate, date: day(2026, time.June, 1), want: model.StateAwaitingTypeFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.advance(t, tt.state)
			if err := f.machine.HandleDate(context.Background(), testChatID, tt.date); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, f.session(t).State); diff != "" {
				t.Errorf("state (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTextWhileAwaitingDate(t *testing.T) {
	f := newFixture(t)
	f.advance(t, model.StateAwaitingEndDate)

	err := f.machine.HandleText(context.Background(), testChatID, "10 июня")
	assertValidation(t, err)

	wantPicker := calendar.New(day(2025, time.June, 1), day(2026, time.June, 1), 2025, time.June)
	if diff := cmp.Diff(message{Kind: "picker", Text: useCalendarText, Picker: wantPicker}, f.out.last()); diff != "" {
		t.Errorf("reply (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.StateAwaitingEndDate, f.session(t).State); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}
}

func TestTypeInput(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantFilter model.TypeFilter
	}{
		{name: "private", input: "Индивидуальные", wantFilter: model.TypePrivate},
		{name: "group lower case", input: "групповые", wantFilter: model.TypeGroup},
		{name: "all upper case", input: "ВСЕ", wantFilter: model.TypeAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.advance(t, model.StateAwaitingTypeFilter)

			if err := f.machine.HandleText(context.Background(), testChatID, tt.input); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantFilter, f.search.params[0].Type); diff != "" {
				t.Errorf("filter (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantFilter, f.session(t).Type); diff != "" {
				t.Errorf("stored filter (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnknownTypeKeepsState(t *testing.T) {
	f := newFixture(t)
	f.advance(t, model.StateAwaitingTypeFilter)
	before := f.session(t)

	err := f.machine.HandleText(context.Background(), testChatID, "Экскурсии")
	assertValidation(t, err)

	if diff := cmp.Diff(message{Kind: "keyboard", Text: unknownTypeText, Rows: typeRows}, f.out.last()); diff != "" {
		t.Errorf("reply (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, f.session(t)); diff != "" {
		t.Errorf("session changed (-before +after):\n%s", diff)
	}
	if len(f.search.params) != 0 {
		t.Errorf("expected no search, got %d", len(f.search.params))
	}
}

func TestSearchFailures(t *testing.T) {
	tests := []struct {
		name     string
		result   []model.Excursion
		err      error
		wantText string
	}{
		{name: "fetch error", err: errors.New("connection reset"), wantText: fetchFailedText},
		{name: "nothing found", result: nil, wantText: nothingFoundText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.advance(t, model.StateAwaitingTypeFilter)
			f.search.result, f.search.err = tt.result, tt.err

			if err := f.machine.HandleText(context.Background(), testChatID, "Все"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(message{Kind: "keyboard", Text: tt.wantText, Rows: typeRows}, f.out.last()); diff != "" {
				t.Errorf("reply (-want +got):\n%s", diff)
			}
			sess := f.session(t)
			if diff := cmp.Diff(model.StateAwaitingTypeFilter, sess.State); diff != "" {
				t.Errorf("state (-want +got):\n%s", diff)
			}
			if !sess.StartDate.Equal(day(2025, time.June, 1)) || !sess.EndDate.Equal(day(2025, time.June, 10)) {
				t.Errorf("dates lost: %v - %v", sess.StartDate, sess.EndDate)
			}
		})
	}
}

func TestSortChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantImages []string
	}{
		{name: "duration", input: LabelByDuration, wantImages: []string{"", "img/2", "img/1"}},
		{name: "price", input: LabelByPrice, wantImages: []string{"img/2", "img/1", ""}},
		{name: "rating", input: LabelByRating, wantImages: []string{"img/2", "img/1", ""}},
		{name: "rating lower case", input: "по оценке ↓", wantImages: []string{"img/2", "img/1", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.advance(t, model.StateAwaitingSortChoice)

			if err := f.machine.HandleText(context.Background(), testChatID, tt.input); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantImages, f.out.images()); diff != "" {
				t.Errorf("rendered order (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRepeatedSortKeepsStoredOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.advance(t, model.StateAwaitingSortChoice)

	for _, label := range []string{LabelByRating, LabelByDuration} {
		if err := f.machine.HandleText(ctx, testChatID, label); err != nil {
			t.Fatalf("sort %q: %v", label, err)
		}
	}

	var ids []string
	for _, e := range f.session(t).Excursions {
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, ids); diff != "" {
		t.Errorf("stored order (-want +got):\n%s", diff)
	}
	if len(f.search.params) != 1 {
		t.Errorf("expected a single fetch, got %d", len(f.search.params))
	}
}

func TestUnknownSortReprompts(t *testing.T) {
	f := newFixture(t)
	f.advance(t, model.StateAwaitingSortChoice)

	err := f.machine.HandleText(context.Background(), testChatID, "Как попало")
	assertValidation(t, err)

	want := []message{{Kind: "keyboard", Text: unknownSortText, Rows: sortRows}}
	if diff := cmp.Diff(want, f.out.messages); diff != "" {
		t.Errorf("reply (-want +got):\n%s", diff)
	}
}

func TestCancelResets(t *testing.T) {
	f := newFixture(t)
	f.advance(t, model.StateAwaitingEndDate)

	if err := f.machine.HandleCancel(context.Background(), testChatID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	sess := f.session(t)
	if diff := cmp.Diff(model.StateAwaitingCity, sess.State); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}
	if sess.City != "" || !sess.StartDate.IsZero() {
		t.Errorf("expected cleared session, got %+v", sess)
	}
	if diff := cmp.Diff(welcomeText, f.out.last().Text); diff != "" {
		t.Errorf("reply (-want +got):\n%s", diff)
	}
}

func TestPicker(t *testing.T) {
	ctx := context.Background()

	t.Run("no picker while choosing city", func(t *testing.T) {
		f := newFixture(t)
		f.advance(t, model.StateAwaitingCity)
		if _, ok := f.machine.Picker(ctx, testChatID); ok {
			t.Error("expected no picker")
		}
	})

	t.Run("end date picker", func(t *testing.T) {
		f := newFixture(t)
		f.advance(t, model.StateAwaitingEndDate)
		got, ok := f.machine.Picker(ctx, testChatID)
		if !ok {
			t.Fatal("expected picker")
		}
		want := calendar.New(day(2025, time.June, 1), day(2026, time.June, 1), 2025, time.June)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("picker (-want +got):\n%s", diff)
		}
	})
}

func TestParseLabels(t *testing.T) {
	if got, ok := ParseTypeLabel("  Групповые "); !ok || got != model.TypeGroup {
		t.Errorf("ParseTypeLabel: got %q, %v", got, ok)
	}
	if _, ok := ParseTypeLabel("Экскурсии"); ok {
		t.Error("ParseTypeLabel accepted an unknown label")
	}
	if got, ok := ParseSortLabel("ПО ЦЕНЕ ↑"); !ok || got != model.SortByPrice {
		t.Errorf("ParseSortLabel: got %q, %v", got, ok)
	}
	if _, ok := ParseSortLabel("По цене"); ok {
		t.Error("ParseSortLabel accepted a label without the arrow")
	}
}
