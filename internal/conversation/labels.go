package conversation

import (
	"strings"

	"tripfriend_bot/internal/model"
)

const (
	welcomeText = "Добро пожаловать в TripFriend!\n" +
		"Я сделаю твой отдых незабываемым. Введи название города, в который собираешься, или выбери из списка ниже:"
	unknownCityText = "Я не знаю такого города.\n" +
		"Пожалуйста, выберите одно из названий из списка ниже или введите корректное название города:"
	suggestText        = "Возможно, вы имели в виду «%s»?"
	startDateText      = "Спасибо! Теперь выберите дату начала поездки."
	endDateText        = "Выберите дату окончания поездки."
	pickedDateText     = "Вы выбрали %s"
	useCalendarText    = "Пожалуйста, выберите дату в календаре."
	unknownTypeText    = "Я не знаю такого типа.\nПожалуйста, выберите один из типов ниже:"
	unknownSortText    = "Я не знаю такого типа сортировки.\nПожалуйста, выберите один из типов ниже:"
	sortPromptText     = "Отсортировать экскурсии?"
	nothingFoundText   = "По вашему запросу ничего не найдено. Попробуйте выбрать другой тип экскурсий."
	fetchFailedText    = "Не удалось загрузить экскурсии. Попробуйте ещё раз чуть позже."
	internalErrorText  = "Что-то пошло не так. Попробуйте ещё раз или начните заново командой /start."
	searchProgressText = "Ищу экскурсии..."

	helpText = "TripFriend подбирает экскурсии по городу и датам поездки.\n\n" +
		"1. Введите название города или выберите его из списка.\n" +
		"2. Выберите в календаре даты начала и окончания поездки.\n" +
		"3. Укажите тип экскурсий: индивидуальные, групповые или все.\n" +
		"4. Отсортируйте найденные экскурсии по продолжительности, цене или оценке.\n\n" +
		"/start - начать заново\n" +
		"/help - эта справка"
)

const displayDateLayout = "02.01.2006"

// Type filter labels.
const (
	LabelPrivate = "Индивидуальные"
	LabelGroup   = "Групповые"
	LabelAll     = "Все"
)

// Sort labels.
const (
	LabelByDuration = "По продолжительности ↑"
	LabelByPrice    = "По цене ↑"
	LabelByRating   = "По оценке ↓"
)

var cityRows = [][]string{
	{"Москва", "Санкт-Петербург", "Калининград"},
	{"Дубай", "Стамбул", "Тбилиси"},
}

var typeRows = [][]string{{LabelPrivate, LabelGroup, LabelAll}}

var sortRows = [][]string{
	{LabelByDuration},
	{LabelByPrice, LabelByRating},
}

// ParseTypeLabel maps a type button label, in any letter case, to a filter.
func ParseTypeLabel(text string) (model.TypeFilter, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(LabelPrivate):
		return model.TypePrivate, true
	case strings.ToLower(LabelGroup):
		return model.TypeGroup, true
	case strings.ToLower(LabelAll):
		return model.TypeAll, true
	}
	return "", false
}

// ParseSortLabel maps a sort button label, in any letter case, to a sort key.
func ParseSortLabel(text string) (model.SortKey, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(LabelByDuration):
		return model.SortByDuration, true
	case strings.ToLower(LabelByPrice):
		return model.SortByPrice, true
	case strings.ToLower(LabelByRating):
		return model.SortByRating, true
	}
	return "", false
}
