package conversation

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"tripfriend_bot/internal/model"
)

// MaxCaptionLength is Telegram's limit for photo captions, counted in UTF-16
// code units of the text left after HTML entities are parsed.
const MaxCaptionLength = 1024

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// FormatCaption renders an excursion as an HTML caption. Links are made
// absolute against siteURL. A caption over the limit loses description text
// first, then title text. If the remaining fields alone are still too long the
// caption falls back to cut plain text.
func FormatCaption(e model.Excursion, siteURL string) string {
	caption := buildCaption(e, siteURL, e.Description)
	over := captionLength(caption) - MaxCaptionLength
	if over <= 0 {
		return caption
	}

	caption = buildCaption(e, siteURL, cut(e.Description, utf16Len(e.Description)-over))
	over = captionLength(caption) - MaxCaptionLength
	if over <= 0 {
		return caption
	}

	short := e
	short.Title = cut(e.Title, max(utf16Len(e.Title)-over, 1))
	caption = buildCaption(short, siteURL, "")
	if captionLength(caption) <= MaxCaptionLength {
		return caption
	}
	return html.EscapeString(cut(plainText(buildCaption(e, siteURL, "")), MaxCaptionLength))
}

// plainText returns what Telegram displays for an HTML caption.
func plainText(caption string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(caption, ""))
}

func captionLength(caption string) int {
	return utf16Len(plainText(caption))
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// cut shortens s to at most limit UTF-16 code units, ending it with an
// ellipsis. A limit below 2 leaves nothing but the ellipsis, or an empty
// string when limit is not positive.
func cut(s string, limit int) string {
	if utf16Len(s) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	var b strings.Builder
	n := 1
	for _, r := range s {
		w := utf16.RuneLen(r)
		if n+w > limit {
			break
		}
		b.WriteRune(r)
		n += w
	}
	return strings.TrimSpace(b.String()) + "…"
}

func buildCaption(e model.Excursion, siteURL, description string) string {
	link := strings.TrimRight(siteURL, "/") + e.URL

	var b strings.Builder
	fmt.Fprintf(&b, "<a href=\"%s\">%s</a>\n", html.EscapeString(link), html.EscapeString(e.Title))
	if description != "" {
		b.WriteString(html.EscapeString(description))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "<b>Вид</b>: %s\n", html.EscapeString(titleCase(e.Category)))

	if e.Rating != nil {
		fmt.Fprintf(&b, "<b>Оценка</b>: <a href=\"%s#reviews\">%s</a> (%d)\n",
			html.EscapeString(link), strconv.FormatFloat(*e.Rating, 'f', -1, 64), e.ReviewCount())
	} else {
		b.WriteString("<b>Оценка</b>: нет оценок\n")
	}

	fmt.Fprintf(&b, "<b>Стоимость</b>: %s\n", html.EscapeString(e.PriceText))
	fmt.Fprintf(&b, "<b>Продолжительность</b>: %s", html.EscapeString(e.DurationText))
	if e.Movement != "" {
		fmt.Fprintf(&b, "\n<b>Способ передвижения</b>: %s", html.EscapeString(e.Movement))
	}
	return b.String()
}

// titleCase upper-cases the first letter of every word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
