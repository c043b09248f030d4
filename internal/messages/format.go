package messages

import (
	"fmt"
	"html"
	"time"

	"psy-booking-bot/internal/models"
)

var (
	weekdaysShort = [...]string{"вс", "пн", "вт", "ср", "чт", "пт", "сб"}
	monthsGen     = [...]string{"января", "февраля", "марта", "апреля", "мая", "июня", "июля", "августа", "сентября", "октября", "ноября", "декабря"}
	monthsShort   = [...]string{"янв.", "февр.", "мар.", "апр.", "мая", "июн.", "июл.", "авг.", "сент.", "окт.", "нояб.", "дек."}
)

// FormatDate renders "2025-06-10" as "вт, 10 июня". Unparseable input is
// returned as is.
func FormatDate(date string) string {
	d, err := models.NormalizeDate(date)
	if err != nil {
		return date
	}
	t, _ := time.Parse(models.DateLayout, d)
	return fmt.Sprintf("%s, %d %s", weekdaysShort[t.Weekday()], t.Day(), monthsGen[t.Month()-1])
}

// FormatDay renders a moment as "10 июн. 2025 г.".
func FormatDay(t time.Time) string {
	return fmt.Sprintf("%d %s %d г.", t.Day(), monthsShort[t.Month()-1], t.Year())
}

// FormatTime cuts seconds off "HH:MM:SS".
func FormatTime(tm string) string {
	if len(tm) > 5 {
		return tm[:5]
	}
	return tm
}

func FormatLabel(f *models.Format) string {
	if f != nil && *f == models.FormatOnline {
		return "💻 онлайн"
	}
	return "🏠 очно"
}

func FormatIcon(f *models.Format) string {
	if f != nil && *f == models.FormatOnline {
		return "💻"
	}
	return "🏠"
}

func AvailableIcon(a models.AvailableFormats) string {
	switch a {
	case models.AvailableOffline:
		return "🏠"
	case models.AvailableOnline:
		return "💻"
	}
	return "🏠💻"
}

// Consultations returns the word "консультация" agreeing with n.
func Consultations(n int) string {
	switch {
	case n%10 == 1 && n%100 != 11:
		return "консультация"
	case n%10 >= 2 && n%10 <= 4 && (n%100 < 10 || n%100 >= 20):
		return "консультации"
	}
	return "консультаций"
}

// Esc escapes user supplied text for HTML parse mode.
func Esc(s string) string { return html.EscapeString(s) }

// Preview shortens text to n runes, appending "..." when cut.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func firstName(first *string, fallback string) string {
	if first == nil || *first == "" {
		return fallback
	}
	return Esc(*first)
}

func username(u *string, fallback string) string {
	if u == nil || *u == "" {
		return fallback
	}
	return "@" + Esc(*u)
}
