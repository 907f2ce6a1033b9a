package notify

import (
	"fmt"
	"time"
	_ "time/tzdata" // display zones must resolve on minimal images

	"golang.org/x/text/language"
)

// supported display locales; the first is the fallback
var supported = []language.Tag{
	language.MustParse("es-AR"),
	language.AmericanEnglish,
}

var matcher = language.NewMatcher(supported)

const (
	localeES = iota
	localeEN
)

var (
	esWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	esMonths   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
		"agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// resolveLocale maps a BCP 47 string onto a supported locale index.
func resolveLocale(locale string) int {
	tag, err := language.Parse(locale)
	if err != nil {
		return localeES
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return localeES
	}
	return idx
}

// FormatInstant renders t in zone as weekday, day, month and a two-digit
// hour and minute, in the given locale. A nil zone means UTC.
func FormatInstant(t time.Time, locale string, zone *time.Location) string {
	if zone == nil {
		zone = time.UTC
	}
	t = t.In(zone)
	switch resolveLocale(locale) {
	case localeEN:
		return t.Format("Monday, January 2, 03:04 PM")
	default:
		return fmt.Sprintf("%s, %d de %s, %02d:%02d",
			esWeekdays[t.Weekday()], t.Day(), esMonths[t.Month()-1], t.Hour(), t.Minute())
	}
}
