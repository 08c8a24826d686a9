package robots

import (
	"strings"
	"time"
)

// Форматы ISO-8601 для поля created. Время без зоны считается UTC.
var createdLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04-0700",
	"2006-01-02T15:04",
}

// ParseCreated разбирает время создания робота: YYYY-MM-DD[T ]HH:MM[:SS[.fraction]][Z|±HH[:MM]].
func ParseCreated(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if len(value) > 10 && value[10] == ' ' {
		value = value[:10] + "T" + value[11:]
	}
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
