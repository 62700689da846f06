// Package timezone pins wall-clock time to APP_TIMEZONE and models calendar
// dates as UTC midnights.
package timezone

import (
	"sync"
	"time"

	"innkeeper/config"
	"innkeeper/shared/constant"

	"github.com/rs/zerolog/log"
)

var (
	loadOnce    sync.Once
	appLocation = time.UTC
)

// Location returns the configured location, loading it on first use. Unknown
// names fall back to UTC.
func Location() *time.Location {
	loadOnce.Do(func() {
		name := config.Get().App.Timezone
		if name == "" {
			log.Warn().Msg("No timezone configured, using UTC")

			return
		}

		loc, err := time.LoadLocation(name)
		if err != nil {
			log.Error().Err(err).Str("timezone", name).Msg("Unknown timezone, falling back to UTC")

			return
		}

		appLocation = loc
		log.Info().Str("timezone", loc.String()).Msg("Application timezone initialized")
	})

	return appLocation
}

func Now() time.Time {
	return time.Now().In(Location())
}

// Format renders t in the application location.
func Format(t time.Time, layout string) string {
	return t.In(Location()).Format(layout)
}

// DateOf keeps only the calendar date of t, as UTC midnight, so day
// arithmetic never crosses a DST boundary.
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today is the current calendar date in the application location.
func Today() time.Time {
	return DateOf(Now())
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(constant.CalendarDateFormat, value)
}

func FormatDate(t time.Time) string {
	return DateOf(t).Format(constant.CalendarDateFormat)
}
