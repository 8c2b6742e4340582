package postgres

import (
	"time"

	"github.com/bulkpg/bulkpg/mapping"
)

// Epoch is the PostgreSQL wire epoch. Timestamps and dates are encoded
// as offsets from it.
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Converters applied by the encoder to non-null date/time values before
// they are written in binary form.
var (
	// TimestampMicros converts a point in time to microseconds since
	// the PostgreSQL epoch.
	TimestampMicros mapping.Converter[time.Time, int64] = mapping.ConverterFunc[time.Time, int64](timestampMicros)

	// TimeOfDayMicros converts the clock time of a value to
	// microseconds since midnight.
	TimeOfDayMicros mapping.Converter[time.Time, int64] = mapping.ConverterFunc[time.Time, int64](timeOfDayMicros)

	// DateDays converts the calendar date of a value to days since the
	// PostgreSQL epoch.
	DateDays mapping.Converter[time.Time, int32] = mapping.ConverterFunc[time.Time, int32](dateDays)
)

func timestampMicros(t time.Time) int64 {
	return t.UTC().Sub(Epoch).Microseconds()
}

func timeOfDayMicros(t time.Time) int64 {
	h, m, s := t.Clock()
	return (int64(h)*3600+int64(m)*60+int64(s))*1e6 + int64(t.Nanosecond())/1e3
}

func dateDays(t time.Time) int32 {
	y, m, d := t.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int32(day.Sub(Epoch) / (24 * time.Hour))
}
