// Copyright 2024-present The BulkPG Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres_test

import (
	"testing"
	"time"

	"github.com/bulkpg/bulkpg/mapping"
	"github.com/bulkpg/bulkpg/postgres"

	"github.com/stretchr/testify/require"
)

func TestTypeMapping_Resolve(t *testing.T) {
	for kind, expected := range map[mapping.Kind]string{
		mapping.KindBool:      "boolean",
		mapping.KindInt8:      "smallint",
		mapping.KindInt16:     "smallint",
		mapping.KindInt32:     "integer",
		mapping.KindInt:       "integer",
		mapping.KindInt64:     "bigint",
		mapping.KindFloat32:   "real",
		mapping.KindFloat64:   "double precision",
		mapping.KindString:    "text",
		mapping.KindBytes:     "bytea",
		mapping.KindTime:      "timestamp",
		mapping.KindTimeOfDay: "time",
		mapping.KindDate:      "date",
		mapping.KindUUID:      "uuid",
		mapping.KindInet:      "inet",
		mapping.KindNumeric:   "numeric",
		mapping.KindJSON:      "jsonb",
	} {
		typ, err := postgres.TypeMapping{}.Resolve(kind)
		require.NoError(t, err)
		require.Equal(t, expected, typ)
	}
}

func TestTypeMapping_Unsupported(t *testing.T) {
	for _, kind := range []mapping.Kind{mapping.KindInvalid, mapping.KindEnum, mapping.Kind(99)} {
		_, err := postgres.TypeMapping{}.Resolve(kind)
		var u *mapping.UnsupportedTypeError
		require.ErrorAs(t, err, &u)
		require.Equal(t, kind, u.Kind)
	}
	_, err := postgres.TypeMapping{}.Resolve(mapping.KindEnum)
	require.EqualError(t, err, "mapping: unsupported native type enum")
}

func TestTimestampMicros(t *testing.T) {
	require.Equal(t, int64(0), postgres.TimestampMicros.Convert(postgres.Epoch))
	require.Equal(t, int64(1e6), postgres.TimestampMicros.Convert(postgres.Epoch.Add(time.Second)))
	require.Equal(t, int64(-1e6), postgres.TimestampMicros.Convert(postgres.Epoch.Add(-time.Second)))

	// Zoned timestamps are normalized to UTC before conversion.
	zoned := time.Date(2000, time.January, 1, 2, 0, 0, 0, time.FixedZone("EET", 2*3600))
	require.Equal(t, int64(0), postgres.TimestampMicros.Convert(zoned))
}

func TestTimeOfDayMicros(t *testing.T) {
	clock := time.Date(2024, time.March, 1, 10, 30, 0, 123000, time.UTC)
	require.Equal(t, int64(37_800_000_123), postgres.TimeOfDayMicros.Convert(clock))
	midnight := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, int64(0), postgres.TimeOfDayMicros.Convert(midnight))
}

func TestDateDays(t *testing.T) {
	require.Equal(t, int32(0), postgres.DateDays.Convert(postgres.Epoch))
	require.Equal(t, int32(1), postgres.DateDays.Convert(time.Date(2000, time.January, 2, 15, 4, 5, 0, time.UTC)))
	require.Equal(t, int32(31), postgres.DateDays.Convert(time.Date(2000, time.February, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, int32(-1), postgres.DateDays.Convert(time.Date(1999, time.December, 31, 0, 0, 0, 0, time.UTC)))
}
