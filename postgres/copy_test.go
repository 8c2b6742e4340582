// Copyright 2024-present The BulkPG Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres_test

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/bulkpg/bulkpg/mapping"
	"github.com/bulkpg/bulkpg/postgres"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type itemStatus int

const (
	statusActive itemStatus = iota
	statusInactive
)

type itemLabel int

const (
	labelA itemLabel = iota
	labelB
)

type item struct {
	ID     int
	Status itemStatus
	Label  itemLabel
}

func itemType() *mapping.RecordType[item] {
	return mapping.NewRecordType[item]("items").
		SetSchema("public").
		AddFields(
			mapping.MappedField("id", mapping.KindInt),
			mapping.MappedField("status", mapping.KindEnum).SetEnum(mapping.EnumOrdinal),
			mapping.MappedField("label", mapping.KindEnum).SetEnum(mapping.EnumName, "A", "B"),
		).
		AddAccessors(
			mapping.AccessInt("GetID", func(i item) int { return i.ID }),
			mapping.AccessInt("GetStatus", func(i item) itemStatus { return i.Status }),
			mapping.AccessInt("GetLabel", func(i item) itemLabel { return i.Label }),
		)
}

func TestNewDescriptor(t *testing.T) {
	d, err := postgres.NewDescriptor(itemType())
	require.NoError(t, err)
	cols := d.Columns()
	require.Len(t, cols, 3)

	require.Equal(t, "id", cols[0].Name)
	require.Equal(t, postgres.TypeInteger, cols[0].Type)
	v, err := cols[0].Extract(item{ID: 42})
	require.NoError(t, err)
	require.Equal(t, int64(42), v.Int64())

	require.Equal(t, "status", cols[1].Name)
	require.Equal(t, postgres.TypeSmallInt, cols[1].Type)
	v, err = cols[1].Extract(item{Status: statusActive})
	require.NoError(t, err)
	require.Equal(t, int64(0), v.Int64())

	require.Equal(t, "label", cols[2].Name)
	require.Equal(t, postgres.TypeText, cols[2].Type)
	v, err = cols[2].Extract(item{Label: labelB})
	require.NoError(t, err)
	require.Equal(t, "B", v.Text())
}

func TestNewDescriptor_SeededOverride(t *testing.T) {
	d, err := postgres.NewDescriptor(itemType(), mapping.WithOverrides(map[string]string{
		"status": postgres.TypeBigInt,
	}))
	require.NoError(t, err)
	c, ok := d.Column("status")
	require.True(t, ok)
	require.Equal(t, postgres.TypeBigInt, c.Type)
	v, err := c.Extract(item{Status: statusActive})
	require.NoError(t, err)
	require.Equal(t, int64(0), v.Int64(), "the override retags the column, the ordinal is unchanged")
}

func TestCopyCommand(t *testing.T) {
	d, err := postgres.NewDescriptor(itemType())
	require.NoError(t, err)
	require.Equal(t, `COPY "public"."items" ("id", "status", "label") FROM STDIN BINARY`, postgres.CopyCommand(d))

	d, err = postgres.NewDescriptor(itemType().SetQuoting(false))
	require.NoError(t, err)
	require.Equal(t, `COPY public.items (id, status, label) FROM STDIN BINARY`, postgres.CopyCommand(d))

	d, err = postgres.NewDescriptor(itemType().SetSchema(""))
	require.NoError(t, err)
	require.Equal(t, `COPY "items" ("id", "status", "label") FROM STDIN BINARY`, postgres.CopyCommand(d))
}

var copyHeader = append([]byte("PGCOPY\n\xff\r\n\x00"), 0, 0, 0, 0, 0, 0, 0, 0)

func TestEncoder_WriteRow(t *testing.T) {
	d, err := postgres.NewDescriptor(itemType())
	require.NoError(t, err)
	var buf bytes.Buffer
	enc := postgres.NewEncoder(&buf, d)
	require.NoError(t, enc.WriteRow(item{ID: 42, Status: statusActive, Label: labelB}))
	require.NoError(t, enc.Close())

	expected := append([]byte{}, copyHeader...)
	expected = append(expected,
		0, 3, // field count
		0, 0, 0, 4, 0, 0, 0, 42, // id integer
		0, 0, 0, 2, 0, 0, // status smallint ordinal
		0, 0, 0, 1, 'B', // label text name
	)
	expected = append(expected, 0xff, 0xff) // trailer
	require.Equal(t, expected, buf.Bytes())
}

type event struct {
	At   time.Time
	Note *string
}

func TestEncoder_NullsAndTimes(t *testing.T) {
	rt := mapping.NewRecordType[event]("events").
		AddFields(
			mapping.MappedField("at", mapping.KindTime),
			mapping.MappedField("note", mapping.KindString),
		).
		AddAccessors(
			mapping.AccessTime("At", func(e event) time.Time { return e.At }),
			mapping.AccessNullString("Note", func(e event) *string { return e.Note }),
		)
	d, err := postgres.NewDescriptor(rt)
	require.NoError(t, err)

	var buf bytes.Buffer
	enc := postgres.NewEncoder(&buf, d)
	require.NoError(t, enc.WriteRow(event{At: postgres.Epoch.Add(time.Second)}))
	require.NoError(t, enc.Close())

	expected := append([]byte{}, copyHeader...)
	expected = append(expected,
		0, 2, // field count
		0, 0, 0, 8, 0, 0, 0, 0, 0, 0x0f, 0x42, 0x40, // at: 1e6 micros since epoch
		0xff, 0xff, 0xff, 0xff, // note: protocol null
	)
	expected = append(expected, 0xff, 0xff)
	require.Equal(t, expected, buf.Bytes())
}

func TestEncoder_EmptyStream(t *testing.T) {
	d, err := postgres.NewDescriptor(itemType())
	require.NoError(t, err)
	var buf bytes.Buffer
	enc := postgres.NewEncoder(&buf, d)
	require.NoError(t, enc.Close())
	require.Equal(t, append(append([]byte{}, copyHeader...), 0xff, 0xff), buf.Bytes())
	require.NoError(t, enc.Close(), "closing twice is a no-op")
	require.EqualError(t, enc.WriteRow(item{}), "postgres: write on closed encoder")
}

// sampleColumn builds a single-column descriptor over a raw Value
// record, tagged with the given storage type.
func sampleColumn(t *testing.T, typ string) *mapping.Descriptor[mapping.Value] {
	rt := mapping.NewRecordType[mapping.Value]("samples").
		AddFields(mapping.MappedField("v", mapping.KindString).SetDataType(typ)).
		AddAccessors(mapping.NewAccessor("V", func(v mapping.Value) (mapping.Value, error) { return v, nil }))
	d, err := postgres.NewDescriptor(rt)
	require.NoError(t, err)
	return d
}

func TestEncoder_ValueEncodings(t *testing.T) {
	for _, tt := range []struct {
		typ      string
		value    mapping.Value
		expected []byte
	}{
		{postgres.TypeBoolean, mapping.BoolValue(true), []byte{0, 0, 0, 1, 1}},
		{postgres.TypeSmallInt, mapping.Int64Value(math.MaxInt16), []byte{0, 0, 0, 2, 0x7f, 0xff}},
		{postgres.TypeInteger, mapping.Int64Value(math.MinInt32), []byte{0, 0, 0, 4, 0x80, 0, 0, 0}},
		{postgres.TypeBigInt, mapping.Int64Value(-2), []byte{0, 0, 0, 8, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe}},
		{postgres.TypeReal, mapping.Float64Value(1.5), []byte{0, 0, 0, 4, 0x3f, 0xc0, 0, 0}},
		{postgres.TypeDoublePrecision, mapping.Float64Value(-2.5), []byte{0, 0, 0, 8, 0xc0, 0x04, 0, 0, 0, 0, 0, 0}},
		{postgres.TypeVarChar, mapping.StringValue("ok"), []byte{0, 0, 0, 2, 'o', 'k'}},
		{postgres.TypeBytea, mapping.BytesValue([]byte{0xde, 0xad, 0xbe, 0xef}), []byte{0, 0, 0, 4, 0xde, 0xad, 0xbe, 0xef}},
		{postgres.TypeDate, mapping.TimeValue(postgres.Epoch.AddDate(0, 1, 0)), []byte{0, 0, 0, 4, 0, 0, 0, 31}},
		{postgres.TypeTime, mapping.TimeValue(time.Date(2000, 1, 1, 0, 0, 0, 123_000, time.UTC)), []byte{0, 0, 0, 8, 0, 0, 0, 0, 0, 0, 0, 123}},
		{postgres.TypeUUID, mapping.UUIDValue(uuid.MustParse("00010203-0405-0607-0809-0a0b0c0d0e0f")),
			[]byte{0, 0, 0, 16, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}},
		{postgres.TypeJSON, mapping.StringValue(`{"a":1}`), append([]byte{0, 0, 0, 7}, `{"a":1}`...)},
		{postgres.TypeJSONB, mapping.BytesValue([]byte(`{"a":1}`)), append([]byte{0, 0, 0, 8, 1}, `{"a":1}`...)},
		{postgres.TypeNumeric, mapping.StringValue("1234.5"),
			[]byte{0, 0, 0, 12, 0, 2, 0, 0, 0, 0, 0, 1, 0x04, 0xd2, 0x13, 0x88}},
		{postgres.TypeNumeric, mapping.StringValue("-0.5"),
			[]byte{0, 0, 0, 10, 0, 1, 0xff, 0xff, 0x40, 0, 0, 1, 0x13, 0x88}},
		{postgres.TypeNumeric, mapping.StringValue("0.00"),
			[]byte{0, 0, 0, 8, 0, 0, 0, 0, 0, 0, 0, 2}},
		{postgres.TypeNumeric, mapping.Int64Value(-7),
			[]byte{0, 0, 0, 10, 0, 1, 0, 0, 0x40, 0, 0, 0, 0, 7}},
		{postgres.TypeInet, mapping.StringValue("192.168.0.1"), []byte{0, 0, 0, 8, 2, 32, 0, 4, 192, 168, 0, 1}},
		{postgres.TypeInet, mapping.StringValue("::1"),
			[]byte{0, 0, 0, 20, 3, 128, 0, 16, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}},
	} {
		t.Run(tt.typ+"/"+tt.value.String(), func(t *testing.T) {
			var buf bytes.Buffer
			enc := postgres.NewEncoder(&buf, sampleColumn(t, tt.typ))
			require.NoError(t, enc.WriteRow(tt.value))
			require.NoError(t, enc.Close())
			expected := append([]byte{}, copyHeader...)
			expected = append(expected, 0, 1)
			expected = append(expected, tt.expected...)
			expected = append(expected, 0xff, 0xff)
			require.Equal(t, expected, buf.Bytes())
		})
	}
}

func TestEncoder_IntegerRange(t *testing.T) {
	for _, tt := range []struct {
		typ   string
		value int64
		err   string
	}{
		{postgres.TypeInteger, 1 << 33, `postgres: column "v" (integer): value 8589934592 out of range`},
		{postgres.TypeInteger, math.MinInt32 - 1, `postgres: column "v" (integer): value -2147483649 out of range`},
		{postgres.TypeSmallInt, math.MaxInt16 + 1, `postgres: column "v" (smallint): value 32768 out of range`},
	} {
		enc := postgres.NewEncoder(&bytes.Buffer{}, sampleColumn(t, tt.typ))
		require.EqualError(t, enc.WriteRow(mapping.Int64Value(tt.value)), tt.err)
	}
}

func TestEncoder_InvalidText(t *testing.T) {
	enc := postgres.NewEncoder(&bytes.Buffer{}, sampleColumn(t, postgres.TypeNumeric))
	require.EqualError(t, enc.WriteRow(mapping.StringValue("12a")), `postgres: column "v" (numeric): invalid decimal "12a"`)
	require.EqualError(t, enc.WriteRow(mapping.StringValue("-")), `postgres: column "v" (numeric): invalid decimal "-"`)

	enc = postgres.NewEncoder(&bytes.Buffer{}, sampleColumn(t, postgres.TypeInet))
	require.EqualError(t, enc.WriteRow(mapping.StringValue("pg.example")), `postgres: column "v" (inet): invalid address "pg.example"`)
	require.EqualError(t, enc.WriteRow(mapping.BoolValue(true)), `postgres: column "v" (inet): cannot encode bool value`)
}

func TestEncoder_KindMismatch(t *testing.T) {
	rt := mapping.NewRecordType[item]("items").
		AddFields(mapping.MappedField("id", mapping.KindInt).SetDataType(postgres.TypeText)).
		AddAccessors(mapping.AccessInt("ID", func(i item) int { return i.ID }))
	d, err := postgres.NewDescriptor(rt)
	require.NoError(t, err)
	enc := postgres.NewEncoder(&bytes.Buffer{}, d)
	require.EqualError(t, enc.WriteRow(item{ID: 1}), `postgres: column "id" (text): cannot encode int64 value`)
}
