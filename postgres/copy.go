// Copyright 2024-present The BulkPG Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strconv"
	"strings"

	"github.com/jackc/pgio"

	"github.com/bulkpg/bulkpg/mapping"
)

// copySignature starts the binary COPY stream, followed by the flags
// field and the header extension length.
//
// https://www.postgresql.org/docs/current/sql-copy.html#id-1.9.3.55.9.4
var copySignature = []byte("PGCOPY\n\xff\r\n\x00")

// CopyCommand returns the COPY statement that opens a binary copy-in
// for the descriptor's table and columns, honoring its quoting flag.
func CopyCommand[T any](d *mapping.Descriptor[T]) string {
	var b strings.Builder
	b.WriteString("COPY ")
	if d.SchemaName() != "" {
		b.WriteString(ident(d.SchemaName(), d.Quoted()))
		b.WriteByte('.')
	}
	b.WriteString(ident(d.TableName(), d.Quoted()))
	b.WriteString(" (")
	for i, c := range d.Columns() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ident(c.Name, d.Quoted()))
	}
	b.WriteString(") FROM STDIN BINARY")
	return b.String()
}

func ident(name string, quote bool) string {
	if !quote {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// An Encoder writes rows in the PostgreSQL binary COPY format. It
// extracts each column value with the descriptor's extractors, applies
// the date/time converters and writes length-prefixed binary values to
// the underlying writer. Absent values are written as protocol nulls.
//
// The encoder itself performs no buffering, flushing or retries; the
// caller owns the writer and its lifecycle. An Encoder is not safe for
// concurrent use, but independent encoders may share one descriptor.
type Encoder[T any] struct {
	desc   *mapping.Descriptor[T]
	cols   []*mapping.Column[T]
	w      io.Writer
	buf    []byte
	opened bool
	closed bool
}

// NewEncoder returns an encoder writing rows of the given descriptor
// to w.
func NewEncoder[T any](w io.Writer, desc *mapping.Descriptor[T]) *Encoder[T] {
	return &Encoder[T]{desc: desc, cols: desc.Columns(), w: w}
}

// WriteRow extracts and writes one record. The stream header is
// written before the first row. An extraction or encoding failure is
// fatal for the row and is reported as is, without retries.
func (e *Encoder[T]) WriteRow(rec T) error {
	if e.closed {
		return errors.New("postgres: write on closed encoder")
	}
	if err := e.open(); err != nil {
		return err
	}
	e.buf = pgio.AppendInt16(e.buf[:0], int16(len(e.cols)))
	for _, c := range e.cols {
		v, err := c.Extract(rec)
		if err != nil {
			return err
		}
		if v.Absent() {
			e.buf = pgio.AppendInt32(e.buf, -1)
			continue
		}
		if e.buf, err = appendValue(e.buf, c, v); err != nil {
			return err
		}
	}
	_, err := e.w.Write(e.buf)
	return err
}

// Close terminates the stream with the file trailer. It does not close
// the underlying writer.
func (e *Encoder[T]) Close() error {
	if e.closed {
		return nil
	}
	if err := e.open(); err != nil {
		return err
	}
	e.closed = true
	_, err := e.w.Write(pgio.AppendInt16(e.buf[:0], -1))
	return err
}

func (e *Encoder[T]) open() error {
	if e.opened {
		return nil
	}
	e.opened = true
	buf := append(e.buf[:0], copySignature...)
	buf = pgio.AppendInt32(buf, 0) // flags
	buf = pgio.AppendInt32(buf, 0) // header extension length
	e.buf = buf
	_, err := e.w.Write(buf)
	return err
}

// appendValue appends the length-prefixed binary form of one non-null
// value, selected by the column's storage type.
func appendValue[T any](buf []byte, c *mapping.Column[T], v mapping.Value) ([]byte, error) {
	switch c.Type {
	case TypeBoolean:
		if v.Kind() != mapping.ValueBool {
			return nil, encodeError(c, v)
		}
		buf = pgio.AppendInt32(buf, 1)
		if v.Bool() {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case TypeSmallInt:
		if v.Kind() != mapping.ValueInt64 {
			return nil, encodeError(c, v)
		}
		n := v.Int64()
		if n < math.MinInt16 || n > math.MaxInt16 {
			return nil, rangeError(c, n)
		}
		buf = pgio.AppendInt32(buf, 2)
		return pgio.AppendInt16(buf, int16(n)), nil
	case TypeInteger:
		if v.Kind() != mapping.ValueInt64 {
			return nil, encodeError(c, v)
		}
		n := v.Int64()
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, rangeError(c, n)
		}
		buf = pgio.AppendInt32(buf, 4)
		return pgio.AppendInt32(buf, int32(n)), nil
	case TypeBigInt:
		if v.Kind() != mapping.ValueInt64 {
			return nil, encodeError(c, v)
		}
		buf = pgio.AppendInt32(buf, 8)
		return pgio.AppendInt64(buf, v.Int64()), nil
	case TypeReal:
		if v.Kind() != mapping.ValueFloat64 {
			return nil, encodeError(c, v)
		}
		buf = pgio.AppendInt32(buf, 4)
		return pgio.AppendUint32(buf, math.Float32bits(float32(v.Float64()))), nil
	case TypeDoublePrecision:
		if v.Kind() != mapping.ValueFloat64 {
			return nil, encodeError(c, v)
		}
		buf = pgio.AppendInt32(buf, 8)
		return pgio.AppendUint64(buf, math.Float64bits(v.Float64())), nil
	case TypeText, TypeVarChar:
		if v.Kind() != mapping.ValueString {
			return nil, encodeError(c, v)
		}
		buf = pgio.AppendInt32(buf, int32(len(v.Text())))
		return append(buf, v.Text()...), nil
	case TypeBytea:
		if v.Kind() != mapping.ValueBytes {
			return nil, encodeError(c, v)
		}
		buf = pgio.AppendInt32(buf, int32(len(v.Bytes())))
		return append(buf, v.Bytes()...), nil
	case TypeTimestamp, TypeTimestampTZ:
		if v.Kind() != mapping.ValueTime {
			return nil, encodeError(c, v)
		}
		buf = pgio.AppendInt32(buf, 8)
		return pgio.AppendInt64(buf, TimestampMicros.Convert(v.Time())), nil
	case TypeDate:
		if v.Kind() != mapping.ValueTime {
			return nil, encodeError(c, v)
		}
		buf = pgio.AppendInt32(buf, 4)
		return pgio.AppendInt32(buf, DateDays.Convert(v.Time())), nil
	case TypeTime:
		if v.Kind() != mapping.ValueTime {
			return nil, encodeError(c, v)
		}
		buf = pgio.AppendInt32(buf, 8)
		return pgio.AppendInt64(buf, TimeOfDayMicros.Convert(v.Time())), nil
	case TypeNumeric:
		switch v.Kind() {
		case mapping.ValueString:
			return appendNumeric(buf, c, v.Text())
		case mapping.ValueInt64:
			return appendNumeric(buf, c, strconv.FormatInt(v.Int64(), 10))
		default:
			return nil, encodeError(c, v)
		}
	case TypeInet:
		if v.Kind() != mapping.ValueString {
			return nil, encodeError(c, v)
		}
		return appendInet(buf, c, v.Text())
	case TypeUUID:
		if v.Kind() != mapping.ValueUUID {
			return nil, encodeError(c, v)
		}
		u := v.UUID()
		buf = pgio.AppendInt32(buf, 16)
		return append(buf, u[:]...), nil
	case TypeJSON:
		p, ok := textual(v)
		if !ok {
			return nil, encodeError(c, v)
		}
		buf = pgio.AppendInt32(buf, int32(len(p)))
		return append(buf, p...), nil
	case TypeJSONB:
		p, ok := textual(v)
		if !ok {
			return nil, encodeError(c, v)
		}
		buf = pgio.AppendInt32(buf, int32(len(p))+1)
		buf = append(buf, 1) // jsonb format version
		return append(buf, p...), nil
	default:
		return nil, fmt.Errorf("postgres: column %q: unsupported storage type %q", c.Name, c.Type)
	}
}

func textual(v mapping.Value) ([]byte, bool) {
	switch v.Kind() {
	case mapping.ValueString:
		return []byte(v.Text()), true
	case mapping.ValueBytes:
		return v.Bytes(), true
	default:
		return nil, false
	}
}

// numeric wire sign codes.
const (
	numericPositive = 0x0000
	numericNegative = 0x4000
)

// appendNumeric appends an arbitrary-precision decimal given in plain
// text form, such as "1234.5" or "-0.0001". The wire format carries the
// digits in base 10000 together with a decimal weight and scale.
func appendNumeric[T any](buf []byte, c *mapping.Column[T], s string) ([]byte, error) {
	input := s
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return nil, numericError(c, input)
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return nil, numericError(c, input)
		}
	}
	dscale := len(fracPart)
	intPart = strings.TrimLeft(intPart, "0")
	if pad := len(intPart) % 4; pad != 0 {
		intPart = strings.Repeat("0", 4-pad) + intPart
	}
	if pad := len(fracPart) % 4; pad != 0 {
		fracPart += strings.Repeat("0", 4-pad)
	}
	weight := len(intPart)/4 - 1
	digits := make([]int16, 0, (len(intPart)+len(fracPart))/4)
	for _, part := range []string{intPart, fracPart} {
		for i := 0; i < len(part); i += 4 {
			d, err := strconv.Atoi(part[i : i+4])
			if err != nil {
				return nil, numericError(c, input)
			}
			digits = append(digits, int16(d))
		}
	}
	for len(digits) > 0 && digits[0] == 0 {
		digits = digits[1:]
		weight--
	}
	for len(digits) > 0 && digits[len(digits)-1] == 0 {
		digits = digits[:len(digits)-1]
	}
	sign := uint16(numericPositive)
	if len(digits) == 0 {
		weight = 0
	} else if neg {
		sign = numericNegative
	}
	buf = pgio.AppendInt32(buf, int32(8+2*len(digits)))
	buf = pgio.AppendInt16(buf, int16(len(digits)))
	buf = pgio.AppendInt16(buf, int16(weight))
	buf = pgio.AppendUint16(buf, sign)
	buf = pgio.AppendInt16(buf, int16(dscale))
	for _, d := range digits {
		buf = pgio.AppendInt16(buf, d)
	}
	return buf, nil
}

// inet wire address families. IPv6 is AF_INET+1 regardless of the
// sending platform.
const (
	inetFamilyIPv4 = 2
	inetFamilyIPv6 = 3
)

// appendInet appends a host address given in text form, such as
// "192.168.0.1" or "::1".
func appendInet[T any](buf []byte, c *mapping.Column[T], s string) ([]byte, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("postgres: column %q (%s): invalid address %q", c.Name, c.Type, s)
	}
	if v4 := ip.To4(); v4 != nil {
		buf = pgio.AppendInt32(buf, 4+net.IPv4len)
		buf = append(buf, inetFamilyIPv4, 8*net.IPv4len, 0, net.IPv4len)
		return append(buf, v4...), nil
	}
	buf = pgio.AppendInt32(buf, 4+net.IPv6len)
	buf = append(buf, inetFamilyIPv6, 8*net.IPv6len, 0, net.IPv6len)
	return append(buf, ip.To16()...), nil
}

func encodeError[T any](c *mapping.Column[T], v mapping.Value) error {
	return fmt.Errorf("postgres: column %q (%s): cannot encode %s value", c.Name, c.Type, v.Kind())
}

func numericError[T any](c *mapping.Column[T], s string) error {
	return fmt.Errorf("postgres: column %q (%s): invalid decimal %q", c.Name, c.Type, s)
}

func rangeError[T any](c *mapping.Column[T], n int64) error {
	return fmt.Errorf("postgres: column %q (%s): value %d out of range", c.Name, c.Type, n)
}
