// Copyright 2024-present The BulkPG Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package mapping

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// A ValueKind is the tag of a Value variant.
type ValueKind uint8

// Value variants. The zero ValueKind is the explicit absence marker:
// an absent value is not an error and must be encoded downstream as a
// protocol null, never as a zero or empty-string default.
const (
	ValueAbsent ValueKind = iota
	ValueBool
	ValueInt64
	ValueFloat64
	ValueString
	ValueBytes
	ValueTime
	ValueUUID
)

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "invalid"
}

var valueKindNames = [...]string{
	ValueAbsent:  "absent",
	ValueBool:    "bool",
	ValueInt64:   "int64",
	ValueFloat64: "float64",
	ValueString:  "string",
	ValueBytes:   "bytes",
	ValueTime:    "time",
	ValueUUID:    "uuid",
}

// A Value is a tagged variant of one extracted column value. The zero
// Value is absent. Values are consumed uniformly by the downstream
// writer, which selects the wire encoding from the column's storage
// type and the variant tag.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	p    []byte
	t    time.Time
	u    uuid.UUID
}

// BoolValue returns a bool Value.
func BoolValue(b bool) Value { return Value{kind: ValueBool, b: b} }

// Int64Value returns an integer Value. All native integer widths,
// including enum ordinals, extract into this variant; the storage type
// tag decides the encoded width.
func Int64Value(i int64) Value { return Value{kind: ValueInt64, i: i} }

// Float64Value returns a floating-point Value.
func Float64Value(f float64) Value { return Value{kind: ValueFloat64, f: f} }

// StringValue returns a text Value.
func StringValue(s string) Value { return Value{kind: ValueString, s: s} }

// BytesValue returns a binary Value.
func BytesValue(p []byte) Value { return Value{kind: ValueBytes, p: p} }

// TimeValue returns a time Value. Timestamps, dates and times of day
// all extract into this variant.
func TimeValue(t time.Time) Value { return Value{kind: ValueTime, t: t} }

// UUIDValue returns a UUID Value.
func UUIDValue(u uuid.UUID) Value { return Value{kind: ValueUUID, u: u} }

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// Absent reports whether the Value carries no value.
func (v Value) Absent() bool { return v.kind == ValueAbsent }

// Bool returns the bool variant. It is the zero value for other kinds.
func (v Value) Bool() bool { return v.b }

// Int64 returns the integer variant. It is zero for other kinds.
func (v Value) Int64() int64 { return v.i }

// Float64 returns the floating-point variant. It is zero for other kinds.
func (v Value) Float64() float64 { return v.f }

// Text returns the text variant. It is empty for other kinds.
func (v Value) Text() string { return v.s }

// String renders the carried variant for diagnostics. It implements
// fmt.Stringer and is not an accessor; printing a Value never reports
// another variant as empty text.
func (v Value) String() string {
	switch v.kind {
	case ValueAbsent:
		return "absent"
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueInt64:
		return strconv.FormatInt(v.i, 10)
	case ValueFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case ValueString:
		return strconv.Quote(v.s)
	case ValueBytes:
		return fmt.Sprintf("0x%x", v.p)
	case ValueTime:
		return v.t.Format(time.RFC3339Nano)
	case ValueUUID:
		return v.u.String()
	}
	return "invalid"
}

// Bytes returns the binary variant. It is nil for other kinds.
func (v Value) Bytes() []byte { return v.p }

// Time returns the time variant. It is the zero time for other kinds.
func (v Value) Time() time.Time { return v.t }

// UUID returns the UUID variant. It is the zero UUID for other kinds.
func (v Value) UUID() uuid.UUID { return v.u }

type (
	integer interface {
		~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
	}
	float interface {
		~float32 | ~float64
	}
)

// NewAccessor returns an accessor over a raw read function. The
// function reports absence by returning the zero Value; a returned
// error fails extraction for the whole row.
func NewAccessor[T any](name string, fn func(T) (Value, error)) Accessor[T] {
	return Accessor[T]{Name: name, Func: fn}
}

// AccessBool returns an accessor for a bool field.
func AccessBool[T any, V ~bool](name string, fn func(T) V) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		return BoolValue(bool(fn(rec))), nil
	})
}

// AccessInt returns an accessor for an integer field of any width.
// Enumerated fields use it to access their zero-based ordinal.
func AccessInt[T any, V integer](name string, fn func(T) V) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		return Int64Value(int64(fn(rec))), nil
	})
}

// AccessFloat returns an accessor for a floating-point field.
func AccessFloat[T any, V float](name string, fn func(T) V) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		return Float64Value(float64(fn(rec))), nil
	})
}

// AccessString returns an accessor for a string field.
func AccessString[T any, V ~string](name string, fn func(T) V) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		return StringValue(string(fn(rec))), nil
	})
}

// AccessBytes returns an accessor for a binary field.
func AccessBytes[T any, V ~[]byte](name string, fn func(T) V) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		return BytesValue([]byte(fn(rec))), nil
	})
}

// AccessTime returns an accessor for a timestamp, date or time-of-day field.
func AccessTime[T any](name string, fn func(T) time.Time) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		return TimeValue(fn(rec)), nil
	})
}

// AccessUUID returns an accessor for a UUID field.
func AccessUUID[T any](name string, fn func(T) uuid.UUID) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		return UUIDValue(fn(rec)), nil
	})
}

// AccessNullBool returns an accessor for an optional bool field.
// A nil pointer extracts as absent.
func AccessNullBool[T any, V ~bool](name string, fn func(T) *V) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		v := fn(rec)
		if v == nil {
			return Value{}, nil
		}
		return BoolValue(bool(*v)), nil
	})
}

// AccessNullInt returns an accessor for an optional integer field.
// A nil pointer extracts as absent.
func AccessNullInt[T any, V integer](name string, fn func(T) *V) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		v := fn(rec)
		if v == nil {
			return Value{}, nil
		}
		return Int64Value(int64(*v)), nil
	})
}

// AccessNullFloat returns an accessor for an optional floating-point
// field. A nil pointer extracts as absent.
func AccessNullFloat[T any, V float](name string, fn func(T) *V) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		v := fn(rec)
		if v == nil {
			return Value{}, nil
		}
		return Float64Value(float64(*v)), nil
	})
}

// AccessNullString returns an accessor for an optional string field.
// A nil pointer extracts as absent.
func AccessNullString[T any, V ~string](name string, fn func(T) *V) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		v := fn(rec)
		if v == nil {
			return Value{}, nil
		}
		return StringValue(string(*v)), nil
	})
}

// AccessNullTime returns an accessor for an optional time field.
// A nil pointer extracts as absent.
func AccessNullTime[T any](name string, fn func(T) *time.Time) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		v := fn(rec)
		if v == nil {
			return Value{}, nil
		}
		return TimeValue(*v), nil
	})
}

// AccessNullUUID returns an accessor for an optional UUID field.
// A nil pointer extracts as absent.
func AccessNullUUID[T any](name string, fn func(T) *uuid.UUID) Accessor[T] {
	return NewAccessor(name, func(rec T) (Value, error) {
		v := fn(rec)
		if v == nil {
			return Value{}, nil
		}
		return UUIDValue(*v), nil
	})
}
