// Copyright 2024-present The BulkPG Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package mapping builds immutable column descriptors for record types.
// A Descriptor pairs each mapped column with a storage type tag and an
// extractor, and is consumed by a bulk writer that encodes rows onto the
// wire. The package is dialect-neutral: storage types are opaque tags and
// their resolution is delegated to a TypeResolver.
package mapping

import (
	"fmt"
)

type (
	// A RecordType statically describes a record: the target table, the
	// declared fields and the accessors that read field values from a
	// record instance. It replaces runtime introspection with an explicit
	// field table, typically assembled with the builder API in this
	// package or loaded from an HCL document.
	RecordType[T any] struct {
		Schema    string      // Optional schema qualifier.
		Table     string      // Target table name.
		Quote     bool        // Quote identifiers in generated statements.
		Fields    []*Field    // Declared fields, in order.
		Accessors []Accessor[T]
	}

	// A Field describes one declared record field. Only fields marked as
	// mapped produce a column in the built Descriptor; unmapped fields
	// still contribute their declared storage type, if any, to the
	// override table.
	Field struct {
		Name   string // Field name, used to resolve an accessor.
		Kind   Kind   // Native kind of the field value.
		Column string // Target column. Derived from Name if empty.
		Mapped bool
		// DataType is an explicitly declared storage type for the target
		// column. It preempts default resolution by a TypeResolver.
		DataType string
		// Enum declares enumerated storage for the field. Non-enum
		// fields leave it nil.
		Enum *EnumSpec
	}

	// An EnumSpec declares how an enumerated field is stored.
	EnumSpec struct {
		Mode EnumMode
		// Values are the declared names, indexed by ordinal. Required
		// for EnumName storage.
		Values []string
	}

	// An Accessor is a named zero-argument read of one record field.
	// A nil-safe Func returns the field value as a tagged Value, or the
	// absent Value if the record carries none.
	Accessor[T any] struct {
		Name string
		Func func(T) (Value, error)
	}

	// An Extractor returns the value of one column for a record
	// instance, or the absent Value. Extractors read only from the
	// record passed in and are safe for concurrent use.
	Extractor[T any] func(T) (Value, error)

	// A Column pairs a target column with its storage type tag and the
	// extractor producing its values. Columns are built once and never
	// mutated.
	Column[T any] struct {
		Name    string
		Type    string // Storage type tag, e.g. "smallint".
		Extract Extractor[T]
	}

	// A Descriptor is the immutable output of Build, consumed by a
	// downstream bulk writer. It is safe to share across concurrently
	// running writers; callers should build it once per record type and
	// reuse it.
	Descriptor[T any] struct {
		schema    string
		table     string
		quoted    bool
		columns   []*Column[T]
		overrides map[string]string
	}

	// A TypeResolver resolves a native kind to its default storage type.
	// Implementations must be pure and safe for concurrent use. An
	// unsupported kind is reported with an UnsupportedTypeError.
	TypeResolver interface {
		Resolve(Kind) (string, error)
	}

	// A Converter transforms a domain value into the wire-native
	// primitive it is encoded as, e.g. a time-of-day into microseconds
	// since midnight. Converters must be total over their domain and
	// perform no I/O; the downstream writer applies them to each
	// non-absent extracted value before encoding.
	Converter[S, T any] interface {
		Convert(S) T
	}

	// ConverterFunc adapts a function to the Converter interface.
	ConverterFunc[S, T any] func(S) T
)

// Convert implements the Converter interface.
func (f ConverterFunc[S, T]) Convert(s S) T { return f(s) }

// A Kind is a native field kind recognized by type resolution.
type Kind uint8

// Native field kinds.
const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindTime      // An absolute point in time.
	KindTimeOfDay // A clock time without a date.
	KindDate      // A calendar date without a clock time.
	KindUUID
	KindInet
	KindNumeric
	KindJSON
	KindEnum
)

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("invalid(%d)", uint8(k))
}

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindBool:      "bool",
	KindInt8:      "int8",
	KindInt16:     "int16",
	KindInt32:     "int32",
	KindInt:       "int",
	KindInt64:     "int64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindString:    "string",
	KindBytes:     "bytes",
	KindTime:      "time",
	KindTimeOfDay: "timeofday",
	KindDate:      "date",
	KindUUID:      "uuid",
	KindInet:      "inet",
	KindNumeric:   "numeric",
	KindJSON:      "json",
	KindEnum:      "enum",
}

// An EnumMode selects how an enumerated field value is stored.
type EnumMode string

// Enum storage modes.
const (
	// EnumOrdinal stores the zero-based ordinal. The column defaults to
	// a compact integer type unless an override names another one.
	EnumOrdinal EnumMode = "ORDINAL"
	// EnumName stores the declared name as text. Overrides are ignored.
	EnumName EnumMode = "NAME"
)

// SchemaName returns the target schema, possibly empty.
func (d *Descriptor[T]) SchemaName() string { return d.schema }

// TableName returns the target table.
func (d *Descriptor[T]) TableName() string { return d.table }

// Quoted reports whether identifiers should be quoted in statements
// generated for this descriptor.
func (d *Descriptor[T]) Quoted() bool { return d.quoted }

// Columns returns the ordered column descriptors.
func (d *Descriptor[T]) Columns() []*Column[T] {
	cols := make([]*Column[T], len(d.columns))
	copy(cols, d.columns)
	return cols
}

// Column returns the first column that matches the given name.
func (d *Descriptor[T]) Column(name string) (*Column[T], bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Overrides returns a copy of the override table consulted during the
// build: the caller-seeded entries merged with the field-declared ones.
func (d *Descriptor[T]) Overrides() map[string]string {
	m := make(map[string]string, len(d.overrides))
	for k, v := range d.overrides {
		m[k] = v
	}
	return m
}

// An UnsupportedTypeError is returned by a TypeResolver for a native
// kind it has no default storage type for.
type UnsupportedTypeError struct {
	Kind Kind
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("mapping: unsupported native type %s", e.Kind)
}

// An UnresolvableTypeError is returned by Build for a mapped field with
// neither a declared storage type, an override entry, nor a default
// resolution.
type UnresolvableTypeError struct {
	Field string
	Kind  Kind
}

func (e *UnresolvableTypeError) Error() string {
	return fmt.Sprintf("mapping: cannot resolve a storage type for field %q (%s)", e.Field, e.Kind)
}

// A MissingAccessorError is returned by Build in strict mode for a
// mapped field with no matching accessor. The default build skips such
// fields silently instead.
type MissingAccessorError struct {
	Field string
}

func (e *MissingAccessorError) Error() string {
	return fmt.Sprintf("mapping: no accessor matches field %q", e.Field)
}

// An ExtractError wraps a failure to read one column value from a
// record. It is fatal for the row being extracted and is never retried
// by this package.
type ExtractError struct {
	Column string
	Err    error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("mapping: extract column %q: %v", e.Column, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }
