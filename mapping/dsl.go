// Copyright 2024-present The BulkPG Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package mapping

// NewRecordType returns a new record type description for the given
// table. Identifier quoting is enabled by default.
func NewRecordType[T any](table string) *RecordType[T] {
	return &RecordType[T]{Table: table, Quote: true}
}

// SetSchema sets the schema qualifier of the target table.
func (r *RecordType[T]) SetSchema(schema string) *RecordType[T] {
	r.Schema = schema
	return r
}

// SetQuoting sets whether identifiers are quoted in statements
// generated for the built descriptor.
func (r *RecordType[T]) SetQuoting(quote bool) *RecordType[T] {
	r.Quote = quote
	return r
}

// AddFields appends the given fields to the record type.
func (r *RecordType[T]) AddFields(fields ...*Field) *RecordType[T] {
	r.Fields = append(r.Fields, fields...)
	return r
}

// AddAccessors appends the given accessors to the record type.
func (r *RecordType[T]) AddAccessors(accessors ...Accessor[T]) *RecordType[T] {
	r.Accessors = append(r.Accessors, accessors...)
	return r
}

// NewField returns a new declared field. The field does not produce a
// column unless marked with Map.
func NewField(name string, kind Kind) *Field {
	return &Field{Name: name, Kind: kind}
}

// MappedField returns a new field marked as a mapped column.
func MappedField(name string, kind Kind) *Field {
	return NewField(name, kind).Map()
}

// Map marks the field as a mapped column.
func (f *Field) Map() *Field {
	f.Mapped = true
	return f
}

// SetColumn sets an explicit target column name. Unset, the column
// name is derived from the field name at build time.
func (f *Field) SetColumn(name string) *Field {
	f.Column = name
	return f
}

// SetDataType declares an explicit storage type for the target column,
// preempting default type resolution.
func (f *Field) SetDataType(t string) *Field {
	f.DataType = t
	return f
}

// SetEnum declares enumerated storage for the field. Values are the
// declared names indexed by ordinal and are required for EnumName mode.
func (f *Field) SetEnum(mode EnumMode, values ...string) *Field {
	f.Enum = &EnumSpec{Mode: mode, Values: values}
	return f
}
