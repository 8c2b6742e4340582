// Copyright 2024-present The BulkPG Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"
)

type (
	buildConfig struct {
		overrides map[string]string
		strict    bool
	}

	// A BuildOption configures a call to Build.
	BuildOption func(*buildConfig)
)

// WithOverrides seeds the override table with explicit column to
// storage-type entries. The map is copied before the build merges
// field-declared types into it; the caller keeps ownership of its map.
func WithOverrides(overrides map[string]string) BuildOption {
	return func(c *buildConfig) {
		c.overrides = overrides
	}
}

// WithStrictAccessors makes Build fail with a MissingAccessorError for
// a mapped field with no matching accessor, instead of skipping the
// field silently.
func WithStrictAccessors() BuildOption {
	return func(c *buildConfig) {
		c.strict = true
	}
}

// Build assembles the column descriptors for the given record type.
//
// Field-declared storage types are merged into the seeded override
// table first. Then, for each field marked as mapped and in declaration
// order, an accessor is resolved by name; fields without one are
// skipped silently unless WithStrictAccessors is set. Enumerated fields
// store either their ordinal or their declared name, and all other
// fields resolve their storage type from the override table or, failing
// that, from the resolver. Extraction errors surface per row at
// extraction time, never at build time.
//
// The returned Descriptor is immutable. Building it is a one-time,
// synchronous operation; callers should cache and reuse it across
// writers.
func Build[T any](rt *RecordType[T], resolver TypeResolver, opts ...BuildOption) (*Descriptor[T], error) {
	switch {
	case rt == nil:
		return nil, errors.New("mapping: nil record type")
	case rt.Table == "":
		return nil, errors.New("mapping: record type without a table name")
	case resolver == nil:
		return nil, errors.New("mapping: nil type resolver")
	}
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	d := &Descriptor[T]{
		schema:    rt.Schema,
		table:     rt.Table,
		quoted:    rt.Quote,
		overrides: collectOverrides(rt.Fields, cfg.overrides),
	}
	for _, f := range rt.Fields {
		if !f.Mapped {
			continue
		}
		ac, ok := findAccessor(rt.Accessors, f.Name)
		if !ok {
			if cfg.strict {
				return nil, &MissingAccessorError{Field: f.Name}
			}
			continue
		}
		var (
			c    *Column[T]
			err  error
			name = columnName(f)
		)
		if f.Enum != nil {
			c, err = enumColumn(f, name, ac, d.overrides, resolver)
		} else {
			c, err = fieldColumn(f, name, ac, d.overrides, resolver)
		}
		if err != nil {
			return nil, err
		}
		d.columns = append(d.columns, c)
	}
	return d, nil
}

// collectOverrides copies the seeded entries and merges the
// field-declared storage types into them. Fields are scanned in
// declaration order and later entries overwrite earlier ones for the
// same column; a field-declared type overwrites a seeded one.
func collectOverrides(fields []*Field, seed map[string]string) map[string]string {
	overrides := make(map[string]string, len(seed))
	for k, v := range seed {
		overrides[k] = v
	}
	for _, f := range fields {
		if f.DataType != "" {
			overrides[columnName(f)] = f.DataType
		}
	}
	return overrides
}

// columnName returns the target column of a field: the explicit name,
// or the underscored field name.
func columnName(f *Field) string {
	if f.Column != "" {
		return f.Column
	}
	return inflect.Underscore(f.Name)
}

// findAccessor returns the first accessor whose name ends with the
// field name, case-insensitively. The suffix match tolerates accessor
// naming conventions like "GetID" or "IsActive" for a field "id" or
// "active".
func findAccessor[T any](accessors []Accessor[T], field string) (Accessor[T], bool) {
	for _, a := range accessors {
		if strings.HasSuffix(strings.ToUpper(a.Name), strings.ToUpper(field)) {
			return a, true
		}
	}
	return Accessor[T]{}, false
}

func fieldColumn[T any](f *Field, name string, ac Accessor[T], overrides map[string]string, resolver TypeResolver) (*Column[T], error) {
	typ, ok := overrides[name]
	if !ok {
		var err error
		if typ, err = resolver.Resolve(f.Kind); err != nil {
			var u *UnsupportedTypeError
			if errors.As(err, &u) {
				return nil, &UnresolvableTypeError{Field: f.Name, Kind: f.Kind}
			}
			return nil, err
		}
	}
	return &Column[T]{Name: name, Type: typ, Extract: extractor(name, ac)}, nil
}

func enumColumn[T any](f *Field, name string, ac Accessor[T], overrides map[string]string, resolver TypeResolver) (*Column[T], error) {
	switch f.Enum.Mode {
	case EnumOrdinal:
		// An override decides the integer width of the stored ordinal.
		// Without one, fall back to the compact default.
		typ, ok := overrides[name]
		if !ok {
			var err error
			if typ, err = resolver.Resolve(KindInt16); err != nil {
				return nil, err
			}
		}
		return &Column[T]{Name: name, Type: typ, Extract: ordinalExtractor(name, ac)}, nil
	case EnumName:
		if len(f.Enum.Values) == 0 {
			return nil, fmt.Errorf("mapping: enum field %q declared name storage without values", f.Name)
		}
		typ, err := resolver.Resolve(KindString)
		if err != nil {
			return nil, err
		}
		return &Column[T]{Name: name, Type: typ, Extract: nameExtractor(name, ac, f.Enum.Values)}, nil
	default:
		return nil, fmt.Errorf("mapping: enum field %q with invalid storage mode %q", f.Name, f.Enum.Mode)
	}
}

// extractor invokes the accessor and wraps its failure. Absence is
// passed through untouched.
func extractor[T any](column string, ac Accessor[T]) Extractor[T] {
	return func(rec T) (Value, error) {
		v, err := ac.Func(rec)
		if err != nil {
			return Value{}, &ExtractError{Column: column, Err: err}
		}
		return v, nil
	}
}

// ordinalExtractor yields the zero-based ordinal of an enumerated
// field. An absent field value yields absent, never a default ordinal.
func ordinalExtractor[T any](column string, ac Accessor[T]) Extractor[T] {
	return func(rec T) (Value, error) {
		v, err := ac.Func(rec)
		switch {
		case err != nil:
			return Value{}, &ExtractError{Column: column, Err: err}
		case v.Absent():
			return v, nil
		case v.Kind() != ValueInt64:
			return Value{}, &ExtractError{Column: column, Err: fmt.Errorf("enum accessor returned %s, want an ordinal", v.Kind())}
		}
		return v, nil
	}
}

// nameExtractor yields the declared name of an enumerated field value.
// An absent field value yields absent, never a default name.
func nameExtractor[T any](column string, ac Accessor[T], values []string) Extractor[T] {
	return func(rec T) (Value, error) {
		v, err := ac.Func(rec)
		switch {
		case err != nil:
			return Value{}, &ExtractError{Column: column, Err: err}
		case v.Absent():
			return v, nil
		case v.Kind() != ValueInt64:
			return Value{}, &ExtractError{Column: column, Err: fmt.Errorf("enum accessor returned %s, want an ordinal", v.Kind())}
		}
		ord := v.Int64()
		if ord < 0 || ord >= int64(len(values)) {
			return Value{}, &ExtractError{Column: column, Err: fmt.Errorf("ordinal %d out of range for %d declared values", ord, len(values))}
		}
		return StringValue(values[ord]), nil
	}
}
