// Copyright 2024-present The BulkPG Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package mappinghcl loads record mapping declarations from HCL
// documents. A document declares the static field table of one or more
// record types; the caller binds typed accessors to a declaration and
// builds a descriptor from the result:
//
//	record "users" {
//		schema = "public"
//		field "id" {
//			kind = int
//		}
//		field "status" {
//			kind = enum
//			type = "smallint"
//			enum {
//				mode   = ORDINAL
//				values = ["ACTIVE", "INACTIVE"]
//			}
//		}
//	}
package mappinghcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/bulkpg/bulkpg/mapping"
)

type (
	// A File is a parsed mapping document.
	File struct {
		Records []*Record
	}

	// A Record is one declared record mapping: the target table and
	// its ordered field table. Accessors live in code and are attached
	// with Bind.
	Record struct {
		Name   string
		Schema string
		Quote  bool
		Fields []*mapping.Field
	}
)

// Record returns the first record that matches the given name.
func (f *File) Record(name string) (*Record, bool) {
	for _, r := range f.Records {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Bind attaches typed accessors to a declared record and returns the
// record type to build a descriptor from. The declared fields are
// copied; the File can be reused for further bindings.
func Bind[T any](r *Record, accessors ...mapping.Accessor[T]) *mapping.RecordType[T] {
	rt := mapping.NewRecordType[T](r.Name).
		SetSchema(r.Schema).
		SetQuoting(r.Quote)
	for _, f := range r.Fields {
		g := *f
		if f.Enum != nil {
			e := *f.Enum
			e.Values = append([]string(nil), f.Enum.Values...)
			g.Enum = &e
		}
		rt.AddFields(&g)
	}
	return rt.AddAccessors(accessors...)
}

type (
	fileHCL struct {
		Records []*recordHCL `hcl:"record,block"`
	}
	recordHCL struct {
		Name   string      `hcl:",label"`
		Schema string      `hcl:"schema,optional"`
		Quote  *bool       `hcl:"quote,optional"`
		Fields []*fieldHCL `hcl:"field,block"`
	}
	fieldHCL struct {
		Name   string   `hcl:",label"`
		Kind   string   `hcl:"kind"`
		Column string   `hcl:"column,optional"`
		Type   string   `hcl:"type,optional"`
		Mapped *bool    `hcl:"mapped,optional"`
		Enum   *enumHCL `hcl:"enum,block"`
	}
	enumHCL struct {
		Mode   string   `hcl:"mode"`
		Values []string `hcl:"values,optional"`
	}
)

// Parse parses an HCL document holding record mapping declarations.
func Parse(body []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	srcHCL, diag := parser.ParseHCL(body, filename)
	if diag.HasErrors() {
		return nil, diag
	}
	if srcHCL == nil {
		return nil, fmt.Errorf("mappinghcl: file %q contents is nil", filename)
	}
	f := &fileHCL{}
	if diag := gohcl.DecodeBody(srcHCL.Body, evalContext(), f); diag.HasErrors() {
		return nil, diag
	}
	out := &File{}
	for _, r := range f.Records {
		if _, ok := out.Record(r.Name); ok {
			return nil, fmt.Errorf("mappinghcl: duplicate record %q", r.Name)
		}
		rec, err := r.spec()
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func (r *recordHCL) spec() (*Record, error) {
	out := &Record{
		Name:   r.Name,
		Schema: r.Schema,
		Quote:  r.Quote == nil || *r.Quote,
	}
	for _, f := range r.Fields {
		spec, err := f.spec()
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, spec)
	}
	return out, nil
}

func (f *fieldHCL) spec() (*mapping.Field, error) {
	kind, ok := kinds[f.Kind]
	if !ok {
		return nil, fmt.Errorf("mappinghcl: field %q with unknown kind %q", f.Name, f.Kind)
	}
	out := &mapping.Field{
		Name:     f.Name,
		Kind:     kind,
		Column:   f.Column,
		Mapped:   f.Mapped == nil || *f.Mapped,
		DataType: f.Type,
	}
	switch {
	case kind == mapping.KindEnum && f.Enum == nil:
		return nil, fmt.Errorf("mappinghcl: enum field %q without an enum block", f.Name)
	case kind != mapping.KindEnum && f.Enum != nil:
		return nil, fmt.Errorf("mappinghcl: field %q of kind %s with an enum block", f.Name, kind)
	case f.Enum != nil:
		mode := mapping.EnumMode(f.Enum.Mode)
		if mode != mapping.EnumOrdinal && mode != mapping.EnumName {
			return nil, fmt.Errorf("mappinghcl: enum field %q with unknown mode %q", f.Name, f.Enum.Mode)
		}
		out.Enum = &mapping.EnumSpec{Mode: mode, Values: f.Enum.Values}
	}
	return out, nil
}

var kinds = map[string]mapping.Kind{
	"bool":      mapping.KindBool,
	"int8":      mapping.KindInt8,
	"int16":     mapping.KindInt16,
	"int32":     mapping.KindInt32,
	"int":       mapping.KindInt,
	"int64":     mapping.KindInt64,
	"float32":   mapping.KindFloat32,
	"float64":   mapping.KindFloat64,
	"string":    mapping.KindString,
	"bytes":     mapping.KindBytes,
	"time":      mapping.KindTime,
	"timeofday": mapping.KindTimeOfDay,
	"date":      mapping.KindDate,
	"uuid":      mapping.KindUUID,
	"inet":      mapping.KindInet,
	"numeric":   mapping.KindNumeric,
	"json":      mapping.KindJSON,
	"enum":      mapping.KindEnum,
}

// evalContext exposes the kind names and enum storage modes as bare
// identifiers, so documents can write "kind = int" and "mode = ORDINAL"
// without quoting.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(kinds)+2)
	for name := range kinds {
		vars[name] = cty.StringVal(name)
	}
	for _, mode := range []mapping.EnumMode{mapping.EnumOrdinal, mapping.EnumName} {
		vars[string(mode)] = cty.StringVal(string(mode))
	}
	return &hcl.EvalContext{Variables: vars}
}
