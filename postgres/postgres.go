// Copyright 2024-present The BulkPG Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package postgres provides the PostgreSQL side of the mapping core:
// storage type names, default type resolution, value converters and a
// binary COPY row encoder driven by a built descriptor.
package postgres

import (
	"github.com/bulkpg/bulkpg/mapping"
)

// PostgreSQL column types supported by the bulk writer.
//
// https://www.postgresql.org/docs/current/datatype.html
const (
	// Numeric types
	TypeSmallInt        = "smallint"
	TypeInteger         = "integer"
	TypeBigInt          = "bigint"
	TypeReal            = "real"
	TypeDoublePrecision = "double precision"
	TypeNumeric         = "numeric"

	// Character types
	TypeText    = "text"
	TypeVarChar = "varchar"

	// Binary data types
	TypeBytea = "bytea"

	// Date/time types
	TypeDate        = "date"
	TypeTime        = "time"
	TypeTimestamp   = "timestamp"
	TypeTimestampTZ = "timestamptz"

	// Boolean type
	TypeBoolean = "boolean"

	// Network address types
	TypeInet = "inet"

	// Other data types
	TypeUUID  = "uuid"
	TypeJSON  = "json"
	TypeJSONB = "jsonb"
)

// TypeMapping resolves native kinds to their default PostgreSQL column
// types. It implements mapping.TypeResolver and is safe for concurrent
// use.
type TypeMapping struct{}

// DefaultTypeMapping is the resolver used by NewDescriptor.
var DefaultTypeMapping mapping.TypeResolver = TypeMapping{}

// Resolve implements the mapping.TypeResolver interface.
func (TypeMapping) Resolve(k mapping.Kind) (string, error) {
	switch k {
	case mapping.KindBool:
		return TypeBoolean, nil
	case mapping.KindInt8, mapping.KindInt16:
		return TypeSmallInt, nil
	case mapping.KindInt32, mapping.KindInt:
		return TypeInteger, nil
	case mapping.KindInt64:
		return TypeBigInt, nil
	case mapping.KindFloat32:
		return TypeReal, nil
	case mapping.KindFloat64:
		return TypeDoublePrecision, nil
	case mapping.KindString:
		return TypeText, nil
	case mapping.KindBytes:
		return TypeBytea, nil
	case mapping.KindTime:
		return TypeTimestamp, nil
	case mapping.KindTimeOfDay:
		return TypeTime, nil
	case mapping.KindDate:
		return TypeDate, nil
	case mapping.KindUUID:
		return TypeUUID, nil
	case mapping.KindInet:
		return TypeInet, nil
	case mapping.KindNumeric:
		return TypeNumeric, nil
	case mapping.KindJSON:
		return TypeJSONB, nil
	default:
		return "", &mapping.UnsupportedTypeError{Kind: k}
	}
}

// NewDescriptor builds a descriptor for the given record type with the
// default PostgreSQL type resolution.
func NewDescriptor[T any](rt *mapping.RecordType[T], opts ...mapping.BuildOption) (*mapping.Descriptor[T], error) {
	return mapping.Build(rt, DefaultTypeMapping, opts...)
}
