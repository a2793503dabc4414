// Package dtypes includes the DType enum for the data types a kernel descriptor can declare.
//
// It is forked from the GoMLX dtypes package, trimmed to the types kernel registries use, and extended
// with the spellings found in kernel registration payloads (e.g. "float" for Float32).
//
// It includes converters from Go native types (and reflect.Type), used by native kernels that are
// declared from Go generics.
package dtypes

import (
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

func init() {
	// Add a mapping to the lower-case version of dtypes.
	keys := slices.Collect(maps.Keys(MapOfNames))
	for _, key := range keys {
		lowerKey := strings.ToLower(key)
		if lowerKey == key {
			continue
		}
		if _, found := MapOfNames[lowerKey]; found {
			continue
		}
		MapOfNames[lowerKey] = MapOfNames[key]
	}
}

// FromName parses a dtype name, as written in registration payloads ("float16", "float", "int32", ...)
// or in Go style ("Float16").
//
// It returns an error for unknown names, and for "InvalidDType" itself: a registered kernel can't
// declare the wildcard.
func FromName(name string) (DType, error) {
	dtype, found := MapOfNames[name]
	if !found {
		dtype, found = MapOfNames[strings.ToLower(name)]
	}
	if !found || dtype == InvalidDType {
		return InvalidDType, errors.Errorf("unknown dtype %q", name)
	}
	return dtype, nil
}

// RegistryName returns the canonical lower-case name used in registration payloads.
// E.g.: Float32 -> "float32". The wildcard InvalidDType is rendered as "*".
func (dtype DType) RegistryName() string {
	if dtype == InvalidDType {
		return "*"
	}
	if !dtype.IsValid() {
		return dtype.String()
	}
	return registryNames[dtype]
}

// IsValid returns whether dtype is one of the enumerated data types (InvalidDType excluded).
func (dtype DType) IsValid() bool {
	return dtype > InvalidDType && dtype < lastDType
}

// All returns all valid dtypes, in enum order.
func All() []DType {
	all := make([]DType, 0, lastDType-1)
	for dtype := Bool; dtype < lastDType; dtype++ {
		all = append(all, dtype)
	}
	return all
}

// FromGenericsType returns the DType enum for the given type that this package knows about.
func FromGenericsType[T Supported]() DType {
	var t T
	return FromAny(t)
}

// FromGoType returns the DType for the given "reflect.Type".
// It returns InvalidDType for types without a corresponding DType.
func FromGoType(t reflect.Type) DType {
	if t == nil {
		return InvalidDType
	}
	if t == float16Type {
		return Float16
	}
	return kindToDType[t.Kind()]
}

// FromAny introspects the underlying type of any and returns the corresponding DType.
// Non-scalar types, or unsupported types return an InvalidType.
func FromAny(value any) DType {
	return FromGoType(reflect.TypeOf(value))
}

var (
	float16Type = reflect.TypeOf(float16.Float16(0))

	kindToDType = map[reflect.Kind]DType{
		reflect.Bool:       Bool,
		reflect.Int8:       Int8,
		reflect.Int16:      Int16,
		reflect.Int32:      Int32,
		reflect.Int64:      Int64,
		reflect.Uint8:      Uint8,
		reflect.Uint16:     Uint16,
		reflect.Uint32:     Uint32,
		reflect.Uint64:     Uint64,
		reflect.Float32:    Float32,
		reflect.Float64:    Float64,
		reflect.Complex64:  Complex64,
		reflect.Complex128: Complex128,
	}
)

// Size returns the number of bytes of one element of dtype, or 0 for InvalidDType.
func (dtype DType) Size() int {
	switch dtype {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16, Float16, BFloat16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64, Complex64:
		return 8
	case Complex128:
		return 16
	default:
		return 0
	}
}

// Bits returns the number of bits of one element of dtype.
func (dtype DType) Bits() int {
	return dtype.Size() * 8
}

// IsFloat returns whether dtype is a real floating point type, including BFloat16.
func (dtype DType) IsFloat() bool {
	switch dtype {
	case Float16, BFloat16, Float32, Float64:
		return true
	}
	return false
}

// IsComplex returns whether dtype is a complex number type.
func (dtype DType) IsComplex() bool {
	return dtype == Complex64 || dtype == Complex128
}

// IsInt returns whether dtype is an integer type, signed or unsigned.
func (dtype DType) IsInt() bool {
	return (dtype >= Int8 && dtype <= Int64) || dtype.IsUnsigned()
}

// IsUnsigned returns whether dtype is an unsigned integer type.
func (dtype DType) IsUnsigned() bool {
	return dtype >= Uint8 && dtype <= Uint64
}

// Supported lists the Go types that can be mapped to a DType.
// Used as traits for generics.
type Supported interface {
	bool | float16.Float16 |
		float32 | float64 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		complex64 | complex128
}
