package field

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// A Type represents a field type tag.
type Type uint8

// List of field types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeTime
	TypeBytes
	TypeUUID
	TypeInt
	TypeInt64
	TypeUint64
	TypeFloat64
	TypeString
	TypeEnum
	endTypes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeTime:    "time.Time",
	TypeBytes:   "[]byte",
	TypeUUID:    "uuid.UUID",
	TypeInt:     "int",
	TypeInt64:   "int64",
	TypeUint64:  "uint64",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeEnum:    "string",
}

// String returns the Go literal for the type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the given type is a valid field type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t >= TypeInt && t <= TypeFloat64
}

// Integer reports if the given type is an integral type.
func (t Type) Integer() bool {
	return t >= TypeInt && t <= TypeUint64
}

// TypeInfo holds the information regarding a field type.
type TypeInfo struct {
	Type    Type
	Ident   string // Go identifier for non-builtin types (e.g. uuid.UUID).
	PkgPath string // import path for Ident.
}

// String returns the Go literal for the type.
func (t TypeInfo) String() string {
	if t.Ident != "" {
		return t.Ident
	}
	return t.Type.String()
}

// Numeric reports if the underlying type is numeric.
func (t TypeInfo) Numeric() bool { return t.Type.Numeric() }

// Descriptor is the data carried by all field builders. It is consumed by
// the compiler/load package and should not be used directly.
type Descriptor struct {
	Name       string    // storage column name.
	Info       *TypeInfo // type information.
	Unique     bool      // unique constraint.
	Nillable   bool      // nullable column, pointer in Go.
	Optional   bool      // not required on create.
	Immutable  bool      // cannot be updated.
	PrimaryKey bool      // part of the entity primary key.
	Default    any       // default value on create, nil if none.
	StorageKey string    // column name override.
	Comment    string    // column comment.
	Enums      []string  // enum values, for enum fields only.
	Err        error     // deferred builder misuse error.
}

// err records the first builder misuse error on the descriptor.
func (d *Descriptor) err(format string, args ...any) {
	if d.Err == nil {
		d.Err = fmt.Errorf(format, args...)
	}
}

// Column returns the storage column of the field.
func (d *Descriptor) Column() string {
	if d.StorageKey != "" {
		return d.StorageKey
	}
	return d.Name
}

// builder provides the chainable configuration shared by all field builders.
// The concrete builders below embed it and add type-specific options.
type builder struct {
	desc *Descriptor
}

// Descriptor implements the relgen.Field interface.
func (b *builder) Descriptor() *Descriptor { return b.desc }

func newBuilder(name string, t Type) *builder {
	b := &builder{desc: &Descriptor{Name: name, Info: &TypeInfo{Type: t}}}
	if name == "" {
		b.desc.err("field: name cannot be empty")
	}
	return b
}

// A StringBuilder is the builder for string fields.
type StringBuilder struct{ builder }

// String returns a new string field builder.
func String(name string) *StringBuilder {
	return &StringBuilder{*newBuilder(name, TypeString)}
}

// Unique marks the field as unique in the table.
func (b *StringBuilder) Unique() *StringBuilder { b.desc.Unique = true; return b }

// Optional marks the field as not required on entity creation.
func (b *StringBuilder) Optional() *StringBuilder { b.desc.Optional = true; return b }

// Nillable makes the column nullable and the Go field a pointer.
func (b *StringBuilder) Nillable() *StringBuilder { b.desc.Nillable = true; return b }

// Immutable forbids updating the field after creation.
func (b *StringBuilder) Immutable() *StringBuilder { b.desc.Immutable = true; return b }

// PrimaryKey marks the field as (part of) the entity primary key.
// Declaration order of primary-key fields defines the composite key order.
func (b *StringBuilder) PrimaryKey() *StringBuilder { b.desc.PrimaryKey = true; return b }

// Default sets the default value on create.
func (b *StringBuilder) Default(s string) *StringBuilder { b.desc.Default = s; return b }

// StorageKey overrides the column name.
func (b *StringBuilder) StorageKey(key string) *StringBuilder { b.desc.StorageKey = key; return b }

// Comment sets the column comment.
func (b *StringBuilder) Comment(c string) *StringBuilder { b.desc.Comment = c; return b }

// An IntBuilder is the builder for integer fields.
type IntBuilder struct{ builder }

// Int returns a new int field builder.
func Int(name string) *IntBuilder {
	return &IntBuilder{*newBuilder(name, TypeInt)}
}

// Int64 returns a new int64 field builder.
func Int64(name string) *IntBuilder {
	return &IntBuilder{*newBuilder(name, TypeInt64)}
}

// Uint64 returns a new uint64 field builder.
func Uint64(name string) *IntBuilder {
	return &IntBuilder{*newBuilder(name, TypeUint64)}
}

// Unique marks the field as unique in the table.
func (b *IntBuilder) Unique() *IntBuilder { b.desc.Unique = true; return b }

// Optional marks the field as not required on entity creation.
func (b *IntBuilder) Optional() *IntBuilder { b.desc.Optional = true; return b }

// Nillable makes the column nullable and the Go field a pointer.
func (b *IntBuilder) Nillable() *IntBuilder { b.desc.Nillable = true; return b }

// Immutable forbids updating the field after creation.
func (b *IntBuilder) Immutable() *IntBuilder { b.desc.Immutable = true; return b }

// PrimaryKey marks the field as (part of) the entity primary key.
func (b *IntBuilder) PrimaryKey() *IntBuilder { b.desc.PrimaryKey = true; return b }

// Default sets the default value on create.
func (b *IntBuilder) Default(i int64) *IntBuilder { b.desc.Default = i; return b }

// StorageKey overrides the column name.
func (b *IntBuilder) StorageKey(key string) *IntBuilder { b.desc.StorageKey = key; return b }

// Comment sets the column comment.
func (b *IntBuilder) Comment(c string) *IntBuilder { b.desc.Comment = c; return b }

// A FloatBuilder is the builder for float fields.
type FloatBuilder struct{ builder }

// Float64 returns a new float64 field builder.
func Float64(name string) *FloatBuilder {
	return &FloatBuilder{*newBuilder(name, TypeFloat64)}
}

// Optional marks the field as not required on entity creation.
func (b *FloatBuilder) Optional() *FloatBuilder { b.desc.Optional = true; return b }

// Nillable makes the column nullable and the Go field a pointer.
func (b *FloatBuilder) Nillable() *FloatBuilder { b.desc.Nillable = true; return b }

// Immutable forbids updating the field after creation.
func (b *FloatBuilder) Immutable() *FloatBuilder { b.desc.Immutable = true; return b }

// Default sets the default value on create.
func (b *FloatBuilder) Default(f float64) *FloatBuilder { b.desc.Default = f; return b }

// StorageKey overrides the column name.
func (b *FloatBuilder) StorageKey(key string) *FloatBuilder { b.desc.StorageKey = key; return b }

// Comment sets the column comment.
func (b *FloatBuilder) Comment(c string) *FloatBuilder { b.desc.Comment = c; return b }

// A BoolBuilder is the builder for bool fields.
type BoolBuilder struct{ builder }

// Bool returns a new bool field builder.
func Bool(name string) *BoolBuilder {
	return &BoolBuilder{*newBuilder(name, TypeBool)}
}

// Optional marks the field as not required on entity creation.
func (b *BoolBuilder) Optional() *BoolBuilder { b.desc.Optional = true; return b }

// Nillable makes the column nullable and the Go field a pointer.
func (b *BoolBuilder) Nillable() *BoolBuilder { b.desc.Nillable = true; return b }

// Immutable forbids updating the field after creation.
func (b *BoolBuilder) Immutable() *BoolBuilder { b.desc.Immutable = true; return b }

// Default sets the default value on create.
func (b *BoolBuilder) Default(v bool) *BoolBuilder { b.desc.Default = v; return b }

// StorageKey overrides the column name.
func (b *BoolBuilder) StorageKey(key string) *BoolBuilder { b.desc.StorageKey = key; return b }

// Comment sets the column comment.
func (b *BoolBuilder) Comment(c string) *BoolBuilder { b.desc.Comment = c; return b }

// A TimeBuilder is the builder for time.Time fields.
type TimeBuilder struct{ builder }

// Time returns a new time field builder.
func Time(name string) *TimeBuilder {
	b := &TimeBuilder{*newBuilder(name, TypeTime)}
	b.desc.Info.Ident = "time.Time"
	b.desc.Info.PkgPath = "time"
	return b
}

// Optional marks the field as not required on entity creation.
func (b *TimeBuilder) Optional() *TimeBuilder { b.desc.Optional = true; return b }

// Nillable makes the column nullable and the Go field a pointer.
func (b *TimeBuilder) Nillable() *TimeBuilder { b.desc.Nillable = true; return b }

// Immutable forbids updating the field after creation.
func (b *TimeBuilder) Immutable() *TimeBuilder { b.desc.Immutable = true; return b }

// StorageKey overrides the column name.
func (b *TimeBuilder) StorageKey(key string) *TimeBuilder { b.desc.StorageKey = key; return b }

// Comment sets the column comment.
func (b *TimeBuilder) Comment(c string) *TimeBuilder { b.desc.Comment = c; return b }

// A UUIDBuilder is the builder for uuid.UUID fields.
type UUIDBuilder struct{ builder }

// UUID returns a new uuid field builder.
func UUID(name string) *UUIDBuilder {
	b := &UUIDBuilder{*newBuilder(name, TypeUUID)}
	b.desc.Info.Ident = "uuid.UUID"
	b.desc.Info.PkgPath = "github.com/google/uuid"
	return b
}

// Unique marks the field as unique in the table.
func (b *UUIDBuilder) Unique() *UUIDBuilder { b.desc.Unique = true; return b }

// Optional marks the field as not required on entity creation.
func (b *UUIDBuilder) Optional() *UUIDBuilder { b.desc.Optional = true; return b }

// Immutable forbids updating the field after creation.
func (b *UUIDBuilder) Immutable() *UUIDBuilder { b.desc.Immutable = true; return b }

// PrimaryKey marks the field as (part of) the entity primary key.
func (b *UUIDBuilder) PrimaryKey() *UUIDBuilder { b.desc.PrimaryKey = true; return b }

// Default sets a fixed default value on create. Most schemas want
// DefaultNew instead.
func (b *UUIDBuilder) Default(v uuid.UUID) *UUIDBuilder { b.desc.Default = v; return b }

// DefaultNew generates a random UUID on create.
func (b *UUIDBuilder) DefaultNew() *UUIDBuilder { b.desc.Default = uuid.New; return b }

// StorageKey overrides the column name.
func (b *UUIDBuilder) StorageKey(key string) *UUIDBuilder { b.desc.StorageKey = key; return b }

// Comment sets the column comment.
func (b *UUIDBuilder) Comment(c string) *UUIDBuilder { b.desc.Comment = c; return b }

// A BytesBuilder is the builder for []byte fields.
type BytesBuilder struct{ builder }

// Bytes returns a new bytes field builder.
func Bytes(name string) *BytesBuilder {
	return &BytesBuilder{*newBuilder(name, TypeBytes)}
}

// Optional marks the field as not required on entity creation.
func (b *BytesBuilder) Optional() *BytesBuilder { b.desc.Optional = true; return b }

// Nillable makes the column nullable and the Go field a pointer.
func (b *BytesBuilder) Nillable() *BytesBuilder { b.desc.Nillable = true; return b }

// StorageKey overrides the column name.
func (b *BytesBuilder) StorageKey(key string) *BytesBuilder { b.desc.StorageKey = key; return b }

// Comment sets the column comment.
func (b *BytesBuilder) Comment(c string) *BytesBuilder { b.desc.Comment = c; return b }

// An EnumBuilder is the builder for enum fields.
type EnumBuilder struct{ builder }

// Enum returns a new enum field builder.
func Enum(name string) *EnumBuilder {
	return &EnumBuilder{*newBuilder(name, TypeEnum)}
}

// Values sets the enum values.
func (b *EnumBuilder) Values(values ...string) *EnumBuilder {
	if len(values) == 0 {
		b.desc.err("field: enum %q has no values", b.desc.Name)
	}
	b.desc.Enums = append(b.desc.Enums, values...)
	return b
}

// Optional marks the field as not required on entity creation.
func (b *EnumBuilder) Optional() *EnumBuilder { b.desc.Optional = true; return b }

// Nillable makes the column nullable and the Go field a pointer.
func (b *EnumBuilder) Nillable() *EnumBuilder { b.desc.Nillable = true; return b }

// Default sets the default value on create. It must be one of the enum values.
func (b *EnumBuilder) Default(v string) *EnumBuilder {
	b.desc.Default = v
	return b
}

// StorageKey overrides the column name.
func (b *EnumBuilder) StorageKey(key string) *EnumBuilder { b.desc.StorageKey = key; return b }

// Comment sets the column comment.
func (b *EnumBuilder) Comment(c string) *EnumBuilder { b.desc.Comment = c; return b }

// Validate reports deferred descriptor errors. Called by compiler/load.
func (d *Descriptor) Validate() error {
	if d.Err != nil {
		return d.Err
	}
	if d.Info == nil || !d.Info.Type.Valid() {
		return errors.New("field: invalid type")
	}
	if d.Info.Type == TypeEnum {
		seen := make(map[string]struct{}, len(d.Enums))
		for _, v := range d.Enums {
			if v == "" {
				return fmt.Errorf("field: enum %q has an empty value", d.Name)
			}
			if _, ok := seen[v]; ok {
				return fmt.Errorf("field: enum %q has a duplicate value %q", d.Name, v)
			}
			seen[v] = struct{}{}
		}
	}
	if d.PrimaryKey && (d.Optional || d.Nillable) {
		return fmt.Errorf("field: primary-key field %q cannot be optional or nillable", d.Name)
	}
	return nil
}
