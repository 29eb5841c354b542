package gen

import (
	"fmt"
	"go/token"

	"github.com/syssam/relgen/compiler/load"
	"github.com/syssam/relgen/schema/field"
)

// defaultIDType is the type of the implicit "id" field injected into
// entities that declare no primary-key fields.
var defaultIDType = &field.TypeInfo{Type: field.TypeInt64}

type (
	// Type represents one entity in the graph: its table, fields, primary
	// key and relationships.
	Type struct {
		*Config
		schema *load.Schema
		// Name holds the entity name.
		Name string
		// Fields holds the non-key fields of the entity.
		Fields []*Field
		fields map[string]*Field
		// PK holds the primary-key fields in declaration order. Composite
		// keys preserve this order in generated WHERE clauses and are
		// always compared as a unit.
		PK []*Field
		// Rels holds the relationships declared on the entity.
		Rels []*Relationship
		rels map[string]*Relationship
		// ForeignKeys holds the foreign-key columns that reside in this
		// entity's table, derived from owning relationships.
		ForeignKeys []*ForeignKey
		foreignKeys map[string]struct{}
	}

	// Field holds the information of an entity field.
	Field struct {
		def *load.Field
		typ *Type
		// Name is the declared field name (snake_case).
		Name string
		// Type holds the type information of the field.
		Type *field.TypeInfo
		// Unique indicates if the field is unique in its table.
		Unique bool
		// Optional indicates if the field is optional on create.
		Optional bool
		// Nillable indicates that the field can be null in the database
		// and a pointer in the generated model.
		Nillable bool
		// Immutable indicates the field cannot be updated.
		Immutable bool
		// PrimaryKey indicates the field is part of the primary key.
		PrimaryKey bool
		// Default indicates if the field has a default value on create.
		Default bool
		// Enums holds the values of enum fields.
		Enums []string
		// Comment holds the field comment, if any.
		Comment string
		// UserDefined indicates the field was declared in the schema, as
		// opposed to the implicit id field injected by the generator.
		UserDefined bool
	}

	// ForeignKey holds the information for a foreign-key column residing
	// in an entity's table.
	ForeignKey struct {
		// Field information for the foreign-key column.
		Field *Field
		// Rel is the owning relationship associated with this foreign key.
		Rel *Relationship
	}
)

// NewType creates a new type and its fields from the given schema.
func NewType(c *Config, schema *load.Schema) (*Type, error) {
	typ := &Type{
		Config:      c,
		schema:      schema,
		Name:        schema.Name,
		Fields:      make([]*Field, 0, len(schema.Fields)),
		fields:      make(map[string]*Field, len(schema.Fields)),
		rels:        make(map[string]*Relationship, len(schema.Rels)),
		foreignKeys: make(map[string]struct{}),
	}
	if err := ValidSchemaName(typ.Name); err != nil {
		return nil, err
	}
	for _, f := range schema.Fields {
		tf := &Field{
			def:         f,
			typ:         typ,
			Name:        f.Name,
			Type:        f.Info,
			Unique:      f.Unique,
			Nillable:    f.Nillable,
			Optional:    f.Optional,
			Immutable:   f.Immutable,
			PrimaryKey:  f.PrimaryKey,
			Default:     f.Default != nil,
			Enums:       f.Enums,
			Comment:     f.Comment,
			UserDefined: true,
		}
		if err := typ.checkField(tf); err != nil {
			return nil, err
		}
		typ.fields[f.Name] = tf
		if f.PrimaryKey {
			typ.PK = append(typ.PK, tf)
		} else {
			typ.Fields = append(typ.Fields, tf)
		}
	}
	if len(typ.PK) == 0 {
		// Every entity has at least one primary-key field.
		id := &Field{
			typ:        typ,
			Name:       "id",
			Type:       c.idType(),
			PrimaryKey: true,
			Immutable:  true,
		}
		if existing, ok := typ.fields["id"]; ok {
			// A plain "id" field declared without PrimaryKey() is promoted.
			existing.PrimaryKey = true
			existing.Immutable = true
			typ.PK = append(typ.PK, existing)
			typ.Fields = removeField(typ.Fields, existing)
		} else {
			typ.fields["id"] = id
			typ.PK = append(typ.PK, id)
		}
	}
	return typ, nil
}

func removeField(fields []*Field, f *Field) []*Field {
	out := fields[:0]
	for _, x := range fields {
		if x != f {
			out = append(out, x)
		}
	}
	return out
}

func (t *Type) checkField(tf *Field) error {
	switch {
	case tf.Name == "":
		return &SchemaError{Type: t.Name, Message: "field name cannot be empty"}
	case tf.Type == nil || !tf.Type.Type.Valid():
		return &SchemaError{Type: t.Name, Field: tf.Name, Message: "invalid field type"}
	case t.fields[tf.Name] != nil:
		return &SchemaError{Type: t.Name, Field: tf.Name, Message: "duplicate field"}
	}
	return nil
}

// ValidSchemaName checks the entity name for collisions with Go keywords
// and names reserved by the generated package.
func ValidSchemaName(name string) error {
	if name == "" {
		return &SchemaError{Message: "entity name cannot be empty"}
	}
	if token.Lookup(name).IsKeyword() {
		return &SchemaError{Type: name, Message: "entity name conflicts with a Go keyword"}
	}
	// Reserved by the generated package.
	for _, r := range []string{"Client", "Tx", "Type", "Config"} {
		if name == r {
			return &SchemaError{Type: name, Message: fmt.Sprintf("entity name conflicts with reserved name %q", r)}
		}
	}
	return nil
}

// =============================================================================
// Type methods
// =============================================================================

// Label returns the label name of the entity (snake_case).
func (t Type) Label() string { return snake(t.Name) }

// Table returns the SQL table name of the entity.
func (t Type) Table() string {
	if t.schema != nil && t.schema.Table != "" {
		return t.schema.Table
	}
	return snake(plural(t.Name))
}

// HasCompositeID reports if the entity has a composite primary key.
func (t Type) HasCompositeID() bool { return len(t.PK) > 1 }

// ID returns the single primary-key field of the entity. It panics on
// composite-keyed entities; callers branch on HasCompositeID first.
func (t Type) ID() *Field {
	if t.HasCompositeID() {
		panic(fmt.Sprintf("gen: entity %s has a composite primary key", t.Name))
	}
	return t.PK[0]
}

// PKColumns returns the primary-key column names in declaration order.
func (t Type) PKColumns() []string {
	cols := make([]string, len(t.PK))
	for i, f := range t.PK {
		cols[i] = f.Column()
	}
	return cols
}

// Columns returns all column names of the entity table: primary key first,
// then declared fields, then foreign keys.
func (t Type) Columns() []string {
	cols := t.PKColumns()
	for _, f := range t.Fields {
		cols = append(cols, f.Column())
	}
	for _, fk := range t.ForeignKeys {
		cols = append(cols, fk.Field.Column())
	}
	return cols
}

// Receiver returns the receiver name of the generated model.
func (t Type) Receiver() string { return "m" }

// RepositoryName returns the name of the generated repository type.
func (t Type) RepositoryName() string { return t.Name + "Repository" }

// PackageDir returns the name of the generated package directory.
func (t Type) PackageDir() string { return snake(t.Name) }

// HasField reports if the entity declares a field with the given name,
// including primary-key and foreign-key fields.
func (t Type) HasField(name string) bool {
	_, ok := t.fields[name]
	return ok
}

// FieldBy returns the field with the given name, if it exists.
func (t Type) FieldBy(name string) (*Field, bool) {
	f, ok := t.fields[name]
	return f, ok
}

// RelBy returns the relationship with the given name, if it exists.
func (t Type) RelBy(name string) (*Relationship, bool) {
	r, ok := t.rels[name]
	return r, ok
}

// HasRelationships reports if the entity declares any relationship.
func (t Type) HasRelationships() bool { return len(t.Rels) > 0 }

// addFK registers a foreign-key column in the entity's table. Adding the
// same column twice is a no-op so that bidirectional pairs resolve to one
// physical column.
func (t *Type) addFK(fk *ForeignKey) {
	column := fk.Field.Column()
	if _, ok := t.foreignKeys[column]; ok {
		return
	}
	t.foreignKeys[column] = struct{}{}
	t.fields[fk.Field.Name] = fk.Field
	t.ForeignKeys = append(t.ForeignKeys, fk)
}

// =============================================================================
// Field methods
// =============================================================================

// Column returns the table column of the field.
func (f Field) Column() string {
	if f.def != nil && f.def.StorageKey != "" {
		return f.def.StorageKey
	}
	return f.Name
}

// StructField returns the struct member of the field in the generated model.
func (f Field) StructField() string { return pascal(f.Name) }

// Constant returns the constant name of the field column.
func (f Field) Constant() string { return "Field" + pascal(f.Name) }

// IsTime reports if the field is a time.Time field.
func (f Field) IsTime() bool { return f.Type != nil && f.Type.Type == field.TypeTime }

// IsUUID reports if the field is a uuid.UUID field.
func (f Field) IsUUID() bool { return f.Type != nil && f.Type.Type == field.TypeUUID }

// NillableValue reports if the generated model field is a pointer.
func (f Field) NillableValue() bool { return f.Nillable }

// ZeroExpr returns the Go expression for the zero value of the field type.
// Generated cascade code compares against it for the transient check
// (a new entity has its key unset).
func (f Field) ZeroExpr() string {
	switch f.Type.Type {
	case field.TypeString, field.TypeEnum:
		return `""`
	case field.TypeBool:
		return "false"
	case field.TypeTime:
		return "time.Time{}"
	case field.TypeUUID:
		return "uuid.Nil"
	case field.TypeBytes:
		return "nil"
	default:
		return "0"
	}
}
