// Package load converts entity declarations into plain schema records
// consumed by the generation engine. Declarations are Go values (schemas
// embedding relgen.Schema), so loading is a direct, reflection-assisted
// transform with no package compilation involved.
package load

import (
	"fmt"
	"reflect"

	"github.com/syssam/relgen"
	"github.com/syssam/relgen/schema/field"
	"github.com/syssam/relgen/schema/rel"
)

// Schema represents an entity declaration after loading.
type Schema struct {
	Name   string          `json:"name,omitempty"`
	Table  string          `json:"table,omitempty"`
	Fields []*Field        `json:"fields,omitempty"`
	Rels   []*Relationship `json:"rels,omitempty"`
}

// Field represents a field declaration after loading.
type Field struct {
	Name       string          `json:"name,omitempty"`
	Info       *field.TypeInfo `json:"type,omitempty"`
	StorageKey string          `json:"storage_key,omitempty"`
	Unique     bool            `json:"unique,omitempty"`
	Nillable   bool            `json:"nillable,omitempty"`
	Optional   bool            `json:"optional,omitempty"`
	Immutable  bool            `json:"immutable,omitempty"`
	PrimaryKey bool            `json:"primary_key,omitempty"`
	Default    any             `json:"-"`
	Enums      []string        `json:"enums,omitempty"`
	Comment    string          `json:"comment,omitempty"`
}

// Relationship represents a relationship declaration after loading.
type Relationship struct {
	Name      string         `json:"name,omitempty"`
	Kind      rel.Kind       `json:"kind"`
	Type      string         `json:"type,omitempty"`
	MappedBy  string         `json:"mapped_by,omitempty"`
	Column    string         `json:"column,omitempty"`
	Table     *rel.JoinTable `json:"table,omitempty"`
	Cascade   rel.Cascade    `json:"cascade,omitempty"`
	Fetch     rel.Fetch      `json:"fetch,omitempty"`
	Orphans   bool           `json:"orphans,omitempty"`
	Required  bool           `json:"required,omitempty"`
	Immutable bool           `json:"immutable,omitempty"`
	Tag       string         `json:"tag,omitempty"`
	Comment   string         `json:"comment,omitempty"`
}

// NewField creates a loaded field from a field descriptor.
// It returns an error if the descriptor carries a deferred builder error.
func NewField(fd *field.Descriptor) (*Field, error) {
	if err := fd.Validate(); err != nil {
		return nil, err
	}
	return &Field{
		Name:       fd.Name,
		Info:       fd.Info,
		StorageKey: fd.StorageKey,
		Unique:     fd.Unique,
		Nillable:   fd.Nillable,
		Optional:   fd.Optional,
		Immutable:  fd.Immutable,
		PrimaryKey: fd.PrimaryKey,
		Default:    fd.Default,
		Enums:      fd.Enums,
		Comment:    fd.Comment,
	}, nil
}

// NewRelationship creates a loaded relationship from a relationship descriptor.
// It returns an error if the descriptor carries a deferred builder error.
func NewRelationship(rd *rel.Descriptor) (*Relationship, error) {
	if rd.Err != nil {
		return nil, rd.Err
	}
	return &Relationship{
		Name:      rd.Name,
		Kind:      rd.Kind,
		Type:      rd.Type,
		MappedBy:  rd.MappedBy,
		Column:    rd.Column,
		Table:     rd.Table,
		Cascade:   rd.Cascade,
		Fetch:     rd.Fetch,
		Orphans:   rd.Orphans,
		Required:  rd.Required,
		Immutable: rd.Immutable,
		Tag:       rd.Tag,
		Comment:   rd.Comment,
	}, nil
}

// MarshalSchema converts a single entity declaration into a Schema record.
func MarshalSchema(e relgen.Entity) (*Schema, error) {
	name := entityName(e)
	if name == "" {
		return nil, fmt.Errorf("load: cannot resolve entity name for %T", e)
	}
	s := &Schema{Name: name, Table: e.Config().Table}
	fields, rels := e.Fields(), e.Relationships()
	if m, ok := e.(interface{ Mixin() []relgen.Mixin }); ok {
		var mf []relgen.Field
		var mr []relgen.Relationship
		for _, mx := range m.Mixin() {
			mf = append(mf, mx.Fields()...)
			mr = append(mr, mx.Relationships()...)
		}
		fields = append(mf, fields...)
		rels = append(mr, rels...)
	}
	for _, f := range fields {
		lf, err := NewField(f.Descriptor())
		if err != nil {
			return nil, fmt.Errorf("load: entity %s: %w", name, err)
		}
		s.Fields = append(s.Fields, lf)
	}
	for _, r := range rels {
		lr, err := NewRelationship(r.Descriptor())
		if err != nil {
			return nil, fmt.Errorf("load: entity %s: %w", name, err)
		}
		s.Rels = append(s.Rels, lr)
	}
	return s, nil
}

// Load converts a set of entity declarations into Schema records,
// preserving declaration order. Duplicate entity names are rejected.
func Load(entities ...relgen.Entity) ([]*Schema, error) {
	schemas := make([]*Schema, 0, len(entities))
	seen := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		s, err := MarshalSchema(e)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("load: duplicate entity %s", s.Name)
		}
		seen[s.Name] = struct{}{}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// entityName returns the concrete struct name of the entity declaration.
func entityName(e relgen.Entity) string {
	t := reflect.TypeOf(e)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return ""
	}
	return t.Name()
}
