// Package relgen is a metadata-driven repository code generator. Entity
// schemas declare persistent fields, keys and relationships; the compiler
// packages turn them into repository code that performs cascade-aware CRUD
// and relationship operations against a relational database.
package relgen

import (
	"github.com/syssam/relgen/schema/field"
	"github.com/syssam/relgen/schema/rel"
)

type (
	// Entity is the interface that all entity schemas implement.
	Entity interface {
		// Fields returns the persistent fields of the entity.
		Fields() []Field
		// Relationships returns the relationships declared on the entity.
		Relationships() []Relationship
		// Config returns optional entity-level configuration.
		Config() Config
		// Type is a marker method. Its receiver type is used to resolve
		// the entity name of relationship targets (e.g. rel.ManyToOne("owner", User.Type)).
		Type()
	}

	// Field is the interface implemented by the builders of the schema/field package.
	Field interface {
		Descriptor() *field.Descriptor
	}

	// Relationship is the interface implemented by the builders of the schema/rel package.
	Relationship interface {
		Descriptor() *rel.Descriptor
	}

	// Mixin is a reusable set of fields and relationships composed into
	// entity schemas. An entity declares its mixins by implementing
	//
	//	func (Order) Mixin() []relgen.Mixin
	//
	// Mixin fields and relationships precede the entity's own in
	// declaration order. See the schema/mixin package for the base
	// implementation and ready-made mixins.
	Mixin interface {
		Fields() []Field
		Relationships() []Relationship
	}

	// Config holds optional entity-level configuration.
	Config struct {
		// Table overrides the default table name
		// (the pluralized snake_case entity name).
		Table string
	}
)

// Schema is the default implementation of Entity. Entity schemas embed it
// and override the methods they need:
//
//	type Order struct {
//		relgen.Schema
//	}
//
//	func (Order) Fields() []relgen.Field { ... }
//	func (Order) Relationships() []relgen.Relationship { ... }
type Schema struct{}

// Fields of the schema. Empty by default.
func (Schema) Fields() []Field { return nil }

// Mixin of the schema. Empty by default.
func (Schema) Mixin() []Mixin { return nil }

// Relationships of the schema. Empty by default.
func (Schema) Relationships() []Relationship { return nil }

// Config of the schema. Zero value by default.
func (Schema) Config() Config { return Config{} }

// Type is the marker method used for target resolution.
func (Schema) Type() {}
