// Package mixin provides the base mixin implementation and ready-made
// mixins for relgen entity schemas.
//
// A mixin is a reusable set of fields and relationships composed into
// multiple entity schemas. To create a custom mixin, embed Schema and
// override the methods you need:
//
//	type AuditMixin struct {
//	    mixin.Schema
//	}
//
//	func (AuditMixin) Fields() []relgen.Field {
//	    return []relgen.Field{
//	        field.String("created_by").Immutable(),
//	        field.String("updated_by").Optional(),
//	    }
//	}
//
// An entity declares its mixins with the Mixin method; mixin fields and
// relationships precede the entity's own in declaration order:
//
//	func (User) Mixin() []relgen.Mixin {
//	    return []relgen.Mixin{
//	        mixin.Time{},       // created_at, updated_at
//	        mixin.SoftDelete{}, // deleted_at
//	    }
//	}
package mixin

import (
	"github.com/syssam/relgen"
	"github.com/syssam/relgen/schema/field"
)

// Schema is the default implementation of the relgen.Mixin interface.
// It should be embedded in all custom mixin definitions.
type Schema struct{}

// Fields returns the fields of the mixin. Empty by default.
func (Schema) Fields() []relgen.Field { return nil }

// Relationships returns the relationships of the mixin. Empty by default.
func (Schema) Relationships() []relgen.Relationship { return nil }

var _ relgen.Mixin = (*Schema)(nil)

// CreateTime adds an immutable created_at time field.
type CreateTime struct{ Schema }

// Fields of the create time mixin.
func (CreateTime) Fields() []relgen.Field {
	return []relgen.Field{
		field.Time("created_at").
			Immutable().
			Comment("Timestamp the entity was created at"),
	}
}

var _ relgen.Mixin = (*CreateTime)(nil)

// UpdateTime adds an updated_at time field.
type UpdateTime struct{ Schema }

// Fields of the update time mixin.
func (UpdateTime) Fields() []relgen.Field {
	return []relgen.Field{
		field.Time("updated_at").
			Comment("Timestamp the entity was last updated at"),
	}
}

var _ relgen.Mixin = (*UpdateTime)(nil)

// Time composes CreateTime and UpdateTime. It is the most common mixin
// for tracking entity timestamps.
type Time struct{ Schema }

// Fields of the time mixin.
func (Time) Fields() []relgen.Field {
	return append(
		CreateTime{}.Fields(),
		UpdateTime{}.Fields()...,
	)
}

var _ relgen.Mixin = (*Time)(nil)

// ID adds a UUID primary key generated on create.
//
// For custom ID schemes (e.g. Snowflake IDs), create your own mixin:
//
//	type SnowflakeID struct{ mixin.Schema }
//
//	func (SnowflakeID) Fields() []relgen.Field {
//	    return []relgen.Field{
//	        field.Int64("id").PrimaryKey().Immutable(),
//	    }
//	}
type ID struct{ Schema }

// Fields of the ID mixin.
func (ID) Fields() []relgen.Field {
	return []relgen.Field{
		field.UUID("id").
			DefaultNew().
			PrimaryKey().
			Immutable(),
	}
}

var _ relgen.Mixin = (*ID)(nil)

// SoftDelete adds a nullable deleted_at field. Entities are not
// physically deleted but marked with a deletion timestamp; nil means
// not deleted.
type SoftDelete struct{ Schema }

// Fields of the soft delete mixin.
func (SoftDelete) Fields() []relgen.Field {
	return []relgen.Field{
		field.Time("deleted_at").
			Optional().
			Nillable().
			Comment("Timestamp the entity was soft deleted at, nil if live"),
	}
}

var _ relgen.Mixin = (*SoftDelete)(nil)

// TenantID adds an immutable tenant_id field for multi-tenant row
// ownership. The field is immutable to prevent cross-tenant moves.
type TenantID struct{ Schema }

// Fields of the tenant id mixin.
func (TenantID) Fields() []relgen.Field {
	return []relgen.Field{
		field.String("tenant_id").
			Immutable(),
	}
}

var _ relgen.Mixin = (*TenantID)(nil)

// TimeSoftDelete composes Time and SoftDelete: created_at, updated_at
// and deleted_at.
type TimeSoftDelete struct{ Schema }

// Fields of the time soft delete mixin.
func (TimeSoftDelete) Fields() []relgen.Field {
	return append(
		Time{}.Fields(),
		SoftDelete{}.Fields()...,
	)
}

var _ relgen.Mixin = (*TimeSoftDelete)(nil)
