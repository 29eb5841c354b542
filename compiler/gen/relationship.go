package gen

import (
	"fmt"

	"github.com/syssam/relgen/compiler/load"
	"github.com/syssam/relgen/schema/rel"
)

type (
	// Relationship is an edge of the graph between two entity types.
	Relationship struct {
		def *load.Relationship
		// Name holds the name of the relationship.
		Name string
		// Kind holds the relational kind (O2O, M2O, O2M, M2M).
		Kind rel.Kind
		// Type holds the resolved target entity.
		Type *Type
		// Owner holds the declaring entity.
		Owner *Type
		// Inverse holds the mappedBy reference: the name of the owning
		// field on the target entity. Non-empty on inverse sides only.
		Inverse string
		// Ref points to the paired side of a bidirectional relationship,
		// if one exists.
		Ref *Relationship
		// Cascade holds the cascade operation set.
		Cascade rel.Cascade
		// Fetch holds the fetch strategy.
		Fetch rel.Fetch
		// OrphanRemoval indicates children removed from the in-memory
		// collection are deleted on the next update.
		OrphanRemoval bool
		// Required indicates the relationship is required on create.
		Required bool
		// Immutable indicates the relationship cannot be changed after create.
		Immutable bool
		// Comment holds the relationship comment, if any.
		Comment string
		// StructTag of the relationship field in the generated model.
		StructTag string
		// Rel holds the physical relation info of the relationship.
		Rel Relation
		// fk is the foreign key resolved for non-M2M relationships.
		fk *ForeignKey
	}

	// Relation holds the physical database information of a relationship.
	Relation struct {
		// Table holds the relation table. For O2O and M2O it is the table
		// holding the foreign key; for O2M it is the target's table; for
		// M2M it is the join table.
		Table string
		// Columns holds the relation columns in the table above. Non-M2M
		// relationships have one column (the foreign key). M2M
		// relationships have two, in (owner column, target column) order
		// from the perspective of the owning side.
		Columns []string
	}
)

// =============================================================================
// Relationship methods
// =============================================================================

// M2M reports if this is a many-to-many relationship.
func (r Relationship) M2M() bool { return r.Kind == rel.M2M }

// M2O reports if this is a many-to-one relationship.
func (r Relationship) M2O() bool { return r.Kind == rel.M2O }

// O2M reports if this is a one-to-many relationship.
func (r Relationship) O2M() bool { return r.Kind == rel.O2M }

// O2O reports if this is a one-to-one relationship.
func (r Relationship) O2O() bool { return r.Kind == rel.O2O }

// IsInverse reports if this is the inverse (non-owning) side.
func (r Relationship) IsInverse() bool { return r.Inverse != "" }

// IsOwning reports if this is the owning side: the side that physically
// holds the foreign key or join table.
func (r Relationship) IsOwning() bool { return !r.IsInverse() }

// IsCollection reports if the declaring side holds a collection.
func (r Relationship) IsCollection() bool { return r.Kind.Collection() }

// Eager reports if the relationship is fetched eagerly.
func (r Relationship) Eager() bool { return r.Fetch == rel.Eager }

// Label returns the label of the relationship (owner_relname format).
func (r Relationship) Label() string {
	return fmt.Sprintf("%s_%s", r.Owner.Label(), snake(r.Name))
}

// StructField returns the struct member of the relationship in the model.
func (r Relationship) StructField() string { return pascal(r.Name) }

// Constant returns the constant name of the relationship.
func (r Relationship) Constant() string { return "Rel" + pascal(r.Name) }

// TableConstant returns the constant name of the relation table.
func (r Relationship) TableConstant() string { return pascal(r.Name) + "Table" }

// ColumnConstant returns the constant name of the relation column.
func (r Relationship) ColumnConstant() string { return pascal(r.Name) + "Column" }

// OwnFK reports if the foreign key of this relationship resides in the
// declaring entity's own table.
func (r Relationship) OwnFK() bool {
	switch {
	case r.M2O():
		return true
	case r.O2O() && r.IsOwning():
		return true
	}
	return false
}

// ForeignKey returns the foreign key of a non-M2M relationship.
func (r *Relationship) ForeignKey() (*ForeignKey, error) {
	if r.fk != nil {
		return r.fk, nil
	}
	return nil, fmt.Errorf("relgen: foreign key was not found for relationship %q of kind %s", r.Name, r.Kind)
}

// JoinColumn returns the foreign-key column of a non-M2M relationship.
func (r Relationship) JoinColumn() string {
	if len(r.Rel.Columns) > 0 {
		return r.Rel.Columns[0]
	}
	return ""
}

// HasCascade reports if the cascade set contains the given operation.
func (r Relationship) HasCascade(op rel.Cascade) bool { return r.Cascade.Has(op) }

// MutationMethods returns the names of the synchronization helpers the
// generator emits for this relationship on the model.
func (r Relationship) MutationMethods() []string {
	if r.IsCollection() {
		return []string{"AddTo" + r.StructField(), "RemoveFrom" + r.StructField()}
	}
	return []string{"Set" + r.StructField()}
}

// QueryMethod returns the name of the navigation query method emitted for
// this relationship on the repository.
func (r Relationship) QueryMethod() string { return "Query" + r.StructField() }

// CountMethod returns the name of the count method emitted for this
// relationship on the repository.
func (r Relationship) CountMethod() string { return "Count" + r.StructField() }

// ExistsMethod returns the name of the existence method emitted for this
// relationship on the repository.
func (r Relationship) ExistsMethod() string { return "Has" + r.StructField() }

// LoadMethod returns the name of the batch-loading method emitted for this
// relationship on the repository.
func (r Relationship) LoadMethod() string { return "Load" + r.StructField() }
