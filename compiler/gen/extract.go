package gen

import (
	"fmt"

	"github.com/syssam/relgen/compiler/load"
	"github.com/syssam/relgen/schema/rel"
)

// extractRels builds the Relationship records of t from its loaded schema.
// Targets are resolved against the given entity set; physical linkage
// (join column, join table) is computed for owning sides, with inverse
// sides enriched later during graph resolution. Errors are collected, not
// returned on first hit, so the caller reports every problem in one pass.
func extractRels(t *Type, byName map[string]*Type) []error {
	var errs []error
	for _, lr := range t.schema.Rels {
		if _, ok := t.rels[lr.Name]; ok {
			errs = append(errs, &SchemaError{Type: t.Name, Field: lr.Name, Message: "duplicate relationship"})
			continue
		}
		if _, ok := t.fields[lr.Name]; ok {
			errs = append(errs, &SchemaError{Type: t.Name, Field: lr.Name, Message: "relationship name conflicts with a field"})
			continue
		}
		target, ok := byName[lr.Type]
		if !ok {
			errs = append(errs, &UnresolvedTargetError{Type: t.Name, Rel: lr.Name, Target: lr.Type})
			continue
		}
		r := &Relationship{
			def:           lr,
			Name:          lr.Name,
			Kind:          lr.Kind,
			Type:          target,
			Owner:         t,
			Inverse:       lr.MappedBy,
			Cascade:       lr.Cascade,
			Fetch:         lr.Fetch,
			OrphanRemoval: lr.Orphans,
			Required:      lr.Required,
			Immutable:     lr.Immutable,
			Comment:       lr.Comment,
			StructTag:     structTag(lr.Name, lr.Tag),
		}
		if r.IsOwning() {
			r.Rel = owningRelation(t, target, lr)
		}
		t.rels[r.Name] = r
		t.Rels = append(t.Rels, r)
	}
	return errs
}

// owningRelation computes the physical relation of an owning side,
// applying the default naming conventions when no explicit join column or
// join table was declared.
func owningRelation(owner, target *Type, lr *load.Relationship) Relation {
	switch lr.Kind {
	case rel.M2O, rel.O2O:
		// Foreign key in the owner's table.
		return Relation{Table: owner.Table(), Columns: []string{joinColumn(lr)}}
	case rel.O2M:
		// Unidirectional one-to-many: foreign key in the target's table.
		return Relation{Table: target.Table(), Columns: []string{joinColumn(lr)}}
	default: // rel.M2M
		if jt := lr.Table; jt != nil {
			return Relation{Table: jt.Name, Columns: []string{jt.Columns[0], jt.Columns[1]}}
		}
		return Relation{Table: joinTable(owner, target), Columns: joinTableColumns(owner, target, lr)}
	}
}

// joinColumn returns the declared or default (<field>_id) foreign-key column.
func joinColumn(lr *load.Relationship) string {
	if lr.Column != "" {
		return lr.Column
	}
	return snake(lr.Name) + "_id"
}

// joinTable returns the default join table name: the two entity labels,
// alphabetically ordered.
func joinTable(owner, target *Type) string {
	a, b := owner.Label(), target.Label()
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// joinTableColumns returns the default join-table columns in
// (owner column, target column) order. Self-referential relationships
// derive the second column from the relationship name to avoid a collision.
func joinTableColumns(owner, target *Type, lr *load.Relationship) []string {
	ownerCol := owner.Label() + "_id"
	targetCol := target.Label() + "_id"
	if owner == target {
		targetCol = snake(lr.Name) + "_id"
	}
	return []string{ownerCol, targetCol}
}

// structTag returns the struct tag of a generated relationship field.
func structTag(name, tag string) string {
	if tag != "" {
		return tag
	}
	return fmt.Sprintf(`json:"%s,omitempty"`, snake(name))
}
