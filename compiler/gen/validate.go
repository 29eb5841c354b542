package gen

import (
	"fmt"

	"github.com/syssam/relgen/schema/rel"
)

// Validate checks the configuration consistency of the analyzed graph. It
// is pure and side-effect-free, and returns every problem found rather
// than stopping at the first one, so a single run surfaces all declaration
// errors. Generation does not proceed for a graph with validation errors.
func (g *Graph) Validate() []error {
	var errs []error
	for _, t := range g.Nodes {
		for _, r := range t.Rels {
			errs = append(errs, validateOrphanRemoval(t, r)...)
			errs = append(errs, validateJoinTable(t, r)...)
			errs = append(errs, validateTargetKey(t, r)...)
		}
	}
	return errs
}

// validateOrphanRemoval checks that orphan removal is declared only on
// collection-valued inverse sides whose cascade set carries Remove
// semantics: a child removed from the collection must actually be
// deletable through the relationship.
func validateOrphanRemoval(t *Type, r *Relationship) []error {
	if !r.OrphanRemoval {
		return nil
	}
	var errs []error
	if !r.IsCollection() {
		errs = append(errs, &OrphanRemovalMisconfiguredError{
			Type: t.Name, Rel: r.Name,
			Reason: fmt.Sprintf("only collection-valued relationships can remove orphans, not %s", r.Kind),
		})
	}
	if !r.IsInverse() {
		errs = append(errs, &OrphanRemovalMisconfiguredError{
			Type: t.Name, Rel: r.Name,
			Reason: "orphan removal requires the inverse side (mappedBy must be set)",
		})
	}
	if !r.HasCascade(rel.Remove) {
		errs = append(errs, &OrphanRemovalMisconfiguredError{
			Type: t.Name, Rel: r.Name,
			Reason: "orphan removal requires the cascade set to include Remove",
		})
	}
	return errs
}

// validateJoinTable checks the join-table descriptor of an owning M2M
// relationship: exactly two distinct, non-empty columns referencing the
// single-column primary keys of both sides.
func validateJoinTable(t *Type, r *Relationship) []error {
	if !r.M2M() || r.IsInverse() {
		return nil
	}
	var errs []error
	switch {
	case r.Rel.Table == "":
		errs = append(errs, &SchemaError{Type: t.Name, Field: r.Name, Message: "join table name cannot be empty"})
	case len(r.Rel.Columns) != 2 || r.Rel.Columns[0] == "" || r.Rel.Columns[1] == "":
		errs = append(errs, &SchemaError{Type: t.Name, Field: r.Name, Message: "join table requires exactly two column names"})
	case r.Rel.Columns[0] == r.Rel.Columns[1]:
		errs = append(errs, &SchemaError{Type: t.Name, Field: r.Name, Message: "join table columns must be distinct"})
	}
	for _, side := range []*Type{t, r.Type} {
		if side.HasCompositeID() {
			errs = append(errs, &UnsupportedRelationshipShapeError{
				Type: t.Name, Rel: r.Name,
				Reason: fmt.Sprintf("join table cannot reference composite-keyed entity %s with a single column per side", side.Name),
			})
		}
	}
	return errs
}

// validateTargetKey checks that the relationship target carries a primary
// key. The metadata model injects an id field into keyless entities, so a
// violation here indicates a hand-built schema record.
func validateTargetKey(t *Type, r *Relationship) []error {
	if len(r.Type.PK) > 0 {
		return nil
	}
	return []error{&SchemaError{
		Type: t.Name, Field: r.Name,
		Message: fmt.Sprintf("target entity %s has no primary-key fields", r.Type.Name),
	}}
}
