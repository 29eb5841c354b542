package sql

import (
	"fmt"
	"strings"

	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/schema/rel"
)

// Cascade synthesis. A delete plan is the ordered statement list removing
// one root row together with everything its Remove cascade reaches. The
// plan is computed once at generation time from the cascade closure;
// membership of each affected table is expressed as a nested subquery
// chain back to the root key, so every statement binds the same single
// argument and no per-row recursion happens at runtime.

// DeleteStep is one statement of a cascade delete plan.
type DeleteStep struct {
	// Query is the statement text. It binds exactly one argument: the
	// root primary key.
	Query string
	// Path is the relationship path from the root whose rows the step
	// removes; the root's own path for the final step.
	Path string
}

// CascadeDeletePlan computes the delete plan of root: join-table rows
// first, then detach updates of relationships cascading Detach, then
// entity rows children-first (the exact reverse of the cascade closure),
// the root row last.
func (b *Builder) CascadeDeletePlan(g *gen.Graph, root *gen.Type) ([]DeleteStep, error) {
	closure := g.CascadeClosure(root, rel.Remove)
	if root.HasCompositeID() && len(closure) > 1 {
		return nil, &gen.UnsupportedRelationshipShapeError{
			Type: root.Name, Rel: closure[1].Rel.Name,
			Reason: "cascade delete from a composite-keyed root requires a single-column key set",
		}
	}
	for _, step := range closure {
		if step.Type.HasCompositeID() && step.Type != root {
			return nil, &gen.UnsupportedRelationshipShapeError{
				Type: root.Name, Rel: step.Rel.Name,
				Reason: fmt.Sprintf("cascade delete cannot traverse composite-keyed entity %s through a single-column linkage", step.Type.Name),
			}
		}
	}

	// Key-set subqueries per closure path, built root-outwards so each
	// step can nest its parent's.
	keysets := make(map[string]string, len(closure))
	var steps []DeleteStep
	for _, step := range closure {
		if step.Rel == nil {
			keysets[step.Path] = fmt.Sprintf("SELECT %s FROM %s WHERE %s",
				b.Quote(root.PK[0].Column()), b.Quote(root.Table()), b.whereKey(root, "", 1))
			continue
		}
		parentPath := step.Path[:strings.LastIndexByte(step.Path, '.')]
		parentSet, ok := keysets[parentPath]
		if !ok {
			return nil, fmt.Errorf("gen/sql: cascade path %s has no resolved parent", step.Path)
		}
		membership := b.childMembership(step.Rel, parentSet)
		keysets[step.Path] = fmt.Sprintf("SELECT %s FROM %s WHERE %s",
			b.Quote(step.Type.PK[0].Column()), b.Quote(step.Type.Table()), membership)
		steps = append(steps, DeleteStep{
			Path: step.Path,
			Query: fmt.Sprintf("DELETE FROM %s WHERE %s",
				b.Quote(step.Type.Table()), membership),
		})
	}

	// Join-table rows referencing any deleted row go first; without this
	// the entity deletes would violate the join-table foreign keys. One
	// statement per distinct (join table, column, key set).
	var joinSteps []DeleteStep
	seen := make(map[string]bool)
	for _, step := range closure {
		for _, r := range step.Type.Rels {
			if !r.M2M() {
				continue
			}
			key := r.Rel.Table + "\x00" + r.Rel.Columns[0] + "\x00" + step.Path
			if seen[key] {
				continue
			}
			seen[key] = true
			query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
				b.Quote(r.Rel.Table), b.Quote(r.Rel.Columns[0]), keysets[step.Path])
			if step.Rel == nil {
				// The root's own join rows need no key-set indirection.
				query = b.JoinRowsDeleteQuery(r)
			}
			joinSteps = append(joinSteps, DeleteStep{
				Path:  step.Path + "." + r.Name,
				Query: query,
			})
		}
	}

	// Relationships cascading Detach keep their rows but null the foreign
	// keys referencing the deleted ones.
	var detachSteps []DeleteStep
	for _, step := range closure {
		for _, r := range step.Type.Rels {
			if r.M2M() || r.OwnFK() || !r.HasCascade(rel.Detach) || r.HasCascade(rel.Remove) {
				continue
			}
			query := b.ClearFKQuery(r)
			if step.Rel != nil {
				query = fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s IN (%s)",
					b.Quote(r.Rel.Table), b.Quote(r.JoinColumn()), b.Quote(r.JoinColumn()), keysets[step.Path])
			}
			detachSteps = append(detachSteps, DeleteStep{
				Path:  step.Path + "." + r.Name,
				Query: query,
			})
		}
	}

	// Children first: reverse the closure-ordered entity steps.
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	plan := append(joinSteps, detachSteps...)
	plan = append(plan, steps...)
	plan = append(plan, DeleteStep{
		Path:  root.Name,
		Query: b.DeleteQuery(root),
	})
	return plan, nil
}

// childMembership returns the predicate selecting the child rows of r
// whose parent keys are in parentSet.
func (b *Builder) childMembership(r *gen.Relationship, parentSet string) string {
	child := r.Type
	switch {
	case r.M2M():
		jt, ownerCol, targetCol := r.Rel.Table, r.Rel.Columns[0], r.Rel.Columns[1]
		return fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s IN (%s))",
			b.Quote(child.PK[0].Column()), b.Quote(targetCol), b.Quote(jt), b.Quote(ownerCol), parentSet)
	case r.OwnFK():
		// The parent's table holds the foreign key referencing the child.
		return fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s IN (%s))",
			b.Quote(child.PK[0].Column()), b.Quote(r.JoinColumn()), b.Quote(r.Owner.Table()),
			b.Quote(r.Owner.PK[0].Column()), parentSet)
	default:
		// The child's table holds the foreign key referencing the parent.
		return fmt.Sprintf("%s IN (%s)", b.Quote(r.JoinColumn()), parentSet)
	}
}
