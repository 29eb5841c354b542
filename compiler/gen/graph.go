package gen

import (
	"errors"
	"fmt"

	"github.com/syssam/relgen/compiler/load"
	"github.com/syssam/relgen/schema/rel"
)

// Graph holds the analyzed, enriched relationship graph of an entity set.
// It is built once at generation time, immutable afterwards, and shared
// read-only by all emitters. Independent entity sets may be analyzed in
// parallel; a Graph has no shared mutable state.
type Graph struct {
	*Config
	// Nodes holds the entities of the graph in declaration order.
	Nodes []*Type
	nodes map[string]*Type
	// insertOrder holds the entities in referenced-before-referencer
	// order; deletion uses the reverse.
	insertOrder []*Type
}

// NewGraph creates a new graph from the given schemas: it builds the
// entity types, extracts and resolves their relationships, detects
// ownership cycles and computes the operation dependency order.
//
// Extraction and analysis errors are collected, not returned on first hit,
// so one pass reports every problem in the declarations.
func NewGraph(c *Config, schemas ...*load.Schema) (*Graph, error) {
	g := &Graph{Config: c, nodes: make(map[string]*Type, len(schemas))}
	var errs []error
	for _, s := range schemas {
		t, err := NewType(c, s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, ok := g.nodes[t.Name]; ok {
			errs = append(errs, &SchemaError{Type: t.Name, Message: "duplicate entity"})
			continue
		}
		g.nodes[t.Name] = t
		g.Nodes = append(g.Nodes, t)
	}
	for _, t := range g.Nodes {
		errs = append(errs, extractRels(t, g.nodes)...)
	}
	errs = append(errs, g.resolveInverses()...)
	errs = append(errs, g.resolveForeignKeys()...)
	if cycle := g.detectCycle(); cycle != nil {
		errs = append(errs, &CircularOwnershipError{Cycle: cycle})
	} else {
		g.insertOrder = g.topoSort()
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

// TypeBy returns the entity with the given name, if it exists.
func (g *Graph) TypeBy(name string) (*Type, bool) {
	t, ok := g.nodes[name]
	return t, ok
}

// resolveInverses binds every inverse side to its owning side: the
// mappedBy reference must name a relationship on the target entity that
// declares the matching inverse kind and points back at the declaring
// entity. Physical relation info flows from the owning side to the
// inverse side.
func (g *Graph) resolveInverses() []error {
	var errs []error
	for _, t := range g.Nodes {
		for _, r := range t.Rels {
			if !r.IsInverse() {
				continue
			}
			if r.M2O() {
				errs = append(errs, &InvalidMappedByError{
					Type: t.Name, Rel: r.Name, Target: r.Type.Name, MappedBy: r.Inverse,
					Reason: "ManyToOne is always the owning side and cannot declare mappedBy",
				})
				continue
			}
			ref, ok := r.Type.RelBy(r.Inverse)
			switch {
			case !ok:
				errs = append(errs, &InvalidMappedByError{
					Type: t.Name, Rel: r.Name, Target: r.Type.Name, MappedBy: r.Inverse,
					Reason: "no such relationship on target entity",
				})
				continue
			case ref.IsInverse():
				errs = append(errs, &InvalidMappedByError{
					Type: t.Name, Rel: r.Name, Target: r.Type.Name, MappedBy: r.Inverse,
					Reason: "referenced relationship is itself an inverse side",
				})
				continue
			case ref.Kind != r.Kind.Inverse():
				errs = append(errs, &InvalidMappedByError{
					Type: t.Name, Rel: r.Name, Target: r.Type.Name, MappedBy: r.Inverse,
					Reason: fmt.Sprintf("kind mismatch: %s pairs with %s, target declares %s", r.Kind, r.Kind.Inverse(), ref.Kind),
				})
				continue
			case ref.Type != t:
				errs = append(errs, &InvalidMappedByError{
					Type: t.Name, Rel: r.Name, Target: r.Type.Name, MappedBy: r.Inverse,
					Reason: fmt.Sprintf("referenced relationship targets %s, not %s", ref.Type.Name, t.Name),
				})
				continue
			case ref.Ref != nil && ref.Ref != r:
				errs = append(errs, &InvalidMappedByError{
					Type: t.Name, Rel: r.Name, Target: r.Type.Name, MappedBy: r.Inverse,
					Reason: fmt.Sprintf("owning side is already mapped by %s.%s", ref.Ref.Owner.Name, ref.Ref.Name),
				})
				continue
			}
			r.Ref, ref.Ref = ref, r
			switch {
			case r.M2M():
				// Same join table, columns seen from the inverse side.
				r.Rel = Relation{
					Table:   ref.Rel.Table,
					Columns: []string{ref.Rel.Columns[1], ref.Rel.Columns[0]},
				}
			default:
				r.Rel = ref.Rel
			}
		}
	}
	return errs
}

// resolveForeignKeys materializes the foreign-key column of every owning
// non-M2M relationship as a field on the table that holds it.
func (g *Graph) resolveForeignKeys() []error {
	var errs []error
	for _, t := range g.Nodes {
		for _, r := range t.Rels {
			if r.IsInverse() || r.M2M() {
				continue
			}
			referenced := r.Type
			if r.O2M() {
				// Unidirectional one-to-many: the foreign key resides in
				// the target's table and references the declaring entity.
				referenced = t
			}
			if referenced.HasCompositeID() {
				errs = append(errs, &UnsupportedRelationshipShapeError{
					Type: t.Name, Rel: r.Name,
					Reason: fmt.Sprintf("single join column cannot reference composite-keyed entity %s; a composite-key join requires one column per key field", referenced.Name),
				})
				continue
			}
			column := r.Rel.Columns[0]
			fk := &ForeignKey{
				Rel: r,
				Field: &Field{
					Name:     column,
					Type:     referenced.ID().Type,
					Optional: !r.Required,
					Nillable: !r.Required,
				},
			}
			fk.Field.typ = referenced
			r.fk = fk
			if r.Ref != nil {
				r.Ref.fk = fk
			}
			if r.O2M() {
				r.Type.addFK(fk)
			} else {
				t.addFK(fk)
			}
		}
	}
	return errs
}

// ownershipEdges returns the owning edges of the entity used for cycle
// detection: every owning relationship contributes an edge to its target.
// Optional self-references are excluded; a nullable self foreign key does
// not constrain operation ordering.
func ownershipEdges(t *Type) []*Relationship {
	var edges []*Relationship
	for _, r := range t.Rels {
		if r.IsInverse() {
			continue
		}
		if r.Type == t && !r.Required {
			continue
		}
		edges = append(edges, r)
	}
	return edges
}

// detectCycle runs a depth-first search over the owning edges and returns
// the first cycle found as a full entity path (ending where it starts),
// or nil if the ownership graph is acyclic.
func (g *Graph) detectCycle() []string {
	const (
		white = iota // unvisited
		gray         // on the current DFS stack
		black        // done
	)
	color := make(map[*Type]int, len(g.Nodes))
	var stack []string
	var visit func(t *Type) []string
	visit = func(t *Type) []string {
		color[t] = gray
		stack = append(stack, t.Name)
		for _, r := range ownershipEdges(t) {
			switch color[r.Type] {
			case gray:
				// Found a cycle; slice the stack from the repeated entity.
				for i, name := range stack {
					if name == r.Type.Name {
						return append(append([]string{}, stack[i:]...), r.Type.Name)
					}
				}
			case white:
				if cycle := visit(r.Type); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[t] = black
		return nil
	}
	for _, t := range g.Nodes {
		if color[t] == white {
			if cycle := visit(t); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// topoSort computes the insertion order of the entity set: every table is
// placed after the tables its foreign keys reference. Only non-M2M owning
// relationships constrain base-table ordering; join-table rows are written
// inside mutations after both sides exist.
func (g *Graph) topoSort() []*Type {
	// deps[t] holds the entities whose tables must be written before t's.
	deps := make(map[*Type][]*Type, len(g.Nodes))
	for _, t := range g.Nodes {
		for _, r := range t.Rels {
			if r.IsInverse() || r.M2M() || r.Type == t {
				continue
			}
			if r.O2M() {
				// Foreign key in the target's table references t.
				deps[r.Type] = append(deps[r.Type], t)
			} else {
				deps[t] = append(deps[t], r.Type)
			}
		}
	}
	var (
		order   = make([]*Type, 0, len(g.Nodes))
		visited = make(map[*Type]bool, len(g.Nodes))
		visit   func(t *Type)
	)
	visit = func(t *Type) {
		if visited[t] {
			return
		}
		visited[t] = true
		for _, dep := range deps[t] {
			visit(dep)
		}
		order = append(order, t)
	}
	// Declaration order keeps the result deterministic.
	for _, t := range g.Nodes {
		visit(t)
	}
	return order
}

// InsertOrder returns the entities in referenced-before-referencer order.
func (g *Graph) InsertOrder() []*Type {
	return g.insertOrder
}

// DeleteOrder returns the entities in the exact reverse of InsertOrder:
// children are removed before the entities they reference.
func (g *Graph) DeleteOrder() []*Type {
	out := make([]*Type, len(g.insertOrder))
	for i, t := range g.insertOrder {
		out[len(out)-1-i] = t
	}
	return out
}

// ClosureStep is one entry of a cascade closure: an entity reached from
// the closure root and the relationship path that reached it.
type ClosureStep struct {
	Type *Type
	// Rel is the relationship traversed to reach Type. Nil for the root.
	Rel *Relationship
	// Path is the dotted relationship path from the root, e.g.
	// "Customer.orders.items". The root's path is the entity name.
	Path string
}

// CascadeClosure computes the ordered, transitive set of entities affected
// by applying the given cascade operation at the root entity: it follows
// relationships whose cascade set contains the operation, depth-first in
// declaration order. A re-visited entity is a no-op, which both makes the
// computation idempotent and guards cascade-specific subgraphs that reach
// the same entity through multiple paths.
func (g *Graph) CascadeClosure(root *Type, op rel.Cascade) []ClosureStep {
	var (
		steps []ClosureStep
		seen  = make(map[*Type]bool, len(g.Nodes))
		visit func(t *Type, via *Relationship, path string)
	)
	visit = func(t *Type, via *Relationship, path string) {
		if seen[t] {
			return
		}
		seen[t] = true
		steps = append(steps, ClosureStep{Type: t, Rel: via, Path: path})
		for _, r := range t.Rels {
			if !r.HasCascade(op) {
				continue
			}
			visit(r.Type, r, path+"."+r.Name)
		}
	}
	visit(root, nil, root.Name)
	return steps
}
