// Package rel provides fluent builders for declaring entity relationships.
//
// Each relationship declares one of the four relational kinds, an optional
// back-reference (MappedBy) marking the declaring side as the inverse
// (non-owning) side, a cascade set, a fetch strategy, and the physical
// linkage (join column or join table):
//
//	// Order belongs to a Customer. Order owns the foreign key.
//	rel.ManyToOne("customer", Customer.Type).JoinColumn("customer_id")
//
//	// Customer has many Orders, owned by Order.customer.
//	rel.OneToMany("orders", Order.Type).
//		MappedBy("customer").
//		Cascade(rel.All).
//		OrphanRemoval()
//
//	// Post has many Tags through a join table.
//	rel.ManyToMany("tags", Tag.Type).JoinTable("post_tags", "post_id", "tag_id")
package rel

import (
	"fmt"
	"reflect"
	"strings"
)

// A Kind is the relational kind of a relationship.
type Kind uint8

// Relationship kinds. The abbreviations follow the usual relational naming:
// O2O is one-to-one, M2O many-to-one, O2M one-to-many, M2M many-to-many.
const (
	O2O Kind = iota
	M2O
	O2M
	M2M
)

// String returns the declaration name of the kind.
func (k Kind) String() string {
	switch k {
	case O2O:
		return "OneToOne"
	case M2O:
		return "ManyToOne"
	case O2M:
		return "OneToMany"
	case M2M:
		return "ManyToMany"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Collection reports if the declaring side holds a collection.
func (k Kind) Collection() bool {
	return k == O2M || k == M2M
}

// Inverse returns the kind the back-referenced side must declare for the
// pair to be consistent.
func (k Kind) Inverse() Kind {
	switch k {
	case O2M:
		return M2O
	case M2O:
		return O2M
	default:
		// OneToOne and ManyToMany pair with themselves.
		return k
	}
}

// A Cascade is a set of operations propagated from an owner to the targets
// of a relationship.
type Cascade uint8

// Cascade operations.
const (
	Persist Cascade = 1 << iota
	Merge
	Remove
	Refresh
	Detach

	// All is the closed set of every cascade operation.
	All = Persist | Merge | Remove | Refresh | Detach
)

// Has reports whether the set contains all operations of c.
func (cs Cascade) Has(c Cascade) bool { return cs&c == c }

// String returns the set in declaration form, e.g. "Persist|Remove".
func (cs Cascade) String() string {
	if cs == All {
		return "All"
	}
	var parts []string
	for _, c := range []struct {
		op   Cascade
		name string
	}{
		{Persist, "Persist"},
		{Merge, "Merge"},
		{Remove, "Remove"},
		{Refresh, "Refresh"},
		{Detach, "Detach"},
	} {
		if cs.Has(c.op) {
			parts = append(parts, c.name)
		}
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "|")
}

// A Fetch is the fetch strategy of a relationship.
type Fetch uint8

// Fetch strategies. Lazy is the default.
const (
	Lazy Fetch = iota
	Eager
)

// String returns the declaration name of the strategy.
func (f Fetch) String() string {
	if f == Eager {
		return "Eager"
	}
	return "Lazy"
}

// JoinTable describes the physical join table of a ManyToMany relationship:
// the table name and the two foreign-key columns, declared in
// (owner column, target column) order.
type JoinTable struct {
	Name    string
	Columns [2]string
}

// Descriptor is the data carried by relationship builders. It is consumed
// by the compiler/load package and should not be used directly.
type Descriptor struct {
	Name      string     // relationship (field) name.
	Kind      Kind       // relational kind.
	Type      string     // target entity name.
	MappedBy  string     // owning field on the target; set on inverse sides only.
	Column    string     // join column override, owning non-M2M sides only.
	Table     *JoinTable // join table, M2M owning sides only.
	Cascade   Cascade    // cascade set.
	Fetch     Fetch      // fetch strategy.
	Orphans   bool       // orphan removal.
	Required  bool       // relationship is required on create.
	Immutable bool       // relationship cannot be changed after create.
	Tag       string     // struct tag override.
	Comment   string     // doc comment on the generated field.
	Err       error      // deferred builder misuse error.
}

// err records the first builder misuse error on the descriptor.
func (d *Descriptor) err(format string, args ...any) {
	if d.Err == nil {
		d.Err = fmt.Errorf(format, args...)
	}
}

// typeName resolves the entity name from the marker method expression
// passed to the builders (e.g. Customer.Type has type func(Customer)).
func typeName(t any) string {
	rt := reflect.TypeOf(t)
	if rt == nil || rt.Kind() != reflect.Func || rt.NumIn() == 0 {
		return ""
	}
	return rt.In(0).Name()
}

// Builder is the shared chainable builder for all relationship kinds.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name string, k Kind, t any) *Builder {
	b := &Builder{desc: &Descriptor{Name: name, Kind: k, Type: typeName(t)}}
	if name == "" {
		b.desc.err("rel: relationship name cannot be empty")
	}
	if b.desc.Type == "" {
		b.desc.err("rel: %s(%q) target must be an entity Type method (e.g. User.Type)", k, name)
	}
	return b
}

// OneToOne declares a one-to-one relationship to the given entity type.
// The declaring side owns the foreign key unless MappedBy is set.
func OneToOne(name string, t any) *Builder { return newBuilder(name, O2O, t) }

// ManyToOne declares a many-to-one relationship to the given entity type.
// The declaring side always owns the foreign key.
func ManyToOne(name string, t any) *Builder { return newBuilder(name, M2O, t) }

// OneToMany declares a one-to-many collection of the given entity type.
// It is the inverse of a ManyToOne on the target and requires MappedBy.
func OneToMany(name string, t any) *Builder { return newBuilder(name, O2M, t) }

// ManyToMany declares a many-to-many collection of the given entity type.
// The declaring side owns the join table unless MappedBy is set.
func ManyToMany(name string, t any) *Builder { return newBuilder(name, M2M, t) }

// MappedBy marks the declaring side as the inverse (non-owning) side and
// names the owning field on the target entity.
func (b *Builder) MappedBy(name string) *Builder {
	if name == "" {
		b.desc.err("rel: MappedBy on %q requires a field name", b.desc.Name)
	}
	b.desc.MappedBy = name
	return b
}

// JoinColumn overrides the default foreign-key column name (<name>_id).
// Valid on owning non-ManyToMany sides only.
func (b *Builder) JoinColumn(column string) *Builder {
	if b.desc.Kind == M2M {
		b.desc.err("rel: JoinColumn is not applicable to ManyToMany %q; use JoinTable", b.desc.Name)
	}
	b.desc.Column = column
	return b
}

// JoinTable overrides the default join table of a ManyToMany relationship.
// Columns are declared in (owner column, target column) order.
func (b *Builder) JoinTable(table, ownerColumn, targetColumn string) *Builder {
	if b.desc.Kind != M2M {
		b.desc.err("rel: JoinTable is only applicable to ManyToMany, not %s %q", b.desc.Kind, b.desc.Name)
	}
	b.desc.Table = &JoinTable{Name: table, Columns: [2]string{ownerColumn, targetColumn}}
	return b
}

// Cascade adds operations to the cascade set of the relationship.
func (b *Builder) Cascade(ops ...Cascade) *Builder {
	for _, op := range ops {
		b.desc.Cascade |= op
	}
	return b
}

// Eager sets the fetch strategy to eager loading.
func (b *Builder) Eager() *Builder {
	b.desc.Fetch = Eager
	return b
}

// LazyLoad sets the fetch strategy to lazy loading. This is the default.
func (b *Builder) LazyLoad() *Builder {
	b.desc.Fetch = Lazy
	return b
}

// OrphanRemoval deletes children that are removed from the in-memory
// collection on the next update. Valid only on collection-valued inverse
// sides whose cascade set includes Remove.
func (b *Builder) OrphanRemoval() *Builder {
	b.desc.Orphans = true
	return b
}

// Required marks the relationship as required on entity creation.
func (b *Builder) Required() *Builder {
	b.desc.Required = true
	return b
}

// Immutable forbids changing the relationship after creation.
func (b *Builder) Immutable() *Builder {
	b.desc.Immutable = true
	return b
}

// StructTag overrides the struct tag of the generated field.
func (b *Builder) StructTag(tag string) *Builder {
	b.desc.Tag = tag
	return b
}

// Comment sets the doc comment of the generated field.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the relgen.Relationship interface.
func (b *Builder) Descriptor() *Descriptor { return b.desc }
