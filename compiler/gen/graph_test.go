package gen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgen"
	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/compiler/load"
	"github.com/syssam/relgen/schema/field"
	"github.com/syssam/relgen/schema/rel"
)

// The test entity set is the usual commerce shape: a two-level cascade
// chain (Customer -> Order -> OrderItem) plus a bidirectional M2M
// (Product <-> Tag) hanging off the item level.

type Customer struct{ relgen.Schema }

func (Customer) Fields() []relgen.Field {
	return []relgen.Field{field.String("name")}
}

func (Customer) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.OneToMany("orders", Order.Type).
			MappedBy("customer").
			Cascade(rel.All).
			OrphanRemoval(),
	}
}

type Order struct{ relgen.Schema }

func (Order) Fields() []relgen.Field {
	return []relgen.Field{field.String("number").Unique()}
}

func (Order) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToOne("customer", Customer.Type).
			JoinColumn("customer_id").
			Required(),
		rel.OneToMany("items", OrderItem.Type).
			MappedBy("order").
			Cascade(rel.All).
			OrphanRemoval(),
	}
}

type OrderItem struct{ relgen.Schema }

func (OrderItem) Fields() []relgen.Field {
	return []relgen.Field{field.Int("quantity")}
}

func (OrderItem) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToOne("order", Order.Type).Required(),
		rel.ManyToOne("product", Product.Type).Required(),
	}
}

type Product struct{ relgen.Schema }

func (Product) Fields() []relgen.Field {
	return []relgen.Field{field.String("sku").Unique()}
}

func (Product) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToMany("tags", Tag.Type).
			JoinTable("product_tags", "product_id", "tag_id").
			Cascade(rel.Persist),
	}
}

type Tag struct{ relgen.Schema }

func (Tag) Fields() []relgen.Field {
	return []relgen.Field{field.String("name").Unique()}
}

func (Tag) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToMany("products", Product.Type).MappedBy("tags"),
	}
}

func buildGraph(t *testing.T, entities ...relgen.Entity) *gen.Graph {
	t.Helper()
	schemas, err := load.Load(entities...)
	require.NoError(t, err)
	cfg, err := gen.NewConfig()
	require.NoError(t, err)
	g, err := gen.NewGraph(cfg, schemas...)
	require.NoError(t, err)
	return g
}

func commerceGraph(t *testing.T) *gen.Graph {
	return buildGraph(t, Customer{}, Order{}, OrderItem{}, Product{}, Tag{})
}

func typeBy(t *testing.T, g *gen.Graph, name string) *gen.Type {
	t.Helper()
	typ, ok := g.TypeBy(name)
	require.True(t, ok, "entity %s not in graph", name)
	return typ
}

func relBy(t *testing.T, typ *gen.Type, name string) *gen.Relationship {
	t.Helper()
	r, ok := typ.RelBy(name)
	require.True(t, ok, "relationship %s not on %s", name, typ.Name)
	return r
}

func TestInverseResolution(t *testing.T) {
	g := commerceGraph(t)
	customer := typeBy(t, g, "Customer")
	order := typeBy(t, g, "Order")

	orders := relBy(t, customer, "orders")
	owning := relBy(t, order, "customer")

	assert.True(t, orders.IsInverse())
	assert.True(t, owning.IsOwning())
	assert.Same(t, owning, orders.Ref)
	assert.Same(t, orders, owning.Ref)

	// Physical relation flows from the owning side to the inverse side.
	assert.Equal(t, "orders", owning.Rel.Table)
	assert.Equal(t, []string{"customer_id"}, owning.Rel.Columns)
	assert.Equal(t, owning.Rel, orders.Rel)
}

func TestInverseM2MColumnsSwapped(t *testing.T) {
	g := commerceGraph(t)
	tags := relBy(t, typeBy(t, g, "Product"), "tags")
	products := relBy(t, typeBy(t, g, "Tag"), "products")

	assert.Equal(t, []string{"product_id", "tag_id"}, tags.Rel.Columns)
	assert.Equal(t, "product_tags", products.Rel.Table)
	assert.Equal(t, []string{"tag_id", "product_id"}, products.Rel.Columns)
}

func TestForeignKeyMaterialization(t *testing.T) {
	g := commerceGraph(t)
	order := typeBy(t, g, "Order")

	require.Len(t, order.ForeignKeys, 1)
	fk := order.ForeignKeys[0]
	assert.Equal(t, "customer_id", fk.Field.Name)
	assert.False(t, fk.Field.Nillable, "required relationship has a non-null foreign key")
	assert.Same(t, relBy(t, order, "customer"), fk.Rel)

	// Columns: primary key, declared fields, then foreign keys.
	assert.Equal(t, []string{"id", "number", "customer_id"}, order.Columns())

	// Default join column is <name>_id when none is declared.
	item := typeBy(t, g, "OrderItem")
	assert.Equal(t, "order_id", relBy(t, item, "order").JoinColumn())
	assert.Equal(t, []string{"id", "quantity", "order_id", "product_id"}, item.Columns())
}

func TestImplicitID(t *testing.T) {
	g := commerceGraph(t)
	customer := typeBy(t, g, "Customer")

	require.False(t, customer.HasCompositeID())
	id := customer.ID()
	assert.Equal(t, "id", id.Name)
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.Immutable)
	assert.False(t, id.UserDefined)
	assert.Equal(t, field.TypeInt64, id.Type.Type)
}

func TestInsertAndDeleteOrderAreDuals(t *testing.T) {
	g := commerceGraph(t)

	names := func(types []*gen.Type) []string {
		out := make([]string, len(types))
		for i, typ := range types {
			out[i] = typ.Name
		}
		return out
	}
	insert := names(g.InsertOrder())
	del := names(g.DeleteOrder())

	require.Len(t, insert, 5)
	pos := make(map[string]int, len(insert))
	for i, n := range insert {
		pos[n] = i
	}
	// Referenced tables come before their referencers.
	assert.Less(t, pos["Customer"], pos["Order"])
	assert.Less(t, pos["Order"], pos["OrderItem"])
	assert.Less(t, pos["Product"], pos["OrderItem"])

	for i := range insert {
		assert.Equal(t, insert[i], del[len(del)-1-i])
	}
}

func TestCascadeClosure(t *testing.T) {
	g := commerceGraph(t)
	customer := typeBy(t, g, "Customer")

	steps := g.CascadeClosure(customer, rel.Remove)
	require.Len(t, steps, 3)
	assert.Equal(t, "Customer", steps[0].Path)
	assert.Nil(t, steps[0].Rel)
	assert.Equal(t, "Customer.orders", steps[1].Path)
	assert.Equal(t, "Customer.orders.items", steps[2].Path)

	// Recomputing yields the identical closure.
	assert.Equal(t, steps, g.CascadeClosure(customer, rel.Remove))

	// Persist does not propagate through the tags M2M inverse side.
	product := typeBy(t, g, "Product")
	persist := g.CascadeClosure(product, rel.Persist)
	require.Len(t, persist, 2)
	assert.Equal(t, "Product.tags", persist[1].Path)
}

func TestUnresolvedTarget(t *testing.T) {
	schemas, err := load.Load(Order{}, OrderItem{}, Product{}, Tag{})
	require.NoError(t, err)
	cfg, err := gen.NewConfig()
	require.NoError(t, err)
	_, err = gen.NewGraph(cfg, schemas...)
	require.ErrorIs(t, err, gen.ErrUnresolvedTarget)
	assert.Contains(t, err.Error(), `target "Customer" is not a known entity`)
}

type BadInverse struct{ relgen.Schema }

func (BadInverse) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.OneToMany("orders", Order.Type).MappedBy("nonexistent"),
	}
}

func TestInvalidMappedBy(t *testing.T) {
	schemas, err := load.Load(BadInverse{}, Order{}, Customer{}, OrderItem{}, Product{}, Tag{})
	require.NoError(t, err)
	cfg, err := gen.NewConfig()
	require.NoError(t, err)
	_, err = gen.NewGraph(cfg, schemas...)
	require.ErrorIs(t, err, gen.ErrInvalidMappedBy)
	assert.Contains(t, err.Error(), "no such relationship on target entity")
}

type Ping struct{ relgen.Schema }

func (Ping) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToOne("pong", Pong.Type).Required(),
	}
}

type Pong struct{ relgen.Schema }

func (Pong) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToOne("ping", Ping.Type).Required(),
	}
}

func TestCircularOwnershipRejected(t *testing.T) {
	schemas, err := load.Load(Ping{}, Pong{})
	require.NoError(t, err)
	cfg, err := gen.NewConfig()
	require.NoError(t, err)
	_, err = gen.NewGraph(cfg, schemas...)
	require.ErrorIs(t, err, gen.ErrCircularOwnership)
	assert.Contains(t, err.Error(), "Ping -> Pong -> Ping")
}

type Node struct{ relgen.Schema }

func (Node) Fields() []relgen.Field {
	return []relgen.Field{field.String("name")}
}

func (Node) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToOne("parent", Node.Type),
		rel.OneToMany("children", Node.Type).MappedBy("parent"),
	}
}

func TestOptionalSelfReferenceAllowed(t *testing.T) {
	g := buildGraph(t, Node{})
	node := typeBy(t, g, "Node")
	assert.Equal(t, []string{"id", "name", "parent_id"}, node.Columns())
	assert.Same(t, relBy(t, node, "parent"), relBy(t, node, "children").Ref)
}

func TestValidateOrphanRemoval(t *testing.T) {
	g := commerceGraph(t)
	require.Empty(t, g.Validate())
}

type LooseParent struct{ relgen.Schema }

func (LooseParent) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		// Orphan removal without Remove in the cascade set.
		rel.OneToMany("children", LooseChild.Type).
			MappedBy("parent").
			Cascade(rel.Persist).
			OrphanRemoval(),
	}
}

type LooseChild struct{ relgen.Schema }

func (LooseChild) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToOne("parent", LooseParent.Type),
	}
}

func TestValidateOrphanRemovalRequiresRemoveCascade(t *testing.T) {
	g := buildGraph(t, LooseParent{}, LooseChild{})
	errs := g.Validate()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], gen.ErrOrphanRemoval)
	assert.Contains(t, errs[0].Error(), "cascade set to include Remove")
}

func TestTypeNaming(t *testing.T) {
	g := commerceGraph(t)
	item := typeBy(t, g, "OrderItem")
	assert.Equal(t, "order_item", item.Label())
	assert.Equal(t, "order_items", item.Table())
	assert.Equal(t, "OrderItemRepository", item.RepositoryName())

	r := relBy(t, item, "order")
	assert.Equal(t, []string{"SetOrder"}, r.MutationMethods())
	assert.Equal(t, "QueryOrder", r.QueryMethod())
	assert.Equal(t, "HasOrder", r.ExistsMethod())

	orders := relBy(t, typeBy(t, g, "Customer"), "orders")
	assert.Equal(t, []string{"AddToOrders", "RemoveFromOrders"}, orders.MutationMethods())
	assert.Equal(t, "LoadOrders", orders.LoadMethod())
	assert.Equal(t, "CountOrders", orders.CountMethod())
}
