package sql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgen"
	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/schema/field"
	"github.com/syssam/relgen/schema/rel"
)

func TestCascadeDeletePlan(t *testing.T) {
	g := commerceGraph(t)
	b := pg()

	t.Run("two_level_chain_deletes_children_first", func(t *testing.T) {
		plan, err := b.CascadeDeletePlan(g, typeBy(t, g, "Customer"))
		require.NoError(t, err)
		require.Len(t, plan, 3)

		assert.Equal(t, "Customer.orders.items", plan[0].Path)
		assert.Equal(t,
			`DELETE FROM "order_items" WHERE "order_id" IN (SELECT "id" FROM "orders" WHERE "customer_id" IN (SELECT "id" FROM "customers" WHERE "id" = $1))`,
			plan[0].Query)

		assert.Equal(t, "Customer.orders", plan[1].Path)
		assert.Equal(t,
			`DELETE FROM "orders" WHERE "customer_id" IN (SELECT "id" FROM "customers" WHERE "id" = $1)`,
			plan[1].Query)

		assert.Equal(t, "Customer", plan[2].Path)
		assert.Equal(t, `DELETE FROM "customers" WHERE "id" = $1`, plan[2].Query)
	})

	t.Run("join_table_rows_removed_before_the_row", func(t *testing.T) {
		// Product.tags cascades Persist only, so no tag rows are deleted,
		// but the product's join-table rows must go before the product.
		plan, err := b.CascadeDeletePlan(g, typeBy(t, g, "Product"))
		require.NoError(t, err)
		require.Len(t, plan, 2)

		assert.Equal(t, "Product.tags", plan[0].Path)
		assert.Equal(t,
			`DELETE FROM "product_tags" WHERE "product_id" = $1`,
			plan[0].Query)

		assert.Equal(t, "Product", plan[1].Path)
		assert.Equal(t, `DELETE FROM "products" WHERE "id" = $1`, plan[1].Query)
	})

	t.Run("inverse_m2m_side_cleans_its_column", func(t *testing.T) {
		plan, err := b.CascadeDeletePlan(g, typeBy(t, g, "Tag"))
		require.NoError(t, err)
		require.Len(t, plan, 2)

		assert.Equal(t,
			`DELETE FROM "product_tags" WHERE "tag_id" = $1`,
			plan[0].Query)
		assert.Equal(t, `DELETE FROM "tags" WHERE "id" = $1`, plan[1].Query)
	})

	t.Run("every_statement_binds_one_argument", func(t *testing.T) {
		for _, root := range []string{"Customer", "Order", "Product"} {
			plan, err := b.CascadeDeletePlan(g, typeBy(t, g, root))
			require.NoError(t, err)
			for _, step := range plan {
				assert.Contains(t, step.Query, "$1", "step %s", step.Path)
				assert.NotContains(t, step.Query, "$2", "step %s", step.Path)
			}
		}
	})
}

type Board struct{ relgen.Schema }

func (Board) Fields() []relgen.Field {
	return []relgen.Field{field.String("title")}
}

func (Board) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.OneToMany("posts", Post.Type).MappedBy("board").Cascade(rel.Remove),
	}
}

type Post struct{ relgen.Schema }

func (Post) Fields() []relgen.Field {
	return []relgen.Field{field.String("body")}
}

func (Post) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToOne("board", Board.Type).Required(),
		rel.ManyToMany("labels", Label.Type).
			JoinTable("post_labels", "post_id", "label_id"),
	}
}

type Label struct{ relgen.Schema }

func (Label) Fields() []relgen.Field {
	return []relgen.Field{field.String("name").Unique()}
}

func TestCascadeDeletePlanNestedJoinRows(t *testing.T) {
	g := buildGraph(t, Board{}, Post{}, Label{})
	b := pg()

	// Join rows of entities below the root are scoped through the key-set
	// chain back to the root key.
	plan, err := b.CascadeDeletePlan(g, typeBy(t, g, "Board"))
	require.NoError(t, err)
	require.Len(t, plan, 3)

	assert.Equal(t, "Board.posts.labels", plan[0].Path)
	assert.Equal(t,
		`DELETE FROM "post_labels" WHERE "post_id" IN (SELECT "id" FROM "posts" WHERE "board_id" IN (SELECT "id" FROM "boards" WHERE "id" = $1))`,
		plan[0].Query)

	assert.Equal(t,
		`DELETE FROM "posts" WHERE "board_id" IN (SELECT "id" FROM "boards" WHERE "id" = $1)`,
		plan[1].Query)
	assert.Equal(t, `DELETE FROM "boards" WHERE "id" = $1`, plan[2].Query)
}

type Folder struct{ relgen.Schema }

func (Folder) Fields() []relgen.Field {
	return []relgen.Field{field.String("label")}
}

func (Folder) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.OneToMany("documents", Document.Type).MappedBy("folder").Cascade(rel.Detach),
	}
}

type Document struct{ relgen.Schema }

func (Document) Fields() []relgen.Field {
	return []relgen.Field{field.String("title")}
}

func (Document) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToOne("folder", Folder.Type),
	}
}

func TestCascadeDeletePlanDetach(t *testing.T) {
	g := buildGraph(t, Folder{}, Document{})
	b := pg()

	// Detach keeps the documents but clears their foreign key before the
	// folder row goes away.
	plan, err := b.CascadeDeletePlan(g, typeBy(t, g, "Folder"))
	require.NoError(t, err)
	require.Len(t, plan, 2)

	assert.Equal(t, "Folder.documents", plan[0].Path)
	assert.Equal(t,
		`UPDATE "documents" SET "folder_id" = NULL WHERE "folder_id" = $1`,
		plan[0].Query)
	assert.Equal(t, `DELETE FROM "folders" WHERE "id" = $1`, plan[1].Query)
}

func TestCascadeDeletePlanCompositeRoot(t *testing.T) {
	g := buildGraph(t, Shipment{}, Tag{}, Product{})
	b := pg()

	_, err := b.CascadeDeletePlan(g, typeBy(t, g, "Shipment"))
	require.ErrorIs(t, err, gen.ErrUnsupportedShape)
	assert.Contains(t, err.Error(), "composite-keyed root")
}
