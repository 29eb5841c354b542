package rel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgen/schema/rel"
)

// Marker types standing in for entity declarations.
type Customer struct{}

func (Customer) Type() {}

type Order struct{}

func (Order) Type() {}

func TestKind(t *testing.T) {
	assert.Equal(t, "OneToOne", rel.O2O.String())
	assert.Equal(t, "ManyToOne", rel.M2O.String())
	assert.Equal(t, "OneToMany", rel.O2M.String())
	assert.Equal(t, "ManyToMany", rel.M2M.String())

	assert.True(t, rel.O2M.Collection())
	assert.True(t, rel.M2M.Collection())
	assert.False(t, rel.M2O.Collection())
	assert.False(t, rel.O2O.Collection())

	assert.Equal(t, rel.M2O, rel.O2M.Inverse())
	assert.Equal(t, rel.O2M, rel.M2O.Inverse())
	assert.Equal(t, rel.O2O, rel.O2O.Inverse())
	assert.Equal(t, rel.M2M, rel.M2M.Inverse())
}

func TestCascade(t *testing.T) {
	cs := rel.Cascade(0)
	assert.False(t, cs.Has(rel.Persist))
	assert.Equal(t, "None", cs.String())

	cs = rel.Persist | rel.Remove
	assert.True(t, cs.Has(rel.Persist))
	assert.True(t, cs.Has(rel.Remove))
	assert.False(t, cs.Has(rel.Persist|rel.Merge))
	assert.Equal(t, "Persist|Remove", cs.String())

	assert.True(t, rel.All.Has(rel.Detach))
	assert.Equal(t, "All", rel.All.String())
}

func TestFetch(t *testing.T) {
	assert.Equal(t, "Lazy", rel.Lazy.String())
	assert.Equal(t, "Eager", rel.Eager.String())
}

func TestManyToOne(t *testing.T) {
	d := rel.ManyToOne("customer", Customer.Type).
		JoinColumn("customer_id").
		Required().
		Immutable().
		Eager().
		Comment("owning customer").
		Descriptor()

	require.NoError(t, d.Err)
	assert.Equal(t, "customer", d.Name)
	assert.Equal(t, rel.M2O, d.Kind)
	assert.Equal(t, "Customer", d.Type)
	assert.Equal(t, "customer_id", d.Column)
	assert.True(t, d.Required)
	assert.True(t, d.Immutable)
	assert.Equal(t, rel.Eager, d.Fetch)
	assert.Equal(t, "owning customer", d.Comment)
}

func TestOneToMany(t *testing.T) {
	d := rel.OneToMany("orders", Order.Type).
		MappedBy("customer").
		Cascade(rel.Persist, rel.Remove).
		OrphanRemoval().
		Descriptor()

	require.NoError(t, d.Err)
	assert.Equal(t, rel.O2M, d.Kind)
	assert.Equal(t, "customer", d.MappedBy)
	assert.True(t, d.Cascade.Has(rel.Persist))
	assert.True(t, d.Cascade.Has(rel.Remove))
	assert.False(t, d.Cascade.Has(rel.Refresh))
	assert.True(t, d.Orphans)
	assert.Equal(t, rel.Lazy, d.Fetch)
}

func TestManyToMany(t *testing.T) {
	d := rel.ManyToMany("tags", Order.Type).
		JoinTable("order_tags", "order_id", "tag_id").
		Cascade(rel.All).
		Descriptor()

	require.NoError(t, d.Err)
	require.NotNil(t, d.Table)
	assert.Equal(t, "order_tags", d.Table.Name)
	assert.Equal(t, [2]string{"order_id", "tag_id"}, d.Table.Columns)
	assert.Equal(t, rel.All, d.Cascade)
}

func TestLazyLoadOverridesEager(t *testing.T) {
	d := rel.OneToOne("profile", Customer.Type).Eager().LazyLoad().Descriptor()
	assert.Equal(t, rel.Lazy, d.Fetch)
}

func TestBuilderMisuse(t *testing.T) {
	t.Run("empty_name", func(t *testing.T) {
		d := rel.ManyToOne("", Customer.Type).Descriptor()
		require.Error(t, d.Err)
		assert.Contains(t, d.Err.Error(), "name cannot be empty")
	})

	t.Run("non_marker_target", func(t *testing.T) {
		d := rel.ManyToOne("customer", "Customer").Descriptor()
		require.Error(t, d.Err)
		assert.Contains(t, d.Err.Error(), "entity Type method")
	})

	t.Run("join_column_on_m2m", func(t *testing.T) {
		d := rel.ManyToMany("tags", Order.Type).JoinColumn("tag_id").Descriptor()
		require.Error(t, d.Err)
		assert.Contains(t, d.Err.Error(), "JoinColumn is not applicable to ManyToMany")
	})

	t.Run("join_table_on_m2o", func(t *testing.T) {
		d := rel.ManyToOne("customer", Customer.Type).
			JoinTable("x", "a", "b").
			Descriptor()
		require.Error(t, d.Err)
		assert.Contains(t, d.Err.Error(), "JoinTable is only applicable to ManyToMany")
	})

	t.Run("empty_mapped_by", func(t *testing.T) {
		d := rel.OneToMany("orders", Order.Type).MappedBy("").Descriptor()
		require.Error(t, d.Err)
		assert.Contains(t, d.Err.Error(), "requires a field name")
	})

	t.Run("first_error_sticks", func(t *testing.T) {
		d := rel.ManyToMany("", Order.Type).JoinColumn("x").Descriptor()
		require.Error(t, d.Err)
		assert.Contains(t, d.Err.Error(), "name cannot be empty")
	})
}
