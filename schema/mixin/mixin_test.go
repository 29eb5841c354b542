package mixin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgen"
	"github.com/syssam/relgen/compiler/load"
	"github.com/syssam/relgen/schema/field"
	"github.com/syssam/relgen/schema/mixin"
	"github.com/syssam/relgen/schema/rel"
)

// TestSchemaBaseMixin tests the base Schema mixin defaults.
func TestSchemaBaseMixin(t *testing.T) {
	m := mixin.Schema{}

	t.Run("returns_nil_fields", func(t *testing.T) {
		assert.Nil(t, m.Fields())
	})

	t.Run("returns_nil_relationships", func(t *testing.T) {
		assert.Nil(t, m.Relationships())
	})
}

// TestBuiltinMixinFields tests the field sets of the ready-made mixins.
func TestBuiltinMixinFields(t *testing.T) {
	tests := []struct {
		name     string
		mixin    relgen.Mixin
		columns  []string
		validate func(t *testing.T, fields []relgen.Field)
	}{
		{
			name:    "create_time",
			mixin:   mixin.CreateTime{},
			columns: []string{"created_at"},
			validate: func(t *testing.T, fields []relgen.Field) {
				assert.True(t, fields[0].Descriptor().Immutable)
			},
		},
		{
			name:    "update_time",
			mixin:   mixin.UpdateTime{},
			columns: []string{"updated_at"},
			validate: func(t *testing.T, fields []relgen.Field) {
				assert.False(t, fields[0].Descriptor().Immutable)
			},
		},
		{
			name:    "time",
			mixin:   mixin.Time{},
			columns: []string{"created_at", "updated_at"},
		},
		{
			name:    "id",
			mixin:   mixin.ID{},
			columns: []string{"id"},
			validate: func(t *testing.T, fields []relgen.Field) {
				desc := fields[0].Descriptor()
				assert.True(t, desc.PrimaryKey)
				assert.True(t, desc.Immutable)
				assert.Equal(t, field.TypeUUID, desc.Info.Type)
				assert.NotNil(t, desc.Default)
			},
		},
		{
			name:    "soft_delete",
			mixin:   mixin.SoftDelete{},
			columns: []string{"deleted_at"},
			validate: func(t *testing.T, fields []relgen.Field) {
				desc := fields[0].Descriptor()
				assert.True(t, desc.Optional)
				assert.True(t, desc.Nillable)
			},
		},
		{
			name:    "tenant_id",
			mixin:   mixin.TenantID{},
			columns: []string{"tenant_id"},
			validate: func(t *testing.T, fields []relgen.Field) {
				assert.True(t, fields[0].Descriptor().Immutable)
			},
		},
		{
			name:    "time_soft_delete",
			mixin:   mixin.TimeSoftDelete{},
			columns: []string{"created_at", "updated_at", "deleted_at"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := tt.mixin.Fields()
			require.Len(t, fields, len(tt.columns))
			for i, name := range tt.columns {
				assert.Equal(t, name, fields[i].Descriptor().Name)
			}
			if tt.validate != nil {
				tt.validate(t, fields)
			}
		})
	}
}

// Audited is a test schema composing mixins with its own declarations.
type Audited struct {
	relgen.Schema
}

func (Audited) Mixin() []relgen.Mixin {
	return []relgen.Mixin{
		mixin.ID{},
		mixin.Time{},
	}
}

func (Audited) Fields() []relgen.Field {
	return []relgen.Field{
		field.String("name"),
	}
}

func (Audited) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToOne("parent", Audited.Type),
	}
}

// TestMixinComposition tests that mixin fields precede the entity's own
// declarations when the schema is loaded.
func TestMixinComposition(t *testing.T) {
	s, err := load.MarshalSchema(Audited{})
	require.NoError(t, err)

	require.Len(t, s.Fields, 4)
	assert.Equal(t, "id", s.Fields[0].Name)
	assert.Equal(t, "created_at", s.Fields[1].Name)
	assert.Equal(t, "updated_at", s.Fields[2].Name)
	assert.Equal(t, "name", s.Fields[3].Name)
	assert.True(t, s.Fields[0].PrimaryKey)

	require.Len(t, s.Rels, 1)
	assert.Equal(t, "parent", s.Rels[0].Name)
}

// TestCustomMixin tests creating a custom mixin by embedding Schema.
func TestCustomMixin(t *testing.T) {
	type audit struct {
		mixin.Schema
	}

	var _ relgen.Mixin = (*audit)(nil)

	fields := func(audit) []relgen.Field {
		return []relgen.Field{
			field.String("created_by"),
			field.String("updated_by").Optional(),
		}
	}(audit{})
	require.Len(t, fields, 2)
	assert.Equal(t, "created_by", fields[0].Descriptor().Name)
	assert.Equal(t, "updated_by", fields[1].Descriptor().Name)
}
