package relgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgen"
	"github.com/syssam/relgen/schema/field"
	"github.com/syssam/relgen/schema/rel"
)

// TestSchemaDefaults tests the embeddable Schema base implementation.
func TestSchemaDefaults(t *testing.T) {
	s := relgen.Schema{}
	assert.Nil(t, s.Fields())
	assert.Nil(t, s.Relationships())
	assert.Nil(t, s.Mixin())
	assert.Equal(t, relgen.Config{}, s.Config())
}

// account is a minimal entity schema used by the interface tests.
type account struct {
	relgen.Schema
}

func (account) Fields() []relgen.Field {
	return []relgen.Field{
		field.String("name"),
	}
}

func (account) Relationships() []relgen.Relationship {
	return []relgen.Relationship{
		rel.ManyToOne("parent", account.Type),
	}
}

func (account) Config() relgen.Config {
	return relgen.Config{Table: "accounts_tbl"}
}

// TestEntityInterface tests that a schema embedding Schema satisfies
// Entity and that overrides shadow the defaults.
func TestEntityInterface(t *testing.T) {
	var e relgen.Entity = account{}

	fields := e.Fields()
	require.Len(t, fields, 1)
	assert.Equal(t, "name", fields[0].Descriptor().Name)

	rels := e.Relationships()
	require.Len(t, rels, 1)
	assert.Equal(t, "parent", rels[0].Descriptor().Name)
	assert.Equal(t, "account", rels[0].Descriptor().Type)

	assert.Equal(t, "accounts_tbl", e.Config().Table)
}

// TestTypeMarkerResolution tests that the Type marker method resolves the
// target entity name in relationship declarations.
func TestTypeMarkerResolution(t *testing.T) {
	d := rel.OneToMany("children", account.Type).MappedBy("parent").Descriptor()
	require.NoError(t, d.Err)
	assert.Equal(t, "account", d.Type)
	assert.Equal(t, "parent", d.MappedBy)
}
