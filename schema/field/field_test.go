package field_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgen/schema/field"
)

func TestTypeString(t *testing.T) {
	assert.Equal(t, "string", field.TypeString.String())
	assert.Equal(t, "time.Time", field.TypeTime.String())
	assert.Equal(t, "uuid.UUID", field.TypeUUID.String())
	assert.Equal(t, "invalid", field.Type(200).String())
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, field.TypeInt64.Numeric())
	assert.True(t, field.TypeFloat64.Numeric())
	assert.False(t, field.TypeString.Numeric())

	assert.True(t, field.TypeUint64.Integer())
	assert.False(t, field.TypeFloat64.Integer())

	assert.True(t, field.TypeBool.Valid())
	assert.False(t, field.TypeInvalid.Valid())
}

func TestStringBuilder(t *testing.T) {
	d := field.String("email").
		Unique().
		Immutable().
		StorageKey("email_addr").
		Comment("login address").
		Descriptor()

	assert.Equal(t, "email", d.Name)
	assert.Equal(t, field.TypeString, d.Info.Type)
	assert.True(t, d.Unique)
	assert.True(t, d.Immutable)
	assert.Equal(t, "email_addr", d.StorageKey)
	assert.Equal(t, "email_addr", d.Column())
	assert.Equal(t, "login address", d.Comment)
	require.NoError(t, d.Validate())
}

func TestColumnDefaultsToName(t *testing.T) {
	d := field.Int("age").Descriptor()
	assert.Equal(t, "age", d.Column())
}

func TestIntBuilders(t *testing.T) {
	assert.Equal(t, field.TypeInt, field.Int("n").Descriptor().Info.Type)
	assert.Equal(t, field.TypeInt64, field.Int64("n").Descriptor().Info.Type)
	assert.Equal(t, field.TypeUint64, field.Uint64("n").Descriptor().Info.Type)

	d := field.Int64("quantity").Default(1).Descriptor()
	assert.Equal(t, int64(1), d.Default)
}

func TestTimeBuilder(t *testing.T) {
	d := field.Time("created_at").Immutable().Descriptor()
	assert.Equal(t, field.TypeTime, d.Info.Type)
	assert.Equal(t, "time.Time", d.Info.Ident)
	assert.Equal(t, "time", d.Info.PkgPath)
	assert.True(t, d.Immutable)
}

func TestUUIDBuilder(t *testing.T) {
	d := field.UUID("id").DefaultNew().PrimaryKey().Immutable().Descriptor()
	assert.Equal(t, field.TypeUUID, d.Info.Type)
	assert.Equal(t, "uuid.UUID", d.Info.Ident)
	assert.Equal(t, "github.com/google/uuid", d.Info.PkgPath)
	assert.True(t, d.PrimaryKey)
	require.NoError(t, d.Validate())

	// DefaultNew stores the generator function, not a value.
	gen, ok := d.Default.(func() uuid.UUID)
	require.True(t, ok)
	assert.NotEqual(t, gen(), gen())
}

func TestEnumBuilder(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d := field.Enum("status").Values("pending", "paid", "shipped").Default("pending").Descriptor()
		assert.Equal(t, []string{"pending", "paid", "shipped"}, d.Enums)
		assert.Equal(t, "pending", d.Default)
		require.NoError(t, d.Validate())
	})

	t.Run("no_values", func(t *testing.T) {
		d := field.Enum("status").Values().Descriptor()
		err := d.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no values")
	})

	t.Run("empty_value", func(t *testing.T) {
		d := field.Enum("status").Values("a", "").Descriptor()
		err := d.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty value")
	})

	t.Run("duplicate_value", func(t *testing.T) {
		d := field.Enum("status").Values("a", "b", "a").Descriptor()
		err := d.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate value "a"`)
	})
}

func TestValidate(t *testing.T) {
	t.Run("empty_name", func(t *testing.T) {
		err := field.String("").Descriptor().Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("primary_key_optional", func(t *testing.T) {
		err := field.String("code").PrimaryKey().Optional().Descriptor().Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be optional or nillable")
	})

	t.Run("primary_key_nillable", func(t *testing.T) {
		err := field.Int64("seq").PrimaryKey().Nillable().Descriptor().Validate()
		require.Error(t, err)
	})

	t.Run("deferred_error_wins", func(t *testing.T) {
		// The first misuse is reported even when later ones follow.
		d := field.Enum("").Values().Descriptor()
		err := d.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})
}
