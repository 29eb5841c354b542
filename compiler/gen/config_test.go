package gen_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/schema/field"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := gen.NewConfig()
		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.Dialect)
		assert.Nil(t, cfg.IDType)
	})

	t.Run("options", func(t *testing.T) {
		cfg, err := gen.NewConfig(
			gen.WithPackage("example.com/app/repo"),
			gen.WithTarget("./repo"),
			gen.WithDialect("sqlite"),
			gen.WithIDType("uuid"),
		)
		require.NoError(t, err)
		assert.Equal(t, "example.com/app/repo", cfg.Package)
		assert.Equal(t, "./repo", cfg.Target)
		assert.Equal(t, "sqlite", cfg.Dialect)
		require.NotNil(t, cfg.IDType)
		assert.Equal(t, field.TypeUUID, cfg.IDType.Type)
		assert.Equal(t, "uuid.UUID", cfg.IDType.Ident)
	})

	t.Run("invalid_dialect", func(t *testing.T) {
		_, err := gen.NewConfig(gen.WithDialect("oracle"))
		require.Error(t, err)
		var cerr *gen.ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "Dialect", cerr.Option)
	})

	t.Run("invalid_id_type", func(t *testing.T) {
		_, err := gen.NewConfig(gen.WithIDType("float64"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported id type")
	})

	t.Run("empty_package", func(t *testing.T) {
		_, err := gen.NewConfig(gen.WithPackage(""))
		require.Error(t, err)
	})
}

func TestConfigFromFile(t *testing.T) {
	t.Run("full_file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "relgen.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"package: example.com/app/repo\n"+
				"target: ./repo\n"+
				"dialect: mysql\n"+
				"id_type: uint64\n"+
				"header: Code generated by relgen. DO NOT EDIT.\n",
		), 0o644))

		cfg, err := gen.ConfigFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "example.com/app/repo", cfg.Package)
		assert.Equal(t, "./repo", cfg.Target)
		assert.Equal(t, "mysql", cfg.Dialect)
		assert.Equal(t, field.TypeUint64, cfg.IDType.Type)
		assert.Equal(t, "Code generated by relgen. DO NOT EDIT.", cfg.Header)
	})

	t.Run("options_override_file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "relgen.yaml")
		require.NoError(t, os.WriteFile(path, []byte("dialect: mysql\n"), 0o644))

		cfg, err := gen.ConfigFromFile(path, gen.WithDialect("sqlite"))
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Dialect)
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := gen.ConfigFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config")
	})

	t.Run("malformed_yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "relgen.yaml")
		require.NoError(t, os.WriteFile(path, []byte("dialect: [unclosed\n"), 0o644))
		_, err := gen.ConfigFromFile(path)
		require.Error(t, err)
	})
}
