package gen

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/relgen/dialect"
	"github.com/syssam/relgen/schema/field"
)

// Config holds the global codegen configuration shared by all types of
// a graph.
type Config struct {
	// Package is the import path of the generated package.
	Package string
	// Target is the output directory for generated files.
	Target string
	// Dialect is the SQL dialect generated queries target.
	// One of dialect.Postgres, dialect.MySQL, dialect.SQLite.
	Dialect string
	// IDType is the type of the implicit id field injected into entities
	// that declare no primary key. Defaults to int64.
	IDType *field.TypeInfo
	// Header is an optional header comment prepended to generated files.
	Header string
}

func (c *Config) idType() *field.TypeInfo {
	if c != nil && c.IDType != nil {
		return c.IDType
	}
	return defaultIDType
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("relgen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("relgen: config error for %q: %s", e.Option, e.Message)
}

// An Option configures the codegen Config.
type Option func(*Config) error

// WithPackage sets the output package import path.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return &ConfigError{Option: "Package", Message: "package path cannot be empty"}
		}
		c.Package = pkg
		return nil
	}
}

// WithTarget sets the output directory for generated files.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return &ConfigError{Option: "Target", Message: "target directory cannot be empty"}
		}
		c.Target = dir
		return nil
	}
}

// WithDialect sets the SQL dialect generated queries target.
func WithDialect(d string) Option {
	return func(c *Config) error {
		switch d {
		case dialect.Postgres, dialect.MySQL, dialect.SQLite:
			c.Dialect = d
			return nil
		default:
			return &ConfigError{Option: "Dialect", Value: d, Message: "unsupported dialect"}
		}
	}
}

// WithIDType sets the default id field type by name.
func WithIDType(t string) Option {
	return func(c *Config) error {
		info, ok := map[string]*field.TypeInfo{
			"int":    {Type: field.TypeInt},
			"int64":  {Type: field.TypeInt64},
			"uint64": {Type: field.TypeUint64},
			"string": {Type: field.TypeString},
			"uuid":   {Type: field.TypeUUID, Ident: "uuid.UUID", PkgPath: "github.com/google/uuid"},
		}[t]
		if !ok {
			return &ConfigError{Option: "IDType", Value: t, Message: "unsupported id type; use int, int64, uint64, string, or uuid"}
		}
		c.IDType = info
		return nil
	}
}

// WithHeader sets the header comment prepended to generated files.
func WithHeader(h string) Option {
	return func(c *Config) error {
		c.Header = h
		return nil
	}
}

// NewConfig builds a Config from the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{Dialect: dialect.Postgres}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// fileConfig is the on-disk form of Config (relgen.yaml).
type fileConfig struct {
	Package string `yaml:"package"`
	Target  string `yaml:"target"`
	Dialect string `yaml:"dialect"`
	IDType  string `yaml:"id_type"`
	Header  string `yaml:"header"`
}

// ConfigFromFile loads a Config from a YAML project file, applying the
// given options on top of it.
func ConfigFromFile(path string, opts ...Option) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("relgen: read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(buf, &fc); err != nil {
		return nil, fmt.Errorf("relgen: parse config %s: %w", path, err)
	}
	var fileOpts []Option
	if fc.Package != "" {
		fileOpts = append(fileOpts, WithPackage(fc.Package))
	}
	if fc.Target != "" {
		fileOpts = append(fileOpts, WithTarget(fc.Target))
	}
	if fc.Dialect != "" {
		fileOpts = append(fileOpts, WithDialect(fc.Dialect))
	}
	if fc.IDType != "" {
		fileOpts = append(fileOpts, WithIDType(fc.IDType))
	}
	if fc.Header != "" {
		fileOpts = append(fileOpts, WithHeader(fc.Header))
	}
	return NewConfig(append(fileOpts, opts...)...)
}
