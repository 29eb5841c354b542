// Package sql emits SQL-backed data-access code for an analyzed graph.
//
// The package has two layers. The lower layer (join.go, cascade.go) is a
// pure SQL synthesizer: given graph metadata it computes the query text of
// finders, relationship navigations, batch loads and cascade plans, with
// dialect-specific quoting and placeholders. The upper layer (sync.go,
// query.go) renders the generated Go sources with jennifer, embedding the
// synthesized queries.
//
// Usage:
//
//	import (
//	    "github.com/syssam/relgen/compiler/gen"
//	    gensql "github.com/syssam/relgen/compiler/gen/sql"
//	)
//
//	err := gensql.Generate(graph)
//
// Generated code structure:
//
//	{target}/
//	├── client.go         # Repositories bundle and transaction helper
//	├── {entity}.go       # Model struct, column constants, sync helpers
//	└── {entity}_repo.go  # Repository: finders, navigations, cascades
package sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/dialect"
)

// Generate is the convenience entry point: it builds the SQL emitter for
// the graph and runs the generation pipeline into Config.Target.
func Generate(g *gen.Graph, hooks ...gen.Hook) error {
	base := gen.GenerateFunc(func(g *gen.Graph) error {
		generator := gen.NewGenerator(g, g.Config.Target)
		if g.Config.Package != "" {
			generator.WithPackage(pkgBase(g.Config.Package))
		}
		generator.WithEmitter(NewDialect(generator, g.Config.Dialect))
		return generator.Generate(context.Background())
	})
	return gen.Generate(g, base, hooks...)
}

func pkgBase(pkg string) string {
	if i := strings.LastIndexByte(pkg, '/'); i >= 0 {
		return pkg[i+1:]
	}
	return pkg
}

// Dialect implements gen.Emitter for SQL databases.
type Dialect struct {
	helper gen.GeneratorHelper
	b      *Builder
}

// NewDialect creates a new SQL emitter targeting the given SQL dialect.
// The helper parameter is the enclosing *gen.JenniferGenerator.
func NewDialect(helper gen.GeneratorHelper, d string) *Dialect {
	return &Dialect{helper: helper, b: NewBuilder(d)}
}

// Name returns the emitter name.
func (d *Dialect) Name() string { return "sql" }

// GenModel emits the model file: struct, column constants and
// relationship synchronization helpers.
func (d *Dialect) GenModel(t *gen.Type) *jen.File {
	return genModel(d.helper, d.b, t)
}

// GenRepository emits the repository file: finders, relationship queries
// and cascade-aware mutations.
func (d *Dialect) GenRepository(t *gen.Type) *jen.File {
	return genRepository(d.helper, d.b, t)
}

// GenClient emits the client file bundling the repositories of the graph.
func (d *Dialect) GenClient() *jen.File {
	return genClient(d.helper)
}

var _ gen.Emitter = (*Dialect)(nil)

// =============================================================================
// SQL text primitives
// =============================================================================

// Builder synthesizes dialect-specific SQL text from graph metadata. It is
// stateless; all methods are pure functions of their arguments.
type Builder struct {
	dialect string
}

// NewBuilder creates a Builder for the given dialect. An empty dialect
// defaults to Postgres.
func NewBuilder(d string) *Builder {
	if d == "" {
		d = dialect.Postgres
	}
	return &Builder{dialect: d}
}

// Dialect returns the SQL dialect of the builder.
func (b *Builder) Dialect() string { return b.dialect }

// Quote returns the quoted form of an identifier.
func (b *Builder) Quote(ident string) string {
	if b.dialect == dialect.MySQL {
		return "`" + ident + "`"
	}
	return `"` + ident + `"`
}

// arg returns the placeholder of the i-th (1-based) statement argument.
func (b *Builder) arg(i int) string {
	if b.dialect == dialect.Postgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// args returns a comma-separated placeholder list of n arguments,
// numbered from start.
func (b *Builder) args(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = b.arg(start + i)
	}
	return strings.Join(parts, ", ")
}

// qualify returns the qualified, quoted form of a column: "table"."col".
func (b *Builder) qualify(table, column string) string {
	return b.Quote(table) + "." + b.Quote(column)
}

// columnList returns the quoted columns of t, qualified with the given
// table or alias when non-empty.
func (b *Builder) columnList(t *gen.Type, qualifier string) string {
	cols := t.Columns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		if qualifier != "" {
			parts[i] = b.qualify(qualifier, c)
		} else {
			parts[i] = b.Quote(c)
		}
	}
	return strings.Join(parts, ", ")
}

// whereKey returns an ANDed equality predicate over the primary-key
// columns of t, with placeholders numbered from start. Composite keys are
// always compared as a unit, one equality per key column.
func (b *Builder) whereKey(t *gen.Type, qualifier string, start int) string {
	parts := make([]string, len(t.PK))
	for i, f := range t.PK {
		col := f.Column()
		if qualifier != "" {
			col = b.qualify(qualifier, col)
		} else {
			col = b.Quote(col)
		}
		parts[i] = fmt.Sprintf("%s = %s", col, b.arg(start+i))
	}
	return strings.Join(parts, " AND ")
}

// orderByKey returns the default deterministic ordering: the target
// primary key, ascending.
func (b *Builder) orderByKey(t *gen.Type, qualifier string) string {
	parts := make([]string, len(t.PK))
	for i, f := range t.PK {
		if qualifier != "" {
			parts[i] = b.qualify(qualifier, f.Column())
		} else {
			parts[i] = b.Quote(f.Column())
		}
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
