package gen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/relgen/schema/field"
)

// Generator is the interface that wraps the code generation method.
type Generator interface {
	// Generate generates the artifacts of the given graph.
	Generate(*Graph) error
}

// GenerateFunc allows the usage of ordinary functions as Generators.
type GenerateFunc func(*Graph) error

// Generate calls f(g).
func (f GenerateFunc) Generate(g *Graph) error { return f(g) }

// A Hook wraps a Generator with additional behavior, in the manner of
// middleware. Hooks run in declaration order around the base generator.
type Hook func(Generator) Generator

// Emitter produces the generated files of one entity set. The SQL emitter
// in compiler/gen/sql is the only implementation in-tree; the interface
// keeps the orchestration free of emission details.
type Emitter interface {
	// Name returns the emitter name.
	Name() string
	// GenModel emits the entity model file ({label}.go): struct, column
	// constants and relationship synchronization helpers.
	GenModel(t *Type) *jen.File
	// GenRepository emits the repository file ({label}_repo.go): finders,
	// relationship queries and cascade-aware mutations.
	GenRepository(t *Type) *jen.File
	// GenClient emits the shared client file (client.go) bundling the
	// repositories of the graph.
	GenClient() *jen.File
}

// GeneratorHelper provides the helper methods emitters use to translate
// graph metadata into jennifer code. JenniferGenerator implements it.
type GeneratorHelper interface {
	// NewFile creates a new jennifer file with the standard header comment.
	NewFile(pkg string) *jen.File
	// GoType returns the code of a field's model type (pointer for nillable).
	GoType(f *Field) jen.Code
	// BaseType returns the code of a field's base type, without pointer.
	BaseType(f *Field) jen.Code
	// IDType returns the code of the single primary-key type of an entity.
	IDType(t *Type) jen.Code
	// ZeroValue returns the code of a field's zero value.
	ZeroValue(f *Field) jen.Code
	// Graph returns the analyzed graph.
	Graph() *Graph
	// Pkg returns the output package name.
	Pkg() string
	// RuntimePkg returns the import path of the relgen runtime package.
	RuntimePkg() string
	// DialectPkg returns the import path of the dialect package.
	DialectPkg() string
	// SQLPkg returns the import path of the dialect/sql package.
	SQLPkg() string
	// SQLGraphPkg returns the import path of the dialect/sql/sqlgraph package.
	SQLGraphPkg() string
}

// JenniferGenerator orchestrates code generation: it validates the graph,
// asks the configured Emitter for the file of each artifact, and hands the
// rendered sources to the parallel Writer.
type JenniferGenerator struct {
	graph   *Graph
	emitter Emitter
	workers int
	outDir  string
	pkg     string
}

// NewGenerator creates a generator writing into outDir. An emitter must be
// set with WithEmitter before calling Generate.
func NewGenerator(g *Graph, outDir string) *JenniferGenerator {
	return &JenniferGenerator{
		graph:   g,
		workers: runtime.GOMAXPROCS(0),
		outDir:  outDir,
		pkg:     pkgBase(outDir),
	}
}

// WithWorkers sets the number of parallel file writers.
func (g *JenniferGenerator) WithWorkers(n int) *JenniferGenerator {
	if n > 0 {
		g.workers = n
	}
	return g
}

// WithPackage sets the output package name.
func (g *JenniferGenerator) WithPackage(pkg string) *JenniferGenerator {
	if pkg != "" {
		g.pkg = pkg
	}
	return g
}

// WithEmitter sets the emitter producing the generated files.
func (g *JenniferGenerator) WithEmitter(e Emitter) *JenniferGenerator {
	if e != nil {
		g.emitter = e
	}
	return g
}

// Generate validates the graph and writes all generated files. Validation
// failures abort before any file is produced; no partial output is left
// for a failed entity set.
func (g *JenniferGenerator) Generate(ctx context.Context) error {
	if g.emitter == nil {
		return &ConfigError{Option: "Emitter", Message: "no emitter set: call WithEmitter() before Generate()"}
	}
	if errs := g.graph.Validate(); len(errs) > 0 {
		return fmt.Errorf("relgen: %w", errors.Join(errs...))
	}
	var tasks []fileTask
	for _, t := range g.graph.Nodes {
		model, err := render(g.emitter.GenModel(t))
		if err != nil {
			return fmt.Errorf("relgen: render model %s: %w", t.Name, err)
		}
		repo, err := render(g.emitter.GenRepository(t))
		if err != nil {
			return fmt.Errorf("relgen: render repository %s: %w", t.Name, err)
		}
		tasks = append(tasks,
			fileTask{name: t.Label() + ".go", src: model},
			fileTask{name: t.Label() + "_repo.go", src: repo},
		)
	}
	client, err := render(g.emitter.GenClient())
	if err != nil {
		return fmt.Errorf("relgen: render client: %w", err)
	}
	tasks = append(tasks, fileTask{name: "client.go", src: client})

	w := newWriter(g.outDir, g.workers)
	return w.writeAll(ctx, tasks)
}

// render renders a jennifer file to source bytes.
func render(f *jen.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pkgBase(dir string) string {
	for i := len(dir) - 1; i >= 0; i-- {
		if dir[i] == '/' {
			return dir[i+1:]
		}
	}
	return dir
}

// =============================================================================
// GeneratorHelper implementation
// =============================================================================

// NewFile creates a new jennifer file with the standard header comment.
func (g *JenniferGenerator) NewFile(pkg string) *jen.File {
	f := jen.NewFile(pkg)
	if h := g.graph.Config.Header; h != "" {
		f.HeaderComment(h)
	}
	f.HeaderComment("Code generated by relgen. DO NOT EDIT.")
	return f
}

// Graph returns the analyzed graph.
func (g *JenniferGenerator) Graph() *Graph { return g.graph }

// Pkg returns the output package name.
func (g *JenniferGenerator) Pkg() string { return g.pkg }

// RuntimePkg returns the import path of the relgen runtime package.
func (g *JenniferGenerator) RuntimePkg() string { return "github.com/syssam/relgen" }

// DialectPkg returns the import path of the dialect package.
func (g *JenniferGenerator) DialectPkg() string { return "github.com/syssam/relgen/dialect" }

// SQLPkg returns the import path of the dialect/sql package.
func (g *JenniferGenerator) SQLPkg() string { return "github.com/syssam/relgen/dialect/sql" }

// SQLGraphPkg returns the import path of the dialect/sql/sqlgraph package.
func (g *JenniferGenerator) SQLGraphPkg() string {
	return "github.com/syssam/relgen/dialect/sql/sqlgraph"
}

// GoType returns the code of a field's model type. Nillable fields are
// pointers in the generated model.
func (g *JenniferGenerator) GoType(f *Field) jen.Code {
	if f.Nillable {
		return jen.Op("*").Add(g.BaseType(f))
	}
	return g.BaseType(f)
}

// BaseType returns the code of a field's base type, without pointer.
func (g *JenniferGenerator) BaseType(f *Field) jen.Code {
	if f == nil || f.Type == nil {
		return jen.Any()
	}
	switch f.Type.Type {
	case field.TypeBool:
		return jen.Bool()
	case field.TypeTime:
		return jen.Qual("time", "Time")
	case field.TypeBytes:
		return jen.Index().Byte()
	case field.TypeUUID:
		return jen.Qual("github.com/google/uuid", "UUID")
	case field.TypeInt:
		return jen.Int()
	case field.TypeInt64:
		return jen.Int64()
	case field.TypeUint64:
		return jen.Uint64()
	case field.TypeFloat64:
		return jen.Float64()
	case field.TypeString, field.TypeEnum:
		return jen.String()
	default:
		return jen.Any()
	}
}

// IDType returns the code of the single primary-key type of an entity.
func (g *JenniferGenerator) IDType(t *Type) jen.Code {
	return g.BaseType(t.ID())
}

// ZeroValue returns the code of a field's zero value. Nillable fields are
// pointers and zero to nil.
func (g *JenniferGenerator) ZeroValue(f *Field) jen.Code {
	if f == nil {
		return jen.Nil()
	}
	if f.Nillable {
		return jen.Nil()
	}
	switch f.Type.Type {
	case field.TypeString, field.TypeEnum:
		return jen.Lit("")
	case field.TypeBool:
		return jen.False()
	case field.TypeTime:
		return jen.Qual("time", "Time").Values()
	case field.TypeUUID:
		return jen.Qual("github.com/google/uuid", "Nil")
	case field.TypeBytes:
		return jen.Nil()
	default:
		return jen.Lit(0)
	}
}

var _ GeneratorHelper = (*JenniferGenerator)(nil)

// Generate validates the graph and generates its code into Config.Target,
// applying the configured hooks around the given base generator.
func Generate(g *Graph, base Generator, hooks ...Hook) error {
	if g.Config == nil || g.Config.Target == "" {
		return &ConfigError{Option: "Target", Message: "missing target directory in config"}
	}
	gen := base
	for i := len(hooks) - 1; i >= 0; i-- {
		gen = hooks[i](gen)
	}
	return gen.Generate(g)
}
