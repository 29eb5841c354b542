package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/relgen/compiler/gen"
)

// Client emission. The client file bundles one repository per entity,
// the connection helpers, and the transaction plumbing shared by the
// generated mutations.

func genClient(h gen.GeneratorHelper) *jen.File {
	f := h.NewFile(h.Pkg())
	g := h.Graph()

	fields := []jen.Code{jen.Id("drv").Qual(h.DialectPkg(), "Driver")}
	for _, t := range g.Nodes {
		fields = append(fields, jen.Id(t.Name).Op("*").Id(t.RepositoryName()))
	}
	f.Comment("Client bundles the repositories of the generated entity set.")
	f.Type().Id("Client").Struct(fields...)

	dict := jen.Dict{jen.Id("drv"): jen.Id("drv")}
	for _, t := range g.Nodes {
		dict[jen.Id(t.Name)] = jen.Id("New" + t.RepositoryName()).Call(jen.Id("drv"))
	}
	f.Comment("NewClient creates a client backed by drv.")
	f.Func().Id("NewClient").Params(jen.Id("drv").Qual(h.DialectPkg(), "Driver")).Op("*").Id("Client").Block(
		jen.Return(jen.Op("&").Id("Client").Values(dict)),
	)

	f.Comment("Open opens a database connection and returns a client backed by it.")
	f.Func().Id("Open").Params(jen.List(jen.Id("driverName"), jen.Id("dsn")).String()).
		Params(jen.Op("*").Id("Client"), jen.Error()).Block(
		jen.List(jen.Id("drv"), jen.Err()).Op(":=").Qual(h.SQLPkg(), "Open").Call(jen.Id("driverName"), jen.Id("dsn")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Id("NewClient").Call(jen.Id("drv")), jen.Nil()),
	)

	f.Comment("Close closes the underlying connection.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("Close").Params().Error().Block(
		jen.Return(jen.Id("c").Dot("drv").Dot("Close").Call()),
	)

	f.Comment("// WithTx runs fn with a client whose repositories share one transaction.\n// An error from fn rolls the transaction back; otherwise it is committed.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("WithTx").
		Params(ctxParam(), jen.Id("fn").Func().Params(jen.Op("*").Id("Client")).Error()).Error().Block(
		jen.List(jen.Id("tx"), jen.Err()).Op(":=").Id("c").Dot("drv").Dot("Tx").Call(jen.Id("ctx")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		jen.If(
			jen.Err().Op(":=").Id("fn").Call(jen.Id("NewClient").Call(jen.Id("txDriver").Values(jen.Dict{
				jen.Id("tx"): jen.Id("tx"),
				jen.Id("d"):  jen.Id("c").Dot("drv").Dot("Dialect").Call(),
			}))),
			jen.Err().Op("!=").Nil(),
		).Block(
			jen.Id("_").Op("=").Id("tx").Dot("Rollback").Call(),
			jen.Return(jen.Id("wrapError").Call(jen.Err())),
		),
		jen.Return(jen.Id("tx").Dot("Commit").Call()),
	)

	f.Comment("// txDriver adapts a running transaction to the dialect.Driver interface\n// so repositories can run inside it. Nested transactions are no-ops; the\n// outermost owner commits.")
	f.Type().Id("txDriver").Struct(
		jen.Id("tx").Qual(h.DialectPkg(), "Tx"),
		jen.Id("d").String(),
	)
	recv := func() jen.Code { return jen.Id("t").Id("txDriver") }
	f.Func().Params(recv()).Id("Exec").
		Params(ctxParam(), jen.Id("query").String(), jen.List(jen.Id("args"), jen.Id("v")).Any()).Error().Block(
		jen.Return(jen.Id("t").Dot("tx").Dot("Exec").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("args"), jen.Id("v"))),
	)
	f.Func().Params(recv()).Id("Query").
		Params(ctxParam(), jen.Id("query").String(), jen.List(jen.Id("args"), jen.Id("v")).Any()).Error().Block(
		jen.Return(jen.Id("t").Dot("tx").Dot("Query").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("args"), jen.Id("v"))),
	)
	f.Func().Params(recv()).Id("Tx").Params(ctxParam()).
		Params(jen.Qual(h.DialectPkg(), "Tx"), jen.Error()).Block(
		jen.Return(jen.Qual(h.DialectPkg(), "NopTx").Call(jen.Id("t")), jen.Nil()),
	)
	f.Func().Params(recv()).Id("Close").Params().Error().Block(jen.Return(jen.Nil()))
	f.Func().Params(recv()).Id("Dialect").Params().String().Block(jen.Return(jen.Id("t").Dot("d")))

	f.Comment("// wrapError converts driver constraint violations into typed constraint\n// errors; everything else passes through.")
	f.Func().Id("wrapError").Params(jen.Err().Error()).Error().Block(
		jen.If(jen.Err().Op("==").Nil()).Block(jen.Return(jen.Nil())),
		jen.If(jen.Qual(h.SQLGraphPkg(), "IsConstraintError").Call(jen.Err())).Block(
			jen.Return(jen.Qual(h.SQLGraphPkg(), "NewConstraintError").Call(jen.Err().Dot("Error").Call(), jen.Err())),
		),
		jen.Return(jen.Err()),
	)
	return f
}
