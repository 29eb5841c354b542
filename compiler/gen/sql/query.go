package sql

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/dialect"
	"github.com/syssam/relgen/schema/field"
	"github.com/syssam/relgen/schema/rel"
)

// Repository emission. The repository file of an entity carries its
// finders, relationship navigations, batch loaders and cascade-aware
// mutations. All query text is synthesized at generation time; the only
// runtime string construction is the IN-list expansion of batch loads.

func genRepository(h gen.GeneratorHelper, b *Builder, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())
	genRepoStruct(h, f, t)
	genScanRows(h, f, t)
	genFindByID(h, b, f, t)
	genExistsByID(h, b, f, t)
	genCount(h, b, f, t)
	genAll(h, b, f, t)
	genFindAllByFK(h, b, f, t)
	for _, r := range t.Rels {
		genRelQueries(h, b, f, t, r)
	}
	genInsert(h, b, f, t)
	genUpdate(h, b, f, t)
	genDelete(h, b, f, t)
	return f
}

// =============================================================================
// Shared emission helpers
// =============================================================================

func ctxParam() jen.Code {
	return jen.Id("ctx").Qual("context", "Context")
}

func repoRecv(t *gen.Type) jen.Code {
	return jen.Id("r").Op("*").Id(t.RepositoryName())
}

// paramName converts a snake_case field name to a camelCase parameter.
func paramName(name string) string {
	parts := strings.Split(name, "_")
	out := parts[0]
	for _, p := range parts[1:] {
		switch {
		case p == "":
		case p == "id":
			out += "ID"
		default:
			out += strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return out
}

// pkParams returns the method parameters of t's primary key.
func pkParams(h gen.GeneratorHelper, t *gen.Type) []jen.Code {
	params := make([]jen.Code, 0, len(t.PK))
	for _, fd := range t.PK {
		params = append(params, jen.Id(paramName(fd.Name)).Add(h.BaseType(fd)))
	}
	return params
}

// pkArgs returns the []any literal binding t's primary-key parameters.
func pkArgs(t *gen.Type) jen.Code {
	args := make([]jen.Code, 0, len(t.PK))
	for _, fd := range t.PK {
		args = append(args, jen.Id(paramName(fd.Name)))
	}
	return jen.Index().Any().Values(args...)
}

// pkArgsFrom returns the primary-key values of t read from the given model
// variable.
func pkArgsFrom(t *gen.Type, v string) []jen.Code {
	args := make([]jen.Code, 0, len(t.PK))
	for _, fd := range t.PK {
		args = append(args, jen.Id(v).Dot(fd.StructField()))
	}
	return args
}

// queryStmts returns the statements opening a Rows result for the given
// query, with errRet as the error-path return values.
func queryStmts(h gen.GeneratorHelper, query string, args jen.Code, errRet ...jen.Code) []jen.Code {
	return []jen.Code{
		jen.Id("rows").Op(":=").Op("&").Qual(h.SQLPkg(), "Rows").Values(),
		jen.If(
			jen.Err().Op(":=").Id("r").Dot("drv").Dot("Query").Call(jen.Id("ctx"), jen.Lit(query), args, jen.Id("rows")),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(errRet...)),
	}
}

// generatedKey reports if t's key is a single database-generated column.
func generatedKey(t *gen.Type) bool {
	return !t.HasCompositeID() && !t.ID().UserDefined
}

// fieldByColumn returns the model field holding the given column.
func fieldByColumn(t *gen.Type, col string) *gen.Field {
	for _, fd := range modelFields(t) {
		if fd.Column() == col {
			return fd
		}
	}
	return nil
}

// colArgs returns the []any literal binding the given columns to their
// model fields, with extra appended after them.
func colArgs(t *gen.Type, v string, cols []string, extra ...jen.Code) jen.Code {
	args := make([]jen.Code, 0, len(cols)+len(extra))
	for _, c := range cols {
		fd := fieldByColumn(t, c)
		args = append(args, jen.Id(v).Dot(fd.StructField()))
	}
	args = append(args, extra...)
	return jen.Index().Any().Values(args...)
}

// =============================================================================
// Struct and finders
// =============================================================================

func genRepoStruct(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	f.Commentf("%s provides data access for %s entities.", t.RepositoryName(), t.Name)
	f.Type().Id(t.RepositoryName()).Struct(
		jen.Id("drv").Qual(h.DialectPkg(), "Driver"),
	)
	f.Commentf("New%s creates a repository backed by drv.", t.RepositoryName())
	f.Func().Id("New"+t.RepositoryName()).Params(jen.Id("drv").Qual(h.DialectPkg(), "Driver")).Op("*").Id(t.RepositoryName()).Block(
		jen.Return(jen.Op("&").Id(t.RepositoryName()).Values(jen.Dict{jen.Id("drv"): jen.Id("drv")})),
	)
}

func genScanRows(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	f.Commentf("scan%sRows scans all rows into %s entities.", t.Name, t.Name)
	f.Func().Id("scan"+t.Name+"Rows").Params(jen.Id("rows").Op("*").Qual(h.SQLPkg(), "Rows")).
		Params(jen.Index().Op("*").Id(t.Name), jen.Error()).Block(
		jen.Return(jen.Qual(h.SQLPkg(), "ScanSlice").Call(
			jen.Id("rows"),
			jen.Func().Params(jen.Id("cs").Qual(h.SQLPkg(), "ColumnScanner")).Params(jen.Op("*").Id(t.Name), jen.Error()).Block(
				jen.Id("m").Op(":=").Op("&").Id(t.Name).Values(),
				jen.Id("values").Op(":=").Id("m").Dot("scanValues").Call(),
				jen.If(
					jen.Err().Op(":=").Id("cs").Dot("Scan").Call(jen.Id("values").Op("...")),
					jen.Err().Op("!=").Nil(),
				).Block(jen.Return(jen.Nil(), jen.Err())),
				jen.Return(jen.Id("m"), jen.Id("m").Dot("assignValues").Call(jen.Id("values"))),
			),
		)),
	)
}

// notFoundReturn returns the not-found error path of a single-row lookup.
func notFoundReturn(h gen.GeneratorHelper, t *gen.Type, withID bool) jen.Code {
	call := jen.Qual(h.RuntimePkg(), "NewNotFoundError").Call(jen.Lit(t.Label()))
	if withID && !t.HasCompositeID() {
		call = jen.Qual(h.RuntimePkg(), "NewNotFoundErrorWithID").Call(jen.Lit(t.Label()), jen.Id(paramName(t.ID().Name)))
	}
	return jen.If(jen.Qual("errors", "Is").Call(jen.Err(), jen.Qual("database/sql", "ErrNoRows"))).Block(
		jen.Return(jen.Nil(), call),
	)
}

func genFindByID(h gen.GeneratorHelper, b *Builder, f *jen.File, t *gen.Type) {
	eagerQuery, _, eagerJoins := b.EagerJoinQuery(t)
	var body []jen.Code
	if eagerQuery == "" {
		body = queryStmts(h, b.FindByIDQuery(t), pkArgs(t), jen.Nil(), jen.Err())
		body = append(body,
			jen.Id("m").Op(":=").Op("&").Id(t.Name).Values(),
			jen.Id("values").Op(":=").Id("m").Dot("scanValues").Call(),
			jen.If(
				jen.Err().Op(":=").Qual(h.SQLPkg(), "ScanOne").Call(jen.Id("rows"), jen.Id("values").Op("...")),
				jen.Err().Op("!=").Nil(),
			).Block(
				notFoundReturn(h, t, true),
				jen.Return(jen.Nil(), jen.Err()),
			),
			jen.If(
				jen.Err().Op(":=").Id("m").Dot("assignValues").Call(jen.Id("values")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Nil(), jen.Err())),
		)
	} else {
		// One LEFT JOIN row carries the base entity and every eagerly
		// fetched owning *ToOne relationship; the per-entity value slices
		// are the row split points.
		body = queryStmts(h, eagerQuery, pkArgs(t), jen.Nil(), jen.Err())
		body = append(body,
			jen.Id("m").Op(":=").Op("&").Id(t.Name).Values(),
			jen.Id("values").Op(":=").Id("m").Dot("scanValues").Call(),
			jen.Id("dest").Op(":=").Id("values"),
		)
		for i, er := range eagerJoins {
			rv := fmt.Sprintf("rel%d", i)
			body = append(body,
				jen.Id(rv).Op(":=").Parens(jen.Op("&").Id(er.Type.Name).Values()).Dot("scanValues").Call(),
				jen.Id("dest").Op("=").Append(jen.Id("dest"), jen.Id(rv).Op("...")),
			)
		}
		body = append(body,
			jen.If(
				jen.Err().Op(":=").Qual(h.SQLPkg(), "ScanOne").Call(jen.Id("rows"), jen.Id("dest").Op("...")),
				jen.Err().Op("!=").Nil(),
			).Block(
				notFoundReturn(h, t, true),
				jen.Return(jen.Nil(), jen.Err()),
			),
			jen.If(
				jen.Err().Op(":=").Id("m").Dot("assignValues").Call(jen.Id("values")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Nil(), jen.Err())),
		)
		for i, er := range eagerJoins {
			rv := fmt.Sprintf("rel%d", i)
			body = append(body,
				jen.If(presentCheck(h, er.Type.ID(), rv)...).Block(
					jen.Id("related").Op(":=").Op("&").Id(er.Type.Name).Values(),
					jen.If(
						jen.Err().Op(":=").Id("related").Dot("assignValues").Call(jen.Id(rv)),
						jen.Err().Op("!=").Nil(),
					).Block(jen.Return(jen.Nil(), jen.Err())),
					jen.Id("m").Dot("set"+er.StructField()).Call(jen.Id("related")),
				),
			)
		}
	}
	body = append(body, eagerFollowups(h, t)...)
	body = append(body, jen.Return(jen.Id("m"), jen.Nil()))

	f.Commentf("// FindByID returns the %s with the given key. Eagerly fetched\n// relationships are loaded with it.", t.Name)
	f.Func().Params(repoRecv(t)).Id("FindByID").
		Params(append([]jen.Code{ctxParam()}, pkParams(h, t)...)...).
		Params(jen.Op("*").Id(t.Name), jen.Error()).Block(body...)
}

// presentCheck returns the init statement and condition reporting that
// the joined entity whose key field is fd was present in the LEFT JOIN
// row vals.
func presentCheck(h gen.GeneratorHelper, fd *gen.Field, vals string) []jen.Code {
	first := jen.Id(vals).Index(jen.Lit(0))
	switch fd.Type.Type {
	case field.TypeBytes:
		return []jen.Code{
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Add(first).Assert(jen.Op("*").Index().Byte()),
			jen.Id("ok").Op("&&").Op("*").Id("v").Op("!=").Nil(),
		}
	case field.TypeUUID:
		return []jen.Code{
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Add(first).Assert(jen.Op("*").Qual(h.SQLPkg(), "NullScanner")),
			jen.Id("ok").Op("&&").Id("v").Dot("Valid"),
		}
	default:
		return []jen.Code{
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Add(first).Assert(scanWrapper(h, fd)),
			jen.Id("ok").Op("&&").Id("v").Dot("Valid"),
		}
	}
}

// scanWrapper returns the pointer wrapper type a column of fd's type is
// scanned into.
func scanWrapper(h gen.GeneratorHelper, fd *gen.Field) jen.Code {
	switch fd.Type.Type {
	case field.TypeBool:
		return jen.Op("*").Qual(h.SQLPkg(), "NullBool")
	case field.TypeTime:
		return jen.Op("*").Qual(h.SQLPkg(), "NullTime")
	case field.TypeFloat64:
		return jen.Op("*").Qual(h.SQLPkg(), "NullFloat64")
	case field.TypeString, field.TypeEnum:
		return jen.Op("*").Qual(h.SQLPkg(), "NullString")
	default:
		return jen.Op("*").Qual(h.SQLPkg(), "NullInt64")
	}
}

// eagerFollowups returns the statements loading the eager relationships
// that cannot ride the LEFT JOIN: collections and inverse single-valued
// sides. Each costs one extra query regardless of collection size.
func eagerFollowups(h gen.GeneratorHelper, t *gen.Type) []jen.Code {
	var body []jen.Code
	for _, er := range t.Rels {
		if !er.Eager() || er.OwnFK() {
			continue
		}
		vn := paramName(strings.ReplaceAll(er.Name, " ", "_"))
		F := er.StructField()
		if er.IsCollection() {
			stmts := []jen.Code{
				jen.List(jen.Id(vn), jen.Err()).Op(":=").Id("r").Dot(er.QueryMethod()).
					Call(append([]jen.Code{jen.Id("ctx")}, pkParamRefs(t)...)...),
				jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
			}
			loop := []jen.Code{jen.Id("m").Dot("add" + F).Call(jen.Id("v"))}
			if er.Ref != nil && !er.Ref.IsCollection() {
				loop = append(loop, jen.Id("v").Dot("set"+er.Ref.StructField()).Call(jen.Id("m")))
			}
			stmts = append(stmts,
				jen.For(jen.List(jen.Id("_"), jen.Id("v")).Op(":=").Range().Id(vn)).Block(loop...),
				jen.Id("m").Dot("loaded"+F).Op("=").Append(jen.Index().Op("*").Id(er.Type.Name).Values(), jen.Id(vn).Op("...")),
			)
			body = append(body, stmts...)
		} else {
			stmts := []jen.Code{
				jen.List(jen.Id(vn), jen.Err()).Op(":=").Id("r").Dot(er.QueryMethod()).
					Call(append([]jen.Code{jen.Id("ctx")}, pkParamRefs(t)...)...),
				jen.If(jen.Err().Op("!=").Nil().Op("&&").Op("!").Qual(h.RuntimePkg(), "IsNotFound").Call(jen.Err())).Block(
					jen.Return(jen.Nil(), jen.Err()),
				),
			}
			assign := []jen.Code{jen.Id("m").Dot("set" + F).Call(jen.Id(vn))}
			if er.Ref != nil {
				assign = append(assign, jen.Id(vn).Dot("set"+er.Ref.StructField()).Call(jen.Id("m")))
			}
			stmts = append(stmts, jen.If(jen.Id(vn).Op("!=").Nil()).Block(assign...))
			body = append(body, stmts...)
		}
	}
	return body
}

// pkParamRefs returns references to the primary-key parameters of the
// enclosing method.
func pkParamRefs(t *gen.Type) []jen.Code {
	refs := make([]jen.Code, 0, len(t.PK))
	for _, fd := range t.PK {
		refs = append(refs, jen.Id(paramName(fd.Name)))
	}
	return refs
}

func genExistsByID(h gen.GeneratorHelper, b *Builder, f *jen.File, t *gen.Type) {
	body := queryStmts(h, b.ExistsByIDQuery(t), pkArgs(t), jen.False(), jen.Err())
	body = append(body, jen.Return(jen.Qual(h.SQLPkg(), "ScanValue").Index(jen.Bool()).Call(jen.Id("rows"))))
	f.Commentf("ExistsByID reports whether a %s with the given key exists.", t.Name)
	f.Func().Params(repoRecv(t)).Id("ExistsByID").
		Params(append([]jen.Code{ctxParam()}, pkParams(h, t)...)...).
		Params(jen.Bool(), jen.Error()).Block(body...)
}

func genCount(h gen.GeneratorHelper, b *Builder, f *jen.File, t *gen.Type) {
	body := queryStmts(h, b.CountQuery(t), jen.Index().Any().Values(), jen.Lit(0), jen.Err())
	body = append(body, jen.Return(jen.Qual(h.SQLPkg(), "ScanValue").Index(jen.Int()).Call(jen.Id("rows"))))
	f.Commentf("Count returns the number of %s rows.", t.Table())
	f.Func().Params(repoRecv(t)).Id("Count").Params(ctxParam()).
		Params(jen.Int(), jen.Error()).Block(body...)
}

func genAll(h gen.GeneratorHelper, b *Builder, f *jen.File, t *gen.Type) {
	body := queryStmts(h, b.AllQuery(t), jen.Index().Any().Values(), jen.Nil(), jen.Err())
	body = append(body, jen.Return(jen.Id("scan"+t.Name+"Rows").Call(jen.Id("rows"))))
	f.Commentf("All returns all %s entities, ordered by primary key.", t.Name)
	f.Func().Params(repoRecv(t)).Id("All").Params(ctxParam()).
		Params(jen.Index().Op("*").Id(t.Name), jen.Error()).Block(body...)
}

// genFindAllByFK emits one foreign-key finder per owning many-to-one
// relationship of t.
func genFindAllByFK(h gen.GeneratorHelper, b *Builder, f *jen.File, t *gen.Type) {
	used := make(map[string]bool)
	for _, r := range t.Rels {
		if !r.M2O() || r.JoinColumn() == "" || r.Type.HasCompositeID() {
			continue
		}
		name := "FindAllBy" + r.Type.Name + "ID"
		if used[name] {
			// Two relationships to the same target; name by relationship.
			name = "FindAllBy" + r.StructField() + "ID"
		}
		used[name] = true
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s%s",
			b.columnList(t, ""), b.Quote(t.Table()), b.Quote(r.JoinColumn()), b.arg(1), b.orderByKey(t, ""))
		pn := paramName(r.Type.Label() + "_id")
		body := queryStmts(h, query, jen.Index().Any().Values(jen.Id(pn)), jen.Nil(), jen.Err())
		body = append(body, jen.Return(jen.Id("scan"+t.Name+"Rows").Call(jen.Id("rows"))))
		f.Commentf("%s returns the %s entities holding the given %s key.", name, t.Name, r.Type.Name)
		f.Func().Params(repoRecv(t)).Id(name).
			Params(ctxParam(), jen.Id(pn).Add(h.IDType(r.Type))).
			Params(jen.Index().Op("*").Id(t.Name), jen.Error()).Block(body...)
	}
}

// =============================================================================
// Relationship navigation
// =============================================================================

func genRelQueries(h gen.GeneratorHelper, b *Builder, f *jen.File, t *gen.Type, r *gen.Relationship) {
	relQuery, err := b.RelQuery(r)
	if err != nil {
		// Unsupported shape; graph validation reports it before generation.
		return
	}
	params := append([]jen.Code{ctxParam()}, pkParams(h, t)...)

	if r.IsCollection() {
		body := queryStmts(h, relQuery, pkArgs(t), jen.Nil(), jen.Err())
		body = append(body, jen.Return(jen.Id("scan"+r.Type.Name+"Rows").Call(jen.Id("rows"))))
		f.Commentf("%s returns the %s of the %s with the given key.", r.QueryMethod(), r.Name, t.Name)
		f.Func().Params(repoRecv(t)).Id(r.QueryMethod()).Params(params...).
			Params(jen.Index().Op("*").Id(r.Type.Name), jen.Error()).Block(body...)
	} else {
		body := queryStmts(h, relQuery, pkArgs(t), jen.Nil(), jen.Err())
		body = append(body,
			jen.Id("m").Op(":=").Op("&").Id(r.Type.Name).Values(),
			jen.Id("values").Op(":=").Id("m").Dot("scanValues").Call(),
			jen.If(
				jen.Err().Op(":=").Qual(h.SQLPkg(), "ScanOne").Call(jen.Id("rows"), jen.Id("values").Op("...")),
				jen.Err().Op("!=").Nil(),
			).Block(
				jen.If(jen.Qual("errors", "Is").Call(jen.Err(), jen.Qual("database/sql", "ErrNoRows"))).Block(
					jen.Return(jen.Nil(), jen.Qual(h.RuntimePkg(), "NewNotFoundError").Call(jen.Lit(r.Type.Label()))),
				),
				jen.Return(jen.Nil(), jen.Err()),
			),
			jen.If(
				jen.Err().Op(":=").Id("m").Dot("assignValues").Call(jen.Id("values")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Nil(), jen.Err())),
			jen.Return(jen.Id("m"), jen.Nil()),
		)
		f.Commentf("%s returns the %s of the %s with the given key.", r.QueryMethod(), r.Name, t.Name)
		f.Func().Params(repoRecv(t)).Id(r.QueryMethod()).Params(params...).
			Params(jen.Op("*").Id(r.Type.Name), jen.Error()).Block(body...)
	}

	if countQuery, err := b.RelCountQuery(r); err == nil {
		body := queryStmts(h, countQuery, pkArgs(t), jen.Lit(0), jen.Err())
		body = append(body, jen.Return(jen.Qual(h.SQLPkg(), "ScanValue").Index(jen.Int()).Call(jen.Id("rows"))))
		f.Commentf("// %s counts the %s of the %s with the given key without\n// loading them.", r.CountMethod(), r.Name, t.Name)
		f.Func().Params(repoRecv(t)).Id(r.CountMethod()).Params(params...).
			Params(jen.Int(), jen.Error()).Block(body...)
	}

	if existsQuery, err := b.RelExistsQuery(r); err == nil {
		body := queryStmts(h, existsQuery, pkArgs(t), jen.False(), jen.Err())
		body = append(body, jen.Return(jen.Qual(h.SQLPkg(), "ScanValue").Index(jen.Bool()).Call(jen.Id("rows"))))
		f.Commentf("%s reports whether the %s with the given key has any %s.", r.ExistsMethod(), t.Name, r.Name)
		f.Func().Params(repoRecv(t)).Id(r.ExistsMethod()).Params(params...).
			Params(jen.Bool(), jen.Error()).Block(body...)
	}

	if r.IsCollection() {
		genBatchLoad(h, b, f, t, r)
	}
}

// genBatchLoad emits the batch loader of a collection relationship: one
// query loads the children of any number of roots.
func genBatchLoad(h gen.GeneratorHelper, b *Builder, f *jen.File, t *gen.Type, r *gen.Relationship) {
	prefix, suffix, err := b.RelBatchQuery(r)
	if err != nil {
		return
	}
	F := r.StructField()
	idField := t.ID().StructField()
	backLink := jen.Null()
	if r.Ref != nil && !r.Ref.IsCollection() {
		backLink = jen.Id("child").Dot("set" + r.Ref.StructField()).Call(jen.Id("owner"))
	}
	f.Commentf("// %s loads the %s of all given entities in a single query and\n// assigns them to their owners.", r.LoadMethod(), r.Name)
	f.Func().Params(repoRecv(t)).Id(r.LoadMethod()).
		Params(ctxParam(), jen.Id("ms").Op("...").Op("*").Id(t.Name)).Error().Block(
		jen.If(jen.Len(jen.Id("ms")).Op("==").Lit(0)).Block(jen.Return(jen.Nil())),
		jen.Id("byID").Op(":=").Make(jen.Map(h.IDType(t)).Op("*").Id(t.Name), jen.Len(jen.Id("ms"))),
		jen.Id("ids").Op(":=").Make(jen.Index().Any(), jen.Lit(0), jen.Len(jen.Id("ms"))),
		jen.For(jen.List(jen.Id("_"), jen.Id("m")).Op(":=").Range().Id("ms")).Block(
			jen.If(
				jen.List(jen.Id("_"), jen.Id("ok")).Op(":=").Id("byID").Index(jen.Id("m").Dot(idField)),
				jen.Id("ok"),
			).Block(jen.Continue()),
			jen.Id("byID").Index(jen.Id("m").Dot(idField)).Op("=").Id("m"),
			jen.Id("ids").Op("=").Append(jen.Id("ids"), jen.Id("m").Dot(idField)),
			jen.Id("m").Dot(F).Op("=").Nil(),
			jen.Id("m").Dot("loaded"+F).Op("=").Index().Op("*").Id(r.Type.Name).Values(),
		),
		jen.Id("query").Op(":=").Lit(prefix).Op("+").
			Qual(h.SQLPkg(), "In").Call(jen.Lit(b.Dialect()), jen.Lit(1), jen.Len(jen.Id("ids"))).Op("+").
			Lit(suffix),
		jen.Id("rows").Op(":=").Op("&").Qual(h.SQLPkg(), "Rows").Values(),
		jen.If(
			jen.Err().Op(":=").Id("r").Dot("drv").Dot("Query").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("ids"), jen.Id("rows")),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(jen.Err())),
		jen.Defer().Id("rows").Dot("Close").Call(),
		jen.For(jen.Id("rows").Dot("Next").Call()).Block(
			jen.Var().Id("key").Add(h.IDType(t)),
			jen.Id("child").Op(":=").Op("&").Id(r.Type.Name).Values(),
			jen.Id("values").Op(":=").Id("child").Dot("scanValues").Call(),
			jen.Id("dest").Op(":=").Append(jen.Index().Any().Values(jen.Op("&").Id("key")), jen.Id("values").Op("...")),
			jen.If(
				jen.Err().Op(":=").Id("rows").Dot("Scan").Call(jen.Id("dest").Op("...")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
			jen.If(
				jen.Err().Op(":=").Id("child").Dot("assignValues").Call(jen.Id("values")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
			jen.List(jen.Id("owner"), jen.Id("ok")).Op(":=").Id("byID").Index(jen.Id("key")),
			jen.If(jen.Op("!").Id("ok")).Block(jen.Continue()),
			jen.Id("owner").Dot("add"+F).Call(jen.Id("child")),
			jen.Id("owner").Dot("loaded"+F).Op("=").Append(jen.Id("owner").Dot("loaded"+F), jen.Id("child")),
			backLink,
		),
		jen.Return(jen.Id("rows").Dot("Err").Call()),
	)
}

// =============================================================================
// Mutations
// =============================================================================

// txWrapper emits the exported mutation method delegating to its
// transaction-scoped function.
func txWrapper(f *jen.File, t *gen.Type, name, comment string, params []jen.Code, call *jen.Statement) {
	f.Commentf("%s", comment)
	f.Func().Params(repoRecv(t)).Id(name).Params(params...).Error().Block(
		jen.List(jen.Id("tx"), jen.Err()).Op(":=").Id("r").Dot("drv").Dot("Tx").Call(jen.Id("ctx")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		jen.If(
			jen.Err().Op(":=").Add(call),
			jen.Err().Op("!=").Nil(),
		).Block(
			jen.Id("_").Op("=").Id("tx").Dot("Rollback").Call(),
			jen.Return(jen.Id("wrapError").Call(jen.Err())),
		),
		jen.Return(jen.Id("tx").Dot("Commit").Call()),
	)
}

// transientCheck returns the condition reporting that v's key is unset.
// Only single-key entities are checkable.
func transientCheck(h gen.GeneratorHelper, t *gen.Type, v string) jen.Code {
	return jen.Id(v).Dot(t.ID().StructField()).Op("==").Add(h.ZeroValue(t.ID()))
}

// fkAssign returns the statements stamping the child's foreign-key column
// with the owner's key before the child row is written. Bidirectional
// pairs go through the child's raw setter; unidirectional ones write the
// column field directly.
func fkAssign(t *gen.Type, r *gen.Relationship, child string) []jen.Code {
	if r.Ref != nil {
		return []jen.Code{jen.Id(child).Dot("set" + r.Ref.StructField()).Call(jen.Id("m"))}
	}
	fk, err := r.ForeignKey()
	if err != nil {
		return nil
	}
	owner := jen.Id("m").Dot(t.ID().StructField())
	if fk.Field.Nillable {
		return []jen.Code{
			jen.Id("id").Op(":=").Add(owner),
			jen.Id(child).Dot(fk.Field.StructField()).Op("=").Op("&").Id("id"),
		}
	}
	return []jen.Code{jen.Id(child).Dot(fk.Field.StructField()).Op("=").Add(owner)}
}

func genInsert(h gen.GeneratorHelper, b *Builder, f *jen.File, t *gen.Type) {
	fn := "insert" + t.Name + "Tx"
	query, cols := b.InsertQuery(t)

	var body []jen.Code
	if generatedKey(t) {
		body = append(body, jen.If(
			jen.Id("m").Op("==").Nil().Op("||").Id("m").Dot(t.ID().StructField()).Op("!=").Add(h.ZeroValue(t.ID())),
		).Block(jen.Return(jen.Nil())))
	} else {
		body = append(body, jen.If(jen.Id("m").Op("==").Nil()).Block(jen.Return(jen.Nil())))
	}

	// Transient owning parents are inserted first so the foreign-key
	// columns below carry real keys.
	parents := 0
	for _, r := range t.Rels {
		if !r.OwnFK() || !r.HasCascade(rel.Persist) || r.Type.HasCompositeID() {
			continue
		}
		parents++
		body = append(body, jen.If(
			jen.Id("v").Op(":=").Id("m").Dot(r.StructField()),
			jen.Id("v").Op("!=").Nil().Op("&&").Add(transientCheck(h, r.Type, "v")),
		).Block(
			jen.If(
				jen.Err().Op(":=").Id("insert"+r.Type.Name+"Tx").Call(jen.Id("ctx"), jen.Id("tx"), jen.Id("v")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
		))
	}
	if parents > 0 && generatedKey(t) {
		// A cascade cycle through the parents may have inserted m already.
		body = append(body, jen.If(
			jen.Id("m").Dot(t.ID().StructField()).Op("!=").Add(h.ZeroValue(t.ID())),
		).Block(jen.Return(jen.Nil())))
	}
	// Re-derive owning foreign-key columns from their navigation pointers.
	// A nil pointer leaves the column alone: callers may assign the raw
	// foreign-key field without materializing the related entity.
	for _, r := range t.Rels {
		if r.OwnFK() {
			body = append(body, jen.If(jen.Id("m").Dot(r.StructField()).Op("!=").Nil()).Block(
				jen.Id("m").Dot("set"+r.StructField()).Call(jen.Id("m").Dot(r.StructField())),
			))
		}
	}

	body = append(body, jen.Id("args").Op(":=").Add(colArgs(t, "m", cols)))
	switch {
	case generatedKey(t) && b.Dialect() == dialect.Postgres:
		body = append(body,
			jen.Id("rows").Op(":=").Op("&").Qual(h.SQLPkg(), "Rows").Values(),
			jen.If(
				jen.Err().Op(":=").Id("tx").Dot("Query").Call(jen.Id("ctx"), jen.Lit(query), jen.Id("args"), jen.Id("rows")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
			jen.List(jen.Id("id"), jen.Err()).Op(":=").Qual(h.SQLPkg(), "ScanValue").Index(h.IDType(t)).Call(jen.Id("rows")),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
			jen.Id("m").Dot(t.ID().StructField()).Op("=").Id("id"),
		)
	case generatedKey(t) && intKey(t):
		conv := jen.Id("id")
		switch t.ID().Type.Type {
		case field.TypeInt:
			conv = jen.Int().Call(jen.Id("id"))
		case field.TypeUint64:
			conv = jen.Uint64().Call(jen.Id("id"))
		}
		body = append(body,
			jen.Var().Id("res").Qual(h.SQLPkg(), "Result"),
			jen.If(
				jen.Err().Op(":=").Id("tx").Dot("Exec").Call(jen.Id("ctx"), jen.Lit(query), jen.Id("args"), jen.Op("&").Id("res")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
			jen.List(jen.Id("id"), jen.Err()).Op(":=").Id("res").Dot("LastInsertId").Call(),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
			jen.Id("m").Dot(t.ID().StructField()).Op("=").Add(conv),
		)
	default:
		body = append(body, jen.If(
			jen.Err().Op(":=").Id("tx").Dot("Exec").Call(jen.Id("ctx"), jen.Lit(query), jen.Id("args"), jen.Nil()),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(jen.Err())))
	}

	// Children after the own row: their foreign keys reference it.
	for _, r := range t.Rels {
		if !r.IsCollection() || r.M2M() || !r.HasCascade(rel.Persist) || r.Type.HasCompositeID() {
			continue
		}
		F := r.StructField()
		loop := []jen.Code{
			jen.If(jen.Op("!").Parens(transientCheck(h, r.Type, "v"))).Block(jen.Continue()),
		}
		loop = append(loop, fkAssignChild(t, r)...)
		loop = append(loop, jen.If(
			jen.Err().Op(":=").Id("insert"+r.Type.Name+"Tx").Call(jen.Id("ctx"), jen.Id("tx"), jen.Id("v")),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(jen.Err())))
		body = append(body,
			jen.For(jen.List(jen.Id("_"), jen.Id("v")).Op(":=").Range().Id("m").Dot(F)).Block(loop...),
			snapshotStmt(r),
		)
	}

	// Join rows of owning many-to-many relationships. A transient target
	// without a Persist cascade surfaces as a foreign-key violation.
	for _, r := range t.Rels {
		if !r.M2M() || !r.IsOwning() {
			continue
		}
		F := r.StructField()
		var loop []jen.Code
		if r.HasCascade(rel.Persist) && !r.Type.HasCompositeID() {
			loop = append(loop, jen.If(
				jen.Err().Op(":=").Id("insert"+r.Type.Name+"Tx").Call(jen.Id("ctx"), jen.Id("tx"), jen.Id("v")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())))
		}
		loop = append(loop, jen.If(
			jen.Err().Op(":=").Id("tx").Dot("Exec").Call(
				jen.Id("ctx"), jen.Lit(b.JoinRowInsertQuery(r)),
				jen.Index().Any().Values(jen.Id("m").Dot(t.ID().StructField()), jen.Id("v").Dot(r.Type.ID().StructField())),
				jen.Nil(),
			),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(jen.Err())))
		body = append(body,
			jen.For(jen.List(jen.Id("_"), jen.Id("v")).Op(":=").Range().Id("m").Dot(F)).Block(loop...),
			snapshotStmt(r),
		)
	}
	body = append(body, jen.Return(jen.Nil()))

	f.Commentf("// %s inserts m and cascades to relationships marked with the Persist\n// cascade: transient parents first, children after the own row.", fn)
	f.Func().Id(fn).Params(
		ctxParam(),
		jen.Id("tx").Qual(h.DialectPkg(), "Tx"),
		jen.Id("m").Op("*").Id(t.Name),
	).Error().Block(body...)

	txWrapper(f, t, "Insert",
		"// Insert persists m in a transaction, cascading to relationships\n// marked with the Persist cascade.",
		[]jen.Code{ctxParam(), jen.Id("m").Op("*").Id(t.Name)},
		jen.Id(fn).Call(jen.Id("ctx"), jen.Id("tx"), jen.Id("m")),
	)
}

// fkAssignChild returns the statements stamping child v's foreign key
// inside a collection-cascade loop.
func fkAssignChild(t *gen.Type, r *gen.Relationship) []jen.Code {
	return fkAssign(t, r, "v")
}

// snapshotStmt refreshes the loaded snapshot of a collection relationship
// to the current in-memory state.
func snapshotStmt(r *gen.Relationship) jen.Code {
	F := r.StructField()
	return jen.Id("m").Dot("loaded" + F).Op("=").
		Append(jen.Index().Op("*").Id(r.Type.Name).Values(), jen.Id("m").Dot(F).Op("..."))
}

func intKey(t *gen.Type) bool {
	switch t.ID().Type.Type {
	case field.TypeInt, field.TypeInt64, field.TypeUint64:
		return true
	}
	return false
}

func genUpdate(h gen.GeneratorHelper, b *Builder, f *jen.File, t *gen.Type) {
	fn := "update" + t.Name + "Tx"
	query, cols := b.UpdateQuery(t)

	body := []jen.Code{
		jen.If(jen.Id("m").Op("==").Nil()).Block(jen.Return(jen.Nil())),
		jen.If(
			jen.List(jen.Id("_"), jen.Id("ok")).Op(":=").Id("seen").Index(jen.Id("m")),
			jen.Id("ok"),
		).Block(jen.Return(jen.Nil())),
		jen.Id("seen").Index(jen.Id("m")).Op("=").Struct().Values(),
	}

	// Transient owning parents first.
	for _, r := range t.Rels {
		if !r.OwnFK() || r.Type.HasCompositeID() {
			continue
		}
		if !r.HasCascade(rel.Persist) && !r.HasCascade(rel.Merge) {
			continue
		}
		body = append(body, jen.If(
			jen.Id("v").Op(":=").Id("m").Dot(r.StructField()),
			jen.Id("v").Op("!=").Nil().Op("&&").Add(transientCheck(h, r.Type, "v")),
		).Block(
			jen.If(
				jen.Err().Op(":=").Id("insert"+r.Type.Name+"Tx").Call(jen.Id("ctx"), jen.Id("tx"), jen.Id("v")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
		))
	}
	// Re-derive owning foreign-key columns from their navigation pointers.
	// A nil pointer leaves the column alone: callers may assign the raw
	// foreign-key field without materializing the related entity.
	for _, r := range t.Rels {
		if r.OwnFK() {
			body = append(body, jen.If(jen.Id("m").Dot(r.StructField()).Op("!=").Nil()).Block(
				jen.Id("m").Dot("set"+r.StructField()).Call(jen.Id("m").Dot(r.StructField())),
			))
		}
	}

	if len(cols) > 0 {
		body = append(body,
			jen.Id("args").Op(":=").Add(colArgs(t, "m", cols, pkArgsFrom(t, "m")...)),
			jen.If(
				jen.Err().Op(":=").Id("tx").Dot("Exec").Call(jen.Id("ctx"), jen.Lit(query), jen.Id("args"), jen.Nil()),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
		)
	}

	// Merge into persisted single-valued relationships.
	for _, r := range t.Rels {
		if r.IsCollection() || !r.HasCascade(rel.Merge) || r.Type.HasCompositeID() {
			continue
		}
		body = append(body, jen.If(
			jen.Id("v").Op(":=").Id("m").Dot(r.StructField()),
			jen.Id("v").Op("!=").Nil().Op("&&").Op("!").Parens(transientCheck(h, r.Type, "v")),
		).Block(
			jen.If(
				jen.Err().Op(":=").Id("update"+r.Type.Name+"Tx").Call(jen.Id("ctx"), jen.Id("tx"), jen.Id("v"), jen.Id("seen")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
		))
	}

	// Orphan removal: loaded children dropped from the collection are
	// deleted with their own cascade.
	for _, r := range t.Rels {
		if !r.OrphanRemoval || !r.IsCollection() {
			continue
		}
		body = append(body, jen.For(
			jen.List(jen.Id("_"), jen.Id("o")).Op(":=").Range().Id("m").Dot("orphaned"+r.StructField()).Call(),
		).Block(
			jen.If(
				jen.Err().Op(":=").Id("delete"+r.Type.Name+"Tx").Call(
					append([]jen.Code{jen.Id("ctx"), jen.Id("tx")}, pkArgsFrom(r.Type, "o")...)...),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
		))
	}

	// Collection cascades.
	for _, r := range t.Rels {
		if !r.IsCollection() || r.M2M() || r.Type.HasCompositeID() {
			continue
		}
		persist := r.HasCascade(rel.Persist) || r.HasCascade(rel.Merge)
		merge := r.HasCascade(rel.Merge)
		if !persist && !merge {
			continue
		}
		var loop []jen.Code
		insertChild := append(fkAssignChild(t, r), jen.If(
			jen.Err().Op(":=").Id("insert"+r.Type.Name+"Tx").Call(jen.Id("ctx"), jen.Id("tx"), jen.Id("v")),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(jen.Err())), jen.Continue())
		loop = append(loop, jen.If(transientCheck(h, r.Type, "v")).Block(insertChild...))
		if merge {
			loop = append(loop, jen.If(
				jen.Err().Op(":=").Id("update"+r.Type.Name+"Tx").Call(jen.Id("ctx"), jen.Id("tx"), jen.Id("v"), jen.Id("seen")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())))
		}
		body = append(body,
			jen.For(jen.List(jen.Id("_"), jen.Id("v")).Op(":=").Range().Id("m").Dot(r.StructField())).Block(loop...),
			snapshotStmt(r),
		)
	}

	// Join-table diff of owning many-to-many relationships: rows for
	// added targets, removals for dropped ones.
	for _, r := range t.Rels {
		if !r.M2M() || !r.IsOwning() {
			continue
		}
		F := r.StructField()
		var addLoop []jen.Code
		joinInsert := jen.If(
			jen.Err().Op(":=").Id("tx").Dot("Exec").Call(
				jen.Id("ctx"), jen.Lit(b.JoinRowInsertQuery(r)),
				jen.Index().Any().Values(jen.Id("m").Dot(t.ID().StructField()), jen.Id("v").Dot(r.Type.ID().StructField())),
				jen.Nil(),
			),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(jen.Err()))
		transientBranch := []jen.Code{}
		if (r.HasCascade(rel.Persist) || r.HasCascade(rel.Merge)) && !r.Type.HasCompositeID() {
			transientBranch = append(transientBranch, jen.If(
				jen.Err().Op(":=").Id("insert"+r.Type.Name+"Tx").Call(jen.Id("ctx"), jen.Id("tx"), jen.Id("v")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())))
		}
		transientBranch = append(transientBranch, joinInsert, jen.Continue())
		addLoop = append(addLoop,
			jen.If(transientCheck(h, r.Type, "v")).Block(transientBranch...),
			jen.Id("known").Op(":=").False(),
			jen.For(jen.List(jen.Id("_"), jen.Id("old")).Op(":=").Range().Id("m").Dot("loaded"+F)).Block(
				jen.If(jen.Id("old").Op("==").Id("v")).Block(jen.Id("known").Op("=").True(), jen.Break()),
			),
			jen.If(jen.Op("!").Id("known")).Block(joinInsert),
		)
		body = append(body,
			jen.For(jen.List(jen.Id("_"), jen.Id("v")).Op(":=").Range().Id("m").Dot(F)).Block(addLoop...),
			jen.For(jen.List(jen.Id("_"), jen.Id("old")).Op(":=").Range().Id("m").Dot("loaded"+F)).Block(
				jen.If(jen.Op("!").Id("m").Dot("contains"+F).Call(jen.Id("old"))).Block(
					jen.If(
						jen.Err().Op(":=").Id("tx").Dot("Exec").Call(
							jen.Id("ctx"), jen.Lit(b.JoinRowDeleteQuery(r)),
							jen.Index().Any().Values(jen.Id("m").Dot(t.ID().StructField()), jen.Id("old").Dot(r.Type.ID().StructField())),
							jen.Nil(),
						),
						jen.Err().Op("!=").Nil(),
					).Block(jen.Return(jen.Err())),
				),
			),
			snapshotStmt(r),
		)
	}
	body = append(body, jen.Return(jen.Nil()))

	f.Commentf("// %s updates m's row and walks its Merge cascade. The seen set stops\n// cycles between mutually cascading entities.", fn)
	f.Func().Id(fn).Params(
		ctxParam(),
		jen.Id("tx").Qual(h.DialectPkg(), "Tx"),
		jen.Id("m").Op("*").Id(t.Name),
		jen.Id("seen").Map(jen.Any()).Struct(),
	).Error().Block(body...)

	txWrapper(f, t, "Update",
		"// Update persists m's changes in a transaction: the row itself, orphan\n// removal of dropped children and the Merge cascade.",
		[]jen.Code{ctxParam(), jen.Id("m").Op("*").Id(t.Name)},
		jen.Id(fn).Call(jen.Id("ctx"), jen.Id("tx"), jen.Id("m"), jen.Make(jen.Map(jen.Any()).Struct())),
	)
}

func genDelete(h gen.GeneratorHelper, b *Builder, f *jen.File, t *gen.Type) {
	fn := "delete" + t.Name + "Tx"
	plan, err := b.CascadeDeletePlan(h.Graph(), t)
	if err != nil {
		plan = []DeleteStep{{Query: b.DeleteQuery(t), Path: t.Name}}
	}
	queries := make([]jen.Code, 0, len(plan))
	for _, step := range plan {
		queries = append(queries, jen.Lit(step.Query))
	}
	keyParams := pkParams(h, t)
	keyArgs := pkArgs(t)

	f.Commentf("// %s removes one %s row and everything its Remove cascade reaches,\n// children first. Every statement binds the root key.", fn, t.Name)
	f.Func().Id(fn).Params(
		append([]jen.Code{ctxParam(), jen.Id("tx").Qual(h.DialectPkg(), "Tx")}, keyParams...)...,
	).Error().Block(
		jen.For(jen.List(jen.Id("_"), jen.Id("q")).Op(":=").Range().Index().String().Values(queries...)).Block(
			jen.If(
				jen.Err().Op(":=").Id("tx").Dot("Exec").Call(jen.Id("ctx"), jen.Id("q"), keyArgs, jen.Nil()),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
		),
		jen.Return(jen.Nil()),
	)

	txWrapper(f, t, "Delete",
		fmt.Sprintf("// Delete removes the %s with the given key together with the children\n// its Remove cascade reaches. Detach-cascaded children are kept with\n// their foreign keys cleared; non-cascaded ones are left in place and\n// surface as constraint violations when referenced.", t.Name),
		append([]jen.Code{ctxParam()}, pkParams(h, t)...),
		jen.Id(fn).Call(append([]jen.Code{jen.Id("ctx"), jen.Id("tx")}, pkParamRefs(t)...)...),
	)
}
