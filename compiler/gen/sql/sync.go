package sql

import (
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/schema/field"
)

// Model emission. The model file of an entity carries its struct, the
// table and column constants, the scan/assign plumbing used by the
// repository, and the relationship synchronization helpers.
//
// Synchronization is layered: the exported helpers (SetX, AddToX,
// RemoveFromX) maintain both sides of a bidirectional relationship, while
// the unexported raw primitives (setX, addX, removeX, containsX) touch
// only the receiver and never call back into the paired side. The
// exported helpers manipulate the other side exclusively through raw
// primitives, so no call chain can recurse.

func genModel(h gen.GeneratorHelper, _ *Builder, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())
	genModelConstants(f, t)
	genModelStruct(h, f, t)
	genScanValues(h, f, t)
	genAssignValues(h, f, t)
	for _, r := range t.Rels {
		genSyncHelpers(h, f, t, r)
	}
	return f
}

// modelFields returns the scannable fields of t in column order: primary
// key first, then declared fields, then foreign keys.
func modelFields(t *gen.Type) []*gen.Field {
	fields := make([]*gen.Field, 0, len(t.PK)+len(t.Fields)+len(t.ForeignKeys))
	fields = append(fields, t.PK...)
	fields = append(fields, t.Fields...)
	for _, fk := range t.ForeignKeys {
		fields = append(fields, fk.Field)
	}
	return fields
}

func genModelConstants(f *jen.File, t *gen.Type) {
	f.Commentf("Table and column names of the %s entity.", t.Name)
	defs := []jen.Code{
		jen.Id(t.Name + "Table").Op("=").Lit(t.Table()),
	}
	for _, fd := range modelFields(t) {
		defs = append(defs, jen.Id(t.Name+fd.Constant()).Op("=").Lit(fd.Column()))
	}
	for _, r := range t.Rels {
		if r.Rel.Table == "" {
			continue
		}
		defs = append(defs, jen.Id(t.Name+r.TableConstant()).Op("=").Lit(r.Rel.Table))
		if len(r.Rel.Columns) > 0 {
			defs = append(defs, jen.Id(t.Name+r.ColumnConstant()).Op("=").Lit(r.Rel.Columns[0]))
		}
		if len(r.Rel.Columns) > 1 {
			defs = append(defs, jen.Id(t.Name+r.StructField()+"TargetColumn").Op("=").Lit(r.Rel.Columns[1]))
		}
	}
	f.Const().Defs(defs...)

	f.Commentf("%sColumns holds all columns of the %s table, primary key first.", t.Name, t.Table())
	cols := make([]jen.Code, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		cols = append(cols, jen.Lit(c))
	}
	f.Var().Id(t.Name + "Columns").Op("=").Index().String().Values(cols...)
}

func genModelStruct(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	f.Commentf("%s is the model entity of the %s table.", t.Name, t.Table())
	var fields []jen.Code
	for _, fd := range modelFields(t) {
		if fd.Comment != "" {
			fields = append(fields, jen.Comment(fd.Comment))
		}
		fields = append(fields, jen.Id(fd.StructField()).Add(h.GoType(fd)).
			Tag(map[string]string{"json": fd.Column() + ",omitempty"}))
	}
	for _, r := range t.Rels {
		if r.Comment != "" {
			fields = append(fields, jen.Comment(r.Comment))
		}
		code := jen.Id(r.StructField())
		if r.IsCollection() {
			code = code.Index().Op("*").Id(r.Type.Name)
		} else {
			code = code.Op("*").Id(r.Type.Name)
		}
		fields = append(fields, code.Tag(structTag(r)))
	}
	// Loaded snapshots track what was fetched from the database; Update
	// diffs them against the current collections for orphan removal and
	// join-table maintenance.
	for _, r := range t.Rels {
		if r.IsCollection() {
			fields = append(fields, jen.Id("loaded"+r.StructField()).Index().Op("*").Id(r.Type.Name))
		}
	}
	f.Type().Id(t.Name).Struct(fields...)
}

// structTag returns the struct tag of a relationship field: the declared
// tag when one was set on the schema, a json tag otherwise.
func structTag(r *gen.Relationship) map[string]string {
	if r.StructTag == "" {
		return map[string]string{"json": r.Name + ",omitempty"}
	}
	tags := make(map[string]string)
	for _, part := range strings.Fields(r.StructTag) {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		tags[k] = strings.Trim(v, `"`)
	}
	return tags
}

// =============================================================================
// Scanning
// =============================================================================

func genScanValues(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	fields := modelFields(t)
	vals := make([]jen.Code, 0, len(fields))
	for _, fd := range fields {
		vals = append(vals, scanDest(h, fd))
	}
	f.Commentf("// scanValues returns destinations for scanning the columns of the %s\n// table, in the order of %sColumns.", t.Table(), t.Name)
	f.Func().Params(jen.Op("*").Id(t.Name)).Id("scanValues").Params().Index().Any().Block(
		jen.Return(jen.Index().Any().Values(vals...)),
	)
}

// scanDest returns the scan destination of one column. Nullable wrappers
// are used throughout so the same destinations serve LEFT JOIN rows.
func scanDest(h gen.GeneratorHelper, fd *gen.Field) jen.Code {
	switch fd.Type.Type {
	case field.TypeBool:
		return jen.New(jen.Qual(h.SQLPkg(), "NullBool"))
	case field.TypeTime:
		return jen.New(jen.Qual(h.SQLPkg(), "NullTime"))
	case field.TypeBytes:
		return jen.New(jen.Index().Byte())
	case field.TypeUUID:
		return jen.Op("&").Qual(h.SQLPkg(), "NullScanner").Values(jen.Dict{
			jen.Id("S"): jen.New(jen.Qual("github.com/google/uuid", "UUID")),
		})
	case field.TypeFloat64:
		return jen.New(jen.Qual(h.SQLPkg(), "NullFloat64"))
	case field.TypeString, field.TypeEnum:
		return jen.New(jen.Qual(h.SQLPkg(), "NullString"))
	default:
		return jen.New(jen.Qual(h.SQLPkg(), "NullInt64"))
	}
}

func genAssignValues(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	fields := modelFields(t)
	stmts := []jen.Code{
		jen.If(jen.Len(jen.Id("values")).Op("!=").Lit(len(fields))).Block(
			jen.Return(jen.Qual("fmt", "Errorf").Call(
				jen.Lit("unexpected number of scan values: %d"), jen.Len(jen.Id("values")))),
		),
	}
	for i, fd := range fields {
		stmts = append(stmts, assignStmt(h, fd, i))
	}
	stmts = append(stmts, jen.Return(jen.Nil()))
	f.Comment("// assignValues assigns the values scanned with scanValues to the entity\n// fields, in column order.")
	f.Func().Params(jen.Id("m").Op("*").Id(t.Name)).Id("assignValues").
		Params(jen.Id("values").Index().Any()).Error().Block(stmts...)
}

// assignStmt returns the statement assigning the i-th scanned value to
// its model field, with the type check and NULL handling of the wrapper.
func assignStmt(h gen.GeneratorHelper, fd *gen.Field, i int) jen.Code {
	typeErr := jen.Return(jen.Qual("fmt", "Errorf").Call(
		jen.Lit("unexpected type %T for column "+fd.Column()), jen.Id("values").Index(jen.Lit(i))))
	if fd.Type.Type == field.TypeBytes {
		return jen.If(
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("values").Index(jen.Lit(i)).Assert(jen.Op("*").Index().Byte()),
			jen.Op("!").Id("ok"),
		).Block(typeErr).Else().If(jen.Op("*").Id("v").Op("!=").Nil()).Block(
			jen.Id("m").Dot(fd.StructField()).Op("=").Op("*").Id("v"),
		)
	}
	var (
		wrapper jen.Code
		value   *jen.Statement
	)
	switch fd.Type.Type {
	case field.TypeBool:
		wrapper, value = jen.Op("*").Qual(h.SQLPkg(), "NullBool"), jen.Id("v").Dot("Bool")
	case field.TypeTime:
		wrapper, value = jen.Op("*").Qual(h.SQLPkg(), "NullTime"), jen.Id("v").Dot("Time")
	case field.TypeUUID:
		wrapper = jen.Op("*").Qual(h.SQLPkg(), "NullScanner")
		value = jen.Op("*").Parens(jen.Id("v").Dot("S").Assert(jen.Op("*").Qual("github.com/google/uuid", "UUID")))
	case field.TypeFloat64:
		wrapper, value = jen.Op("*").Qual(h.SQLPkg(), "NullFloat64"), jen.Id("v").Dot("Float64")
	case field.TypeString, field.TypeEnum:
		wrapper, value = jen.Op("*").Qual(h.SQLPkg(), "NullString"), jen.Id("v").Dot("String")
	case field.TypeInt:
		wrapper, value = jen.Op("*").Qual(h.SQLPkg(), "NullInt64"), jen.Int().Call(jen.Id("v").Dot("Int64"))
	case field.TypeUint64:
		wrapper, value = jen.Op("*").Qual(h.SQLPkg(), "NullInt64"), jen.Uint64().Call(jen.Id("v").Dot("Int64"))
	default:
		wrapper, value = jen.Op("*").Qual(h.SQLPkg(), "NullInt64"), jen.Id("v").Dot("Int64")
	}
	var assign []jen.Code
	if fd.Nillable {
		assign = []jen.Code{
			jen.Id("val").Op(":=").Add(value),
			jen.Id("m").Dot(fd.StructField()).Op("=").Op("&").Id("val"),
		}
	} else {
		assign = []jen.Code{jen.Id("m").Dot(fd.StructField()).Op("=").Add(value)}
	}
	return jen.If(
		jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("values").Index(jen.Lit(i)).Assert(wrapper),
		jen.Op("!").Id("ok"),
	).Block(typeErr).Else().If(jen.Id("v").Dot("Valid")).Block(assign...)
}

// =============================================================================
// Synchronization helpers
// =============================================================================

func genSyncHelpers(h gen.GeneratorHelper, f *jen.File, t *gen.Type, r *gen.Relationship) {
	recv := jen.Id("m").Op("*").Id(t.Name)
	param := jen.Id("v").Op("*").Id(r.Type.Name)
	if r.IsCollection() {
		genCollectionHelpers(h, f, r, recv, param)
	} else {
		genSingleHelpers(f, r, recv, param)
	}
	genRawHelpers(h, f, r, recv, param)
}

func genSingleHelpers(f *jen.File, r *gen.Relationship, recv, param jen.Code) {
	F := r.StructField()
	body := []jen.Code{
		jen.If(jen.Id("m").Dot(F).Op("==").Id("v")).Block(jen.Return()),
	}
	if r.Ref != nil {
		body = append(body, jen.Id("old").Op(":=").Id("m").Dot(F))
	}
	body = append(body, jen.Id("m").Dot("set"+F).Call(jen.Id("v")))
	if rf := r.Ref; rf != nil {
		RF := rf.StructField()
		if rf.IsCollection() {
			body = append(body,
				jen.If(jen.Id("old").Op("!=").Nil()).Block(
					jen.Id("old").Dot("remove"+RF).Call(jen.Id("m")),
				),
				jen.If(jen.Id("v").Op("!=").Nil().Op("&&").Op("!").Id("v").Dot("contains"+RF).Call(jen.Id("m"))).Block(
					jen.Id("v").Dot("add"+RF).Call(jen.Id("m")),
				),
			)
		} else {
			body = append(body,
				jen.If(jen.Id("old").Op("!=").Nil().Op("&&").Id("old").Dot(RF).Op("==").Id("m")).Block(
					jen.Id("old").Dot("set"+RF).Call(jen.Nil()),
				),
				jen.If(jen.Id("v").Op("!=").Nil()).Block(
					jen.If(
						jen.Id("prev").Op(":=").Id("v").Dot(RF),
						jen.Id("prev").Op("!=").Nil().Op("&&").Id("prev").Op("!=").Id("m"),
					).Block(
						jen.Id("prev").Dot("set"+F).Call(jen.Nil()),
					),
					jen.Id("v").Dot("set"+RF).Call(jen.Id("m")),
				),
			)
		}
	}
	if r.Ref != nil {
		f.Commentf("Set%s sets the %s relationship and keeps %s.%s in sync.", F, r.Name, r.Type.Name, r.Ref.StructField())
	} else {
		f.Commentf("Set%s sets the %s relationship.", F, r.Name)
	}
	f.Func().Params(recv).Id("Set" + F).Params(param).Block(body...)
}

func genCollectionHelpers(h gen.GeneratorHelper, f *jen.File, r *gen.Relationship, recv, param jen.Code) {
	F := r.StructField()

	add := []jen.Code{
		jen.If(jen.Id("v").Op("==").Nil().Op("||").Id("m").Dot("contains"+F).Call(jen.Id("v"))).Block(jen.Return()),
		jen.Id("m").Dot("add" + F).Call(jen.Id("v")),
	}
	remove := []jen.Code{
		jen.If(jen.Id("v").Op("==").Nil().Op("||").Op("!").Id("m").Dot("contains"+F).Call(jen.Id("v"))).Block(jen.Return()),
		jen.Id("m").Dot("remove" + F).Call(jen.Id("v")),
	}
	if rf := r.Ref; rf != nil {
		RF := rf.StructField()
		if rf.IsCollection() {
			add = append(add,
				jen.If(jen.Op("!").Id("v").Dot("contains"+RF).Call(jen.Id("m"))).Block(
					jen.Id("v").Dot("add"+RF).Call(jen.Id("m")),
				),
			)
			remove = append(remove,
				jen.If(jen.Id("v").Dot("contains"+RF).Call(jen.Id("m"))).Block(
					jen.Id("v").Dot("remove"+RF).Call(jen.Id("m")),
				),
			)
		} else {
			add = append(add,
				jen.If(jen.Id("v").Dot(RF).Op("!=").Id("m")).Block(
					jen.If(
						jen.Id("prev").Op(":=").Id("v").Dot(RF),
						jen.Id("prev").Op("!=").Nil(),
					).Block(
						jen.Id("prev").Dot("remove"+F).Call(jen.Id("v")),
					),
					jen.Id("v").Dot("set"+RF).Call(jen.Id("m")),
				),
			)
			remove = append(remove,
				jen.If(jen.Id("v").Dot(RF).Op("==").Id("m")).Block(
					jen.Id("v").Dot("set"+RF).Call(jen.Nil()),
				),
			)
		}
	}

	if r.Ref != nil {
		f.Commentf("AddTo%s adds v to the %s collection and keeps %s.%s in sync.", F, r.Name, r.Type.Name, r.Ref.StructField())
	} else {
		f.Commentf("AddTo%s adds v to the %s collection.", F, r.Name)
	}
	f.Func().Params(recv).Id("AddTo" + F).Params(param).Block(add...)

	f.Commentf("RemoveFrom%s removes v from the %s collection.", F, r.Name)
	f.Func().Params(recv).Id("RemoveFrom" + F).Params(param).Block(remove...)

	f.Commentf("// %sOrErr returns the %s collection, or an error if it was neither\n// eagerly fetched nor loaded.", F, r.Name)
	f.Func().Params(recv).Id(F+"OrErr").Params().Params(jen.Index().Op("*").Id(r.Type.Name), jen.Error()).Block(
		jen.If(jen.Id("m").Dot("loaded"+F).Op("==").Nil().Op("&&").Id("m").Dot(F).Op("==").Nil()).Block(
			jen.Return(jen.Nil(), jen.Qual(h.RuntimePkg(), "NewNotLoadedError").Call(jen.Lit(r.Name))),
		),
		jen.Return(jen.Id("m").Dot(F), jen.Nil()),
	)

	if r.OrphanRemoval {
		f.Commentf("// orphaned%s returns the loaded children no longer present in the\n// collection; Update deletes them.", F)
		f.Func().Params(recv).Id("orphaned"+F).Params().Index().Op("*").Id(r.Type.Name).Block(
			jen.Var().Id("out").Index().Op("*").Id(r.Type.Name),
			jen.For(jen.List(jen.Id("_"), jen.Id("old")).Op(":=").Range().Id("m").Dot("loaded"+F)).Block(
				jen.If(jen.Op("!").Id("m").Dot("contains"+F).Call(jen.Id("old"))).Block(
					jen.Id("out").Op("=").Append(jen.Id("out"), jen.Id("old")),
				),
			),
			jen.Return(jen.Id("out")),
		)
	}
}

// genRawHelpers emits the raw primitives of r: they mutate only the
// receiver and are safe to call from the paired side.
func genRawHelpers(h gen.GeneratorHelper, f *jen.File, r *gen.Relationship, recv, param jen.Code) {
	F := r.StructField()
	if !r.IsCollection() {
		stmts := []jen.Code{jen.Id("m").Dot(F).Op("=").Id("v")}
		if r.OwnFK() {
			if fk, err := r.ForeignKey(); err == nil {
				fkName := fk.Field.StructField()
				var clear jen.Code = jen.Id("m").Dot(fkName).Op("=").Add(h.ZeroValue(fk.Field))
				stmts = append(stmts, jen.If(jen.Id("v").Op("==").Nil()).Block(clear, jen.Return()))
				if fk.Field.Nillable {
					stmts = append(stmts,
						jen.Id("id").Op(":=").Id("v").Dot(r.Type.ID().StructField()),
						jen.Id("m").Dot(fkName).Op("=").Op("&").Id("id"),
					)
				} else {
					stmts = append(stmts,
						jen.Id("m").Dot(fkName).Op("=").Id("v").Dot(r.Type.ID().StructField()),
					)
				}
			}
		}
		if r.OwnFK() {
			f.Commentf("// set%s assigns the %s field and its foreign-key column without\n// touching the paired side.", F, r.Name)
		} else {
			f.Commentf("// set%s assigns the %s field without touching the paired side.", F, r.Name)
		}
		f.Func().Params(recv).Id("set" + F).Params(param).Block(stmts...)
		return
	}

	f.Commentf("Raw %s primitives. They mutate only the receiver.", r.Name)
	f.Func().Params(recv).Id("add" + F).Params(param).Block(
		jen.Id("m").Dot(F).Op("=").Append(jen.Id("m").Dot(F), jen.Id("v")),
	)
	f.Func().Params(recv).Id("remove"+F).Params(param).Block(
		jen.For(jen.List(jen.Id("i"), jen.Id("x")).Op(":=").Range().Id("m").Dot(F)).Block(
			jen.If(jen.Id("x").Op("==").Id("v")).Block(
				jen.Id("m").Dot(F).Op("=").Append(
					jen.Id("m").Dot(F).Index(jen.Empty(), jen.Id("i")),
					jen.Id("m").Dot(F).Index(jen.Id("i").Op("+").Lit(1), jen.Empty()).Op("..."),
				),
				jen.Return(),
			),
		),
	)
	f.Func().Params(recv).Id("contains"+F).Params(param).Bool().Block(
		jen.For(jen.List(jen.Id("_"), jen.Id("x")).Op(":=").Range().Id("m").Dot(F)).Block(
			jen.If(jen.Id("x").Op("==").Id("v")).Block(jen.Return(jen.True())),
		),
		jen.Return(jen.False()),
	)
}
