// Package field provides fluent builders for declaring entity fields.
//
// Field names follow database conventions (snake_case); the generated Go
// struct fields are the PascalCase form:
//
//	field.Int64("user_id")    // column: user_id, Go: UserID
//	field.String("email")     // column: email,   Go: Email
//
// # Field Types
//
//	field.String("name")
//	field.Int("count")
//	field.Int64("big_number")
//	field.Uint64("counter")
//	field.Float64("price")
//	field.Bool("active")
//	field.Time("created_at")
//	field.UUID("id")
//	field.Bytes("payload")
//	field.Enum("status").Values("pending", "active", "inactive")
//
// # Field Options
//
//	field.String("email").
//	    Unique().      // unique constraint
//	    Optional().    // not required on create
//	    Nillable().    // nullable column, pointer in Go
//	    Immutable().   // cannot be updated
//	    Comment("Login email")
//
// # Primary Keys
//
// Any field can be marked as (part of) the primary key; declaring several
// forms a composite key in declaration order:
//
//	field.String("tenant").PrimaryKey(),
//	field.Int64("seq").PrimaryKey(),
//
// Entities that declare no primary key get an implicit numeric id column;
// its type is configured globally (see compiler/gen.WithIDType).
//
// # Error Handling
//
// Builders never panic on misuse. The first error is recorded on the
// descriptor and reported when the schema is loaded, so every declaration
// problem surfaces in one generation run.
package field
