// Package schema groups the building blocks for declaring relgen entity
// schemas:
//
//   - [field]: field builders for entity attributes
//   - [rel]: relationship builders for the four relational kinds
//   - [mixin]: reusable schema components
//
// An entity schema embeds relgen.Schema and overrides the methods it
// needs:
//
//	type User struct{ relgen.Schema }
//
//	func (User) Mixin() []relgen.Mixin {
//	    return []relgen.Mixin{
//	        mixin.Time{}, // created_at, updated_at
//	    }
//	}
//
//	func (User) Fields() []relgen.Field {
//	    return []relgen.Field{
//	        field.String("email").Unique(),
//	        field.String("name"),
//	    }
//	}
//
//	func (User) Relationships() []relgen.Relationship {
//	    return []relgen.Relationship{
//	        rel.OneToMany("posts", Post.Type).
//	            MappedBy("author").
//	            Cascade(rel.All).
//	            OrphanRemoval(),
//	    }
//	}
//
// Schemas are plain Go values; the compiler/load package converts them
// into records consumed by the generation engine.
package schema
