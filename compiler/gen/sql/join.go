package sql

import (
	"fmt"
	"strings"

	"github.com/syssam/relgen/compiler/gen"
	"github.com/syssam/relgen/dialect"
)

// Join synthesis. All functions here are pure: they compute query text
// from graph metadata and never touch a database. Relationship queries
// assume the graph resolved without shape errors; the guards below are
// defensive and mirror the resolution-time checks.

// aliases used by self-join-safe queries.
const (
	baseAlias = "t"
	joinAlias = "r"
)

// FindByIDQuery returns the primary-key lookup of t. Composite keys
// produce one ANDed equality per key column, in declaration order.
func (b *Builder) FindByIDQuery(t *gen.Type) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		b.columnList(t, ""), b.Quote(t.Table()), b.whereKey(t, "", 1))
}

// AllQuery returns the full-table select of t, ordered by primary key.
func (b *Builder) AllQuery(t *gen.Type) string {
	return fmt.Sprintf("SELECT %s FROM %s%s",
		b.columnList(t, ""), b.Quote(t.Table()), b.orderByKey(t, ""))
}

// CountQuery returns the row count of t's table.
func (b *Builder) CountQuery(t *gen.Type) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", b.Quote(t.Table()))
}

// ExistsByIDQuery returns the primary-key existence check of t.
func (b *Builder) ExistsByIDQuery(t *gen.Type) string {
	return fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s)",
		b.Quote(t.Table()), b.whereKey(t, "", 1))
}

// relSkeleton returns the FROM/JOIN/WHERE skeleton shared by the
// navigation, count and existence variants of r: the clause selecting the
// related rows of one declaring-side row, whose key is the single bound
// argument. The returned qualifier names the related table (or its alias)
// for use in the select list and ordering.
func (b *Builder) relSkeleton(r *gen.Relationship) (from, where, qualifier string, err error) {
	target := r.Type
	switch {
	case r.M2M():
		if r.Owner.HasCompositeID() || target.HasCompositeID() {
			return "", "", "", &gen.UnsupportedRelationshipShapeError{
				Type: r.Owner.Name, Rel: r.Name,
				Reason: "many-to-many navigation requires single-column keys on both sides",
			}
		}
		// Two-hop join through the join table.
		jt, ownerCol, targetCol := r.Rel.Table, r.Rel.Columns[0], r.Rel.Columns[1]
		from = fmt.Sprintf("%s JOIN %s ON %s = %s",
			b.Quote(target.Table()), b.Quote(jt),
			b.qualify(jt, targetCol), b.qualify(target.Table(), target.ID().Column()))
		where = fmt.Sprintf("%s = %s", b.qualify(jt, ownerCol), b.arg(1))
		return from, where, target.Table(), nil
	case r.OwnFK():
		// Foreign key in the declaring entity's table; join it to reach
		// the related row. Aliases keep self-references unambiguous.
		if target.HasCompositeID() {
			return "", "", "", &gen.UnsupportedRelationshipShapeError{
				Type: r.Owner.Name, Rel: r.Name,
				Reason: fmt.Sprintf("single join column cannot reference composite-keyed entity %s", target.Name),
			}
		}
		from = fmt.Sprintf("%s AS %s JOIN %s AS %s ON %s = %s",
			b.Quote(target.Table()), b.Quote(joinAlias),
			b.Quote(r.Owner.Table()), b.Quote(baseAlias),
			b.qualify(baseAlias, r.JoinColumn()), b.qualify(joinAlias, target.ID().Column()))
		where = b.whereKey(r.Owner, baseAlias, 1)
		return from, where, joinAlias, nil
	default:
		// Foreign key in the related entity's table, referencing the
		// declaring side: O2M (both directions) and inverse O2O.
		if r.Owner.HasCompositeID() {
			return "", "", "", &gen.UnsupportedRelationshipShapeError{
				Type: r.Owner.Name, Rel: r.Name,
				Reason: fmt.Sprintf("single join column cannot reference composite-keyed entity %s", r.Owner.Name),
			}
		}
		from = b.Quote(target.Table())
		where = fmt.Sprintf("%s = %s", b.qualify(target.Table(), r.JoinColumn()), b.arg(1))
		return from, where, target.Table(), nil
	}
}

// RelQuery returns the navigation query of r: the related rows of one
// declaring-side row, identified by its key. Collection results carry the
// default target-primary-key ascending order.
func (b *Builder) RelQuery(r *gen.Relationship) (string, error) {
	from, where, q, err := b.relSkeleton(r)
	if err != nil {
		return "", err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", b.columnList(r.Type, q), from, where)
	if r.IsCollection() {
		query += b.orderByKey(r.Type, q)
	}
	return query, nil
}

// RelCountQuery returns the count variant of r's navigation, reusing the
// same join skeleton.
func (b *Builder) RelCountQuery(r *gen.Relationship) (string, error) {
	from, where, _, err := b.relSkeleton(r)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", from, where), nil
}

// RelExistsQuery returns the existence variant of r's navigation.
func (b *Builder) RelExistsQuery(r *gen.Relationship) (string, error) {
	from, where, _, err := b.relSkeleton(r)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s)", from, where), nil
}

// RelBatchQuery returns the batch variant of a collection navigation as a
// (prefix, suffix) pair around a caller-expanded IN list: one query per
// relationship regardless of the number of roots. The declaring-side key
// is selected first so rows group back to their roots in memory, and the
// ordering is key-major so children of one root stay adjacent.
func (b *Builder) RelBatchQuery(r *gen.Relationship) (prefix, suffix string, err error) {
	if !r.IsCollection() {
		return "", "", fmt.Errorf("gen/sql: batch loading is for collection relationships, not %s", r.Kind)
	}
	target := r.Type
	switch {
	case r.M2M():
		if r.Owner.HasCompositeID() || target.HasCompositeID() {
			return "", "", &gen.UnsupportedRelationshipShapeError{
				Type: r.Owner.Name, Rel: r.Name,
				Reason: "many-to-many navigation requires single-column keys on both sides",
			}
		}
		jt, ownerCol, targetCol := r.Rel.Table, r.Rel.Columns[0], r.Rel.Columns[1]
		prefix = fmt.Sprintf("SELECT %s, %s FROM %s JOIN %s ON %s = %s WHERE %s IN (",
			b.qualify(jt, ownerCol),
			b.columnList(target, target.Table()),
			b.Quote(target.Table()), b.Quote(jt),
			b.qualify(jt, targetCol), b.qualify(target.Table(), target.ID().Column()),
			b.qualify(jt, ownerCol))
		suffix = fmt.Sprintf(") ORDER BY %s,%s",
			b.qualify(jt, ownerCol), strings.TrimPrefix(b.orderByKey(target, target.Table()), " ORDER BY"))
		return prefix, suffix, nil
	default: // O2M, both directions.
		if r.Owner.HasCompositeID() {
			return "", "", &gen.UnsupportedRelationshipShapeError{
				Type: r.Owner.Name, Rel: r.Name,
				Reason: fmt.Sprintf("single join column cannot reference composite-keyed entity %s", r.Owner.Name),
			}
		}
		tbl := target.Table()
		prefix = fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (",
			b.qualify(tbl, r.JoinColumn()), b.columnList(target, tbl),
			b.Quote(tbl), b.qualify(tbl, r.JoinColumn()))
		suffix = fmt.Sprintf(") ORDER BY %s,%s",
			b.qualify(tbl, r.JoinColumn()), strings.TrimPrefix(b.orderByKey(target, tbl), " ORDER BY"))
		return prefix, suffix, nil
	}
}

// EagerJoinQuery returns the single LEFT JOIN query loading t together
// with all its eagerly-fetched owning *ToOne relationships, and the row
// split points: splits[i] is the column offset where the i-th joined
// entity's columns begin. One flat row reconstructs the base entity and
// each related entity without further queries.
func (b *Builder) EagerJoinQuery(t *gen.Type) (query string, splits []int, rels []*gen.Relationship) {
	for _, r := range t.Rels {
		if r.OwnFK() && r.Eager() {
			rels = append(rels, r)
		}
	}
	if len(rels) == 0 {
		return "", nil, nil
	}
	var (
		sel  = []string{b.columnList(t, baseAlias)}
		from = fmt.Sprintf("%s AS %s", b.Quote(t.Table()), b.Quote(baseAlias))
		off  = len(t.Columns())
	)
	for i, r := range rels {
		alias := fmt.Sprintf("%s%d", joinAlias, i)
		splits = append(splits, off)
		off += len(r.Type.Columns())
		sel = append(sel, b.columnList(r.Type, alias))
		from += fmt.Sprintf(" LEFT JOIN %s AS %s ON %s = %s",
			b.Quote(r.Type.Table()), b.Quote(alias),
			b.qualify(baseAlias, r.JoinColumn()), b.qualify(alias, r.Type.ID().Column()))
	}
	query = fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(sel, ", "), from, b.whereKey(t, baseAlias, 1))
	return query, splits, rels
}

// =============================================================================
// Mutation statements
// =============================================================================

// InsertQuery returns the insert statement of t and the column order its
// arguments bind to. A generated (non-user-defined) single key is omitted
// from the column list; on Postgres the statement returns it instead.
func (b *Builder) InsertQuery(t *gen.Type) (query string, cols []string) {
	generatedKey := !t.HasCompositeID() && !t.ID().UserDefined
	if !generatedKey {
		cols = append(cols, t.PKColumns()...)
	}
	for _, f := range t.Fields {
		cols = append(cols, f.Column())
	}
	for _, fk := range t.ForeignKeys {
		cols = append(cols, fk.Field.Column())
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = b.Quote(c)
	}
	query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.Quote(t.Table()), strings.Join(quoted, ", "), b.args(1, len(cols)))
	if generatedKey && b.dialect == dialect.Postgres {
		query += " RETURNING " + b.Quote(t.ID().Column())
	}
	return query, cols
}

// UpdateQuery returns the update statement of t and the column order its
// SET arguments bind to. Key and immutable fields are excluded; the key
// binds last, after the SET list.
func (b *Builder) UpdateQuery(t *gen.Type) (query string, cols []string) {
	for _, f := range t.Fields {
		if f.Immutable {
			continue
		}
		cols = append(cols, f.Column())
	}
	for _, fk := range t.ForeignKeys {
		if fk.Rel.Immutable {
			continue
		}
		cols = append(cols, fk.Field.Column())
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = %s", b.Quote(c), b.arg(i+1))
	}
	query = fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		b.Quote(t.Table()), strings.Join(sets, ", "), b.whereKey(t, "", len(cols)+1))
	return query, cols
}

// DeleteQuery returns the primary-key delete statement of t.
func (b *Builder) DeleteQuery(t *gen.Type) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s", b.Quote(t.Table()), b.whereKey(t, "", 1))
}

// ClearFKQuery returns the statement detaching all children of one
// declaring-side row by nulling their foreign key. Only meaningful for
// optional non-M2M relationships whose foreign key lives in the related
// table.
func (b *Builder) ClearFKQuery(r *gen.Relationship) string {
	return fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = %s",
		b.Quote(r.Rel.Table), b.Quote(r.JoinColumn()), b.Quote(r.JoinColumn()), b.arg(1))
}

// JoinRowInsertQuery returns the statement adding one join-table row of an
// M2M relationship, in (owner key, target key) argument order.
func (b *Builder) JoinRowInsertQuery(r *gen.Relationship) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)",
		b.Quote(r.Rel.Table), b.Quote(r.Rel.Columns[0]), b.Quote(r.Rel.Columns[1]),
		b.arg(1), b.arg(2))
}

// JoinRowDeleteQuery returns the statement removing one join-table row of
// an M2M relationship, in (owner key, target key) argument order.
func (b *Builder) JoinRowDeleteQuery(r *gen.Relationship) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s AND %s = %s",
		b.Quote(r.Rel.Table), b.Quote(r.Rel.Columns[0]), b.arg(1),
		b.Quote(r.Rel.Columns[1]), b.arg(2))
}

// JoinRowsDeleteQuery returns the statement removing all join-table rows
// of one declaring-side row.
func (b *Builder) JoinRowsDeleteQuery(r *gen.Relationship) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		b.Quote(r.Rel.Table), b.Quote(r.Rel.Columns[0]), b.arg(1))
}
