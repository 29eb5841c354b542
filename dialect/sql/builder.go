package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/relgen/dialect"
)

// In returns a comma-separated placeholder list of n statement arguments,
// numbered from start. Generated batch queries are synthesized as a
// (prefix, suffix) pair around an IN list whose size is only known at
// runtime; In expands that list.
func In(d string, start, n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		if d == dialect.Postgres {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(start + i))
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}
