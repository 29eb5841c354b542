package gen

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// =============================================================================
// Naming helpers
// =============================================================================

var rules = ruleset()

func ruleset() *inflect.Ruleset {
	rs := inflect.NewDefaultRuleset()
	// Suffix rules match case-sensitively and entity names are PascalCase,
	// so the common irregulars are registered capitalized as well.
	for s, p := range map[string]string{
		"Person": "People",
		"Child":  "Children",
		"Man":    "Men",
	} {
		rs.AddIrregular(s, p)
	}
	return rs
}

// acronyms holds the initialisms kept fully uppercased in generated
// identifiers (user_id -> UserID).
var acronyms = func() map[string]string {
	m := make(map[string]string)
	for _, w := range []string{
		"ACL", "API", "ASCII", "CPU", "DB", "EOF", "GUID", "HTML", "HTTP",
		"HTTPS", "ID", "IP", "JSON", "LHS", "QPS", "RAM", "RHS", "SLA",
		"SQL", "SSH", "TCP", "TLS", "TTL", "UDP", "UI", "UID", "URI",
		"URL", "UTF8", "UUID", "VM", "XML",
	} {
		m[strings.ToLower(w)] = w
	}
	return m
}()

// plural returns the pluralized form of the given word.
func plural(s string) string {
	return rules.Pluralize(s)
}

// pascal converts a snake_case identifier to PascalCase, respecting the
// registered acronyms (user_id -> UserID).
func pascal(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	var b strings.Builder
	for _, w := range words {
		if a, ok := acronyms[strings.ToLower(w)]; ok {
			b.WriteString(a)
			continue
		}
		b.WriteString(titleCase(w))
	}
	return b.String()
}

// camel converts an identifier to camelCase. The first word is kept
// lowercase even when it is an acronym (id_token -> idToken).
func camel(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		if a, ok := acronyms[strings.ToLower(w)]; ok {
			b.WriteString(a)
			continue
		}
		b.WriteString(titleCase(w))
	}
	return b.String()
}

// snake converts a PascalCase or camelCase identifier to snake_case.
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			// Put a separator on case transitions: either the previous rune
			// is lowercase, or the next one is (handles OrderID -> order_id).
			if i > 0 && (!unicode.IsUpper(rune(s[i-1])) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// titleCase capitalizes the first letter of a string.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
