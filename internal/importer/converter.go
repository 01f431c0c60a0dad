package importer

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// idNamespace seeds the name-based ids given to records whose names have no
// ASCII spelling.
var idNamespace = uuid.MustParse("5f0c2a0e-7d3b-4c1e-9a56-1d2e8b7f4c30")

// Slug converts a display name to a snake_case identifier. Letters are
// lowercased, whitespace and hyphens become underscores, anything outside
// [a-z0-9] is dropped, and underscores never repeat or lead or trail.
//
// Postcondition: result matches ^([a-z0-9]+(_[a-z0-9]+)*)?$ and
// Slug(Slug(s)) == Slug(s).
func Slug(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pending = b.Len() > 0
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pending {
				b.WriteByte('_')
				pending = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RecordID picks the id for an imported record: explicit when set, else the
// slug of the first name that has one. Names with no ASCII letters or digits,
// such as Japanese display names, get prefix plus a short hash of the name so
// the id stays stable across imports.
//
// Postcondition: Returns "" only when explicit and every name are blank.
func RecordID(prefix, explicit string, names ...string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	for _, n := range names {
		if s := Slug(n); s != "" {
			return s
		}
	}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			h := uuid.NewSHA1(idNamespace, []byte(n)).String()
			return Slug(prefix) + "_" + h[:8]
		}
	}
	return ""
}
