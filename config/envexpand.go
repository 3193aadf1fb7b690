package config

import (
	"os"
	"regexp"
	"slices"
)

// envRef matches ${NAME} and ${NAME:-fallback}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment references in a config document.
// An unset or empty variable takes its fallback, or expands to "" when
// it has none; an empty public_key then fails Validate.
func ExpandEnv(input string) string {
	out, _ := expand(input, os.LookupEnv)
	return out
}

// expand substitutes references using lookup and reports, sorted and
// deduplicated, the names that resolved to "" with no fallback.
func expand(input string, lookup func(string) (string, bool)) (string, []string) {
	var unresolved []string
	out := envRef.ReplaceAllStringFunc(input, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if v, ok := lookup(m[1]); ok && v != "" {
			return v
		}
		if m[2] != "" {
			return m[2]
		}
		unresolved = append(unresolved, m[1])
		return ""
	})
	slices.Sort(unresolved)
	return out, slices.Compact(unresolved)
}
