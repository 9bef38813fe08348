package regmap

import "strings"

// PathSeparator separates group and register names in a path, e.g.
// "Registers/Relay_1".
const PathSeparator = "/"

// JoinPath joins path elements, skipping empty ones.
func JoinPath(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, PathSeparator)
}

// SplitPath splits a path into its elements. Surrounding whitespace and
// separators are ignored.
func SplitPath(path string) []string {
	path = strings.Trim(strings.TrimSpace(path), PathSeparator)
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSeparator)
}

// validName reports whether name can be used as a path element and as an
// identifier in map files: a letter or underscore followed by letters,
// digits and underscores.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
