// Package naming turns page breadcrumbs into safe, unique artifact names.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxNameBytes leaves room for the longest extension within the common
// 255 byte file name limit.
const maxNameBytes = 250

var (
	illegalChars  = regexp.MustCompile(`[\/\\:\*\?"<>\|\p{C}]`)
	reservedNames = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
	onlyDots      = regexp.MustCompile(`^\.+$`)
)

// Sanitize strips characters that are not allowed in file names on common
// file systems. It may return an empty string.
func Sanitize(name string) string {
	name = illegalChars.ReplaceAllString(name, "")
	name = strings.TrimRight(name, " .")
	name = strings.TrimLeft(name, " ")
	if onlyDots.MatchString(name) || reservedNames.MatchString(name) {
		return ""
	}
	return truncate(name, maxNameBytes)
}

// BuildTitle sanitizes every breadcrumb and joins the non empty ones.
func BuildTitle(breadcrumbs []string) string {
	parts := make([]string, 0, len(breadcrumbs))
	for _, b := range breadcrumbs {
		if s := Sanitize(strings.TrimSpace(b)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " - ")
}

// BaseName returns the artifact name without extension for the task at
// index. The one based index prefix keeps names unique within a run.
func BaseName(index int, title string) string {
	prefix := fmt.Sprintf("%d", index+1)
	if title == "" {
		return prefix
	}
	prefix += " - "
	return prefix + strings.TrimRight(truncate(title, maxNameBytes-len(prefix)), " .")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
