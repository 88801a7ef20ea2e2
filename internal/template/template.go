// Package template renders stored email templates against a contact.
//
// Templates carry three placeholder forms: [NAME], [UNIVERSITY] (optionally
// preceded by one or more literal "the " words) and {CUSTOM}. Rendering is a
// pure text substitution with no side effects; anything that does not match
// a recognized placeholder survives into the output untouched.
package template

import (
	"regexp"
	"strings"

	"sonic/internal/model"
)

const (
	namePlaceholder       = "[NAME]"
	universityPlaceholder = "[UNIVERSITY]"
	customPlaceholder     = "{CUSTOM}"
)

var (
	// Matches [UNIVERSITY] together with any run of leading article words.
	// The display-name mapping already embeds the article where one is
	// needed, so the literal "the " prefix is consumed and discarded to
	// avoid "the the University of Waterloo".
	universityThePattern = regexp.MustCompile(`(?i)\b(?:the\s+)*\[UNIVERSITY\]`)
)

// Render substitutes placeholders in a fixed order: custom content first,
// then [NAME], then article-prefixed [UNIVERSITY], then any bare
// [UNIVERSITY] left over. The ordering is deliberate: custom content is
// inserted before the name and university passes, so placeholder text typed
// inside the custom paragraph is substituted as well. The result is trimmed
// of surrounding whitespace.
func Render(text, name string, university model.University, custom string) (string, error) {
	out := strings.ReplaceAll(text, customPlaceholder, custom)
	out = strings.ReplaceAll(out, namePlaceholder, "Dr. "+lastToken(name))

	if universityThePattern.MatchString(out) || strings.Contains(out, universityPlaceholder) {
		display, err := university.DisplayName()
		if err != nil {
			return "", err
		}
		out = universityThePattern.ReplaceAllString(out, display)
		out = strings.ReplaceAll(out, universityPlaceholder, display)
	}

	return strings.TrimSpace(out), nil
}

// SplitCustom splits a template on the first {CUSTOM} marker, returning the
// static fragments before and after it. Only the first occurrence is
// addressed; any further markers stay inside the second fragment. When the
// marker is absent the whole template is the leading fragment.
func SplitCustom(text string) (before, after string) {
	parts := strings.SplitN(text, customPlaceholder, 2)
	before = parts[0]
	if len(parts) > 1 {
		after = parts[1]
	}
	return before, after
}

// ContainsCustom reports whether the template carries a {CUSTOM} marker.
func ContainsCustom(text string) bool {
	return strings.Contains(text, customPlaceholder)
}

func lastToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
