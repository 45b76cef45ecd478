package security

import (
	"fmt"
	"html/template"
	"strings"
	"unicode"
)

// Context selects the escaping applied by SanitizeInput.
type Context string

// Escaping contexts.
const (
	ContextNone      Context = ""
	ContextHTML      Context = "html"
	ContextAttribute Context = "attribute"
	ContextScript    Context = "script"
	ContextDefault   Context = "default"
)

// ParseContext parses a context name. The empty string and "none" yield
// ContextNone.
func ParseContext(s string) (Context, error) {
	switch c := Context(strings.ToLower(strings.TrimSpace(s))); c {
	case ContextNone, "none":
		return ContextNone, nil
	case ContextHTML, ContextAttribute, ContextScript, ContextDefault:
		return c, nil
	default:
		return ContextNone, fmt.Errorf("unknown escape context %q", s)
	}
}

// Characters that can end an unquoted attribute value or open a template
// literal, in addition to what HTML escaping already covers.
var attributeReplacer = strings.NewReplacer(
	"`", "&#96;",
	"=", "&#61;",
	" ", "&#32;",
	"\t", "&#9;",
	"\n", "&#10;",
	"\r", "&#13;",
	"\f", "&#12;",
)

// SanitizeInput escapes s for interpolation into the given context.
//
//   - html: markup characters become entities.
//   - attribute: html escaping plus whitespace, backtick and equals sign,
//     so the value is safe even unquoted.
//   - script: JavaScript string escaping.
//   - default: control characters other than tab and newline are
//     removed, then the result is html escaped.
//
// ContextNone returns s unchanged.
func SanitizeInput(s string, ctx Context) string {
	switch ctx {
	case ContextNone:
		return s
	case ContextHTML:
		return template.HTMLEscapeString(s)
	case ContextAttribute:
		return attributeReplacer.Replace(template.HTMLEscapeString(s))
	case ContextScript:
		return template.JSEscapeString(s)
	default:
		return template.HTMLEscapeString(stripControl(s))
	}
}

// SanitizeStrings returns a copy of v with every string escaped for ctx.
// Map keys are left alone.
func SanitizeStrings(v any, ctx Context) any {
	if ctx == ContextNone {
		return v
	}
	switch t := v.(type) {
	case string:
		return SanitizeInput(t, ctx)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = SanitizeStrings(child, ctx)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = SanitizeStrings(child, ctx)
		}
		return out
	default:
		return v
	}
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
