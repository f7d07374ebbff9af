package corpus

import (
	"regexp"
	"strings"
)

// placeholderPattern matches slot syntax that survived substitution.
var placeholderPattern = regexp.MustCompile(`\{[A-Za-z_][A-Za-z0-9_]*\}`)

// escapedPlaceholder matches "{{name}}", which would render as "{name}".
var escapedPlaceholder = regexp.MustCompile(`^\{\{[A-Za-z_][A-Za-z0-9_]*\}\}`)

// segment is either literal text or a slot reference. pos is the offset of
// a slot's opening brace in the raw template.
type segment struct {
	literal string
	slot    string
	pos     int
}

// Template is a parsed sentence pattern such as "How do I {verb} {target}?".
// "{{" and "}}" stand for literal braces, but never around a bare slot name:
// the rendered text must not contain placeholder syntax.
type Template struct {
	raw      string
	segments []segment
	slots    []string // first-occurrence order, no repeats
}

// ParseTemplate parses raw into literal and slot segments.
func ParseTemplate(raw string) (Template, error) {
	t := Template{raw: raw}
	seen := make(map[string]bool)

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		switch c := raw[i]; c {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				if escapedPlaceholder.MatchString(raw[i:]) {
					return Template{}, &TemplateError{Template: raw, Offset: i, Reason: "escaped braces render as placeholder syntax"}
				}
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return Template{}, &TemplateError{Template: raw, Offset: i, Reason: "unclosed '{'"}
			}
			name := raw[i+1 : i+1+end]
			if !isSlotName(name) {
				return Template{}, &TemplateError{Template: raw, Offset: i, Reason: "invalid slot name " + `"` + name + `"`}
			}
			flush()
			t.segments = append(t.segments, segment{slot: name, pos: i})
			if !seen[name] {
				seen[name] = true
				t.slots = append(t.slots, name)
			}
			i += end + 1
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return Template{}, &TemplateError{Template: raw, Offset: i, Reason: "single '}'"}
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	for k, seg := range t.segments {
		if seg.slot == "" || k == 0 || k == len(t.segments)-1 {
			continue
		}
		if strings.HasSuffix(t.segments[k-1].literal, "{") && strings.HasPrefix(t.segments[k+1].literal, "}") {
			return Template{}, &TemplateError{Template: raw, Offset: seg.pos, Reason: "slot wrapped in literal braces renders as placeholder syntax"}
		}
	}
	return t, nil
}

func isSlotName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// String returns the template as written.
func (t Template) String() string { return t.raw }

// Slots returns the slot names in first-occurrence order.
func (t Template) Slots() []string {
	return append([]string(nil), t.slots...)
}

// render substitutes values into the template. It returns the name of the
// first slot without a value when one is missing.
func (t Template) render(values map[string]string) (string, string) {
	var sb strings.Builder
	for _, seg := range t.segments {
		if seg.slot == "" {
			sb.WriteString(seg.literal)
			continue
		}
		v, ok := values[seg.slot]
		if !ok {
			return "", seg.slot
		}
		sb.WriteString(v)
	}
	return sb.String(), ""
}
