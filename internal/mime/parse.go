// Package mime extracts address entries from the header block of raw mail
// messages.
package mime

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// Field identifies the header an address was found in.
type Field int

const (
	FieldFrom Field = iota
	FieldTo
	FieldCc
	FieldBcc
)

var fieldNames = [...]string{"From", "To", "Cc", "Bcc"}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return "Unknown"
}

// Entry is one address occurrence. Address is trimmed but not case-folded;
// Name is the decoded display name, or "" when the field had none.
type Entry struct {
	Field   Field
	Name    string
	Address string
}

// ParseAddresses returns every address found in the From, To, Cc and Bcc
// fields of raw. Only the header block is examined; a message without a blank
// line terminating its header yields no entries. Malformed address specs are
// skipped individually.
func ParseAddresses(raw []byte) []Entry {
	header, ok := headerBlock(raw)
	if !ok {
		return nil
	}

	var entries []Entry
	for _, line := range unfold(header) {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		field, ok := lookupField(line[:colon])
		if !ok {
			continue
		}
		for _, spec := range splitList(line[colon+1:]) {
			for _, member := range expandGroup(spec) {
				if e, ok := parseSpec(member); ok {
					e.Field = field
					entries = append(entries, e)
				}
			}
		}
	}
	return entries
}

// headerBlock returns the bytes before the first empty line.
func headerBlock(raw []byte) ([]byte, bool) {
	// A message may start with the blank line itself.
	if bytes.HasPrefix(raw, []byte("\n")) || bytes.HasPrefix(raw, []byte("\r\n")) {
		return nil, true
	}
	lf := bytes.Index(raw, []byte("\n\n"))
	crlf := bytes.Index(raw, []byte("\n\r\n"))
	switch {
	case lf < 0 && crlf < 0:
		return nil, false
	case lf < 0:
		return raw[:crlf+1], true
	case crlf < 0:
		return raw[:lf+1], true
	case crlf < lf:
		return raw[:crlf+1], true
	default:
		return raw[:lf+1], true
	}
}

// unfold joins continuation lines onto the header line they continue.
func unfold(header []byte) []string {
	var lines []string
	var cur strings.Builder
	for _, line := range bytes.Split(header, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			if cur.Len() > 0 {
				cur.WriteByte(' ')
				cur.Write(bytes.TrimLeft(line, " \t"))
			}
			continue
		}
		if cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		cur.Write(line)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// lookupField maps a header name to a Field. Whitespace before the colon is
// obsolete syntax but still accepted.
func lookupField(name string) (Field, bool) {
	name = strings.TrimRight(name, " \t")
	if strings.ContainsAny(name, " \t") {
		return 0, false
	}
	for i, n := range fieldNames {
		if strings.EqualFold(name, n) {
			return Field(i), true
		}
	}
	return 0, false
}

// splitList splits a header value on commas that are outside quoted
// strings, comments and angle brackets.
func splitList(value string) []string {
	var parts []string
	var inQuote, inAngle bool
	depth := 0
	start := 0
	for i := 0; i < len(value); i++ {
		switch c := value[i]; {
		case c == '\\' && (inQuote || depth > 0):
			i++
		case c == '"' && depth == 0:
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case depth > 0:
		case c == '<':
			inAngle = true
		case c == '>':
			inAngle = false
		case c == ',' && !inAngle:
			parts = append(parts, value[start:i])
			start = i + 1
		}
	}
	parts = append(parts, value[start:])
	return parts
}

// expandGroup unwraps RFC 5322 group syntax ("team: a@x, b@y;") into its
// member specs. Specs that are not groups are returned as-is.
func expandGroup(spec string) []string {
	colon := groupColon(spec)
	if colon < 0 {
		return []string{spec}
	}
	members := strings.TrimSpace(spec[colon+1:])
	members = strings.TrimSuffix(members, ";")
	if strings.TrimSpace(members) == "" {
		return nil
	}
	return []string{members}
}

// groupColon returns the index of a group-introducing colon, or -1. A colon
// inside quotes, comments or angle brackets does not start a group.
func groupColon(spec string) int {
	var inQuote bool
	depth, angle := 0, 0
	for i := 0; i < len(spec); i++ {
		switch c := spec[i]; {
		case c == '\\' && (inQuote || depth > 0):
			i++
		case c == '"' && depth == 0:
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case depth > 0:
		case c == '<':
			angle++
		case c == '>' && angle > 0:
			angle--
		case c == ':' && angle == 0:
			return i
		}
	}
	return -1
}

// parseSpec parses a single "Display <addr>" or bare "addr (comment)".
func parseSpec(spec string) (Entry, bool) {
	spec = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(spec), ";"))
	if spec == "" {
		return Entry{}, false
	}

	if open := lastAngleOpen(spec); open >= 0 {
		end := strings.IndexByte(spec[open:], '>')
		if end < 0 {
			return Entry{}, false
		}
		addr := strings.TrimSpace(spec[open+1 : open+end])
		if !validAddress(addr) {
			return Entry{}, false
		}
		return Entry{Name: displayName(spec[:open]), Address: addr}, true
	}

	addr, comment := splitComment(spec)
	if !validAddress(addr) {
		return Entry{}, false
	}
	return Entry{Name: displayName(comment), Address: addr}, true
}

// lastAngleOpen finds the '<' that opens the address, ignoring any inside a
// quoted display name.
func lastAngleOpen(spec string) int {
	inQuote := false
	idx := -1
	for i := 0; i < len(spec); i++ {
		switch spec[i] {
		case '\\':
			if inQuote {
				i++
			}
		case '"':
			inQuote = !inQuote
		case '<':
			if !inQuote {
				idx = i
			}
		}
	}
	return idx
}

// splitComment separates "addr (comment)" into its parts.
func splitComment(spec string) (addr, comment string) {
	open := strings.IndexByte(spec, '(')
	if open < 0 {
		return strings.TrimSpace(spec), ""
	}
	end := strings.LastIndexByte(spec, ')')
	if end < open {
		return strings.TrimSpace(spec[:open]), ""
	}
	return strings.TrimSpace(spec[:open]), spec[open+1 : end]
}

func validAddress(addr string) bool {
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return false
	}
	return !strings.ContainsAny(addr, " \t\r\n<>,\"")
}

// displayName unquotes, decodes and repairs a raw display name.
func displayName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return ""
	}
	name = unquote(name)
	name = DecodeWords(name)
	if !utf8.ValidString(name) {
		if repaired, err := detectAndDecode([]byte(name)); err == nil {
			name = repaired
		} else {
			name = sanitizeUTF8(name)
		}
	}
	return strings.TrimSpace(name)
}

// unquote removes surrounding double quotes and backslash escapes.
func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		if !strings.Contains(s, `"`) {
			return s
		}
		// Partially quoted names like "Doe, Jane" (Work) keep their text.
		return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
	}
	inner := s[1 : len(s)-1]
	if !strings.Contains(inner, `\`) {
		return inner
	}
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}
