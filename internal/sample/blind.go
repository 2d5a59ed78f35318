package sample

import (
	"regexp"
	"strings"
)

// annotationMarker matches the expectation headers that sample generators
// embed in comments or standalone string blocks.
var annotationMarker = regexp.MustCompile(`(?m)^\s*#?\s*(EXPECTED|ACTUAL OUTPUT|REASON)\b`)

// StripComments removes everything a judge must not see from Python source:
// every line starting with '#' (inside a string literal or not), trailing
// comments, and standalone triple-quoted blocks carrying expectation
// annotations. A trailing "# type:" pragma is kept up to the next comment.
func StripComments(src string) string {
	lines := strings.Split(src, "\n")
	out := make([]string, 0, len(lines))
	inStr := ""
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			if inStr != "" {
				_, inStr = stripTrailingComment(line, inStr)
			}
			continue
		}
		if inStr == "" {
			if end, ok := annotationBlock(lines, i); ok {
				i = end
				continue
			}
		}
		var code string
		code, inStr = stripTrailingComment(line, inStr)
		out = append(out, code)
	}
	return strings.Join(out, "\n")
}

// stripTrailingComment cuts a '#' comment that sits outside string literals.
// inStr is the string delimiter still open from previous lines; the returned
// state is the delimiter open at the end of this line.
func stripTrailingComment(line, inStr string) (string, string) {
	i := 0
	for i < len(line) {
		if inStr != "" {
			switch {
			case line[i] == '\\':
				i += 2
			case strings.HasPrefix(line[i:], inStr):
				i += len(inStr)
				inStr = ""
			default:
				i++
			}
			continue
		}
		switch c := line[i]; c {
		case '#':
			if strings.HasPrefix(strings.TrimSpace(line[i+1:]), "type:") {
				rest, state := stripTrailingComment(line[i+1:], "")
				return line[:i+1] + rest, state
			}
			return strings.TrimRight(line[:i], " \t"), ""
		case '\'', '"':
			q := string(c)
			if triple := strings.Repeat(q, 3); strings.HasPrefix(line[i:], triple) {
				q = triple
			}
			inStr = q
			i += len(q)
		default:
			i++
		}
	}
	if len(inStr) == 1 {
		inStr = ""
	}
	return line, inStr
}

// annotationBlock reports whether lines[start] opens a standalone
// triple-quoted string that contains an annotation marker, returning the
// index of its closing line.
func annotationBlock(lines []string, start int) (int, bool) {
	trimmed := strings.TrimSpace(lines[start])
	var q string
	switch {
	case strings.HasPrefix(trimmed, `"""`):
		q = `"""`
	case strings.HasPrefix(trimmed, `'''`):
		q = `'''`
	default:
		return 0, false
	}
	var body strings.Builder
	rest := trimmed[len(q):]
	for i := start; i < len(lines); i++ {
		if i > start {
			rest = lines[i]
		}
		if idx := strings.Index(rest, q); idx >= 0 {
			body.WriteString(rest[:idx])
			tail := strings.TrimSpace(rest[idx+len(q):])
			if tail != "" && !strings.HasPrefix(tail, "#") {
				return 0, false
			}
			return i, annotationMarker.MatchString(body.String())
		}
		body.WriteString(rest)
		body.WriteByte('\n')
	}
	return 0, false
}
