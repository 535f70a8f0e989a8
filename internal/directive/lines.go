package directive

import "strings"

// sourceLine is one physical line of source, its terminator (if any)
// still attached, paired with its 1-based line number.
type sourceLine struct {
	text string
	num  int
}

// splitLines breaks source into sourceLines, keeping each line's
// original "\n" or "\r\n" terminator attached so literal Output text
// reproduces the input byte-for-byte when no directive touches it.
func splitLines(source string) []sourceLine {
	var lines []sourceLine
	num := 1
	start := 0
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			lines = append(lines, sourceLine{text: source[start : i+1], num: num})
			start = i + 1
			num++
		}
	}
	if start < len(source) {
		lines = append(lines, sourceLine{text: source[start:], num: num})
	}
	return lines
}

// directiveKeyword reports whether line (terminator included) is a
// directive line: optional leading whitespace, then '@', then a bare
// identifier keyword, with the remainder of the line (sans terminator)
// as its argument text.
func directiveKeyword(text string) (keyword, rest string, ok bool) {
	trimmed := strings.TrimRight(text, "\r\n")
	body := strings.TrimLeft(trimmed, " \t")
	if !strings.HasPrefix(body, "@") {
		return "", "", false
	}
	body = body[1:]
	i := 0
	for i < len(body) && isKeywordRune(body[i]) {
		i++
	}
	if i == 0 {
		return "", "", false
	}
	return body[:i], strings.TrimSpace(body[i:]), true
}

func isKeywordRune(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
