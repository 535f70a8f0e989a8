package directive

import "fmt"

// ParseError carries the file and line a surface-syntax error was
// found at, matching spec.md §6's "parser-raised errors report the
// correct filename" requirement.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (%s:%d)", e.Message, e.File, e.Line)
}

func (p *Parser) errorf(line int, format string, args ...any) error {
	return &ParseError{File: p.file, Line: line, Message: fmt.Sprintf(format, args...)}
}
