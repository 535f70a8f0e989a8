// Package directive is the default surface Parser (spec.md §6): it
// turns directive-annotated source text into the vm.Instruction tree
// ExecutionVM interprets. This is the out-of-scope "surface parser"
// spec.md treats as an external collaborator; vm.ExecutionVM only
// depends on the vm.Parser interface, so a caller wanting a different
// concrete syntax may supply its own implementation.
//
// Directives are whole-line, introduced by '@' after optional leading
// whitespace: @set, @output (or @out), @include, @if/@elseif/@else/
// @endif, @macro/@endmacro, @error. Any other line is literal text,
// with `${expr}` inline interpolation spliced in as computed Output
// instructions.
package directive

import (
	"regexp"
	"strings"

	"github.com/txtasm/preproc/internal/vm"
)

// Parser is the default vm.Parser implementation.
type Parser struct {
	file string
}

func New() *Parser { return &Parser{} }

// SetFile implements vm.Parser.
func (p *Parser) SetFile(file string) { p.file = file }

// Parse implements vm.Parser.
func (p *Parser) Parse(source string) ([]vm.Instruction, error) {
	lines := splitLines(source)
	instrs, pos, term, err := p.parseBlock(lines, 0, nil)
	if err != nil {
		return nil, err
	}
	if term != "" {
		line := 0
		if pos < len(lines) {
			line = lines[pos].num
		}
		return nil, p.errorf(line, "unexpected @%s with no matching opener", term)
	}
	return instrs, nil
}

// terminatorSet is the set of directive keywords that end the current
// block without being consumed by parseBlock itself.
type terminatorSet map[string]bool

// parseBlock consumes lines starting at pos until EOF or a keyword in
// terms is reached (that line is NOT consumed; its keyword is
// returned as term so the caller — parseConditional or parseMacro —
// can dispatch on it).
func (p *Parser) parseBlock(lines []sourceLine, pos int, terms terminatorSet) ([]vm.Instruction, int, string, error) {
	var out []vm.Instruction
	for pos < len(lines) {
		ln := lines[pos]
		kw, rest, ok := directiveKeyword(ln.text)
		if !ok {
			out = append(out, p.parseTextLine(ln)...)
			pos++
			continue
		}

		if terms != nil && terms[kw] {
			return out, pos, kw, nil
		}

		switch kw {
		case "set":
			name, value, err := splitAssignment(rest)
			if err != nil {
				return nil, 0, "", p.errorf(ln.num, "%s", err.Error())
			}
			out = append(out, vm.NewSet(name, value, ln.num))
			pos++

		case "output", "out":
			out = append(out, vm.NewOutput(rest, false, ln.num))
			pos++

		case "include":
			out = append(out, vm.NewInclude(rest, ln.num))
			pos++

		case "error":
			out = append(out, vm.NewError(rest, ln.num))
			pos++

		case "if":
			cond, next, err := p.parseConditional(lines, pos)
			if err != nil {
				return nil, 0, "", err
			}
			out = append(out, cond)
			pos = next

		case "macro":
			body, next, term, err := p.parseBlock(lines, pos+1, terminatorSet{"endmacro": true})
			if err != nil {
				return nil, 0, "", err
			}
			if term != "endmacro" {
				return nil, 0, "", p.errorf(ln.num, "@macro without matching @endmacro")
			}
			out = append(out, vm.NewMacro(rest, body, ln.num))
			pos = next + 1

		case "elseif", "else", "endif", "endmacro":
			return nil, 0, "", p.errorf(ln.num, "unexpected @%s with no matching opener", kw)

		default:
			return nil, 0, "", p.errorf(ln.num, "unknown directive @%s", kw)
		}
	}
	return out, pos, "", nil
}

// parseConditional parses the @if at lines[pos] through its matching
// @endif, including any @elseif/@else chain, and returns the single
// resulting vm.Conditional.
func (p *Parser) parseConditional(lines []sourceLine, pos int) (vm.Conditional, int, error) {
	ifLine := lines[pos]
	_, test, _ := directiveKeyword(ifLine.text)

	consequent, pos, term, err := p.parseBlock(lines, pos+1, terminatorSet{"elseif": true, "else": true, "endif": true})
	if err != nil {
		return vm.Conditional{}, 0, err
	}

	var elseifs []vm.Conditional
	for term == "elseif" {
		elseifLine := lines[pos]
		_, elseifTest, _ := directiveKeyword(elseifLine.text)

		body, next, nextTerm, err := p.parseBlock(lines, pos+1, terminatorSet{"elseif": true, "else": true, "endif": true})
		if err != nil {
			return vm.Conditional{}, 0, err
		}
		elseifs = append(elseifs, vm.NewConditional(elseifTest, body, nil, nil, elseifLine.num))
		pos, term = next, nextTerm
	}

	var alternate []vm.Instruction
	if term == "else" {
		body, next, nextTerm, err := p.parseBlock(lines, pos+1, terminatorSet{"endif": true})
		if err != nil {
			return vm.Conditional{}, 0, err
		}
		if nextTerm != "endif" {
			return vm.Conditional{}, 0, p.errorf(elseLineNum(lines, pos), "@else without matching @endif")
		}
		alternate = body
		pos, term = next, nextTerm
	}

	if term != "endif" {
		return vm.Conditional{}, 0, p.errorf(ifLine.num, "@if without matching @endif")
	}

	return vm.NewConditional(test, consequent, elseifs, alternate, ifLine.num), pos + 1, nil
}

func elseLineNum(lines []sourceLine, pos int) int {
	if pos < len(lines) {
		return lines[pos].num
	}
	return 0
}

// inlineExpr matches non-nested `${...}` interpolations within a
// literal text line.
var inlineExpr = regexp.MustCompile(`\$\{([^}]*)\}`)

// parseTextLine turns one non-directive line into one or more Output
// instructions: literal chunks (Computed true) interleaved with
// `${expr}` chunks (Computed false, so the VM's macro-call detection
// still applies to them).
func (p *Parser) parseTextLine(ln sourceLine) []vm.Instruction {
	text := ln.text
	if text == "" {
		return nil
	}

	locs := inlineExpr.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return []vm.Instruction{vm.NewOutput(text, true, ln.num)}
	}

	var out []vm.Instruction
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		exprStart, exprEnd := loc[2], loc[3]
		if start > last {
			out = append(out, vm.NewOutput(text[last:start], true, ln.num))
		}
		out = append(out, vm.NewOutput(text[exprStart:exprEnd], false, ln.num))
		last = end
	}
	if last < len(text) {
		out = append(out, vm.NewOutput(text[last:], true, ln.num))
	}
	return out
}

// splitAssignment parses "@set" argument text "name = expr".
func splitAssignment(rest string) (name, value string, err error) {
	idx := strings.Index(rest, "=")
	if idx < 0 {
		return "", "", &malformedSetError{rest}
	}
	name = strings.TrimSpace(rest[:idx])
	value = strings.TrimSpace(rest[idx+1:])
	if name == "" {
		return "", "", &malformedSetError{rest}
	}
	return name, value, nil
}

type malformedSetError struct{ rest string }

func (e *malformedSetError) Error() string {
	return "malformed @set directive, expected \"name = expr\", got \"" + e.rest + "\""
}
