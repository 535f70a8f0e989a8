package expr

import (
	"fmt"

	"github.com/txtasm/preproc/internal/vm"
)

// Evaluator is the default vm.Evaluator implementation.
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

// Evaluate computes the value of expr under ctx (vm.Evaluator).
func (e *Evaluator) Evaluate(text string, ctx vm.Context) (any, error) {
	n, err := e.parse(text)
	if err != nil {
		return nil, err
	}
	return n.eval(ctx)
}

// ParseMacroCall implements vm.Evaluator: text parses as a call form
// `name(args...)` AND name is currently declared, or this returns
// (nil, false, nil) — a plain expression, not a macro invocation.
func (e *Evaluator) ParseMacroCall(text string, ctx vm.Context, macros vm.MacroLookup) (*vm.MacroCall, bool, error) {
	n, err := e.parse(text)
	if err != nil {
		return nil, false, err
	}
	call, ok := n.(callNode)
	if !ok {
		return nil, false, nil
	}
	if _, declared := macros.Lookup(call.name); !declared {
		return nil, false, nil
	}

	args := make([]any, len(call.args))
	for i, a := range call.args {
		v, err := a.eval(ctx)
		if err != nil {
			return nil, false, err
		}
		args[i] = v
	}
	return &vm.MacroCall{Name: call.name, Args: args}, true, nil
}

// ParseMacroDeclaration parses a `macro` instruction's declaration
// text ("name" or "name(a, b)") into name + formal parameter list.
func (e *Evaluator) ParseMacroDeclaration(decl string) (vm.MacroDecl, error) {
	toks, err := lex(decl)
	if err != nil {
		return vm.MacroDecl{}, err
	}
	if len(toks) == 0 || toks[0].kind != tIdent {
		return vm.MacroDecl{}, fmt.Errorf("malformed macro declaration %q", decl)
	}
	name := toks[0].val
	if len(toks) == 1 {
		return vm.MacroDecl{Name: name}, nil
	}
	if toks[1].kind != tLParen {
		return vm.MacroDecl{}, fmt.Errorf("malformed macro declaration %q: expected '('", decl)
	}

	var args []string
	i := 2
	for i < len(toks) && toks[i].kind != tRParen {
		if toks[i].kind != tIdent {
			return vm.MacroDecl{}, fmt.Errorf("malformed macro declaration %q: expected parameter name", decl)
		}
		args = append(args, toks[i].val)
		i++
		if i < len(toks) && toks[i].kind == tComma {
			i++
		}
	}
	if i >= len(toks) || toks[i].kind != tRParen {
		return vm.MacroDecl{}, fmt.Errorf("malformed macro declaration %q: expected ')'", decl)
	}
	return vm.MacroDecl{Name: name, Args: args}, nil
}

// Stringify renders v the way Output appends it.
func (e *Evaluator) Stringify(v any) string {
	return stringify(v)
}

func (e *Evaluator) parse(text string) (node, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	return parse(toks)
}
