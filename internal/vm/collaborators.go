package vm

// This file declares the contracts for the subsystems spec.md §6 calls
// out as external collaborators: the surface parser, the expression
// evaluator, and the include resolver. ExecutionVM only ever talks to
// these interfaces; internal/directive, internal/expr and
// internal/resolver provide concrete implementations.

// Parser turns source text into an instruction tree. It exposes a
// mutable File so the VM can set it before each nested parse, letting
// parser-raised errors report the right filename (spec §6).
type Parser interface {
	SetFile(file string)
	Parse(source string) ([]Instruction, error)
}

// MacroLookup lets an Evaluator tell a plain expression apart from a
// call to a macro that is currently in scope, and recover its arity for
// positional argument binding.
type MacroLookup interface {
	Lookup(name string) (arity int, ok bool)
}

// Evaluator computes scalar values from expression text and recognizes
// macro-call syntax within it.
type Evaluator interface {
	// Evaluate computes the value of expr under ctx.
	Evaluate(expr string, ctx Context) (any, error)

	// ParseMacroCall returns (call, true, nil) if expr parses as a call
	// to a name present in macros; (nil, false, nil) if expr is valid
	// but not a macro call; and a non-nil error for malformed
	// expressions or when a call argument fails to evaluate.
	ParseMacroCall(expr string, ctx Context, macros MacroLookup) (*MacroCall, bool, error)

	// ParseMacroDeclaration parses a `macro` instruction's declaration
	// text into a name and formal parameter list.
	ParseMacroDeclaration(decl string) (MacroDecl, error)

	// Stringify renders a scalar value the way Output would append it.
	Stringify(v any) string
}

// IncludeResolver resolves an include reference (local path, http(s)://
// URL, or github: shorthand) to its raw content bytes, consulting a
// cache and an exclusion policy along the way. See internal/resolver.
type IncludeResolver interface {
	Resolve(reference string) ([]byte, error)
}
