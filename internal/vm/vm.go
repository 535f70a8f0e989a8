// Package vm implements the tree-walking interpreter described in
// spec.md §4.1: a fixed instruction set (Set, Output, Include,
// Conditional, Macro, Error), contextual variables, macro expansion,
// execution-depth bounds and location-enriched errors.
package vm

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// MaxExecutionDepth bounds the number of nested _execute frames. 256
// per spec §3; 0 would mean no execution is allowed at all.
const MaxExecutionDepth = 256

// Options configures a ExecutionVM. Zero value is usable: MaxDepth
// defaults to MaxExecutionDepth and Logger to a disabled logger.
type Options struct {
	MaxDepth            int
	GenerateLineControl bool
	Logger              zerolog.Logger
}

// ExecutionVM is a single-threaded, synchronous tree-walking
// interpreter (spec §5: one execute call fully completes before
// another may begin on the same instance).
type ExecutionVM struct {
	parser    Parser
	evaluator Evaluator
	resolver  IncludeResolver
	logger    zerolog.Logger

	maxDepth            int
	generateLineControl bool

	// Reset at the start of every top-level Execute call (spec §3
	// Lifecycle).
	globals Context
	macros  *MacroTable
	depth   int
}

// New builds an ExecutionVM driving parser/evaluator/resolver.
func New(parser Parser, evaluator Evaluator, resolver IncludeResolver, opts Options) *ExecutionVM {
	maxDepth := opts.MaxDepth
	if maxDepth == 0 {
		maxDepth = MaxExecutionDepth
	}
	return &ExecutionVM{
		parser:              parser,
		evaluator:           evaluator,
		resolver:            resolver,
		logger:              opts.Logger,
		maxDepth:            maxDepth,
		generateLineControl: opts.GenerateLineControl,
		macros:              newMacroTable(),
	}
}

// outputBuffer accumulates output chunks in strict source order (spec
// §5 ordering guarantee) and tracks the last file a chunk was emitted
// for, to drive line-control emission.
type outputBuffer struct {
	chunks         []string
	lastOutputFile string
	sawFile        bool
}

func (b *outputBuffer) append(s string) {
	if s == "" {
		return
	}
	b.chunks = append(b.chunks, s)
}

func (b *outputBuffer) String() string {
	return strings.Join(b.chunks, "")
}

// EscapeLineControlFilename escapes '"' as '\"' for embedding a
// filename in a `#line N "file"` directive (spec §4.1, supplemented
// as a standalone helper per SPEC_FULL.md §12.6).
func EscapeLineControlFilename(file string) string {
	return strings.ReplaceAll(file, `"`, `\"`)
}

// Execute resets globals/macros/depth, parses source under file, and
// interprets the resulting tree. The initial context is
// merge(NewFileContext(file), globals (empty after reset), context).
func (vm *ExecutionVM) Execute(file, source string, context Context) (string, error) {
	vm.globals = Context{}
	vm.macros.reset()
	vm.depth = 0

	vm.logger.Info().Str("file", file).Msg("execute start")
	defer vm.logger.Info().Str("file", file).Msg("execute done")

	vm.parser.SetFile(file)
	tree, err := vm.parser.Parse(source)
	if err != nil {
		return "", err
	}

	initial := Merge(NewFileContext(file), vm.globals, context)

	buf := &outputBuffer{}
	err = vm.exec(tree, initial, buf)
	vm.depth = 0 // invariant: depth returns to 0 on every exit path
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// exec is "_execute": runs instrs under ctx, appending to buf. It is
// one depth-counted frame.
func (vm *ExecutionVM) exec(instrs []Instruction, ctx Context, buf *outputBuffer) error {
	if vm.depth >= vm.maxDepth {
		return &MaxExecutionDepthReachedError{
			File:  ctx.File(),
			Line:  ctx.Line(),
			Depth: vm.maxDepth,
		}
	}
	vm.depth++
	defer func() { vm.depth-- }()

	for _, instr := range instrs {
		// Globals overlay the caller's local context on every name
		// collision (spec §3), but the reserved __FILE__/__PATH__ of
		// the current frame always take precedence over whatever a
		// `set __FILE__ = …` might have stashed in globals: apply
		// ctx as the base, globals on top for ordinary names, then
		// re-assert the current frame's own file/path.
		working := Merge(ctx, vm.globals)
		working[KeyFile] = ctx[KeyFile]
		working[KeyPath] = ctx[KeyPath]
		if inline, ok := ctx[KeyInline]; ok {
			working[KeyInline] = inline
		} else {
			delete(working, KeyInline)
		}

		if working.Inline() {
			working[KeyLine] = ctx[KeyLine]
		} else {
			working[KeyLine] = instr.Line()
		}

		if err := vm.dispatch(instr, working, buf); err != nil {
			return err
		}
	}
	return nil
}

func (vm *ExecutionVM) dispatch(instr Instruction, ctx Context, buf *outputBuffer) error {
	switch in := instr.(type) {
	case Set:
		return vm.dispatchSet(in, ctx)
	case Output:
		return vm.dispatchOutput(in, ctx, buf)
	case Include:
		return vm.dispatchInclude(in, ctx, buf)
	case Conditional:
		_, err := vm.dispatchConditional(in, ctx, buf)
		return err
	case Macro:
		return vm.dispatchMacro(in, ctx)
	case Error:
		return vm.dispatchError(in, ctx)
	default:
		return &UnsupportedInstructionError{Got: instr}
	}
}

func (vm *ExecutionVM) dispatchSet(in Set, ctx Context) error {
	val, err := vm.evaluator.Evaluate(in.Value, ctx)
	if err != nil {
		return vm.wrapEvalErr(err, ctx)
	}
	vm.globals[in.Variable] = val
	return nil
}

func (vm *ExecutionVM) dispatchOutput(in Output, ctx Context, buf *outputBuffer) error {
	if in.Computed {
		vm.emit(buf, ctx, in.Value)
		return nil
	}

	call, isCall, err := vm.evaluator.ParseMacroCall(in.Value, ctx, vm.macros)
	if err != nil {
		return vm.wrapEvalErr(err, ctx)
	}
	if isCall {
		sub, err := vm.expandMacro(call, ctx, true, nil)
		if err != nil {
			return err
		}
		trimTrailingNewline(sub)
		vm.maybeLineControl(buf, ctx)
		for _, chunk := range sub.chunks {
			buf.append(chunk)
		}
		return nil
	}

	val, err := vm.evaluator.Evaluate(in.Value, ctx)
	if err != nil {
		return vm.wrapEvalErr(err, ctx)
	}
	vm.emit(buf, ctx, vm.evaluator.Stringify(val))
	return nil
}

func (vm *ExecutionVM) dispatchInclude(in Include, ctx Context, buf *outputBuffer) error {
	call, isCall, err := vm.evaluator.ParseMacroCall(in.Value, ctx, vm.macros)
	if err != nil {
		return vm.wrapEvalErr(err, ctx)
	}
	if isCall {
		_, err := vm.expandMacro(call, ctx, false, buf)
		return err
	}

	refVal, err := vm.evaluator.Evaluate(in.Value, ctx)
	if err != nil {
		return vm.wrapEvalErr(err, ctx)
	}
	reference := vm.evaluator.Stringify(refVal)

	vm.logger.Debug().Str("reference", reference).Msg("resolving include")
	content, err := vm.resolver.Resolve(reference)
	if err != nil {
		return &SourceInclusionError{Cause: err, File: ctx.File(), Line: ctx.Line()}
	}

	vm.parser.SetFile(reference)
	nested, err := vm.parser.Parse(string(content))
	if err != nil {
		return err
	}

	nestedCtx := ctx
	if !ctx.Inline() {
		nestedCtx = Merge(ctx, NewFileContext(reference))
	}

	return vm.exec(nested, nestedCtx, buf)
}

func (vm *ExecutionVM) dispatchConditional(in Conditional, ctx Context, buf *outputBuffer) (bool, error) {
	test, err := vm.evaluator.Evaluate(in.Test, ctx)
	if err != nil {
		return false, vm.wrapEvalErr(err, ctx)
	}

	if isTruthy(test) {
		if err := vm.exec(in.Consequent, ctx, buf); err != nil {
			return true, err
		}
		return true, nil
	}

	for _, elseif := range in.Elseifs {
		matched, err := vm.dispatchConditional(elseif, ctx, buf)
		if err != nil {
			return false, err
		}
		if matched {
			return false, nil
		}
	}

	if in.Alternate != nil {
		if err := vm.exec(in.Alternate, ctx, buf); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (vm *ExecutionVM) dispatchMacro(in Macro, ctx Context) error {
	decl, err := vm.evaluator.ParseMacroDeclaration(in.Declaration)
	if err != nil {
		return vm.wrapEvalErr(err, ctx)
	}

	entry := macroEntry{
		Args: decl.Args,
		Body: in.Body,
		File: ctx.File(),
		Path: ctx.Path(),
		Line: in.Line(),
	}
	if err := vm.macros.declare(decl.Name, entry); err != nil {
		return err
	}
	return nil
}

func (vm *ExecutionVM) dispatchError(in Error, ctx Context) error {
	val, err := vm.evaluator.Evaluate(in.Value, ctx)
	if err != nil {
		return vm.wrapEvalErr(err, ctx)
	}
	return &UserDefinedError{
		Message: vm.evaluator.Stringify(val),
		File:    ctx.File(),
		Line:    ctx.Line(),
	}
}

// expandMacro binds call.Args positionally (min(arity, provided),
// spec §4.1 "Macro invocation details") and runs the macro body. When
// inline is true, output goes to a fresh sub-buffer and __INLINE__ is
// set in the macro's local context; otherwise the macro appends
// directly to out, the caller's buffer. It returns the buffer written.
func (vm *ExecutionVM) expandMacro(call *MacroCall, callerCtx Context, inline bool, out *outputBuffer) (*outputBuffer, error) {
	entry, ok := vm.macros.lookup(call.Name)
	if !ok {
		return nil, fmt.Errorf("call to undeclared macro %q (%s:%d)", call.Name, callerCtx.File(), callerCtx.Line())
	}

	local := Context{}
	bound := min(len(entry.Args), len(call.Args))
	for i := 0; i < bound; i++ {
		local[entry.Args[i]] = call.Args[i]
	}

	if !callerCtx.Inline() {
		local[KeyFile] = entry.File
		local[KeyPath] = entry.Path
	}
	if inline {
		local[KeyInline] = true
	}

	macroCtx := Merge(callerCtx, local)

	buf := out
	if inline {
		buf = &outputBuffer{}
	}
	if err := vm.exec(entry.Body, macroCtx, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (vm *ExecutionVM) wrapEvalErr(err error, ctx Context) error {
	return &ExpressionEvaluationError{Cause: err, File: ctx.File(), Line: ctx.Line()}
}

// emit applies line-control bookkeeping (spec §4.1) then appends text.
func (vm *ExecutionVM) emit(buf *outputBuffer, ctx Context, text string) {
	vm.maybeLineControl(buf, ctx)
	buf.append(text)
}

func (vm *ExecutionVM) maybeLineControl(buf *outputBuffer, ctx Context) {
	if !vm.generateLineControl || ctx.Inline() {
		return
	}
	file := ctx.File()
	if buf.sawFile && file == buf.lastOutputFile {
		return
	}
	buf.append(fmt.Sprintf("#line %d \"%s\"\n", ctx.Line(), EscapeLineControlFilename(file)))
	buf.lastOutputFile = file
	buf.sawFile = true
}

// trimTrailingNewline strips exactly one trailing "\r\n" or "\n" from
// the last non-empty chunk of buf, per spec §4.1's Output/macro-call
// semantics and §8's boundary behavior.
func trimTrailingNewline(buf *outputBuffer) {
	for i := len(buf.chunks) - 1; i >= 0; i-- {
		c := buf.chunks[i]
		if c == "" {
			continue
		}
		switch {
		case strings.HasSuffix(c, "\r\n"):
			buf.chunks[i] = c[:len(c)-2]
		case strings.HasSuffix(c, "\n"):
			buf.chunks[i] = c[:len(c)-1]
		}
		return
	}
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
