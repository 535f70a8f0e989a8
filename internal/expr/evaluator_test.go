package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txtasm/preproc/internal/expr"
	"github.com/txtasm/preproc/internal/vm"
)

type staticMacros map[string]int

func (m staticMacros) Lookup(name string) (int, bool) {
	arity, ok := m[name]
	return arity, ok
}

func TestEvaluateLiterals(t *testing.T) {
	e := expr.New()

	v, err := e.Evaluate(`"hello"`, vm.Context{})
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	v, err = e.Evaluate("42", vm.Context{})
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	v, err = e.Evaluate("true", vm.Context{})
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestEvaluateIdentifierLookup(t *testing.T) {
	e := expr.New()
	ctx := vm.Context{"name": "world"}

	v, err := e.Evaluate("name", ctx)
	require.NoError(t, err)
	assert.Equal(t, "world", v)
}

func TestEvaluateMissingIdentifierIsNull(t *testing.T) {
	e := expr.New()
	v, err := e.Evaluate("missing", vm.Context{})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEvaluateArithmeticAndConcat(t *testing.T) {
	e := expr.New()

	v, err := e.Evaluate("1 + 2", vm.Context{})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = e.Evaluate(`"a" + "b"`, vm.Context{})
	require.NoError(t, err)
	assert.Equal(t, "ab", v)
}

func TestEvaluateComparisonAndLogic(t *testing.T) {
	e := expr.New()

	v, err := e.Evaluate("1 < 2 && 2 < 3", vm.Context{})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = e.Evaluate("1 > 2 || 3 == 3", vm.Context{})
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestParseMacroCallRequiresDeclaredName(t *testing.T) {
	e := expr.New()
	ctx := vm.Context{"x": 1.0}

	call, isCall, err := e.ParseMacroCall("greet(x)", ctx, staticMacros{"greet": 1})
	require.NoError(t, err)
	require.True(t, isCall)
	assert.Equal(t, "greet", call.Name)
	assert.Equal(t, []any{1.0}, call.Args)

	_, isCall, err = e.ParseMacroCall("undeclared(x)", ctx, staticMacros{})
	require.NoError(t, err)
	assert.False(t, isCall)
}

func TestParseMacroCallPlainExpressionIsNotACall(t *testing.T) {
	e := expr.New()
	_, isCall, err := e.ParseMacroCall("1 + 2", vm.Context{}, staticMacros{})
	require.NoError(t, err)
	assert.False(t, isCall)
}

func TestParseMacroDeclaration(t *testing.T) {
	e := expr.New()

	decl, err := e.ParseMacroDeclaration("greet(name, greeting)")
	require.NoError(t, err)
	assert.Equal(t, "greet", decl.Name)
	assert.Equal(t, []string{"name", "greeting"}, decl.Args)

	decl, err = e.ParseMacroDeclaration("noop")
	require.NoError(t, err)
	assert.Equal(t, "noop", decl.Name)
	assert.Empty(t, decl.Args)
}

func TestStringify(t *testing.T) {
	e := expr.New()
	assert.Equal(t, "", e.Stringify(nil))
	assert.Equal(t, "3", e.Stringify(3.0))
	assert.Equal(t, "3.5", e.Stringify(3.5))
	assert.Equal(t, "true", e.Stringify(true))
	assert.Equal(t, "hi", e.Stringify("hi"))
}
