package directive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txtasm/preproc/internal/directive"
	"github.com/txtasm/preproc/internal/vm"
)

func TestParseLiteralText(t *testing.T) {
	p := directive.New()
	instrs, err := p.Parse("hello\nworld\n")
	require.NoError(t, err)
	require.Len(t, instrs, 2)

	out0 := instrs[0].(vm.Output)
	assert.Equal(t, "hello\n", out0.Value)
	assert.True(t, out0.Computed)
}

func TestParseSetDirective(t *testing.T) {
	p := directive.New()
	instrs, err := p.Parse("@set x = 1 + 2\n")
	require.NoError(t, err)
	require.Len(t, instrs, 1)

	set := instrs[0].(vm.Set)
	assert.Equal(t, "x", set.Variable)
	assert.Equal(t, "1 + 2", set.Value)
}

func TestParseInlineInterpolation(t *testing.T) {
	p := directive.New()
	instrs, err := p.Parse("hello ${name}!\n")
	require.NoError(t, err)
	require.Len(t, instrs, 3)

	assert.Equal(t, "hello ", instrs[0].(vm.Output).Value)
	assert.True(t, instrs[0].(vm.Output).Computed)

	assert.Equal(t, "name", instrs[1].(vm.Output).Value)
	assert.False(t, instrs[1].(vm.Output).Computed)

	assert.Equal(t, "!\n", instrs[2].(vm.Output).Value)
}

func TestParseIncludeAndError(t *testing.T) {
	p := directive.New()
	instrs, err := p.Parse("@include \"a.txt\"\n@error \"oops\"\n")
	require.NoError(t, err)
	require.Len(t, instrs, 2)

	assert.Equal(t, `"a.txt"`, instrs[0].(vm.Include).Value)
	assert.Equal(t, `"oops"`, instrs[1].(vm.Error).Value)
}

func TestParseConditionalChain(t *testing.T) {
	p := directive.New()
	src := "@if a\nA\n@elseif b\nB\n@else\nC\n@endif\n"
	instrs, err := p.Parse(src)
	require.NoError(t, err)
	require.Len(t, instrs, 1)

	cond := instrs[0].(vm.Conditional)
	assert.Equal(t, "a", cond.Test)
	require.Len(t, cond.Consequent, 1)
	require.Len(t, cond.Elseifs, 1)
	assert.Equal(t, "b", cond.Elseifs[0].Test)
	require.NotNil(t, cond.Alternate)
	require.Len(t, cond.Alternate, 1)
}

func TestParseMacroDirective(t *testing.T) {
	p := directive.New()
	src := "@macro greet(name)\nhi ${name}\n@endmacro\n"
	instrs, err := p.Parse(src)
	require.NoError(t, err)
	require.Len(t, instrs, 1)

	macro := instrs[0].(vm.Macro)
	assert.Equal(t, "greet(name)", macro.Declaration)
	assert.Len(t, macro.Body, 3)
}

func TestParseMissingEndifIsAnError(t *testing.T) {
	p := directive.New()
	_, err := p.Parse("@if a\ntext\n")
	assert.Error(t, err)
}

func TestParseStrayElseifIsAnError(t *testing.T) {
	p := directive.New()
	_, err := p.Parse("@elseif a\n")
	assert.Error(t, err)
}

func TestParseMalformedSetIsAnError(t *testing.T) {
	p := directive.New()
	_, err := p.Parse("@set nope-no-equals\n")
	assert.Error(t, err)
}

func TestSetFileAffectsErrorMessages(t *testing.T) {
	p := directive.New()
	p.SetFile("foo.txt")
	_, err := p.Parse("@if a\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foo.txt")
}
