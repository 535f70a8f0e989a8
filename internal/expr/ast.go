package expr

import (
	"fmt"
	"math"
	"strconv"

	"github.com/txtasm/preproc/internal/vm"
)

// node is an evaluable expression-tree node. Unexported: only this
// package's parser constructs them.
type node interface {
	eval(ctx vm.Context) (any, error)
}

type litNode struct{ v any }

func (n litNode) eval(vm.Context) (any, error) { return n.v, nil }

type identNode struct{ name string }

func (n identNode) eval(ctx vm.Context) (any, error) { return ctx[n.name], nil }

// callNode is both a plain function-call expression and the shape
// ParseMacroCall looks for.
type callNode struct {
	name string
	args []node
}

func (n callNode) eval(ctx vm.Context) (any, error) {
	return nil, fmt.Errorf("call to %q used outside of macro-call position", n.name)
}

type unaryNode struct {
	op string
	x  node
}

func (n unaryNode) eval(ctx vm.Context) (any, error) {
	v, err := n.x.eval(ctx)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "!":
		return !truthy(v), nil
	case "-":
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		return -f, nil
	}
	return nil, fmt.Errorf("unknown unary operator %q", n.op)
}

type binNode struct {
	op   string
	l, r node
}

func (n binNode) eval(ctx vm.Context) (any, error) {
	lv, err := n.l.eval(ctx)
	if err != nil {
		return nil, err
	}

	// Short-circuit before evaluating the right-hand side.
	switch n.op {
	case "&&":
		if !truthy(lv) {
			return false, nil
		}
		rv, err := n.r.eval(ctx)
		if err != nil {
			return nil, err
		}
		return truthy(rv), nil
	case "||":
		if truthy(lv) {
			return true, nil
		}
		rv, err := n.r.eval(ctx)
		if err != nil {
			return nil, err
		}
		return truthy(rv), nil
	}

	rv, err := n.r.eval(ctx)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "+":
		return add(lv, rv), nil
	case "==":
		return equal(lv, rv), nil
	case "!=":
		return !equal(lv, rv), nil
	case "<", "<=", ">", ">=":
		return compare(n.op, lv, rv)
	}
	return nil, fmt.Errorf("unknown binary operator %q", n.op)
}

func truthy(v any) bool {
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

// add implements "+" as numeric addition when both sides are numeric,
// and string concatenation otherwise (stringifying whichever side
// isn't already a string) — the same loose convention template
// languages in the retrieval pack use for inline interpolation.
func add(l, r any) any {
	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	if lok && rok {
		return lf + rf
	}
	return stringify(l) + stringify(r)
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, error) {
	f, ok := asNumber(v)
	if !ok {
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	return f, nil
}

func equal(l, r any) bool {
	if lf, lok := asNumber(l); lok {
		if rf, rok := asNumber(r); rok {
			return lf == rf
		}
	}
	return fmt.Sprint(l) == fmt.Sprint(r) && sameKindRoughly(l, r)
}

// sameKindRoughly avoids e.g. the string "true" comparing equal to the
// boolean true just because both stringify to "true".
func sameKindRoughly(l, r any) bool {
	if l == nil || r == nil {
		return l == r
	}
	_, lb := l.(bool)
	_, rb := r.(bool)
	if lb != rb {
		return false
	}
	return true
}

func compare(op string, l, r any) (bool, error) {
	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	if lok && rok {
		switch op {
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}
	ls, rs := fmt.Sprint(l), fmt.Sprint(r)
	switch op {
	case "<":
		return ls < rs, nil
	case "<=":
		return ls <= rs, nil
	case ">":
		return ls > rs, nil
	case ">=":
		return ls >= rs, nil
	}
	return false, fmt.Errorf("unknown comparison operator %q", op)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
