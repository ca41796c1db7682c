package parser

import (
	"strings"

	"github.com/dollerama/econ-go/lexer"
	"github.com/dollerama/econ-go/value"
)

// The higher-order builtins evaluate their collection argument, then replay
// the callback body once per element by rewinding the token cursor and
// rebinding the iterator name(s). After the last element the cursor sits
// just past the body; the closing ')' ends the call. Iterator names are
// saved before and restored after, so they never leak into the enclosing
// scope.

// skipCallbackBody advances past the callback body without evaluating it,
// stopping on the operator call's closing ')'. Used when there is no
// element left to drive a live evaluation.
func (p *Parser) skipCallbackBody() {
	depth := 0
	for !p.atEnd() {
		switch p.peek().Type {
		case lexer.LeftParen:
			depth++
		case lexer.RightParen:
			if depth == 0 {
				return
			}
			depth--
		}
		p.eat()
	}
}

// entryObject wraps an object entry for iteration: { key: ..., val: ... }.
func entryObject(key string, v value.Value) *value.Object {
	kv := value.NewObject()
	kv.Set("key", value.Str(key))
	kv.Set("val", v)
	return kv
}

// unaryCallback parses ", ident =>" and returns the saved iterator binding.
func (p *Parser) unaryCallback(name string) (tempVar, error) {
	if err := p.consume(lexer.Comma, "%s: Expect ',' after arg 1.", name); err != nil {
		return tempVar{}, err
	}
	tv, err := p.createTempVar(name)
	if err != nil {
		return tempVar{}, err
	}
	if err := p.consume(lexer.Arrow, "%s: Expect '=>' after reference %s.", name, tv.name); err != nil {
		return tempVar{}, err
	}
	return tv, nil
}

// binaryCallback parses "|ident, ident| =>" for fold and sort; the caller
// has already consumed the ',' before it.
func (p *Parser) binaryCallback(name string) (tempVar, tempVar, error) {
	if err := p.consume(lexer.Pipe, "%s: Expect '|' before references.", name); err != nil {
		return tempVar{}, tempVar{}, err
	}
	tv1, err := p.createTempVar(name)
	if err != nil {
		return tempVar{}, tempVar{}, err
	}
	if err := p.consume(lexer.Comma, "%s: Expect ',' after reference 1.", name); err != nil {
		return tempVar{}, tempVar{}, err
	}
	tv2, err := p.createTempVar(name)
	if err != nil {
		return tempVar{}, tempVar{}, err
	}
	if err := p.consume(lexer.Pipe, "%s: Expect '|' after references.", name); err != nil {
		return tempVar{}, tempVar{}, err
	}
	if err := p.consume(lexer.Arrow, "%s: Expect '=>' after '|'.", name); err != nil {
		return tempVar{}, tempVar{}, err
	}
	return tv1, tv2, nil
}

func (p *Parser) openCall(name string) (value.Value, error) {
	p.eat()
	if err := p.consume(lexer.LeftParen, "Expect '(' after %s.", name); err != nil {
		return nil, err
	}
	return p.valExpression()
}

func (p *Parser) closeCall(name string) error {
	return p.consume(lexer.RightParen, "Expect ')' after %s args.", name)
}

func (p *Parser) filterImpl(name string) (value.Value, error) {
	input, err := p.openCall(name)
	if err != nil {
		return nil, err
	}

	switch coll := input.(type) {
	case value.Arr:
		tv, err := p.unaryCallback(name)
		if err != nil {
			return nil, err
		}
		out := value.Arr{}
		if len(coll) == 0 {
			p.skipCallbackBody()
		} else {
			frame := p.locals[p.depth]
			for j, el := range coll {
				frame.Set(tv.name, el)
				mark := p.current
				cond, err := p.valExpression()
				if err != nil {
					return nil, err
				}
				keep, ok := cond.(value.Bool)
				if !ok {
					return nil, p.errorf("%s: condition must be boolean got %s.", name, kindName(cond))
				}
				if keep {
					out = append(out, el)
				}
				if j < len(coll)-1 {
					p.current = mark
				}
			}
		}
		p.restoreTempVar(tv)
		if err := p.closeCall(name); err != nil {
			return nil, err
		}
		return out, nil
	case *value.Object:
		tv, err := p.unaryCallback(name)
		if err != nil {
			return nil, err
		}
		out := value.NewObject()
		keys := coll.Keys()
		if len(keys) == 0 {
			p.skipCallbackBody()
		} else {
			frame := p.locals[p.depth]
			for j, k := range keys {
				el, _ := coll.Get(k)
				frame.Set(tv.name, entryObject(k, el))
				mark := p.current
				cond, err := p.valExpression()
				if err != nil {
					return nil, err
				}
				keep, ok := cond.(value.Bool)
				if !ok {
					return nil, p.errorf("%s: condition must be boolean got %s.", name, kindName(cond))
				}
				if keep {
					out.Set(k, el)
				}
				if j < len(keys)-1 {
					p.current = mark
				}
			}
		}
		p.restoreTempVar(tv)
		if err := p.closeCall(name); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, p.errorf("%s: Invalid argument expected Object/Array got %s.", name, kindName(input))
	}
}

func (p *Parser) mapImpl(name string) (value.Value, error) {
	input, err := p.openCall(name)
	if err != nil {
		return nil, err
	}

	switch coll := input.(type) {
	case value.Arr:
		tv, err := p.unaryCallback(name)
		if err != nil {
			return nil, err
		}
		out := make(value.Arr, 0, len(coll))
		if len(coll) == 0 {
			p.skipCallbackBody()
		} else {
			frame := p.locals[p.depth]
			for j, el := range coll {
				frame.Set(tv.name, el)
				mark := p.current
				mapped, err := p.valExpression()
				if err != nil {
					return nil, err
				}
				out = append(out, mapped)
				if j < len(coll)-1 {
					p.current = mark
				}
			}
		}
		p.restoreTempVar(tv)
		if err := p.closeCall(name); err != nil {
			return nil, err
		}
		return out, nil
	case *value.Object:
		tv, err := p.unaryCallback(name)
		if err != nil {
			return nil, err
		}
		out := value.NewObject()
		keys := coll.Keys()
		if len(keys) == 0 {
			p.skipCallbackBody()
		} else {
			frame := p.locals[p.depth]
			for j, k := range keys {
				el, _ := coll.Get(k)
				frame.Set(tv.name, entryObject(k, el))
				mark := p.current
				mapped, err := p.valExpression()
				if err != nil {
					return nil, err
				}
				out.Set(k, mapped)
				if j < len(keys)-1 {
					p.current = mark
				}
			}
		}
		p.restoreTempVar(tv)
		if err := p.closeCall(name); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, p.errorf("%s: Invalid argument expected Object/Array got %s.", name, kindName(input))
	}
}

func (p *Parser) foldImpl(name string) (value.Value, error) {
	input, err := p.openCall(name)
	if err != nil {
		return nil, err
	}
	if err := p.consume(lexer.Comma, "%s: Expect ',' after arg 1.", name); err != nil {
		return nil, err
	}

	var elements []value.Value
	switch coll := input.(type) {
	case value.Arr:
		elements = coll
	case *value.Object:
		coll.Range(func(k string, v value.Value) bool {
			elements = append(elements, entryObject(k, v))
			return true
		})
	default:
		return nil, p.errorf("%s: Invalid argument 1 expected an Array/Object got %s.", name, kindName(input))
	}

	tv1, tv2, err := p.binaryCallback(name)
	if err != nil {
		return nil, err
	}

	frame := p.locals[p.depth]
	if len(elements) == 0 {
		p.skipCallbackBody()
	} else {
		for j, el := range elements {
			frame.Set(tv1.name, el)
			mark := p.current
			acc, err := p.valExpression()
			if err != nil {
				return nil, err
			}
			frame.Set(tv2.name, acc)
			if j < len(elements)-1 {
				p.current = mark
			}
		}
	}

	ret, _ := frame.Get(tv2.name)
	if ret == nil {
		ret = value.Nil{}
	}
	p.restoreTempVar(tv1)
	p.restoreTempVar(tv2)

	if err := p.closeCall(name); err != nil {
		return nil, err
	}
	return ret, nil
}

func (p *Parser) sortImpl(name string) (value.Value, error) {
	input, err := p.openCall(name)
	if err != nil {
		return nil, err
	}
	if err := p.consume(lexer.Comma, "%s: Expect ',' after arg 1.", name); err != nil {
		return nil, err
	}

	arr, ok := input.(value.Arr)
	if !ok {
		return nil, p.errorf("%s: Invalid argument 1 expected an Array got %s.", name, kindName(input))
	}

	tv1, tv2, err := p.binaryCallback(name)
	if err != nil {
		return nil, err
	}

	out := make(value.Arr, len(arr))
	copy(out, arr)
	if err := p.quicksort(name, out, tv1, tv2); err != nil {
		return nil, err
	}
	// every comparison restored the cursor; pass the body exactly once
	p.skipCallbackBody()

	p.restoreTempVar(tv1)
	p.restoreTempVar(tv2)

	if err := p.closeCall(name); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Parser) quicksort(name string, a value.Arr, tv1, tv2 tempVar) error {
	if len(a) <= 1 {
		return nil
	}
	q, err := p.partition(name, a, tv1, tv2)
	if err != nil {
		return err
	}
	if err := p.quicksort(name, a[:q], tv1, tv2); err != nil {
		return err
	}
	return p.quicksort(name, a[q+1:], tv1, tv2)
}

// partition runs the comparator against the pivot (last element); a true
// result means the left reference precedes the right.
func (p *Parser) partition(name string, a value.Arr, tv1, tv2 tempVar) (int, error) {
	i := 0
	right := len(a) - 1
	frame := p.locals[p.depth]

	for j := 0; j < right; j++ {
		frame.Set(tv1.name, a[j])
		frame.Set(tv2.name, a[right])

		mark := p.current
		cond, err := p.valExpression()
		if err != nil {
			return 0, err
		}
		b, ok := cond.(value.Bool)
		if !ok {
			return 0, p.errorf("%s: condition must be boolean got %s.", name, kindName(cond))
		}
		if b {
			a[j], a[i] = a[i], a[j]
			i++
		}
		p.current = mark
	}

	a[i], a[right] = a[right], a[i]
	return i, nil
}

func (p *Parser) zipImpl(name string) (value.Value, error) {
	a, err := p.openCall(name)
	if err != nil {
		return nil, err
	}
	if err := p.consume(lexer.Comma, "%s: Expect ',' after arg 1.", name); err != nil {
		return nil, err
	}
	b, err := p.valExpression()
	if err != nil {
		return nil, err
	}

	aa, aok := a.(value.Arr)
	bb, bok := b.(value.Arr)
	switch {
	case aok && bok:
	case aok:
		return nil, p.errorf("%s: Invalid argument 2 expected an Array got %s.", name, kindName(b))
	case bok:
		return nil, p.errorf("%s: Invalid argument 1 expected an Array got %s.", name, kindName(a))
	default:
		return nil, p.errorf("%s: Invalid arguments expected Arrays got %s and %s.", name, kindName(a), kindName(b))
	}

	n := len(aa)
	if len(bb) > n {
		n = len(bb)
	}
	out := make(value.Arr, 0, n)
	for i := 0; i < n; i++ {
		var av, bv value.Value = value.Nil{}, value.Nil{}
		if i < len(aa) {
			av = aa[i]
		}
		if i < len(bb) {
			bv = bb[i]
		}
		out = append(out, value.Arr{av, bv})
	}

	if err := p.closeCall(name); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Parser) charsImpl(name string) (value.Value, error) {
	input, err := p.openCall(name)
	if err != nil {
		return nil, err
	}
	s, ok := input.(value.Str)
	if !ok {
		return nil, p.errorf("%s: Invalid argument expected String got %s.", name, kindName(input))
	}
	if err := p.closeCall(name); err != nil {
		return nil, err
	}

	gs := lexer.Graphemes(string(s))
	out := make(value.Arr, 0, len(gs))
	for _, g := range gs {
		out = append(out, value.Str(g))
	}
	return out, nil
}

func (p *Parser) keysImpl(name string) (value.Value, error) {
	input, err := p.openCall(name)
	if err != nil {
		return nil, err
	}
	o, ok := input.(*value.Object)
	if !ok {
		return nil, p.errorf("%s: Invalid argument expected Object got %s.", name, kindName(input))
	}
	if err := p.closeCall(name); err != nil {
		return nil, err
	}

	out := make(value.Arr, 0, o.Len())
	for _, k := range o.Keys() {
		out = append(out, value.Str(k))
	}
	return out, nil
}

func (p *Parser) valuesImpl(name string) (value.Value, error) {
	input, err := p.openCall(name)
	if err != nil {
		return nil, err
	}
	o, ok := input.(*value.Object)
	if !ok {
		return nil, p.errorf("%s: Invalid argument expected Object got %s.", name, kindName(input))
	}
	if err := p.closeCall(name); err != nil {
		return nil, err
	}

	return value.Arr(o.Values()), nil
}

func (p *Parser) toStringImpl(name string) (value.Value, error) {
	input, err := p.openCall(name)
	if err != nil {
		return nil, err
	}
	if err := p.closeCall(name); err != nil {
		return nil, err
	}

	var sb strings.Builder
	flatten(&sb, input)
	return value.Str(sb.String()), nil
}

// flatten concatenates element representations depth-first.
func flatten(sb *strings.Builder, v value.Value) {
	switch t := v.(type) {
	case value.Bool:
		sb.WriteString(boolWord(t))
	case value.Num:
		sb.WriteString(value.FormatNum(float64(t)))
	case value.Str:
		sb.WriteString(string(t))
	case value.Nil, nil:
		sb.WriteString("nil")
	case value.Arr:
		for _, e := range t {
			flatten(sb, e)
		}
	case *value.Object:
		t.Range(func(_ string, e value.Value) bool {
			flatten(sb, e)
			return true
		})
	}
}
