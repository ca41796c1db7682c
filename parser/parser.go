// Package parser evaluates Econ token streams. Parsing and evaluation are
// fused: grammar productions return values, not syntax nodes. The parser
// owns a buffered token stream, a stack of lexically nested scope frames,
// and a per-frame constraint registry; higher-order operators and
// constraint hooks re-enter the expression grammar by rewinding the token
// cursor.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rivo/uniseg"

	"github.com/dollerama/econ-go/lexer"
	"github.com/dollerama/econ-go/value"
)

// constraint is a recorded hook body: an index into the token buffer and
// whether a firing condition aborts the parse.
type constraint struct {
	start   int
	isError bool
}

// Parser evaluates one token stream. It is not reentrant across parses;
// create a new Parser per source.
type Parser struct {
	tokens       []lexer.Token
	current      int
	source       string
	locals       []*value.Object
	constraints  []map[string][]constraint
	depth        int
	inConstraint bool
	debug        *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithDebug attaches a diagnostic sink that receives the token stream,
// timing, and the evaluated result. Nil disables debug output.
func WithDebug(logger *slog.Logger) Option {
	return func(p *Parser) { p.debug = logger }
}

// New returns a parser for source text. The text is only used for error
// context; tokens come from the lexer passed to Parse.
func New(source string, opts ...Option) *Parser {
	p := &Parser{source: source, depth: -1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse drains lx into the token buffer, expanding macro payloads inline,
// then evaluates a single top-level value expression.
func (p *Parser) Parse(lx *lexer.Lexer) (value.Value, error) {
	start := time.Now()
	if p.debug != nil {
		p.debug.Info("scanning", "source", lx.Source())
	}

	for {
		t, err := lx.Scan()
		if err != nil {
			if errors.Is(err, lexer.ErrMacroDefined) {
				continue
			}
			return nil, err
		}
		if t.Type == lexer.EOF {
			break
		}
		p.append(t)
	}
	if p.debug != nil {
		p.debug.Info("scan complete", "tokens", len(p.tokens), "elapsed", time.Since(start))
	}

	// one root frame so operator callbacks at top level have somewhere to
	// bind their iterators
	p.pushFrame()
	defer p.popFrame()

	v, err := p.valExpression()
	if err != nil {
		return nil, err
	}
	if p.debug != nil {
		p.debug.Info("parse complete", "elapsed", time.Since(start), "result", value.Print(v))
	}
	return v, nil
}

// append adds a token to the buffer, flattening macro expansions.
func (p *Parser) append(t lexer.Token) {
	if t.Type == lexer.Macro {
		for _, e := range t.Expansion {
			p.append(e)
		}
		return
	}
	if p.debug != nil {
		p.debug.Debug("token", "line", t.Line, "token", t.String())
	}
	p.tokens = append(p.tokens, t)
}

func (p *Parser) pushFrame() {
	p.locals = append(p.locals, value.NewObject())
	p.constraints = append(p.constraints, make(map[string][]constraint))
	p.depth++
}

func (p *Parser) popFrame() {
	p.locals = p.locals[:len(p.locals)-1]
	p.constraints = p.constraints[:len(p.constraints)-1]
	p.depth--
}

func (p *Parser) peek() lexer.Token {
	if p.current >= len(p.tokens) {
		t := lexer.Token{Type: lexer.EOF}
		if n := len(p.tokens); n > 0 {
			t.Line = p.tokens[n-1].Line
		}
		return t
	}
	return p.tokens[p.current]
}

func (p *Parser) eat() { p.current++ }

func (p *Parser) atEnd() bool { return p.current >= len(p.tokens) }

func (p *Parser) check(tt lexer.TokenType) bool {
	return !p.atEnd() && p.tokens[p.current].Type == tt
}

func (p *Parser) matchToken(tt lexer.TokenType) bool {
	if p.check(tt) {
		p.eat()
		return true
	}
	return false
}

func (p *Parser) consume(tt lexer.TokenType, format string, args ...any) error {
	if p.check(tt) {
		p.eat()
		return nil
	}
	return p.errorf(format, args...)
}

func (p *Parser) errorf(format string, args ...any) error {
	return &Error{Line: p.peek().Line, Message: fmt.Sprintf(format, args...), source: p.source}
}

func kindName(v value.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}

// valExpression evaluates one full expression and submits the result to
// the constraint engine.
func (p *Parser) valExpression() (value.Value, error) {
	v, err := p.equality()
	if err != nil {
		return nil, err
	}
	return p.applyConstraints(v)
}

func (p *Parser) equality() (value.Value, error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}

	for !p.atEnd() {
		switch p.peek().Type {
		case lexer.Equal:
			p.eat()
			right, err := p.comparison()
			if err != nil {
				return nil, err
			}
			left, err = p.equalValues(left, right, "==", true)
			if err != nil {
				return nil, err
			}
		case lexer.NotEqual:
			p.eat()
			right, err := p.comparison()
			if err != nil {
				return nil, err
			}
			left, err = p.equalValues(left, right, "~=", false)
			if err != nil {
				return nil, err
			}
		case lexer.Question:
			p.eat()
			// both branches evaluate; the condition picks one
			thenV, err := p.equality()
			if err != nil {
				return nil, err
			}
			if err := p.consume(lexer.Colon, "Expect ':'."); err != nil {
				return nil, err
			}
			elseV, err := p.equality()
			if err != nil {
				return nil, err
			}
			cond, ok := left.(value.Bool)
			if !ok {
				return nil, p.errorf("Invalid ternary expected bool got: %s", kindName(left))
			}
			if cond {
				left = thenV
			} else {
				left = elseV
			}
		default:
			return left, nil
		}
	}
	return left, nil
}

// equalValues compares values of identical primitive type; want is the
// result of a matching pair under the operator.
func (p *Parser) equalValues(l, r value.Value, op string, want bool) (value.Value, error) {
	switch a := l.(type) {
	case value.Num:
		if b, ok := r.(value.Num); ok {
			return value.Bool((a == b) == want), nil
		}
	case value.Bool:
		if b, ok := r.(value.Bool); ok {
			return value.Bool((a == b) == want), nil
		}
	case value.Str:
		if b, ok := r.(value.Str); ok {
			return value.Bool((a == b) == want), nil
		}
	}
	return nil, p.errorf("Invalid '%s' of types: %s and %s", op, kindName(l), kindName(r))
}

func (p *Parser) comparison() (value.Value, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}

	for !p.atEnd() {
		switch op := p.peek().Type; op {
		case lexer.Less, lexer.LessEqual, lexer.Greater, lexer.GreaterEqual:
			p.eat()
			right, err := p.term()
			if err != nil {
				return nil, err
			}
			left, err = p.compareValues(left, right, op)
			if err != nil {
				return nil, err
			}
		case lexer.And, lexer.Or:
			p.eat()
			right, err := p.term()
			if err != nil {
				return nil, err
			}
			lb, lok := left.(value.Bool)
			rb, rok := right.(value.Bool)
			if !lok || !rok {
				name := "and"
				if op == lexer.Or {
					name = "or"
				}
				return nil, p.errorf("Invalid '%s' of types: %s and %s", name, kindName(left), kindName(right))
			}
			if op == lexer.And {
				left = value.Bool(bool(lb) && bool(rb))
			} else {
				left = value.Bool(bool(lb) || bool(rb))
			}
		default:
			return left, nil
		}
	}
	return left, nil
}

func (p *Parser) compareValues(l, r value.Value, op lexer.TokenType) (value.Value, error) {
	opName := map[lexer.TokenType]string{
		lexer.Less:         "<",
		lexer.LessEqual:    "<=",
		lexer.Greater:      ">",
		lexer.GreaterEqual: ">=",
	}[op]

	if a, ok := l.(value.Num); ok {
		if b, ok := r.(value.Num); ok {
			switch op {
			case lexer.Less:
				return value.Bool(a < b), nil
			case lexer.LessEqual:
				return value.Bool(a <= b), nil
			case lexer.Greater:
				return value.Bool(a > b), nil
			case lexer.GreaterEqual:
				return value.Bool(a >= b), nil
			}
		}
	}
	if a, ok := l.(value.Str); ok {
		// code-point lexicographic order
		if b, ok := r.(value.Str); ok {
			switch op {
			case lexer.Less:
				return value.Bool(a < b), nil
			case lexer.LessEqual:
				return value.Bool(a <= b), nil
			case lexer.Greater:
				return value.Bool(a > b), nil
			case lexer.GreaterEqual:
				return value.Bool(a >= b), nil
			}
		}
	}
	return nil, p.errorf("Invalid '%s' of types: %s and %s", opName, kindName(l), kindName(r))
}

func (p *Parser) term() (value.Value, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}

	for !p.atEnd() {
		switch p.peek().Type {
		case lexer.Plus:
			p.eat()
			right, err := p.factor()
			if err != nil {
				return nil, err
			}
			left, err = p.addValues(left, right)
			if err != nil {
				return nil, err
			}
		case lexer.BackSlash:
			p.eat()
			right, err := p.factor()
			if err != nil {
				return nil, err
			}
			left, err = p.joinValues(left, right)
			if err != nil {
				return nil, err
			}
		case lexer.Minus:
			p.eat()
			right, err := p.factor()
			if err != nil {
				return nil, err
			}
			a, aok := left.(value.Num)
			b, bok := right.(value.Num)
			if !aok || !bok {
				return nil, p.errorf("Invalid subtraction of types: %s and %s", kindName(left), kindName(right))
			}
			left = a - b
		default:
			return left, nil
		}
	}
	return left, nil
}

func boolWord(b value.Bool) string {
	if b {
		return "true"
	}
	return "false"
}

// addValues implements '+': numeric addition, string concatenation with
// scalars, array concatenation, right-biased object merge preserving the
// left operand's key order, and nil as identity for each of those.
func (p *Parser) addValues(l, r value.Value) (value.Value, error) {
	switch a := l.(type) {
	case value.Num:
		switch b := r.(type) {
		case value.Num:
			return a + b, nil
		case value.Str:
			return value.Str(value.FormatNum(float64(a)) + string(b)), nil
		case value.Nil:
			return a, nil
		}
	case value.Str:
		switch b := r.(type) {
		case value.Str:
			return a + b, nil
		case value.Num:
			return value.Str(string(a) + value.FormatNum(float64(b))), nil
		case value.Bool:
			return value.Str(string(a) + boolWord(b)), nil
		case value.Nil:
			return a, nil
		}
	case value.Bool:
		if b, ok := r.(value.Str); ok {
			return value.Str(boolWord(a) + string(b)), nil
		}
	case value.Arr:
		switch b := r.(type) {
		case value.Arr:
			out := make(value.Arr, 0, len(a)+len(b))
			out = append(out, a...)
			out = append(out, b...)
			return out, nil
		case value.Nil:
			out := make(value.Arr, len(a))
			copy(out, a)
			return out, nil
		}
	case *value.Object:
		switch b := r.(type) {
		case *value.Object:
			out := a.Clone()
			b.Range(func(k string, v value.Value) bool {
				out.Set(k, v)
				return true
			})
			return out, nil
		case value.Nil:
			return a.Clone(), nil
		}
	case value.Nil:
		switch b := r.(type) {
		case value.Num:
			return b, nil
		case value.Str:
			return b, nil
		case value.Arr:
			out := make(value.Arr, len(b))
			copy(out, b)
			return out, nil
		case *value.Object:
			return b.Clone(), nil
		}
	}
	return nil, p.errorf("Invalid addition of types: %s and %s", kindName(l), kindName(r))
}

// joinValues implements '\': string joining with a newline; nil is the
// identity on either side of a string.
func (p *Parser) joinValues(l, r value.Value) (value.Value, error) {
	switch a := l.(type) {
	case value.Str:
		switch b := r.(type) {
		case value.Str:
			return value.Str(string(a) + "\n" + string(b)), nil
		case value.Num:
			return value.Str(string(a) + "\n" + value.FormatNum(float64(b))), nil
		case value.Bool:
			return value.Str(string(a) + "\n" + boolWord(b)), nil
		case value.Nil:
			return a, nil
		}
	case value.Num:
		if b, ok := r.(value.Str); ok {
			return value.Str(value.FormatNum(float64(a)) + "\n" + string(b)), nil
		}
	case value.Bool:
		if b, ok := r.(value.Str); ok {
			return value.Str(boolWord(a) + "\n" + string(b)), nil
		}
	case value.Nil:
		if b, ok := r.(value.Str); ok {
			return b, nil
		}
	}
	return nil, p.errorf("Invalid concatenation of types: %s and %s", kindName(l), kindName(r))
}

func (p *Parser) factor() (value.Value, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}

	for !p.atEnd() {
		var opName string
		switch p.peek().Type {
		case lexer.Mult:
			opName = "*"
		case lexer.Div:
			opName = "/"
		case lexer.Percent:
			opName = "%"
		default:
			return left, nil
		}
		p.eat()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		a, aok := left.(value.Num)
		b, bok := right.(value.Num)
		if !aok || !bok {
			return nil, p.errorf("Invalid '%s' of types: %s and %s", opName, kindName(left), kindName(right))
		}
		switch opName {
		case "*":
			left = a * b
		case "/":
			left = a / b
		case "%":
			// Euclidean remainder
			rem := math.Mod(float64(a), float64(b))
			if rem < 0 {
				rem += math.Abs(float64(b))
			}
			left = value.Num(rem)
		}
	}
	return left, nil
}

func (p *Parser) unary() (value.Value, error) {
	switch p.peek().Type {
	case lexer.Minus:
		p.eat()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		if n, ok := right.(value.Num); ok {
			return -n, nil
		}
		return right, nil
	case lexer.Not:
		p.eat()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		if b, ok := right.(value.Bool); ok {
			return !b, nil
		}
		return right, nil
	case lexer.Sharp:
		p.eat()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		switch t := right.(type) {
		case value.Str:
			return value.Num(uniseg.GraphemeClusterCount(string(t))), nil
		case value.Num:
			return t, nil
		case value.Arr:
			return value.Num(len(t)), nil
		case *value.Object:
			return value.Num(t.Len()), nil
		}
		return nil, p.errorf("Invalid '#' of type: %s", kindName(right))
	default:
		return p.primary()
	}
}

func (p *Parser) primary() (value.Value, error) {
	t := p.peek()
	switch t.Type {
	case lexer.Fn:
		switch t.Fn {
		case lexer.FnFilter:
			return p.filterImpl("filter")
		case lexer.FnMap:
			return p.mapImpl("map")
		case lexer.FnChars:
			return p.charsImpl("chars")
		case lexer.FnToString:
			return p.toStringImpl("to_string")
		case lexer.FnKeys:
			return p.keysImpl("keys")
		case lexer.FnValues:
			return p.valuesImpl("values")
		case lexer.FnFold:
			return p.foldImpl("fold")
		case lexer.FnSort:
			return p.sortImpl("sort")
		case lexer.FnZip:
			return p.zipImpl("zip")
		}
		return nil, p.errorf("Unknown builtin.")
	case lexer.Nil:
		p.eat()
		return value.Nil{}, nil
	case lexer.Num:
		p.eat()
		return value.Num(t.Num), nil
	case lexer.Bool:
		p.eat()
		return value.Bool(t.Bool), nil
	case lexer.Str:
		p.eat()
		return value.Str(t.Text), nil
	case lexer.LeftCurl:
		p.eat()
		p.pushFrame()
		obj, err := p.block()
		p.popFrame()
		return obj, err
	case lexer.LeftBracket:
		p.eat()
		return p.array()
	case lexer.Var:
		return p.reference(t)
	case lexer.LeftParen:
		p.eat()
		v, err := p.valExpression()
		if err != nil {
			return nil, err
		}
		if err := p.consume(lexer.RightParen, "Expect ')'."); err != nil {
			return nil, err
		}
		return v, nil
	default:
		// not a value start; callers decide whether nil is acceptable here
		return value.Nil{}, nil
	}
}

// reference resolves a variable token against the scope stack and applies
// any trailing selectors when the result is a container or string.
func (p *Parser) reference(t lexer.Token) (value.Value, error) {
	p.eat()

	var v value.Value = value.Nil{}
	if t.Depth >= 0 {
		if d := p.depth - t.Depth; d >= 0 {
			if x, ok := p.locals[d].Get(t.Text); ok {
				v = x
			}
		}
	} else {
		for d := p.depth; d >= 0; d-- {
			if x, ok := p.locals[d].Get(t.Text); ok {
				v = x
				break
			}
		}
	}

	switch v.(type) {
	case *value.Object, value.Arr, value.Str:
		return p.applySelectors(v)
	}
	return v, nil
}

func (p *Parser) applySelectors(v value.Value) (value.Value, error) {
	for {
		switch p.peek().Type {
		case lexer.Dot:
			p.eat()
			key, err := p.primary()
			if err != nil {
				return nil, err
			}
			v, err = p.selectInto(v, key)
			if err != nil {
				return nil, err
			}
		case lexer.LeftBracket:
			p.eat()
			key, err := p.valExpression()
			if err != nil {
				return nil, err
			}
			if err := p.consume(lexer.RightBracket, "Expect ']' after selector."); err != nil {
				return nil, err
			}
			v, err = p.selectInto(v, key)
			if err != nil {
				return nil, err
			}
		default:
			return v, nil
		}
	}
}

// selectInto indexes a container: string key into an object, numeric index
// into an array or string (one grapheme). Missing keys and out-of-range or
// negative indices yield nil.
func (p *Parser) selectInto(container, key value.Value) (value.Value, error) {
	switch k := key.(type) {
	case value.Str:
		if o, ok := container.(*value.Object); ok {
			if x, ok := o.Get(string(k)); ok {
				return x, nil
			}
			return value.Nil{}, nil
		}
	case value.Num:
		switch c := container.(type) {
		case value.Arr:
			if k < 0 || int(k) >= len(c) {
				return value.Nil{}, nil
			}
			return c[int(k)], nil
		case value.Str:
			if k < 0 {
				return value.Nil{}, nil
			}
			gs := lexer.Graphemes(string(c))
			if int(k) >= len(gs) {
				return value.Nil{}, nil
			}
			return value.Str(gs[int(k)]), nil
		}
	}
	return nil, p.errorf("Expect key after selector.")
}

// block parses the interior of '{ ... }' in an already-pushed frame. Every
// value binds in the current scope under its key, so later siblings can
// reference it.
func (p *Parser) block() (value.Value, error) {
	result := value.NewObject()

	for !p.check(lexer.RightCurl) && !p.atEnd() {
		if err := p.constraintPreProcess(); err != nil {
			return nil, err
		}

		key, val, err := p.keyValue()
		if err != nil {
			return nil, err
		}
		if _, ok := result.Get(key); ok {
			return nil, p.errorf("Duplicate Key.")
		}
		result.Set(key, val)
		p.locals[p.depth].Set(key, val)

		if !p.check(lexer.RightCurl) {
			if err := p.consume(lexer.Comma, "Expect ',' or '}' got %s.", p.peek()); err != nil {
				return nil, err
			}
		}
	}

	if err := p.consume(lexer.RightCurl, "Expect '}' to terminate Object definition."); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Parser) keyValue() (string, value.Value, error) {
	k, err := p.valExpression()
	if err != nil {
		return "", nil, err
	}
	s, ok := k.(value.Str)
	if !ok {
		return "", nil, p.errorf("Expected Key got: %s.", kindName(k))
	}
	if err := p.consume(lexer.Colon, "Expected ':' after Key identifier"); err != nil {
		return "", nil, err
	}
	v, err := p.valExpression()
	if err != nil {
		return "", nil, err
	}
	return string(s), v, nil
}

func (p *Parser) array() (value.Value, error) {
	result := value.Arr{}

	for !p.check(lexer.RightBracket) && !p.atEnd() {
		v, err := p.valExpression()
		if err != nil {
			return nil, err
		}
		result = append(result, v)
		if !p.check(lexer.RightBracket) {
			if err := p.consume(lexer.Comma, "Expect ',' or ']'."); err != nil {
				return nil, err
			}
		}
	}

	if err := p.consume(lexer.RightBracket, "Expect ']' after array."); err != nil {
		return nil, err
	}
	return result, nil
}

// tempVar is a saved binding for an iterator or constraint reference name;
// restore puts the enclosing scope back exactly as it was.
type tempVar struct {
	name string
	prev value.Value
	had  bool
}

// createTempVar evaluates the reference-name expression of a callback and
// binds it to nil in the current frame, remembering any prior binding.
func (p *Parser) createTempVar(fnName string) (tempVar, error) {
	nameVal, err := p.valExpression()
	if err != nil {
		return tempVar{}, err
	}
	s, ok := nameVal.(value.Str)
	if !ok {
		return tempVar{}, p.errorf("%s: Invalid reference got %s.", fnName, kindName(nameVal))
	}
	frame := p.locals[p.depth]
	prev, had := frame.Get(string(s))
	frame.Set(string(s), value.Nil{})
	return tempVar{name: string(s), prev: prev, had: had}, nil
}

func (p *Parser) restoreTempVar(tv tempVar) {
	frame := p.locals[p.depth]
	if tv.had {
		frame.Set(tv.name, tv.prev)
	} else {
		frame.Delete(tv.name)
	}
}
