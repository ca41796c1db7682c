package parser

import (
	"github.com/dollerama/econ-go/lexer"
	"github.com/dollerama/econ-go/value"
)

// The constraint engine records hook bodies as token ranges while a block
// is being parsed, then replays them against every leaf value a full
// expression produces in that scope. A firing non-error hook replaces the
// working value; a firing error hook aborts the parse with the hook's
// message. The in_constraint flag keeps hook bodies from triggering hooks
// themselves.

// constraintPreProcess records any '@{type, body}' and '@!{type, body}'
// declarations at the current position into the current frame's registry.
// Bodies are stored by token index, never evaluated here.
func (p *Parser) constraintPreProcess() error {
	for {
		switch p.peek().Type {
		case lexer.ConstraintMacro:
			if err := p.recordConstraint(false); err != nil {
				return err
			}
		case lexer.ErrorMacro:
			if err := p.recordConstraint(true); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *Parser) recordConstraint(isError bool) error {
	p.eat()

	openMsg, tagMsg, commaMsg, unterminatedMsg :=
		"Expected '{' after '@'.",
		"Constraint Macro preprocessor Error.",
		"Expected ',' after Constraint Type.",
		"Unterminated Constraint Macro."
	if isError {
		openMsg, tagMsg, commaMsg, unterminatedMsg =
			"Expected '{' after '@!'.",
			"Error Macro preprocessor Error.",
			"Expected ',' after Error Type.",
			"Unterminated Error Macro."
	}

	if err := p.consume(lexer.LeftCurl, openMsg); err != nil {
		return err
	}

	var tag string
	switch t := p.peek(); t.Type {
	case lexer.Str:
		tag = t.Text
	case lexer.Nil:
		// the bare keyword lexes as the nil literal
		tag = "nil"
	default:
		return p.errorf(tagMsg)
	}
	p.eat()

	if err := p.consume(lexer.Comma, commaMsg); err != nil {
		return err
	}

	reg := p.constraints[p.depth]
	reg[tag] = append(reg[tag], constraint{start: p.current, isError: isError})

	for {
		if p.matchToken(lexer.RightCurl) {
			return nil
		}
		if p.atEnd() || p.check(lexer.EOF) {
			return p.errorf(unterminatedMsg)
		}
		p.eat()
	}
}

// applyConstraints submits a leaf value to every registered hook for its
// type tag, walking frames from innermost outward, hooks in declaration
// order. Containers pass through untouched.
func (p *Parser) applyConstraints(input value.Value) (value.Value, error) {
	if p.inConstraint {
		return input, nil
	}

	var tag string
	switch input.(type) {
	case value.Str:
		tag = "string"
	case value.Bool:
		tag = "bool"
	case value.Num:
		tag = "number"
	case value.Nil:
		tag = "nil"
	default:
		return input, nil
	}

	working := input
	for d := p.depth; d >= 0; d-- {
		hooks := p.constraints[d][tag]
		if len(hooks) == 0 {
			continue
		}
		p.inConstraint = true
		for _, c := range hooks {
			next, err := p.runConstraint(c, tag, working)
			if err != nil {
				p.inConstraint = false
				return nil, err
			}
			working = next
		}
		p.inConstraint = false
	}
	return working, nil
}

// runConstraint replays one hook body against the working value: jump to
// the body, bind the reference name, evaluate condition and result, then
// put the cursor and the reference binding back.
func (p *Parser) runConstraint(c constraint, tag string, working value.Value) (value.Value, error) {
	label := tag + " constraint"
	if c.isError {
		label = tag + " error"
	}

	returnTo := p.current
	p.current = c.start

	tv, err := p.createTempVar(label)
	if err != nil {
		return nil, err
	}
	p.locals[p.depth].Set(tv.name, working)

	if err := p.consume(lexer.Arrow, "%s: Expect '=>' after reference.", label); err != nil {
		return nil, err
	}
	cond, err := p.valExpression()
	if err != nil {
		return nil, err
	}
	if err := p.consume(lexer.Comma, "%s: Expect ',' after condition.", label); err != nil {
		return nil, err
	}
	result, err := p.valExpression()
	if err != nil {
		return nil, err
	}

	fired := false
	if tag == "nil" {
		// a nil hook fires when its condition evaluates to nil
		if _, ok := cond.(value.Nil); ok {
			fired = true
		} else {
			return nil, p.errorf("%s: condition must be boolean.", label)
		}
	} else {
		b, ok := cond.(value.Bool)
		if !ok {
			return nil, p.errorf("%s: condition must be boolean.", label)
		}
		fired = bool(b)
	}

	if fired {
		if c.isError {
			if s, ok := result.(value.Str); ok {
				return nil, p.errorf("%s", string(s))
			}
			return nil, p.errorf("%s", value.Print(result))
		}
		working = result
	}

	p.restoreTempVar(tv)
	p.current = returnTo
	return working, nil
}
