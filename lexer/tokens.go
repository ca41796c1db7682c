package lexer

import (
	"fmt"

	"github.com/dollerama/econ-go/value"
)

// TokenType identifies a lexical token.
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota

	// Structure
	LeftCurl     // {
	RightCurl    // }
	LeftBracket  // [
	RightBracket // ]
	LeftParen    // (
	RightParen   // )
	Comma        // ,
	Colon        // :
	SemiColon    // ;
	Dot          // .
	BackSlash    // \ - line join
	Sharp        // # - length
	Percent      // %
	Question     // ? - ternary
	Arrow        // =>
	Pipe         // | - callback reference list

	// Arithmetic
	Plus  // +
	Minus // -
	Mult  // *
	Div   // /

	// Comparison
	Less         // <
	LessEqual    // <=
	Greater      // >
	GreaterEqual // >=
	Equal        // ==
	NotEqual     // ~=

	// Logical
	Not // ~ or not
	And // && or and
	Or  // || or or

	// Literals and references
	Num  // number literal, also inf
	Bool // true, false
	Str  // string literal or bare identifier
	Nil  // nil
	Var  // $name, $$name, ..., !name
	Fn   // builtin name

	// Macro sublanguage
	Macro           // inline expansion payload
	ConstraintMacro // @{
	ErrorMacro      // @!
)

// Builtin identifies a higher-order builtin function.
type Builtin int

const (
	FnFilter Builtin = iota
	FnMap
	FnChars
	FnToString
	FnKeys
	FnValues
	FnFold
	FnSort
	FnZip
)

var builtinNames = map[Builtin]string{
	FnFilter:   "filter",
	FnMap:      "map",
	FnChars:    "chars",
	FnToString: "to_string",
	FnKeys:     "keys",
	FnValues:   "values",
	FnFold:     "fold",
	FnSort:     "sort",
	FnZip:      "zip",
}

func (b Builtin) String() string { return builtinNames[b] }

// Token is a lexical token with its payload and 0-based source line.
type Token struct {
	Type      TokenType
	Num       float64 // Num payload
	Bool      bool    // Bool payload
	Text      string  // Str payload or Var name
	Depth     int     // Var depth hint: 0 local, k>=1 fixed ancestor, -1 deep walk
	Fn        Builtin // Fn payload
	Expansion []Token // Macro payload
	Line      int
}

var punctNames = map[TokenType]string{
	EOF:             "EOF",
	LeftCurl:        "'{'",
	RightCurl:       "'}'",
	LeftBracket:     "'['",
	RightBracket:    "']'",
	LeftParen:       "'('",
	RightParen:      "')'",
	Comma:           "','",
	Colon:           "':'",
	SemiColon:       "';'",
	Dot:             "'.'",
	BackSlash:       "'\\'",
	Sharp:           "'#'",
	Percent:         "'%'",
	Question:        "'?'",
	Arrow:           "'=>'",
	Pipe:            "'|'",
	Plus:            "'+'",
	Minus:           "'-'",
	Mult:            "'*'",
	Div:             "'/'",
	Less:            "'<'",
	LessEqual:       "'<='",
	Greater:         "'>'",
	GreaterEqual:    "'>='",
	Equal:           "'=='",
	NotEqual:        "'~='",
	Not:             "'~'",
	And:             "'&&'",
	Or:              "'||'",
	Nil:             "nil",
	ConstraintMacro: "'@{'",
	ErrorMacro:      "'@!'",
}

// String renders the token for diagnostics and debug dumps.
func (t Token) String() string {
	switch t.Type {
	case Num:
		return value.FormatNum(t.Num)
	case Bool:
		if t.Bool {
			return "true"
		}
		return "false"
	case Str:
		return fmt.Sprintf("%q", t.Text)
	case Var:
		return fmt.Sprintf("Var(%d, %s)", t.Depth, t.Text)
	case Fn:
		return t.Fn.String()
	case Macro:
		return fmt.Sprintf("Macro(%d tokens)", len(t.Expansion))
	}
	if s, ok := punctNames[t.Type]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t.Type))
}
