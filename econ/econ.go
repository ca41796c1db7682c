// Package econ is the public entry point for evaluating Econ sources: a
// JSON superset with expressions, references, macros, higher-order
// operators, and per-scope value constraints.
package econ

import (
	"log/slog"
	"os"

	"github.com/dollerama/econ-go/lexer"
	"github.com/dollerama/econ-go/parser"
	"github.com/dollerama/econ-go/value"
)

type config struct {
	debug *slog.Logger
}

// Option configures an evaluation.
type Option func(*config)

// WithDebug routes the source, token stream, timing, and evaluated result
// to logger. Evaluation itself never writes to the process's streams.
func WithDebug(logger *slog.Logger) Option {
	return func(c *config) { c.debug = logger }
}

// Parse evaluates inline Econ source and returns the resulting value tree.
func Parse(src string, opts ...Option) (value.Value, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}

	var popts []parser.Option
	if c.debug != nil {
		popts = append(popts, parser.WithDebug(c.debug))
	}
	p := parser.New(src, popts...)
	return p.Parse(lexer.New(src))
}

// ParseFile reads path and evaluates its contents.
func ParseFile(path string, opts ...Option) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data), opts...)
}

// Load evaluates srcOrPath as a file when one exists at that path, and as
// inline source otherwise.
func Load(srcOrPath string, opts ...Option) (value.Value, error) {
	if info, err := os.Stat(srcOrPath); err == nil && !info.IsDir() {
		return ParseFile(srcOrPath, opts...)
	}
	return Parse(srcOrPath, opts...)
}
