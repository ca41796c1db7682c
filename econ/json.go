package econ

import (
	"encoding/json"

	"github.com/dollerama/econ-go/value"
)

// Marshal renders an evaluated tree as strict JSON: nil becomes null, and
// any tree the evaluator produces is valid input for a standard JSON
// library.
func Marshal(v value.Value) ([]byte, error) {
	return value.AppendJSON(nil, v), nil
}

// Unmarshal evaluates Econ source and decodes the result into out through
// the strict JSON profile, so out can be any structure encoding/json
// accepts.
func Unmarshal(src string, out any, opts ...Option) error {
	v, err := Parse(src, opts...)
	if err != nil {
		return err
	}
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
